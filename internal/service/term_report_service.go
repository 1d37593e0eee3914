package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type termReportRepo interface {
	UpsertAll(ctx context.Context, reports []models.TermReport) error
	List(ctx context.Context, filter models.TermReportFilter) ([]models.TermReport, int, error)
	SetPublished(ctx context.Context, id string, published bool) error
}

type termExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error)
}

type examResultsReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.ExamResult, error)
}

type classRoster interface {
	ListActiveByClass(ctx context.Context, classID string) ([]models.Student, error)
}

// competitionRank assigns 1-based positions where tied scores share the same
// position and the next distinct score skips past the tie block.
func competitionRank(scores []float64) []int {
	positions := make([]int, len(scores))
	for i, score := range scores {
		rank := 1
		for j, other := range scores {
			if j != i && other > score {
				rank++
			}
		}
		positions[i] = rank
	}
	return positions
}

// TermReportListing is the cacheable result of a term report query.
type TermReportListing struct {
	Reports []models.TermReport `json:"reports"`
	Total   int                 `json:"total"`
}

// TermReportService turns one exam's results into per-student term reports
// with class-wide statistics and rankings.
type TermReportService struct {
	reports  termReportRepo
	exams    termExamReader
	results  examResultsReader
	students classRoster
	grading  gradingRangesReader
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewTermReportService constructs TermReportService.
func NewTermReportService(reports termReportRepo, exams termExamReader, results examResultsReader, students classRoster, grading gradingRangesReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *TermReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermReportService{reports: reports, exams: exams, results: results, students: students, grading: grading, cache: cache, metrics: metrics, logger: logger}
}

type studentAggregate struct {
	studentID string
	total     float64
	average   float64
}

// Generate computes term reports for every active student of the exam's class
// and writes them in a single transaction. Returns the number of reports
// written. Students with no usable results are skipped entirely so their
// previously stored reports survive a re-run untouched.
func (s *TermReportService) Generate(ctx context.Context, examID string) (int, error) {
	start := time.Now()
	count, err := s.generate(ctx, examID)
	if s.metrics != nil {
		s.metrics.ObserveGenerationRun("term_report", err, count, time.Since(start))
	}
	return count, err
}

func (s *TermReportService) generate(ctx context.Context, examID string) (int, error) {
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if !exam.IncludeInTermReport {
		return 0, appErrors.Clone(appErrors.ErrValidation, "exam is excluded from term reports")
	}

	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam subjects")
	}
	subjectByID := make(map[string]models.ExamSubject, len(subjects))
	for _, sub := range subjects {
		subjectByID[sub.ID] = sub
	}

	results, err := s.results.ListByExam(ctx, examID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam results")
	}
	byStudent := make(map[string][]models.ExamResult)
	for _, r := range results {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	roster, err := s.students.ListActiveByClass(ctx, exam.ClassID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}

	system, err := s.grading.FindByID(ctx, exam.GradingSystemID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading system")
	}

	// First pass: weighted averages per student. The weight denominator only
	// counts subjects the student actually sat, so a missing paper does not
	// drag the average down.
	aggregates := make([]studentAggregate, 0, len(roster))
	for _, student := range roster {
		var weighted, weightSum, rawTotal float64
		for _, r := range byStudent[student.ID] {
			if !r.HasScore() {
				continue
			}
			sub, ok := subjectByID[r.ExamSubjectID]
			if !ok || sub.MaxScore <= 0 || sub.Weight <= 0 {
				continue
			}
			weighted += (*r.Score / sub.MaxScore) * sub.Weight
			weightSum += sub.Weight
			rawTotal += *r.Score
		}
		if weightSum == 0 {
			continue
		}
		aggregates = append(aggregates, studentAggregate{
			studentID: student.ID,
			total:     round2(rawTotal),
			average:   round2(weighted / weightSum * 100),
		})
	}
	if len(aggregates) == 0 {
		s.logger.Info("term report run produced no rows", zap.String("exam_id", examID))
		return 0, nil
	}

	var classSum float64
	classHigh := aggregates[0].average
	classLow := aggregates[0].average
	for _, agg := range aggregates {
		classSum += agg.average
		if agg.average > classHigh {
			classHigh = agg.average
		}
		if agg.average < classLow {
			classLow = agg.average
		}
	}
	classAvg := round2(classSum / float64(len(aggregates)))

	// Second pass: positions over the completed set, then rows.
	averages := make([]float64, len(aggregates))
	for i, agg := range aggregates {
		averages[i] = agg.average
	}
	positions := competitionRank(averages)

	reports := make([]models.TermReport, 0, len(aggregates))
	for i, agg := range aggregates {
		agg := agg
		position := positions[i]
		grade := models.GradeUnclassified
		if resolved := ResolveGrade(system.Ranges, agg.average); resolved != nil {
			grade = resolved.Grade
		}
		reports = append(reports, models.TermReport{
			StudentID:       agg.studentID,
			ClassID:         exam.ClassID,
			Term:            exam.Term,
			AcademicYear:    exam.AcademicYear,
			TotalScore:      &agg.total,
			AverageScore:    &agg.average,
			OverallGrade:    &grade,
			OverallPosition: &position,
			ClassAverage:    &classAvg,
			ClassHighest:    &classHigh,
			ClassLowest:     &classLow,
		})
	}

	if err := s.reports.UpsertAll(ctx, reports); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store term reports")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "term_reports:*")
	}
	s.logger.Info("term reports generated",
		zap.String("exam_id", examID),
		zap.String("class_id", exam.ClassID),
		zap.Int("count", len(reports)))
	return len(reports), nil
}

// List returns term reports matching the filter, served from cache when warm.
func (s *TermReportService) List(ctx context.Context, filter models.TermReportFilter) (*TermReportListing, error) {
	key := termReportCacheKey(filter)
	var cached TermReportListing
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list term reports")
	}
	listing := &TermReportListing{Reports: reports, Total: total}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, listing, 0)
	}
	return listing, nil
}

// Publish makes one term report visible to parents.
func (s *TermReportService) Publish(ctx context.Context, id string) error {
	if err := s.reports.SetPublished(ctx, id, true); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "term_reports:*")
	}
	return nil
}

func termReportCacheKey(filter models.TermReportFilter) string {
	published := "any"
	if filter.Published != nil {
		published = fmt.Sprintf("%t", *filter.Published)
	}
	return fmt.Sprintf("term_reports:%s:%s:%s:%s:%s:%d:%d",
		filter.ClassID, filter.StudentID, filter.Term, filter.AcademicYear, published, filter.Page, filter.PageSize)
}
