package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type consolidationRuleRepo interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error)
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error)
	Create(ctx context.Context, rule *models.ConsolidationRule) error
	Update(ctx context.Context, rule *models.ConsolidationRule) error
}

type consolidatedReportRepo interface {
	UpsertAll(ctx context.Context, reports []models.ConsolidatedReport) error
	List(ctx context.Context, filter models.ConsolidatedReportFilter) ([]models.ConsolidatedReport, int, error)
	SetPublished(ctx context.Context, id string, published bool) error
}

type publishedExamFinder interface {
	FindPublishedByTypeForClass(ctx context.Context, classID, examTypeID, term, academicYear string) (*models.Exam, error)
}

type schoolRoster interface {
	ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error)
}

type defaultGradingReader interface {
	FindDefaultBySchool(ctx context.Context, schoolID string) (*models.GradingSystem, error)
}

// GenerateConsolidationRequest scopes a consolidation run to one term.
type GenerateConsolidationRequest struct {
	Term         string `json:"term" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// CreateRuleRequest registers a weighting rule for one exam type.
type CreateRuleRequest struct {
	ExamTypeID string  `json:"exam_type_id" validate:"required"`
	Weight     float64 `json:"weight" validate:"gt=0,lte=100"`
	IsActive   bool    `json:"is_active"`
}

// UpdateRuleRequest adjusts a rule's weight or active flag.
type UpdateRuleRequest struct {
	Weight   float64 `json:"weight" validate:"gt=0,lte=100"`
	IsActive bool    `json:"is_active"`
}

// ConsolidatedReportListing is the cacheable result of a report query.
type ConsolidatedReportListing struct {
	Reports []models.ConsolidatedReport `json:"reports"`
	Total   int                         `json:"total"`
}

// ConsolidationService combines each student's published exams across exam
// types into one weighted consolidated report per term.
type ConsolidationService struct {
	rules     consolidationRuleRepo
	reports   consolidatedReportRepo
	exams     publishedExamFinder
	results   examResultsReader
	students  schoolRoster
	grading   defaultGradingReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConsolidationService constructs ConsolidationService.
func NewConsolidationService(rules consolidationRuleRepo, reports consolidatedReportRepo, exams publishedExamFinder, results examResultsReader, students schoolRoster, grading defaultGradingReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ConsolidationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsolidationService{rules: rules, reports: reports, exams: exams, results: results, students: students, grading: grading, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// examAverages caches one exam's per-student mean raw score.
type examAverages struct {
	exam     *models.Exam
	averages map[string]float64
}

// loadExamAverages resolves the published exam for one (class, exam type) and
// precomputes each student's unweighted mean raw score across its subjects.
// Returns nil when no published exam exists for the pair.
func (s *ConsolidationService) loadExamAverages(ctx context.Context, classID, examTypeID, term, academicYear string) (*examAverages, error) {
	exam, err := s.exams.FindPublishedByTypeForClass(ctx, classID, examTypeID, term, academicYear)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find published exam")
	}
	results, err := s.results.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam results")
	}
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		if !r.HasScore() {
			continue
		}
		sums[r.StudentID] += *r.Score
		counts[r.StudentID]++
	}
	averages := make(map[string]float64, len(sums))
	for studentID, sum := range sums {
		averages[studentID] = sum / float64(counts[studentID])
	}
	return &examAverages{exam: exam, averages: averages}, nil
}

type classTypeKey struct {
	classID    string
	examTypeID string
}

// Generate runs the consolidation for every active student in the school and
// writes all resulting reports in a single transaction. Returns the number of
// reports written. The run is all-or-nothing: any failure leaves previously
// stored reports untouched.
func (s *ConsolidationService) Generate(ctx context.Context, schoolID string, req GenerateConsolidationRequest) (int, error) {
	start := time.Now()
	count, err := s.generate(ctx, schoolID, req)
	if s.metrics != nil {
		s.metrics.ObserveGenerationRun("consolidated_report", err, count, time.Since(start))
	}
	return count, err
}

func (s *ConsolidationService) generate(ctx context.Context, schoolID string, req GenerateConsolidationRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid consolidation request")
	}

	rules, err := s.rules.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load consolidation rules")
	}
	if len(rules) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no active consolidation rules configured")
	}
	var weightSum float64
	for _, rule := range rules {
		weightSum += rule.Weight
	}
	if math.Abs(weightSum-100) > 1e-9 {
		return 0, appErrors.Clone(appErrors.ErrWeightMismatch,
			fmt.Sprintf("active consolidation weights sum to %.2f, expected 100", weightSum))
	}

	system, err := s.grading.FindDefaultBySchool(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrValidation, "school has no default grading system")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load default grading system")
	}

	roster, err := s.students.ListActiveBySchool(ctx, schoolID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school roster")
	}

	// First pass: one report per student with at least one contributing exam.
	// Exam lookups and per-exam averages are cached per (class, exam type) so
	// each exam's results are fetched once regardless of roster size.
	examCache := make(map[classTypeKey]*examAverages)
	reports := make([]models.ConsolidatedReport, 0, len(roster))
	for _, student := range roster {
		var weighted, rawSum float64
		breakdown := models.ExamBreakdown{}
		for _, rule := range rules {
			key := classTypeKey{classID: student.ClassID, examTypeID: rule.ExamTypeID}
			cached, ok := examCache[key]
			if !ok {
				cached, err = s.loadExamAverages(ctx, student.ClassID, rule.ExamTypeID, req.Term, req.AcademicYear)
				if err != nil {
					return 0, err
				}
				examCache[key] = cached
			}
			if cached == nil {
				continue
			}
			avg, ok := cached.averages[student.ID]
			if !ok {
				continue
			}
			contribution := avg * rule.Weight / 100
			weighted += contribution
			rawSum += avg
			breakdown = append(breakdown, models.ExamContribution{
				ExamTypeID:    rule.ExamTypeID,
				ExamType:      rule.ExamTypeName,
				ExamID:        cached.exam.ID,
				RawAverage:    round2(avg),
				Weight:        rule.Weight,
				WeightedScore: round2(contribution),
			})
		}
		if len(breakdown) == 0 {
			continue
		}
		grade := models.GradeUnclassified
		average := round2(weighted)
		if resolved := ResolveGrade(system.Ranges, average); resolved != nil {
			grade = resolved.Grade
		}
		reports = append(reports, models.ConsolidatedReport{
			StudentID:    student.ID,
			ClassID:      student.ClassID,
			Term:         req.Term,
			AcademicYear: req.AcademicYear,
			TotalScore:   round2(rawSum),
			AverageScore: average,
			OverallGrade: grade,
			Details:      breakdown,
		})
	}
	if len(reports) == 0 {
		s.logger.Info("consolidation run produced no rows",
			zap.String("school_id", schoolID),
			zap.String("term", req.Term),
			zap.String("academic_year", req.AcademicYear))
		return 0, nil
	}

	// Second pass: class positions over the completed set.
	byClass := make(map[string][]int)
	for i, report := range reports {
		byClass[report.ClassID] = append(byClass[report.ClassID], i)
	}
	for _, indexes := range byClass {
		scores := make([]float64, len(indexes))
		for i, idx := range indexes {
			scores[i] = reports[idx].AverageScore
		}
		positions := competitionRank(scores)
		for i, idx := range indexes {
			reports[idx].OverallPosition = positions[i]
		}
	}

	if err := s.reports.UpsertAll(ctx, reports); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store consolidated reports")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "consolidated_reports:*")
	}
	s.logger.Info("consolidated reports generated",
		zap.String("school_id", schoolID),
		zap.String("term", req.Term),
		zap.String("academic_year", req.AcademicYear),
		zap.Int("count", len(reports)))
	return len(reports), nil
}

// List returns consolidated reports matching the filter, cached when warm.
func (s *ConsolidationService) List(ctx context.Context, filter models.ConsolidatedReportFilter) (*ConsolidatedReportListing, error) {
	key := consolidatedCacheKey(filter)
	var cached ConsolidatedReportListing
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list consolidated reports")
	}
	listing := &ConsolidatedReportListing{Reports: reports, Total: total}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, listing, 0)
	}
	return listing, nil
}

// Publish makes one consolidated report visible to parents.
func (s *ConsolidationService) Publish(ctx context.Context, id string) error {
	if err := s.reports.SetPublished(ctx, id, true); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, "consolidated_reports:*")
	}
	return nil
}

// ListRules returns every consolidation rule of a school.
func (s *ConsolidationService) ListRules(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	rules, err := s.rules.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list consolidation rules")
	}
	return rules, nil
}

// CreateRule registers a weighting rule. Weight coherence is not enforced
// here; the 100 percent sum is checked at generation time so schools can
// stage rule changes incrementally.
func (s *ConsolidationService) CreateRule(ctx context.Context, schoolID string, req CreateRuleRequest) (*models.ConsolidationRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	rule := &models.ConsolidationRule{
		SchoolID:   schoolID,
		ExamTypeID: req.ExamTypeID,
		Weight:     req.Weight,
		IsActive:   req.IsActive,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule adjusts a rule's weight or active flag.
func (s *ConsolidationService) UpdateRule(ctx context.Context, schoolID, ruleID string, req UpdateRuleRequest) (*models.ConsolidationRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rule payload")
	}
	rule := &models.ConsolidationRule{
		ID:       ruleID,
		SchoolID: schoolID,
		Weight:   req.Weight,
		IsActive: req.IsActive,
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func consolidatedCacheKey(filter models.ConsolidatedReportFilter) string {
	published := "any"
	if filter.Published != nil {
		published = fmt.Sprintf("%t", *filter.Published)
	}
	return fmt.Sprintf("consolidated_reports:%s:%s:%s:%s:%s:%d:%d",
		filter.ClassID, filter.StudentID, filter.Term, filter.AcademicYear, published, filter.Page, filter.PageSize)
}
