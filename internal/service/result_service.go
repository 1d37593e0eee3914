package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type examResultRepo interface {
	Create(ctx context.Context, result *models.ExamResult) error
	Update(ctx context.Context, result *models.ExamResult) error
	BulkUpsert(ctx context.Context, results []models.ExamResult) error
	FindByID(ctx context.Context, id string) (*models.ExamResult, error)
	List(ctx context.Context, filter models.ExamResultFilter) ([]models.ExamResult, error)
	ListBySubject(ctx context.Context, examSubjectID string) ([]models.ExamResult, error)
}

type examSubjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	FindSubject(ctx context.Context, id string) (*models.ExamSubject, error)
}

type gradingRangesReader interface {
	FindByID(ctx context.Context, id string) (*models.GradingSystem, error)
}

// ResultEntry is one score submission for a student.
type ResultEntry struct {
	StudentID      string   `json:"student_id" validate:"required"`
	Score          *float64 `json:"score"`
	IsAbsent       bool     `json:"is_absent"`
	TeacherComment *string  `json:"teacher_comment"`
}

// CreateResultRequest records one student's result for an exam subject.
type CreateResultRequest struct {
	ExamSubjectID string `json:"exam_subject_id" validate:"required"`
	ResultEntry
}

// UpdateResultRequest overwrites an existing result's score fields.
type UpdateResultRequest struct {
	Score          *float64 `json:"score"`
	IsAbsent       bool     `json:"is_absent"`
	TeacherComment *string  `json:"teacher_comment"`
}

// BulkResultRequest records a batch of results for one exam subject.
type BulkResultRequest struct {
	ExamSubjectID string        `json:"exam_subject_id" validate:"required"`
	Results       []ResultEntry `json:"results" validate:"required,min=1,dive"`
}

// ResultService records exam results, deriving grade, points and remark from
// the owning exam's grading system on every write.
type ResultService struct {
	results   examResultRepo
	exams     examSubjectReader
	grading   gradingRangesReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResultService constructs ResultService.
func NewResultService(results examResultRepo, exams examSubjectReader, grading gradingRangesReader, validate *validator.Validate, logger *zap.Logger) *ResultService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, exams: exams, grading: grading, validator: validate, logger: logger}
}

// gradingContext resolves the subject and the grade ranges governing it.
func (s *ResultService) gradingContext(ctx context.Context, examSubjectID string) (*models.ExamSubject, []models.GradeRange, error) {
	subject, err := s.exams.FindSubject(ctx, examSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "exam subject not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subject")
	}
	exam, err := s.exams.FindByID(ctx, subject.ExamID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	system, err := s.grading.FindByID(ctx, exam.GradingSystemID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grading system")
	}
	return subject, system.Ranges, nil
}

// checkScore enforces the score bounds for a subject.
func checkScore(subject *models.ExamSubject, entry ResultEntry) error {
	if entry.IsAbsent {
		return nil
	}
	if entry.Score == nil {
		return appErrors.Clone(appErrors.ErrValidation, "score is required unless the student is absent")
	}
	if *entry.Score < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "score must not be negative")
	}
	if *entry.Score > subject.MaxScore {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %.2f exceeds the subject max of %.2f", *entry.Score, subject.MaxScore))
	}
	return nil
}

// Create records a new result. Recording a second result for the same student
// and subject is rejected as a duplicate; use Update to change it.
func (s *ResultService) Create(ctx context.Context, req CreateResultRequest) (*models.ExamResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	subject, ranges, err := s.gradingContext(ctx, req.ExamSubjectID)
	if err != nil {
		return nil, err
	}
	if err := checkScore(subject, req.ResultEntry); err != nil {
		return nil, err
	}
	result := &models.ExamResult{
		ExamSubjectID:  req.ExamSubjectID,
		StudentID:      req.StudentID,
		Score:          req.Score,
		TeacherComment: req.TeacherComment,
		IsAbsent:       req.IsAbsent,
	}
	applyGrading(result, ranges)
	if err := s.results.Create(ctx, result); err != nil {
		return nil, err
	}
	s.logger.Info("exam result recorded",
		zap.String("exam_subject_id", req.ExamSubjectID),
		zap.String("student_id", req.StudentID),
		zap.Bool("is_absent", result.IsAbsent))
	return result, nil
}

// Update overwrites a result's score fields and re-derives the grade.
func (s *ResultService) Update(ctx context.Context, id string, req UpdateResultRequest) (*models.ExamResult, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam result")
	}
	subject, ranges, err := s.gradingContext(ctx, result.ExamSubjectID)
	if err != nil {
		return nil, err
	}
	entry := ResultEntry{StudentID: result.StudentID, Score: req.Score, IsAbsent: req.IsAbsent, TeacherComment: req.TeacherComment}
	if err := checkScore(subject, entry); err != nil {
		return nil, err
	}
	result.Score = req.Score
	result.IsAbsent = req.IsAbsent
	result.TeacherComment = req.TeacherComment
	applyGrading(result, ranges)
	if err := s.results.Update(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// BulkRecord upserts a batch of results for one subject in a single
// transaction. Existing rows for the same students are overwritten, so
// re-submitting a marksheet is safe.
func (s *ResultService) BulkRecord(ctx context.Context, req BulkResultRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk result payload")
	}
	subject, ranges, err := s.gradingContext(ctx, req.ExamSubjectID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(req.Results))
	rows := make([]models.ExamResult, 0, len(req.Results))
	for _, entry := range req.Results {
		if _, dup := seen[entry.StudentID]; dup {
			return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %s appears more than once", entry.StudentID))
		}
		seen[entry.StudentID] = struct{}{}
		if err := checkScore(subject, entry); err != nil {
			return 0, err
		}
		row := models.ExamResult{
			ExamSubjectID:  req.ExamSubjectID,
			StudentID:      entry.StudentID,
			Score:          entry.Score,
			TeacherComment: entry.TeacherComment,
			IsAbsent:       entry.IsAbsent,
		}
		applyGrading(&row, ranges)
		rows = append(rows, row)
	}
	if err := s.results.BulkUpsert(ctx, rows); err != nil {
		return 0, err
	}
	s.logger.Info("bulk results recorded",
		zap.String("exam_subject_id", req.ExamSubjectID),
		zap.Int("count", len(rows)))
	return len(rows), nil
}

// Get loads one result.
func (s *ResultService) Get(ctx context.Context, id string) (*models.ExamResult, error) {
	result, err := s.results.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam result")
	}
	return result, nil
}

// List returns results matching the filter.
func (s *ResultService) List(ctx context.Context, filter models.ExamResultFilter) ([]models.ExamResult, error) {
	results, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam results")
	}
	return results, nil
}

// SubjectStatistics computes the average score and pass rate for one exam
// subject. Both aggregates are nil when no data supports them: the average
// needs at least one scored result, the pass rate additionally needs a pass
// mark on the subject and at least one non-absent result. Absent students
// never count toward either aggregate's denominator.
func (s *ResultService) SubjectStatistics(ctx context.Context, examSubjectID string) (*models.SubjectStatistics, error) {
	subject, err := s.exams.FindSubject(ctx, examSubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam subject")
	}
	results, err := s.results.ListBySubject(ctx, examSubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject results")
	}

	stats := &models.SubjectStatistics{ExamSubjectID: examSubjectID}

	var sum float64
	var scored, present, passed int
	for _, r := range results {
		if r.IsAbsent {
			continue
		}
		present++
		if r.Score == nil {
			continue
		}
		scored++
		sum += *r.Score
		if subject.PassScore != nil && *r.Score >= *subject.PassScore {
			passed++
		}
	}
	if scored > 0 {
		avg := round2(sum / float64(scored))
		stats.AverageScore = &avg
	}
	if subject.PassScore != nil && present > 0 {
		rate := round2(float64(passed) / float64(present) * 100)
		stats.PassRate = &rate
	}
	return stats, nil
}
