package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

type examRepo interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	ListTermOptions(ctx context.Context, schoolID string) ([]models.ExamTermOption, error)
	Stats(ctx context.Context, schoolID string) (*models.ExamStats, error)
	Publish(ctx context.Context, examID string) error
	ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error)
	PublishSubject(ctx context.Context, id string) error
}

// ExamDetail is an exam with its derived lifecycle status.
type ExamDetail struct {
	models.Exam
	Status models.ExamStatus `json:"status"`
}

// ExamService exposes exam lookups and the publish workflow.
type ExamService struct {
	exams  examRepo
	logger *zap.Logger
	now    func() time.Time
}

// NewExamService constructs ExamService.
func NewExamService(exams examRepo, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{exams: exams, logger: logger, now: time.Now}
}

// Get loads one exam with its derived status.
func (s *ExamService) Get(ctx context.Context, id string) (*ExamDetail, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return &ExamDetail{Exam: *exam, Status: exam.Status(s.now())}, nil
}

// List returns filtered exams, each with its derived status, and a total count.
func (s *ExamService) List(ctx context.Context, filter models.ExamFilter) ([]ExamDetail, int, error) {
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	now := s.now()
	details := make([]ExamDetail, 0, len(exams))
	for _, exam := range exams {
		details = append(details, ExamDetail{Exam: exam, Status: exam.Status(now)})
	}
	return details, total, nil
}

// Terms returns the distinct (term, academic year) pairs a school has exams in.
func (s *ExamService) Terms(ctx context.Context, schoolID string) ([]models.ExamTermOption, error) {
	options, err := s.exams.ListTermOptions(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list term options")
	}
	return options, nil
}

// Stats summarises a school's exams.
func (s *ExamService) Stats(ctx context.Context, schoolID string) (*models.ExamStats, error) {
	stats, err := s.exams.Stats(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam stats")
	}
	return stats, nil
}

// Publish marks the exam visible and cascades the flag to every subject that
// was not already published individually.
func (s *ExamService) Publish(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.exams.Publish(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
	}
	s.logger.Info("exam published", zap.String("exam_id", id))
	return nil
}

// ListSubjects returns an exam's subjects.
func (s *ExamService) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	subjects, err := s.exams.ListSubjects(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exam subjects")
	}
	return subjects, nil
}

// PublishSubject marks a single exam subject visible ahead of the full exam.
func (s *ExamService) PublishSubject(ctx context.Context, id string) error {
	if err := s.exams.PublishSubject(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam subject")
	}
	s.logger.Info("exam subject published", zap.String("exam_subject_id", id))
	return nil
}
