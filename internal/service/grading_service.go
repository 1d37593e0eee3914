package service

import (
	"context"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

// round2 rounds to two decimal places using banker's rounding.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// ResolveGrade classifies a score against a set of grade ranges. Among all
// ranges covering the score, the one with the highest min score wins; ties
// keep the earliest range in lookup order. Returns nil when no range matches,
// which callers record as an unclassified grade rather than an error since
// school-configured systems may have gaps.
func ResolveGrade(ranges []models.GradeRange, score float64) *models.ResolvedGrade {
	var best *models.GradeRange
	for i := range ranges {
		gr := &ranges[i]
		if score < gr.MinScore || score > gr.MaxScore {
			continue
		}
		if best == nil || gr.MinScore > best.MinScore {
			best = gr
		}
	}
	if best == nil {
		return nil
	}
	return &models.ResolvedGrade{Grade: best.Grade, Points: best.Points, Remark: best.Remark}
}

// applyGrading rewrites the derived fields of a result from its score and
// absence flag. Absence always overrides numeric resolution.
func applyGrading(result *models.ExamResult, ranges []models.GradeRange) {
	if result.IsAbsent {
		result.Score = nil
		grade := models.GradeAbsent
		remark := models.RemarkAbsent
		result.Grade = &grade
		result.Points = nil
		result.Remark = &remark
		return
	}
	if result.Score == nil {
		result.Grade = nil
		result.Points = nil
		result.Remark = nil
		return
	}
	resolved := ResolveGrade(ranges, *result.Score)
	if resolved == nil {
		grade := models.GradeUnclassified
		result.Grade = &grade
		result.Points = nil
		result.Remark = nil
		return
	}
	result.Grade = &resolved.Grade
	result.Points = resolved.Points
	result.Remark = resolved.Remark
}

type gradingSystemRepo interface {
	FindByID(ctx context.Context, id string) (*models.GradingSystem, error)
	FindDefaultBySchool(ctx context.Context, schoolID string) (*models.GradingSystem, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.GradingSystem, error)
	Create(ctx context.Context, system *models.GradingSystem) error
	SetDefault(ctx context.Context, schoolID, systemID string) error
	ListRanges(ctx context.Context, gradingSystemID string) ([]models.GradeRange, error)
	CreateRange(ctx context.Context, gr *models.GradeRange) error
}

// CreateGradingSystemRequest creates a named grading system for a school.
type CreateGradingSystemRequest struct {
	Name      string `json:"name" validate:"required"`
	IsDefault bool   `json:"is_default"`
}

// CreateGradeRangeRequest adds a range to a grading system.
type CreateGradeRangeRequest struct {
	GradingSystemID string   `json:"grading_system_id" validate:"required"`
	MinScore        float64  `json:"min_score" validate:"gte=0,lte=100"`
	MaxScore        float64  `json:"max_score" validate:"gte=0,lte=100"`
	Grade           string   `json:"grade" validate:"required"`
	Remark          *string  `json:"remark"`
	Points          *float64 `json:"points"`
}

// GradingService manages grading systems and their ranges.
type GradingService struct {
	systems   gradingSystemRepo
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(systems gradingSystemRepo, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{systems: systems, validator: validate, logger: logger}
}

// ListSystems returns the school's grading systems.
func (s *GradingService) ListSystems(ctx context.Context, schoolID string) ([]models.GradingSystem, error) {
	systems, err := s.systems.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grading systems")
	}
	return systems, nil
}

// CreateSystem registers a grading system for a school. When marked default
// it replaces the previous default.
func (s *GradingService) CreateSystem(ctx context.Context, schoolID string, req CreateGradingSystemRequest) (*models.GradingSystem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading system payload")
	}
	system := &models.GradingSystem{SchoolID: schoolID, Name: req.Name}
	if err := s.systems.Create(ctx, system); err != nil {
		return nil, err
	}
	if req.IsDefault {
		if err := s.systems.SetDefault(ctx, schoolID, system.ID); err != nil {
			return nil, err
		}
		system.IsDefault = true
	}
	s.logger.Info("grading system created", zap.String("school_id", schoolID), zap.String("grading_system_id", system.ID))
	return system, nil
}

// SetDefault makes one system the school default.
func (s *GradingService) SetDefault(ctx context.Context, schoolID, systemID string) error {
	return s.systems.SetDefault(ctx, schoolID, systemID)
}

// ListRanges returns a system's ranges in lookup order.
func (s *GradingService) ListRanges(ctx context.Context, gradingSystemID string) ([]models.GradeRange, error) {
	ranges, err := s.systems.ListRanges(ctx, gradingSystemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade ranges")
	}
	return ranges, nil
}

// CreateRange validates and stores a grade range.
func (s *GradingService) CreateRange(ctx context.Context, req CreateGradeRangeRequest) (*models.GradeRange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade range payload")
	}
	if req.MinScore >= req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min score must be less than max score")
	}
	if req.Points != nil && *req.Points < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "points must not be negative")
	}
	gr := &models.GradeRange{
		GradingSystemID: req.GradingSystemID,
		MinScore:        req.MinScore,
		MaxScore:        req.MaxScore,
		Grade:           req.Grade,
		Remark:          req.Remark,
		Points:          req.Points,
	}
	if err := s.systems.CreateRange(ctx, gr); err != nil {
		return nil, err
	}
	return gr, nil
}
