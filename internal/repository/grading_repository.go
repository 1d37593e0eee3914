package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

// GradingSystemRepository manages grading systems and their ranges.
type GradingSystemRepository struct {
	db *sqlx.DB
}

// NewGradingSystemRepository constructs the repository.
func NewGradingSystemRepository(db *sqlx.DB) *GradingSystemRepository {
	return &GradingSystemRepository{db: db}
}

// rangeOrder keeps resolver semantics stable: highest min score wins, ties
// broken by insertion order.
const rangeOrder = " ORDER BY min_score DESC, created_at ASC, id ASC"

// FindByID loads a grading system together with its ordered ranges.
func (r *GradingSystemRepository) FindByID(ctx context.Context, id string) (*models.GradingSystem, error) {
	var system models.GradingSystem
	const query = `SELECT id, school_id, name, is_default, created_at, updated_at FROM grading_systems WHERE id = $1`
	if err := r.db.GetContext(ctx, &system, query, id); err != nil {
		return nil, err
	}
	ranges, err := r.ListRanges(ctx, system.ID)
	if err != nil {
		return nil, err
	}
	system.Ranges = ranges
	return &system, nil
}

// FindDefaultBySchool loads the school's default grading system with ranges.
func (r *GradingSystemRepository) FindDefaultBySchool(ctx context.Context, schoolID string) (*models.GradingSystem, error) {
	var system models.GradingSystem
	const query = `SELECT id, school_id, name, is_default, created_at, updated_at FROM grading_systems WHERE school_id = $1 AND is_default = TRUE`
	if err := r.db.GetContext(ctx, &system, query, schoolID); err != nil {
		return nil, err
	}
	ranges, err := r.ListRanges(ctx, system.ID)
	if err != nil {
		return nil, err
	}
	system.Ranges = ranges
	return &system, nil
}

// ListBySchool returns the school's grading systems without ranges.
func (r *GradingSystemRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.GradingSystem, error) {
	const query = `SELECT id, school_id, name, is_default, created_at, updated_at FROM grading_systems WHERE school_id = $1 ORDER BY is_default DESC, name`
	var systems []models.GradingSystem
	if err := r.db.SelectContext(ctx, &systems, query, schoolID); err != nil {
		return nil, fmt.Errorf("list grading systems: %w", err)
	}
	return systems, nil
}

// Create inserts a new grading system.
func (r *GradingSystemRepository) Create(ctx context.Context, system *models.GradingSystem) error {
	if system.ID == "" {
		system.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	system.CreatedAt = now
	system.UpdatedAt = now
	const query = `INSERT INTO grading_systems (id, school_id, name, is_default, created_at, updated_at)
        VALUES (:id, :school_id, :name, :is_default, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, system); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "grading system already exists for this school")
		}
		return fmt.Errorf("create grading system: %w", err)
	}
	return nil
}

// SetDefault marks one system as the school default and clears the previous
// one inside a single transaction.
func (r *GradingSystemRepository) SetDefault(ctx context.Context, schoolID, systemID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE grading_systems SET is_default = FALSE, updated_at = $1 WHERE school_id = $2`, time.Now().UTC(), schoolID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear default grading system: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE grading_systems SET is_default = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, time.Now().UTC(), systemID, schoolID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("set default grading system: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return appErrors.Clone(appErrors.ErrNotFound, "grading system not found")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit default grading system: %w", err)
	}
	return nil
}

// ListRanges returns ranges in resolver lookup order.
func (r *GradingSystemRepository) ListRanges(ctx context.Context, gradingSystemID string) ([]models.GradeRange, error) {
	const query = `SELECT id, grading_system_id, min_score, max_score, grade, remark, points, created_at
        FROM grade_ranges WHERE grading_system_id = $1` + rangeOrder
	var ranges []models.GradeRange
	if err := r.db.SelectContext(ctx, &ranges, query, gradingSystemID); err != nil {
		return nil, fmt.Errorf("list grade ranges: %w", err)
	}
	return ranges, nil
}

// CreateRange inserts a grade range. The (grading_system, min, max) unique
// constraint rejects duplicated bounds.
func (r *GradingSystemRepository) CreateRange(ctx context.Context, gr *models.GradeRange) error {
	if gr.ID == "" {
		gr.ID = uuid.NewString()
	}
	gr.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO grade_ranges (id, grading_system_id, min_score, max_score, grade, remark, points, created_at)
        VALUES (:id, :grading_system_id, :min_score, :max_score, :grade, :remark, :points, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, gr); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "a range with identical bounds already exists")
		}
		return fmt.Errorf("create grade range: %w", err)
	}
	return nil
}
