package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skul-exams-api/internal/models"
)

// StudentRepository reads class rosters maintained by the student subsystem.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, school_id, class_id, full_name, active, created_at, updated_at`

// ListActiveByClass returns the active roster of one class in a stable order.
func (r *StudentRepository) ListActiveByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE class_id = $1 AND active = TRUE ORDER BY full_name, id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list class roster: %w", err)
	}
	return students, nil
}

// ListActiveBySchool returns every active student across the school's classes.
func (r *StudentRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.Student, error) {
	const query = `SELECT ` + studentColumns + ` FROM students WHERE school_id = $1 AND active = TRUE ORDER BY class_id, full_name, id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID); err != nil {
		return nil, fmt.Errorf("list school roster: %w", err)
	}
	return students, nil
}
