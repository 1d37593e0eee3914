package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

// ExamResultRepository persists per-student exam subject results.
type ExamResultRepository struct {
	db *sqlx.DB
}

// NewExamResultRepository constructs the repository.
func NewExamResultRepository(db *sqlx.DB) *ExamResultRepository {
	return &ExamResultRepository{db: db}
}

const resultColumns = `id, exam_subject_id, student_id, score, grade, points, remark, teacher_comment, is_absent, created_at, updated_at`

// Create inserts a brand-new result row. A second row for the same
// (exam_subject, student) pair is rejected as a duplicate entry.
func (r *ExamResultRepository) Create(ctx context.Context, result *models.ExamResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	result.CreatedAt = now
	result.UpdatedAt = now
	const query = `INSERT INTO exam_results (` + resultColumns + `)
        VALUES (:id, :exam_subject_id, :student_id, :score, :grade, :points, :remark, :teacher_comment, :is_absent, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "a result for this student and subject already exists")
		}
		return fmt.Errorf("create exam result: %w", err)
	}
	return nil
}

// Update overwrites an existing result row.
func (r *ExamResultRepository) Update(ctx context.Context, result *models.ExamResult) error {
	result.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_results SET score = :score, grade = :grade, points = :points, remark = :remark,
        teacher_comment = :teacher_comment, is_absent = :is_absent, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, result)
	if err != nil {
		return fmt.Errorf("update exam result: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "exam result not found")
	}
	return nil
}

// BulkUpsert writes a batch of results inside one transaction.
func (r *ExamResultRepository) BulkUpsert(ctx context.Context, results []models.ExamResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO exam_results (` + resultColumns + `)
        VALUES (:id, :exam_subject_id, :student_id, :score, :grade, :points, :remark, :teacher_comment, :is_absent, :created_at, :updated_at)
        ON CONFLICT (exam_subject_id, student_id)
        DO UPDATE SET score = EXCLUDED.score, grade = EXCLUDED.grade, points = EXCLUDED.points, remark = EXCLUDED.remark,
            teacher_comment = EXCLUDED.teacher_comment, is_absent = EXCLUDED.is_absent, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
		results[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert exam result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam results: %w", err)
	}
	return nil
}

// FindByID loads one result row.
func (r *ExamResultRepository) FindByID(ctx context.Context, id string) (*models.ExamResult, error) {
	var result models.ExamResult
	if err := r.db.GetContext(ctx, &result, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns results matching the filter.
func (r *ExamResultRepository) List(ctx context.Context, filter models.ExamResultFilter) ([]models.ExamResult, error) {
	base := `SELECT er.id, er.exam_subject_id, er.student_id, er.score, er.grade, er.points, er.remark,
        er.teacher_comment, er.is_absent, er.created_at, er.updated_at FROM exam_results er`
	var conditions []string
	var args []interface{}

	if filter.ExamID != "" {
		base += " JOIN exam_subjects es ON es.id = er.exam_subject_id"
		conditions = append(conditions, fmt.Sprintf("es.exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.ExamSubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("er.exam_subject_id = $%d", len(args)+1))
		args = append(args, filter.ExamSubjectID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("er.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY er.created_at"

	var results []models.ExamResult
	if err := r.db.SelectContext(ctx, &results, base, args...); err != nil {
		return nil, fmt.Errorf("list exam results: %w", err)
	}
	return results, nil
}

// ListBySubject returns every result for one exam subject.
func (r *ExamResultRepository) ListBySubject(ctx context.Context, examSubjectID string) ([]models.ExamResult, error) {
	return r.List(ctx, models.ExamResultFilter{ExamSubjectID: examSubjectID})
}

// ListByExam returns every result across an exam's subjects.
func (r *ExamResultRepository) ListByExam(ctx context.Context, examID string) ([]models.ExamResult, error) {
	return r.List(ctx, models.ExamResultFilter{ExamID: examID})
}
