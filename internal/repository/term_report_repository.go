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

// TermReportRepository persists per-exam term reports.
type TermReportRepository struct {
	db *sqlx.DB
}

// NewTermReportRepository constructs the repository.
func NewTermReportRepository(db *sqlx.DB) *TermReportRepository {
	return &TermReportRepository{db: db}
}

const termReportColumns = `id, student_id, class_id, term, academic_year, total_score, average_score,
        overall_grade, overall_position, class_average, class_highest, class_lowest, is_published, created_at, updated_at`

// UpsertAll overwrites the term reports for a whole class run inside one
// transaction. Either every row lands or none do.
func (r *TermReportRepository) UpsertAll(ctx context.Context, reports []models.TermReport) error {
	if len(reports) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO term_reports (` + termReportColumns + `)
        VALUES (:id, :student_id, :class_id, :term, :academic_year, :total_score, :average_score,
            :overall_grade, :overall_position, :class_average, :class_highest, :class_lowest, :is_published, :created_at, :updated_at)
        ON CONFLICT (student_id, class_id, term, academic_year)
        DO UPDATE SET total_score = EXCLUDED.total_score, average_score = EXCLUDED.average_score,
            overall_grade = EXCLUDED.overall_grade, overall_position = EXCLUDED.overall_position,
            class_average = EXCLUDED.class_average, class_highest = EXCLUDED.class_highest,
            class_lowest = EXCLUDED.class_lowest, updated_at = EXCLUDED.updated_at`
	now := time.Now().UTC()
	for i := range reports {
		if reports[i].ID == "" {
			reports[i].ID = uuid.NewString()
		}
		if reports[i].CreatedAt.IsZero() {
			reports[i].CreatedAt = now
		}
		reports[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, reports[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert term report: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit term reports: %w", err)
	}
	return nil
}

// List returns term reports matching the filter with a total count.
func (r *TermReportRepository) List(ctx context.Context, filter models.TermReportFilter) ([]models.TermReport, int, error) {
	base := ` FROM term_reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count term reports: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + termReportColumns + base + " ORDER BY academic_year DESC, term, overall_position NULLS LAST"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var reports []models.TermReport
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list term reports: %w", err)
	}
	return reports, total, nil
}

// SetPublished flips a term report's visibility flag.
func (r *TermReportRepository) SetPublished(ctx context.Context, id string, published bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE term_reports SET is_published = $1, updated_at = $2 WHERE id = $3`, published, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("publish term report: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "term report not found")
	}
	return nil
}
