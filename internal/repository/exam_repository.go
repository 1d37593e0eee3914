package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skul-exams-api/internal/models"
)

// ExamRepository manages exams and their subjects.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `e.id, e.name, e.school_id, e.class_id, e.exam_type_id, et.name AS exam_type_name,
        e.term, e.academic_year, e.start_date, e.end_date, e.grading_system_id,
        e.is_published, e.include_in_term_report, e.created_at, e.updated_at`

// FindByID loads one exam.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams e JOIN exam_types et ON et.id = e.exam_type_id WHERE e.id = $1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// List returns exams matching the filter with a total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	base := ` FROM exams e JOIN exam_types et ON et.id = e.exam_type_id WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.SchoolID != "" {
		conditions = append(conditions, fmt.Sprintf("e.school_id = $%d", len(args)+1))
		args = append(args, filter.SchoolID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.ExamTypeID != "" {
		conditions = append(conditions, fmt.Sprintf("e.exam_type_id = $%d", len(args)+1))
		args = append(args, filter.ExamTypeID)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("e.term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("e.academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("e.is_published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + examColumns + base + " ORDER BY e.academic_year DESC, e.term, e.start_date"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}
	return exams, total, nil
}

// FindPublishedByTypeForClass locates the single published exam of a type for
// a class in a term/year. Callers treat sql.ErrNoRows as "no contribution".
func (r *ExamRepository) FindPublishedByTypeForClass(ctx context.Context, classID, examTypeID, term, academicYear string) (*models.Exam, error) {
	query := `SELECT ` + examColumns + ` FROM exams e JOIN exam_types et ON et.id = e.exam_type_id
        WHERE e.class_id = $1 AND e.exam_type_id = $2 AND e.term = $3 AND e.academic_year = $4 AND e.is_published = TRUE
        ORDER BY e.start_date LIMIT 1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, classID, examTypeID, term, academicYear); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListTermOptions returns distinct (term, academic year) pairs for a school.
func (r *ExamRepository) ListTermOptions(ctx context.Context, schoolID string) ([]models.ExamTermOption, error) {
	const query = `SELECT DISTINCT term, academic_year FROM exams WHERE school_id = $1 ORDER BY academic_year DESC, term`
	var options []models.ExamTermOption
	if err := r.db.SelectContext(ctx, &options, query, schoolID); err != nil {
		return nil, fmt.Errorf("list term options: %w", err)
	}
	return options, nil
}

// Stats summarises a school's exams.
func (r *ExamRepository) Stats(ctx context.Context, schoolID string) (*models.ExamStats, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_published) AS published FROM exams WHERE school_id = $1`
	var stats models.ExamStats
	if err := r.db.GetContext(ctx, &stats, query, schoolID); err != nil {
		return nil, fmt.Errorf("exam stats: %w", err)
	}
	return &stats, nil
}

// Publish marks the exam published and cascades to its not-yet-published
// subjects in one transaction.
func (r *ExamRepository) Publish(ctx context.Context, examID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE exams SET is_published = TRUE, updated_at = $1 WHERE id = $2`, now, examID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("publish exam: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE exam_subjects SET is_published = TRUE, updated_at = $1 WHERE exam_id = $2 AND is_published = FALSE`, now, examID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("publish exam subjects: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam publish: %w", err)
	}
	return nil
}

// FindSubject loads one exam subject.
func (r *ExamRepository) FindSubject(ctx context.Context, id string) (*models.ExamSubject, error) {
	const query = `SELECT es.id, es.exam_id, es.subject_id, s.name AS subject_name, es.teacher_id,
        es.max_score, es.pass_score, es.weight, es.is_published, es.created_at, es.updated_at
        FROM exam_subjects es JOIN subjects s ON s.id = es.subject_id WHERE es.id = $1`
	var subject models.ExamSubject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns an exam's subjects ordered by subject name.
func (r *ExamRepository) ListSubjects(ctx context.Context, examID string) ([]models.ExamSubject, error) {
	const query = `SELECT es.id, es.exam_id, es.subject_id, s.name AS subject_name, es.teacher_id,
        es.max_score, es.pass_score, es.weight, es.is_published, es.created_at, es.updated_at
        FROM exam_subjects es JOIN subjects s ON s.id = es.subject_id WHERE es.exam_id = $1 ORDER BY s.name`
	var subjects []models.ExamSubject
	if err := r.db.SelectContext(ctx, &subjects, query, examID); err != nil {
		return nil, fmt.Errorf("list exam subjects: %w", err)
	}
	return subjects, nil
}

// PublishSubject flips one subject's visibility flag.
func (r *ExamRepository) PublishSubject(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE exam_subjects SET is_published = TRUE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("publish exam subject: %w", err)
	}
	return nil
}
