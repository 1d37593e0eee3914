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

// ConsolidationRuleRepository manages exam-type weighting rules.
type ConsolidationRuleRepository struct {
	db *sqlx.DB
}

// NewConsolidationRuleRepository constructs the repository.
func NewConsolidationRuleRepository(db *sqlx.DB) *ConsolidationRuleRepository {
	return &ConsolidationRuleRepository{db: db}
}

const ruleColumns = `cr.id, cr.school_id, cr.exam_type_id, et.name AS exam_type_name, cr.weight, cr.is_active, cr.created_at, cr.updated_at`

// ListBySchool returns all rules for a school, heaviest first.
func (r *ConsolidationRuleRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	const query = `SELECT ` + ruleColumns + ` FROM consolidation_rules cr
        JOIN exam_types et ON et.id = cr.exam_type_id WHERE cr.school_id = $1 ORDER BY cr.weight DESC`
	var rules []models.ConsolidationRule
	if err := r.db.SelectContext(ctx, &rules, query, schoolID); err != nil {
		return nil, fmt.Errorf("list consolidation rules: %w", err)
	}
	return rules, nil
}

// ListActiveBySchool returns only the active rules, heaviest first.
func (r *ConsolidationRuleRepository) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.ConsolidationRule, error) {
	const query = `SELECT ` + ruleColumns + ` FROM consolidation_rules cr
        JOIN exam_types et ON et.id = cr.exam_type_id WHERE cr.school_id = $1 AND cr.is_active = TRUE ORDER BY cr.weight DESC`
	var rules []models.ConsolidationRule
	if err := r.db.SelectContext(ctx, &rules, query, schoolID); err != nil {
		return nil, fmt.Errorf("list active consolidation rules: %w", err)
	}
	return rules, nil
}

// Create inserts a rule; one rule per (school, exam type).
func (r *ConsolidationRuleRepository) Create(ctx context.Context, rule *models.ConsolidationRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	const query = `INSERT INTO consolidation_rules (id, school_id, exam_type_id, weight, is_active, created_at, updated_at)
        VALUES (:id, :school_id, :exam_type_id, :weight, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, "a rule for this exam type already exists")
		}
		return fmt.Errorf("create consolidation rule: %w", err)
	}
	return nil
}

// Update adjusts a rule's weight and active flag.
func (r *ConsolidationRuleRepository) Update(ctx context.Context, rule *models.ConsolidationRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE consolidation_rules SET weight = :weight, is_active = :is_active, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	res, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return fmt.Errorf("update consolidation rule: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "consolidation rule not found")
	}
	return nil
}
