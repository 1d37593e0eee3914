package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ConsolidationRule maps one exam type to a percentage weight used when
// combining exams into a consolidated report. The active rules of a school
// must sum to exactly 100. Unique per (school, exam type).
type ConsolidationRule struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	ExamTypeID   string    `db:"exam_type_id" json:"exam_type_id"`
	ExamTypeName string    `db:"exam_type_name" json:"exam_type_name,omitempty"`
	Weight       float64   `db:"weight" json:"weight"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ExamContribution is one rule's share of a consolidated report.
type ExamContribution struct {
	ExamTypeID    string  `json:"exam_type_id"`
	ExamType      string  `json:"exam_type"`
	ExamID        string  `json:"exam_id"`
	RawAverage    float64 `json:"raw_average"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
}

// ExamBreakdown is the per-rule contribution payload stored as JSONB.
type ExamBreakdown []ExamContribution

// Value implements driver.Valuer.
func (b ExamBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *ExamBreakdown) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*b = nil
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported breakdown type %T", src)
	}
}

// ConsolidatedReport is the final cross-exam weighted outcome for one student
// in a term. Upserted wholesale on every consolidation run. Unique per
// (student, class, term, year).
type ConsolidatedReport struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	ClassID         string        `db:"class_id" json:"class_id"`
	Term            string        `db:"term" json:"term"`
	AcademicYear    string        `db:"academic_year" json:"academic_year"`
	TotalScore      float64       `db:"total_score" json:"total_score"`
	AverageScore    float64       `db:"average_score" json:"average_score"`
	OverallGrade    string        `db:"overall_grade" json:"overall_grade"`
	OverallPosition int           `db:"overall_position" json:"overall_position"`
	Details         ExamBreakdown `db:"details" json:"details"`
	IsPublished     bool          `db:"is_published" json:"is_published"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ConsolidatedReportFilter scopes consolidated report listings.
type ConsolidatedReportFilter struct {
	ClassID      string
	StudentID    string
	Term         string
	AcademicYear string
	Published    *bool
	Page         int
	PageSize     int
}
