package models

import "time"

// TermReport aggregates one exam's outcome for one student: weighted average,
// overall grade, class position and class-wide statistics. Recomputed
// wholesale, never partially updated. Unique per (student, class, term, year).
type TermReport struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	ClassID         string    `db:"class_id" json:"class_id"`
	Term            string    `db:"term" json:"term"`
	AcademicYear    string    `db:"academic_year" json:"academic_year"`
	TotalScore      *float64  `db:"total_score" json:"total_score,omitempty"`
	AverageScore    *float64  `db:"average_score" json:"average_score,omitempty"`
	OverallGrade    *string   `db:"overall_grade" json:"overall_grade,omitempty"`
	OverallPosition *int      `db:"overall_position" json:"overall_position,omitempty"`
	ClassAverage    *float64  `db:"class_average" json:"class_average,omitempty"`
	ClassHighest    *float64  `db:"class_highest" json:"class_highest,omitempty"`
	ClassLowest     *float64  `db:"class_lowest" json:"class_lowest,omitempty"`
	IsPublished     bool      `db:"is_published" json:"is_published"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// TermReportFilter scopes term report listings.
type TermReportFilter struct {
	ClassID      string
	StudentID    string
	Term         string
	AcademicYear string
	Published    *bool
	Page         int
	PageSize     int
}
