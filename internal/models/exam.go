package models

import "time"

// ExamStatus is derived from the exam dates relative to today.
type ExamStatus string

const (
	ExamStatusUpcoming  ExamStatus = "Upcoming"
	ExamStatusOngoing   ExamStatus = "Ongoing"
	ExamStatusCompleted ExamStatus = "Completed"
)

// ExamType is a named assessment category (Opener, Midterm, Endterm, ...)
// used to group exams for consolidation weighting.
type ExamType struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsDefault   bool      `db:"is_default" json:"is_default"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Exam is one assessment instance for a class in a term, graded against one
// grading system. Unique per (name, class, term, academic year).
type Exam struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	SchoolID            string    `db:"school_id" json:"school_id"`
	ClassID             string    `db:"class_id" json:"class_id"`
	ExamTypeID          string    `db:"exam_type_id" json:"exam_type_id"`
	ExamTypeName        string    `db:"exam_type_name" json:"exam_type_name,omitempty"`
	Term                string    `db:"term" json:"term"`
	AcademicYear        string    `db:"academic_year" json:"academic_year"`
	StartDate           time.Time `db:"start_date" json:"start_date"`
	EndDate             time.Time `db:"end_date" json:"end_date"`
	GradingSystemID     string    `db:"grading_system_id" json:"grading_system_id"`
	IsPublished         bool      `db:"is_published" json:"is_published"`
	IncludeInTermReport bool      `db:"include_in_term_report" json:"include_in_term_report"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Status derives the exam lifecycle stage from its date window.
func (e Exam) Status(now time.Time) ExamStatus {
	today := now.Truncate(24 * time.Hour)
	switch {
	case today.Before(e.StartDate):
		return ExamStatusUpcoming
	case today.After(e.EndDate):
		return ExamStatusCompleted
	default:
		return ExamStatusOngoing
	}
}

// ExamSubject restricts an exam to one curriculum subject with its own max
// score, optional pass mark and weight within the exam. Unique per
// (exam, subject).
type ExamSubject struct {
	ID          string    `db:"id" json:"id"`
	ExamID      string    `db:"exam_id" json:"exam_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name,omitempty"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	MaxScore    float64   `db:"max_score" json:"max_score"`
	PassScore   *float64  `db:"pass_score" json:"pass_score,omitempty"`
	Weight      float64   `db:"weight" json:"weight"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter scopes exam listings.
type ExamFilter struct {
	SchoolID     string
	ClassID      string
	ExamTypeID   string
	Term         string
	AcademicYear string
	Published    *bool
	Page         int
	PageSize     int
}

// ExamTermOption is one distinct (term, academic year) pair with exams.
type ExamTermOption struct {
	Term         string `db:"term" json:"term"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
}

// ExamStats summarises a school's exams.
type ExamStats struct {
	Total     int `db:"total" json:"total"`
	Published int `db:"published" json:"published"`
}

// SubjectStatistics carries on-demand aggregates for one exam subject.
// Nil values mean "no data", never zero.
type SubjectStatistics struct {
	ExamSubjectID string   `json:"exam_subject_id"`
	AverageScore  *float64 `json:"average_score,omitempty"`
	PassRate      *float64 `json:"pass_rate,omitempty"`
}
