package models

import "time"

// ExamResult is one student's outcome for one exam subject. Grade, points and
// remark are derived from the score by the grading resolver, never supplied by
// callers. Unique per (exam_subject, student).
type ExamResult struct {
	ID             string    `db:"id" json:"id"`
	ExamSubjectID  string    `db:"exam_subject_id" json:"exam_subject_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	Score          *float64  `db:"score" json:"score,omitempty"`
	Grade          *string   `db:"grade" json:"grade,omitempty"`
	Points         *float64  `db:"points" json:"points,omitempty"`
	Remark         *string   `db:"remark" json:"remark,omitempty"`
	TeacherComment *string   `db:"teacher_comment" json:"teacher_comment,omitempty"`
	IsAbsent       bool      `db:"is_absent" json:"is_absent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// HasScore reports whether the result carries a usable numeric score.
func (r ExamResult) HasScore() bool {
	return !r.IsAbsent && r.Score != nil
}

// ExamResultFilter scopes result listings.
type ExamResultFilter struct {
	ExamSubjectID string
	StudentID     string
	ExamID        string
}
