package models

import "time"

// Grade sentinels used when numeric resolution does not apply.
const (
	// GradeAbsent marks results where the student missed the paper.
	GradeAbsent = "ABS"
	// GradeUnclassified is recorded when no configured range covers a score.
	GradeUnclassified = "N/A"
	// RemarkAbsent accompanies GradeAbsent.
	RemarkAbsent = "Absent"
)

// GradingSystem is a school-configured set of grade ranges. At most one
// system per school is marked default.
type GradingSystem struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	IsDefault bool      `db:"is_default" json:"is_default"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	Ranges    []GradeRange `json:"ranges,omitempty"`
}

// GradeRange maps an inclusive score interval to a grade code, remark and
// point value. Ranges within a system are ordered by descending min score;
// lookup picks the first match in that order.
type GradeRange struct {
	ID              string    `db:"id" json:"id"`
	GradingSystemID string    `db:"grading_system_id" json:"grading_system_id"`
	MinScore        float64   `db:"min_score" json:"min_score"`
	MaxScore        float64   `db:"max_score" json:"max_score"`
	Grade           string    `db:"grade" json:"grade"`
	Remark          *string   `db:"remark" json:"remark,omitempty"`
	Points          *float64  `db:"points" json:"points,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// ResolvedGrade is the outcome of classifying a score against a grading system.
type ResolvedGrade struct {
	Grade  string   `json:"grade"`
	Points *float64 `json:"points,omitempty"`
	Remark *string  `json:"remark,omitempty"`
}
