package models

import "time"

// Result is the persisted outcome of one student sitting one subject in
// one exam. Unique per (exam_id, student_id, subject_id). Grade and
// points are computed at save time and never re-derived on read, so
// historical results stay stable when grading scales change.
type Result struct {
	ID        string  `db:"id" json:"id"`
	ExamID    string  `db:"exam_id" json:"exam_id"`
	StudentID string  `db:"student_id" json:"student_id"`
	SubjectID string  `db:"subject_id" json:"subject_id"`
	ClassID   string  `db:"class_id" json:"class_id"`
	StreamID  *string `db:"stream_id" json:"stream_id,omitempty"`

	PP1      *float64 `db:"pp_1" json:"pp_1,omitempty"`
	PP1OutOf *float64 `db:"pp_1_outof" json:"pp_1_outof,omitempty"`
	PP2      *float64 `db:"pp_2" json:"pp_2,omitempty"`
	PP2OutOf *float64 `db:"pp_2_outof" json:"pp_2_outof,omitempty"`
	PP3      *float64 `db:"pp_3" json:"pp_3,omitempty"`
	PP3OutOf *float64 `db:"pp_3_outof" json:"pp_3_outof,omitempty"`

	Score      float64  `db:"score" json:"score"`
	ScoreOutOf float64  `db:"score_outof" json:"score_outof"`
	Grade      *string  `db:"grade" json:"grade,omitempty"`
	Points     *float64 `db:"points" json:"points,omitempty"`
	Remarks    string   `db:"remarks" json:"remarks"`

	IsPublished bool       `db:"is_published" json:"is_published"`
	RecordedBy  string     `db:"recorded_by" json:"recorded_by"`
	UpdatedBy   *string    `db:"updated_by" json:"updated_by,omitempty"`
	DeletedBy   *string    `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"-"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// PaperConfig is the explicit, immutable per-submission configuration of
// which papers are active and their maxima. It is always passed in;
// never read from ambient state.
type PaperConfig struct {
	HasP1 bool
	HasP2 bool
	HasP3 bool

	OutOfP1    float64
	OutOfP2    float64
	OutOfP3    float64
	OutOfScore float64
}

// ActivePapers counts the toggled-on papers.
func (c PaperConfig) ActivePapers() int {
	n := 0
	if c.HasP1 {
		n++
	}
	if c.HasP2 {
		n++
	}
	if c.HasP3 {
		n++
	}
	return n
}

// PaperScores carries one student's raw submitted marks. Score is only
// consulted when no papers are active; absent papers stay nil.
type PaperScores struct {
	Score *float64 `json:"score,omitempty"`
	P1    *float64 `json:"P1,omitempty"`
	P2    *float64 `json:"P2,omitempty"`
	P3    *float64 `json:"P3,omitempty"`
}

// ResultFilter scopes result listings.
type ResultFilter struct {
	ExamID        string
	ClassID       string
	StreamID      string
	SubjectID     string
	StudentID     string
	PublishedOnly bool
}
