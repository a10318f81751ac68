package models

import "time"

// Exam represents an examination sitting within a term. Results of an
// unpublished exam are only visible to staff.
type Exam struct {
	ID          string    `db:"id" json:"id"`
	TermID      string    `db:"term_id" json:"term_id"`
	Name        string    `db:"name" json:"name"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExamFilter scopes exam listings.
type ExamFilter struct {
	TermID        string
	ClassID       string
	PublishedOnly bool
}
