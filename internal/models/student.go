package models

import (
	"strings"
	"time"
)

// Student represents an enrolled student.
type Student struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	AdmissionNo   string    `db:"admission_no" json:"admission_no"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	ClassID       string    `db:"class_id" json:"class_id"`
	ClassStreamID string    `db:"class_stream_id" json:"class_stream_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the student's names for display.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	ClassID       string
	ClassStreamID string
	Search        string
}
