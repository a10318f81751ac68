package models

import "time"

// Subject represents a taught subject. A subject may reference its own
// grading system; when unset the school default system applies.
type Subject struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	Department      *string   `db:"department" json:"department,omitempty"`
	GradingSystemID *string   `db:"grading_system_id" json:"grading_system_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
