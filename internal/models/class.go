package models

import "time"

// Class represents a class/form (e.g. Form 2).
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Level     int       `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Stream is a parallel section within classes (e.g. East, West).
type Stream struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ClassStream pairs a class with a stream and its assigned teachers.
// Students belong to exactly one class stream at a time.
type ClassStream struct {
	ID                 string    `db:"id" json:"id"`
	ClassID            string    `db:"class_id" json:"class_id"`
	StreamID           string    `db:"stream_id" json:"stream_id"`
	TeacherID          *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	AssistantTeacherID *string   `db:"assistant_teacher_id" json:"assistant_teacher_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`

	ClassName  string `db:"class_name" json:"class_name,omitempty"`
	StreamName string `db:"stream_name" json:"stream_name,omitempty"`
}
