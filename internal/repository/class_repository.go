package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elimuhub/elimu-api/internal/models"
)

// ClassRepository provides database access for classes and streams.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListClasses returns all classes ordered by level.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]models.Class, error) {
	const query = `SELECT id, name, level, created_at, updated_at FROM classes ORDER BY level, name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// GetClass returns a class by identifier.
func (r *ClassRepository) GetClass(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, level, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get class: %w", err)
	}
	return &class, nil
}

// CreateClass inserts a class row.
func (r *ClassRepository) CreateClass(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, name, level, created_at, updated_at) VALUES (:id, :name, :level, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// ListStreams returns all streams.
func (r *ClassRepository) ListStreams(ctx context.Context) ([]models.Stream, error) {
	const query = `SELECT id, name, created_at FROM streams ORDER BY name`
	var streams []models.Stream
	if err := r.db.SelectContext(ctx, &streams, query); err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}
	return streams, nil
}

// ListClassStreams returns the stream sections of one class with class
// and stream names joined in.
func (r *ClassRepository) ListClassStreams(ctx context.Context, classID string) ([]models.ClassStream, error) {
	const query = `SELECT cs.id, cs.class_id, cs.stream_id, cs.teacher_id, cs.assistant_teacher_id, cs.created_at,
        c.name AS class_name, s.name AS stream_name
FROM class_streams cs
JOIN classes c ON c.id = cs.class_id
JOIN streams s ON s.id = cs.stream_id
WHERE cs.class_id = $1
ORDER BY s.name`
	var sections []models.ClassStream
	if err := r.db.SelectContext(ctx, &sections, query, classID); err != nil {
		return nil, fmt.Errorf("list class streams: %w", err)
	}
	return sections, nil
}

// GetClassStream returns one class stream section by identifier.
func (r *ClassRepository) GetClassStream(ctx context.Context, id string) (*models.ClassStream, error) {
	const query = `SELECT cs.id, cs.class_id, cs.stream_id, cs.teacher_id, cs.assistant_teacher_id, cs.created_at,
        c.name AS class_name, s.name AS stream_name
FROM class_streams cs
JOIN classes c ON c.id = cs.class_id
JOIN streams s ON s.id = cs.stream_id
WHERE cs.id = $1 LIMIT 1`
	var section models.ClassStream
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get class stream: %w", err)
	}
	return &section, nil
}
