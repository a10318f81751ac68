package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elimuhub/elimu-api/internal/models"
)

// ExamRepository provides database access for exams.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs the repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// GetByID returns an exam by identifier.
func (r *ExamRepository) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	const query = `SELECT id, term_id, name, start_date, end_date, is_published, created_at, updated_at FROM exams WHERE id = $1 LIMIT 1`
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return &exam, nil
}

// List returns exams in the given scope, newest first.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, error) {
	baseQuery := `SELECT id, term_id, name, start_date, end_date, is_published, created_at, updated_at FROM exams WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY start_date DESC"

	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, nil
}

// Create inserts a new exam row.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, term_id, name, start_date, end_date, is_published, created_at, updated_at)
VALUES (:id, :term_id, :name, :start_date, :end_date, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	return nil
}

// Update updates mutable exam fields.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update exam: %w", err)
	}
	return nil
}

// SetPublished flips exam visibility and mirrors the flag onto every
// result of the exam so per-result reads stay consistent.
func (r *ExamRepository) SetPublished(ctx context.Context, id string, published bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE exams SET is_published = $2, updated_at = $3 WHERE id = $1`, id, published, now)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("publish exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		tx.Rollback() //nolint:errcheck
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `UPDATE results SET is_published = $2, updated_at = $3 WHERE exam_id = $1 AND deleted_at IS NULL`, id, published, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("publish exam results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit exam publish: %w", err)
	}
	return nil
}

// Delete removes an exam that has no recorded results.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM exams WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM results WHERE exam_id = $1 AND deleted_at IS NULL)`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
