package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/elimuhub/elimu-api/internal/models"
)

// ResultRepository persists computed exam results. Rows are unique per
// (exam_id, student_id, subject_id); re-submitting a batch overwrites
// the earlier rows.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs the repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// BatchUpsert writes all rows of one submission in a single transaction.
// Either every row lands or none does. A conflicting soft-deleted row is
// revived by the upsert.
func (r *ResultRepository) BatchUpsert(ctx context.Context, results []models.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	const query = `INSERT INTO results (id, exam_id, student_id, subject_id, class_id, stream_id,
        pp_1, pp_1_outof, pp_2, pp_2_outof, pp_3, pp_3_outof,
        score, score_outof, grade, points, remarks, is_published,
        recorded_by, created_at, updated_at)
VALUES (:id, :exam_id, :student_id, :subject_id, :class_id, :stream_id,
        :pp_1, :pp_1_outof, :pp_2, :pp_2_outof, :pp_3, :pp_3_outof,
        :score, :score_outof, :grade, :points, :remarks, :is_published,
        :recorded_by, :created_at, :updated_at)
ON CONFLICT (exam_id, student_id, subject_id)
DO UPDATE SET pp_1 = EXCLUDED.pp_1, pp_1_outof = EXCLUDED.pp_1_outof,
        pp_2 = EXCLUDED.pp_2, pp_2_outof = EXCLUDED.pp_2_outof,
        pp_3 = EXCLUDED.pp_3, pp_3_outof = EXCLUDED.pp_3_outof,
        score = EXCLUDED.score, score_outof = EXCLUDED.score_outof,
        grade = EXCLUDED.grade, points = EXCLUDED.points, remarks = EXCLUDED.remarks,
        updated_by = EXCLUDED.recorded_by, updated_at = EXCLUDED.updated_at,
        deleted_by = NULL, deleted_at = NULL`
	now := time.Now().UTC()
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = uuid.NewString()
		}
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
		results[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, results[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("upsert result: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// List returns results matching the filter, soft-deleted rows excluded.
func (r *ResultRepository) List(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	baseQuery := `SELECT id, exam_id, student_id, subject_id, class_id, stream_id,
        pp_1, pp_1_outof, pp_2, pp_2_outof, pp_3, pp_3_outof,
        score, score_outof, grade, points, remarks, is_published,
        recorded_by, updated_by, deleted_by, deleted_at, created_at, updated_at
FROM results WHERE deleted_at IS NULL`
	var conditions []string
	var args []interface{}

	if filter.ExamID != "" {
		conditions = append(conditions, fmt.Sprintf("exam_id = $%d", len(args)+1))
		args = append(args, filter.ExamID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StreamID != "" {
		conditions = append(conditions, fmt.Sprintf("stream_id = $%d", len(args)+1))
		args = append(args, filter.StreamID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.PublishedOnly {
		conditions = append(conditions, "is_published = TRUE")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	baseQuery += " ORDER BY created_at DESC"

	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, baseQuery, args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// SoftDelete marks one result removed without dropping the row.
func (r *ResultRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	const query = `UPDATE results SET deleted_by = $2, deleted_at = $3, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, deletedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("soft delete result: %w", err)
	}
	return nil
}
