package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elimuhub/elimu-api/internal/models"
)

// AnalyticsRepository runs the read-side queries behind exam analysis.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// ResultRows returns the denormalised result rows for one exam and
// class, student and subject names joined in. A non-empty streamID
// narrows the rows to one class stream. publishedOnly trims the set to
// published results for non-staff readers.
func (r *AnalyticsRepository) ResultRows(ctx context.Context, examID, classID, streamID string, publishedOnly bool) ([]models.ResultRow, error) {
	query := `SELECT res.student_id, st.admission_no, st.first_name || ' ' || st.last_name AS student_name,
        str.name AS stream_name, res.subject_id, sub.name AS subject_name,
        res.score, res.score_outof, res.grade, res.points
FROM results res
JOIN students st ON st.id = res.student_id
JOIN subjects sub ON sub.id = res.subject_id
JOIN class_streams cs ON cs.id = st.class_stream_id
JOIN streams str ON str.id = cs.stream_id
WHERE res.exam_id = $1 AND res.class_id = $2 AND res.deleted_at IS NULL`
	args := []interface{}{examID, classID}
	if streamID != "" {
		query += fmt.Sprintf(" AND st.class_stream_id = $%d", len(args)+1)
		args = append(args, streamID)
	}
	if publishedOnly {
		query += " AND res.is_published = TRUE"
	}
	query += " ORDER BY st.admission_no, sub.name"

	var rows []models.ResultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("analytics result rows: %w", err)
	}
	return rows, nil
}

// ClassRoster returns every student of the class with stream name, so
// merit lists can include students who sat no papers. A non-empty
// streamID restricts the roster to one class stream.
func (r *AnalyticsRepository) ClassRoster(ctx context.Context, classID, streamID string) ([]models.ResultRow, error) {
	query := `SELECT st.id AS student_id, st.admission_no, st.first_name || ' ' || st.last_name AS student_name,
        str.name AS stream_name, '' AS subject_id, '' AS subject_name,
        0 AS score, 0 AS score_outof
FROM students st
JOIN class_streams cs ON cs.id = st.class_stream_id
JOIN streams str ON str.id = cs.stream_id
WHERE st.class_id = $1`
	args := []interface{}{classID}
	if streamID != "" {
		query += " AND st.class_stream_id = $2"
		args = append(args, streamID)
	}
	query += " ORDER BY st.admission_no"
	var rows []models.ResultRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("class roster: %w", err)
	}
	return rows, nil
}

// SubjectsWithResults returns the subjects that have at least one result
// in the exam, class and optional stream scope.
func (r *AnalyticsRepository) SubjectsWithResults(ctx context.Context, examID, classID, streamID string) ([]models.Subject, error) {
	query := `SELECT DISTINCT sub.id, sub.name, sub.code, sub.department, sub.grading_system_id, sub.created_at, sub.updated_at
FROM subjects sub
JOIN results res ON res.subject_id = sub.id
WHERE res.exam_id = $1 AND res.class_id = $2 AND res.deleted_at IS NULL`
	args := []interface{}{examID, classID}
	if streamID != "" {
		query += " AND res.stream_id = $3"
		args = append(args, streamID)
	}
	query += " ORDER BY sub.name"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("subjects with results: %w", err)
	}
	return subjects, nil
}
