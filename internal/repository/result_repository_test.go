package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestResultRepositoryBatchUpsertCommitsAllRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	results := []models.Result{
		{ExamID: "exam-1", StudentID: "student-1", SubjectID: "subject-1", ClassID: "class-1", Score: 72.5, ScoreOutOf: 100, RecordedBy: "user-1"},
		{ExamID: "exam-1", StudentID: "student-2", SubjectID: "subject-1", ClassID: "class-1", Score: 64, ScoreOutOf: 100, RecordedBy: "user-1"},
	}
	require.NoError(t, repo.BatchUpsert(context.Background(), results))
	require.NotEmpty(t, results[0].ID)
	require.NotEmpty(t, results[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBatchUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO results")).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	results := []models.Result{
		{ExamID: "exam-1", StudentID: "student-1", SubjectID: "subject-1", ClassID: "class-1", Score: 72.5, ScoreOutOf: 100, RecordedBy: "user-1"},
		{ExamID: "exam-1", StudentID: "student-2", SubjectID: "missing", ClassID: "class-1", Score: 64, ScoreOutOf: 100, RecordedBy: "user-1"},
	}
	err := repo.BatchUpsert(context.Background(), results)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBatchUpsertEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	require.NoError(t, repo.BatchUpsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"id", "exam_id", "student_id", "subject_id", "class_id", "score", "score_outof", "grade", "points", "remarks", "is_published", "recorded_by"}).
		AddRow("res-1", "exam-1", "student-1", "subject-1", "class-1", 72.5, 100.0, "B+", 10.0, "Good", true, "user-1")
	mock.ExpectQuery(regexp.QuoteMeta("FROM results WHERE deleted_at IS NULL AND exam_id = $1 AND class_id = $2 AND is_published = TRUE")).
		WithArgs("exam-1", "class-1").
		WillReturnRows(rows)

	results, err := repo.List(context.Background(), models.ResultFilter{ExamID: "exam-1", ClassID: "class-1", PublishedOnly: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "res-1", results[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
