package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/elimuhub/elimu-api/internal/models"
)

func TestGradingRepositorySetDefaultSwapsFlagInOneTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = FALSE WHERE is_default = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("system-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetDefaultSystem(context.Background(), "system-2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingRepositorySetDefaultUnknownSystemRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = FALSE WHERE is_default = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = TRUE, updated_at = $2 WHERE id = $1")).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetDefaultSystem(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingRepositoryReplaceScales(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grade_scales WHERE grading_system_id = $1")).
		WithArgs("system-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_scales")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_scales")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET updated_at = $2 WHERE id = $1")).
		WithArgs("system-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	scales := []models.GradeScale{
		{Grade: "A", MinScore: 80, MaxScore: 100, GradePoint: 12, Remark: "Excellent", Color: "#15803d", DisplayOrder: 1},
		{Grade: "B", MinScore: 60, MaxScore: 79.99, GradePoint: 9, Remark: "Good", Color: "#65a30d", DisplayOrder: 2},
	}
	require.NoError(t, repo.ReplaceScales(context.Background(), "system-1", scales))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingRepositoryDefaultSystemNotConfigured(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM grading_systems WHERE is_default = TRUE").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.DefaultSystem(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
