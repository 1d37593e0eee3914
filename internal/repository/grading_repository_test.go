package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skul-exams-api/internal/models"
	appErrors "github.com/noah-isme/skul-exams-api/pkg/errors"
)

func gradeRangeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "grading_system_id", "min_score", "max_score", "grade", "remark", "points", "created_at"}).
		AddRow("r-1", "gs-1", 80.0, 100.0, "A", "Excellent", 12.0, nowRow()).
		AddRow("r-2", "gs-1", 65.0, 79.99, "B", "Good", 9.0, nowRow())
}

func TestGradingSystemRepositoryFindByIDLoadsRanges(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingSystemRepository(db)
	system := sqlmock.NewRows([]string{"id", "school_id", "name", "is_default", "created_at", "updated_at"}).
		AddRow("gs-1", "school-1", "KCSE", true, nowRow(), nowRow())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, school_id, name, is_default")).
		WithArgs("gs-1").
		WillReturnRows(system)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY min_score DESC, created_at ASC, id ASC")).
		WithArgs("gs-1").
		WillReturnRows(gradeRangeRows())

	found, err := repo.FindByID(context.Background(), "gs-1")
	require.NoError(t, err)
	require.Equal(t, "KCSE", found.Name)
	require.Len(t, found.Ranges, 2)
	require.Equal(t, 80.0, found.Ranges[0].MinScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSystemRepositoryCreateRangeDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingSystemRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grade_ranges")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateRange(context.Background(), &models.GradeRange{
		GradingSystemID: "gs-1",
		MinScore:        80,
		MaxScore:        100,
		Grade:           "A",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrDuplicateEntry.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSystemRepositorySetDefault(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingSystemRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = FALSE")).
		WithArgs(sqlmock.AnyArg(), "school-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = TRUE")).
		WithArgs(sqlmock.AnyArg(), "gs-1", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetDefault(context.Background(), "school-1", "gs-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGradingSystemRepositorySetDefaultNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGradingSystemRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = FALSE")).
		WithArgs(sqlmock.AnyArg(), "school-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grading_systems SET is_default = TRUE")).
		WithArgs(sqlmock.AnyArg(), "missing", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetDefault(context.Background(), "school-1", "missing")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
