package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryListByTerm(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "term_id", "code", "title", "credits", "department", "length", "min_size", "target_size", "max_size", "sections", "created_at", "updated_at"}).
		AddRow("c1", "t1", "MATH101", "Algebra", 3, "Math", 50, 10, 25, 30, 1, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, term_id, code, title, credits, department, length, min_size, target_size, max_size, sections, created_at, updated_at\nFROM courses WHERE term_id = $1 ORDER BY code ASC")).
		WithArgs("t1").
		WillReturnRows(rows)

	constraintRows := sqlmock.NewRows([]string{"course_code", "block", "kind"}).
		AddRow("MATH101", "A", "available").
		AddRow("MATH101", "F", "forbidden")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT cbc.course_code, cbc.block, cbc.kind")).
		WithArgs("t1").
		WillReturnRows(constraintRows)

	courses, err := repo.ListByTerm(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, []string{"A"}, courses[0].AvailableBlocks)
	assert.Equal(t, []string{"F"}, courses[0].ForbiddenBlocks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListByTermEmpty(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, term_id, code, title, credits, department, length, min_size, target_size, max_size, sections, created_at, updated_at\nFROM courses WHERE term_id = $1 ORDER BY code ASC")).
		WithArgs("empty-term").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "code", "title", "credits", "department", "length", "min_size", "target_size", "max_size", "sections", "created_at", "updated_at"}))

	courses, err := repo.ListByTerm(context.Background(), "empty-term")
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WithArgs(sqlmock.AnyArg(), "t1", "MATH101", "Algebra", 3, "Math", 50, 10, 25, 30, 1, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		TermID: "t1", Code: "MATH101", Title: "Algebra", Credits: 3, Department: "Math",
		Length: 50, MinSize: 10, TargetSize: 25, MaxSize: 30, Sections: 1,
	}
	require.NoError(t, repo.Create(context.Background(), course))
	assert.NotEmpty(t, course.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCountByTerm(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE term_id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountByTerm(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
