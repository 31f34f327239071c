package service

import (
	"context"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

type fakeBlockReader struct {
	blocks []string
	err    error
}

func (f fakeBlockReader) ListByTerm(ctx context.Context, termID string) ([]string, error) {
	return f.blocks, f.err
}

type fakeCourseReader struct {
	courses []models.Course
}

func (f fakeCourseReader) ListByTerm(ctx context.Context, termID string) ([]models.Course, error) {
	return f.courses, nil
}

type fakeStudentReader struct {
	students []models.Student
	created  []models.Student
	requests []models.CourseRequest
	deleted  string
	db       *sqlx.DB
}

func (f *fakeStudentReader) ListByTerm(ctx context.Context, termID string) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeStudentReader) ListRequestsByTerm(ctx context.Context, termID string) ([]models.CourseRequest, error) {
	return nil, nil
}

func (f *fakeStudentReader) Create(ctx context.Context, student *models.Student) error {
	f.created = append(f.created, *student)
	return nil
}

func (f *fakeStudentReader) CreateRequests(ctx context.Context, tx *sqlx.Tx, requests []models.CourseRequest) error {
	f.requests = requests
	return nil
}

func (f *fakeStudentReader) DeleteRequestsByTerm(ctx context.Context, termID string) error {
	f.deleted = termID
	return nil
}

func (f *fakeStudentReader) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return f.db.BeginTxx(ctx, nil)
}

func newFakeStudentReader(t *testing.T, students []models.Student) (*fakeStudentReader, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.ExpectBegin()
	mock.ExpectCommit()
	return &fakeStudentReader{students: students, db: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestTimetableServiceImportCreatesNewStudentsAndSkipsUnknownCourses(t *testing.T) {
	students, mock := newFakeStudentReader(t, nil)
	svc := NewTimetableService(
		fakeBlockReader{blocks: []string{"A", "B"}},
		fakeCourseReader{courses: []models.Course{{Code: "MATH101"}}},
		students,
		nil, nil, nil, nil, nil, nil,
		TimetableServiceConfig{ProposalTTL: time.Hour},
	)

	csv := "student_id,year,priority,course_code\n" +
		"s1,10,Required,MATH101\n" +
		"s1,10,Requested,ART999\n"

	result, err := svc.Import(context.Background(), "term-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsRead)
	assert.Equal(t, 1, result.RowsImported)
	require.Len(t, result.SkippedRows, 1)
	assert.Contains(t, result.SkippedRows[0], "ART999")
	require.Len(t, students.created, 1)
	assert.Equal(t, "s1", students.created[0].ID)
	assert.Equal(t, "term-1", students.deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceImportSkipsStudentAlreadyOnRoster(t *testing.T) {
	students, _ := newFakeStudentReader(t, []models.Student{{ID: "s1", TermID: "term-1"}})
	svc := NewTimetableService(
		fakeBlockReader{blocks: []string{"A"}},
		fakeCourseReader{courses: []models.Course{{Code: "MATH101"}}},
		students,
		nil, nil, nil, nil, nil, nil,
		TimetableServiceConfig{ProposalTTL: time.Hour},
	)

	csv := "student_id,year,priority,course_code\ns1,10,Required,MATH101\n"
	result, err := svc.Import(context.Background(), "term-1", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsImported)
	assert.Empty(t, students.created)
}

func TestTimetableServiceImportRejectsEmptyTermID(t *testing.T) {
	svc := NewTimetableService(fakeBlockReader{}, fakeCourseReader{}, &fakeStudentReader{}, nil, nil, nil, nil, nil, nil, TimetableServiceConfig{})
	_, err := svc.Import(context.Background(), "", strings.NewReader(""))
	require.Error(t, err)
}

func TestTimetableServiceImportRejectsTermWithNoBlocks(t *testing.T) {
	svc := NewTimetableService(fakeBlockReader{blocks: nil}, fakeCourseReader{}, &fakeStudentReader{}, nil, nil, nil, nil, nil, nil, TimetableServiceConfig{})
	_, err := svc.Import(context.Background(), "term-1", strings.NewReader("student_id,year,priority,course_code\n"))
	require.Error(t, err)
}

func TestProposalStoreInProcessRoundtripAndExpiry(t *testing.T) {
	store := newProposalStore(20*time.Millisecond, nil)
	ctx := context.Background()
	p := scheduleProposal{ProposalID: "p1", TermID: "term-1", RequestedAt: time.Now().UTC()}
	store.Save(ctx, p)

	got, ok := store.Get(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "term-1", got.TermID)

	time.Sleep(30 * time.Millisecond)
	_, ok = store.Get(ctx, "p1")
	assert.False(t, ok, "expired proposal should no longer be retrievable")
}

func TestProposalStoreDelete(t *testing.T) {
	store := newProposalStore(time.Hour, nil)
	ctx := context.Background()
	store.Save(ctx, scheduleProposal{ProposalID: "p1"})
	store.Delete(ctx, "p1")
	_, ok := store.Get(ctx, "p1")
	assert.False(t, ok)
}
