package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// StudentRepository persists students and their course requests.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByTerm returns every active student in a term, ordered by id.
func (r *StudentRepository) ListByTerm(ctx context.Context, termID string) ([]models.Student, error) {
	const query = `SELECT id, term_id, year, full_name, active, created_at, updated_at
FROM students WHERE term_id = $1 AND active = true ORDER BY id ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, termID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, term_id, year, full_name, active, created_at, updated_at)
		VALUES (:id, :term_id, :year, :full_name, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// ListRequestsByTerm returns every course request in a term, ordered by
// student id then creation time so the three-bucket union can be rebuilt
// deterministically.
func (r *StudentRepository) ListRequestsByTerm(ctx context.Context, termID string) ([]models.CourseRequest, error) {
	const query = `SELECT id, term_id, student_id, course_code, priority, created_at
FROM course_requests WHERE term_id = $1 ORDER BY student_id ASC, created_at ASC`
	var requests []models.CourseRequest
	if err := r.db.SelectContext(ctx, &requests, query, termID); err != nil {
		return nil, fmt.Errorf("list course requests: %w", err)
	}
	return requests, nil
}

// CreateRequests bulk-inserts course requests within an existing
// transaction, used by the CSV importer to seed many rows atomically.
func (r *StudentRepository) CreateRequests(ctx context.Context, tx *sqlx.Tx, requests []models.CourseRequest) error {
	const query = `INSERT INTO course_requests (id, term_id, student_id, course_code, priority, created_at)
		VALUES (:id, :term_id, :student_id, :course_code, :priority, :created_at)`
	for i := range requests {
		if requests[i].ID == "" {
			requests[i].ID = uuid.NewString()
		}
		if requests[i].CreatedAt.IsZero() {
			requests[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, requests[i]); err != nil {
			return fmt.Errorf("create course request: %w", err)
		}
	}
	return nil
}

// DeleteRequestsByTerm removes every course request in a term, used
// before a bulk re-import.
func (r *StudentRepository) DeleteRequestsByTerm(ctx context.Context, termID string) error {
	const query = `DELETE FROM course_requests WHERE term_id = $1`
	if _, err := r.db.ExecContext(ctx, query, termID); err != nil {
		return fmt.Errorf("delete course requests: %w", err)
	}
	return nil
}

// BeginTx starts a transaction for callers that need to pair
// CreateRequests with other writes atomically.
func (r *StudentRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
