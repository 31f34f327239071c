package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// LecturerRepository persists the lecturer roster and course qualifications.
type LecturerRepository struct {
	db *sqlx.DB
}

// NewLecturerRepository constructs the repository.
func NewLecturerRepository(db *sqlx.DB) *LecturerRepository {
	return &LecturerRepository{db: db}
}

// ListByTerm returns every active lecturer in a term, ordered by id.
func (r *LecturerRepository) ListByTerm(ctx context.Context, termID string) ([]models.Lecturer, error) {
	const query = `SELECT id, term_id, full_name, department, active, created_at, updated_at
FROM lecturers WHERE term_id = $1 AND active = true ORDER BY id ASC`
	var lecturers []models.Lecturer
	if err := r.db.SelectContext(ctx, &lecturers, query, termID); err != nil {
		return nil, fmt.Errorf("list lecturers: %w", err)
	}
	return lecturers, nil
}

// ListQualifications returns every lecturer-course qualification in a
// term, ordered by lecturer id so each lecturer's course list is built
// deterministically.
func (r *LecturerRepository) ListQualifications(ctx context.Context, termID string) ([]models.LecturerQualification, error) {
	const query = `SELECT lq.id, lq.lecturer_id, lq.course_code
FROM lecturer_qualifications lq
JOIN lecturers l ON l.id = lq.lecturer_id
WHERE l.term_id = $1
ORDER BY lq.lecturer_id ASC, lq.course_code ASC`
	var qualifications []models.LecturerQualification
	if err := r.db.SelectContext(ctx, &qualifications, query, termID); err != nil {
		return nil, fmt.Errorf("list lecturer qualifications: %w", err)
	}
	return qualifications, nil
}

// Create inserts a new lecturer.
func (r *LecturerRepository) Create(ctx context.Context, lecturer *models.Lecturer) error {
	if lecturer.ID == "" {
		lecturer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lecturer.CreatedAt.IsZero() {
		lecturer.CreatedAt = now
	}
	lecturer.UpdatedAt = now
	const query = `INSERT INTO lecturers (id, term_id, full_name, department, active, created_at, updated_at)
		VALUES (:id, :term_id, :full_name, :department, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, lecturer); err != nil {
		return fmt.Errorf("create lecturer: %w", err)
	}
	return nil
}
