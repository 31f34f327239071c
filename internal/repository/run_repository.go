package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// RunRepository persists committed scheduling runs and their sections.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository constructs the repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a run row, defaulting Meta to an empty JSON object and
// Status to DRAFT when unset. Pass nil for exec to run outside a
// transaction.
func (r *RunRepository) Create(ctx context.Context, exec sqlx.ExtContext, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusDraft
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	const query = `
INSERT INTO runs (id, term_id, status, engine_status, objective, meta, created_at, updated_at)
VALUES (:id, :term_id, :status, :engine_status, :objective, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CreateSections bulk-inserts a committed run's (course, block, room) triples.
func (r *RunRepository) CreateSections(ctx context.Context, exec sqlx.ExtContext, sections []models.RunSection) error {
	const query = `INSERT INTO run_sections (id, run_id, course_code, block, room_number, created_at)
		VALUES (:id, :run_id, :course_code, :block, :room_number, :created_at)`
	target := r.exec(exec)
	for i := range sections {
		if sections[i].ID == "" {
			sections[i].ID = uuid.NewString()
		}
		if sections[i].CreatedAt.IsZero() {
			sections[i].CreatedAt = time.Now().UTC()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, sections[i]); err != nil {
			return fmt.Errorf("insert run section: %w", err)
		}
	}
	return nil
}

// CreateStudentAssignments bulk-inserts a committed run's (student, block)
// -> course rows.
func (r *RunRepository) CreateStudentAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.RunStudentAssignment) error {
	const query = `INSERT INTO run_student_assignments (id, run_id, student_id, block, course_code)
		VALUES (:id, :run_id, :student_id, :block, :course_code)`
	target := r.exec(exec)
	for i := range assignments {
		if assignments[i].ID == "" {
			assignments[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignments[i]); err != nil {
			return fmt.Errorf("insert run student assignment: %w", err)
		}
	}
	return nil
}

// UpdateStatus marks a run COMMITTED (or another lifecycle status).
func (r *RunRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RunStatus) error {
	const query = `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("run status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByTerm returns every run in a term, most recent first.
func (r *RunRepository) ListByTerm(ctx context.Context, termID string) ([]models.Run, error) {
	const query = `SELECT id, term_id, status, engine_status, objective, meta, created_at, updated_at
FROM runs WHERE term_id = $1 ORDER BY created_at DESC`
	var runs []models.Run
	if err := r.db.SelectContext(ctx, &runs, query, termID); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns a single run by id.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	const query = `SELECT id, term_id, status, engine_status, objective, meta, created_at, updated_at FROM runs WHERE id = $1`
	var run models.Run
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListSections returns a run's persisted sections ordered by course code.
func (r *RunRepository) ListSections(ctx context.Context, runID string) ([]models.RunSection, error) {
	const query = `SELECT id, run_id, course_code, block, room_number, created_at
FROM run_sections WHERE run_id = $1 ORDER BY course_code ASC, block ASC`
	var sections []models.RunSection
	if err := r.db.SelectContext(ctx, &sections, query, runID); err != nil {
		return nil, fmt.Errorf("list run sections: %w", err)
	}
	return sections, nil
}

// BeginTx starts a transaction for Save/commit flows that must write the
// run, its sections and its student assignments atomically.
func (r *RunRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
