package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// CourseRepository persists the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByTerm returns every course in a term, ordered by code so callers
// get a stable ordering without re-sorting, with AvailableBlocks and
// ForbiddenBlocks populated from the companion constraints table.
func (r *CourseRepository) ListByTerm(ctx context.Context, termID string) ([]models.Course, error) {
	const query = `SELECT id, term_id, code, title, credits, department, length, min_size, target_size, max_size, sections, created_at, updated_at
FROM courses WHERE term_id = $1 ORDER BY code ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, termID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if len(courses) == 0 {
		return courses, nil
	}
	constraints, err := r.listBlockConstraints(ctx, termID)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		c := constraints[courses[i].Code]
		courses[i].AvailableBlocks = c.available
		courses[i].ForbiddenBlocks = c.forbidden
	}
	return courses, nil
}

type blockConstraintRow struct {
	CourseCode string `db:"course_code"`
	Block      string `db:"block"`
	Kind       string `db:"kind"`
}

type blockConstraintSet struct {
	available []string
	forbidden []string
}

// listBlockConstraints loads the available/forbidden block overrides for
// every course in a term in one query, keyed by course code.
func (r *CourseRepository) listBlockConstraints(ctx context.Context, termID string) (map[string]blockConstraintSet, error) {
	const query = `SELECT cbc.course_code, cbc.block, cbc.kind
FROM course_block_constraints cbc
JOIN courses c ON c.code = cbc.course_code AND c.term_id = cbc.term_id
WHERE cbc.term_id = $1
ORDER BY cbc.course_code ASC, cbc.block ASC`
	var rows []blockConstraintRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list course block constraints: %w", err)
	}
	result := make(map[string]blockConstraintSet)
	for _, row := range rows {
		set := result[row.CourseCode]
		switch row.Kind {
		case "available":
			set.available = append(set.available, row.Block)
		case "forbidden":
			set.forbidden = append(set.forbidden, row.Block)
		}
		result[row.CourseCode] = set
	}
	return result, nil
}

// Get returns a single course by id.
func (r *CourseRepository) Get(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, term_id, code, title, credits, department, length, min_size, target_size, max_size, sections, created_at, updated_at
FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return &course, nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, term_id, code, title, credits, department, length, min_size, target_size, max_size, sections, created_at, updated_at)
		VALUES (:id, :term_id, :code, :title, :credits, :department, :length, :min_size, :target_size, :max_size, :sections, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Delete removes a course by id.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted course rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByTerm returns the number of courses registered in a term.
func (r *CourseRepository) CountByTerm(ctx context.Context, termID string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE term_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, termID); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}
