package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus mirrors timetable.Status for persistence, plus DRAFT/
// COMMITTED lifecycle phases the engine itself has no concept of.
type RunStatus string

const (
	RunStatusDraft     RunStatus = "DRAFT"
	RunStatusCommitted RunStatus = "COMMITTED"
)

// Run captures one persisted scheduling engine invocation: the engine's
// status/objective plus the lifecycle phase the application layer adds on
// top (a run starts DRAFT from a cached proposal and becomes COMMITTED
// once an operator accepts it).
type Run struct {
	ID           string         `db:"id" json:"id"`
	TermID       string         `db:"term_id" json:"termId"`
	Status       RunStatus      `db:"status" json:"status"`
	EngineStatus string         `db:"engine_status" json:"engineStatus"`
	Objective    float64        `db:"objective" json:"objective"`
	Meta         types.JSONText `db:"meta" json:"meta"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// RunSection is one (course, block, room) triple persisted from a
// committed run's Schedule.CourseBlocks/CourseRooms.
type RunSection struct {
	ID         string    `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"runId"`
	CourseCode string    `db:"course_code" json:"courseCode"`
	Block      string    `db:"block" json:"block"`
	RoomNumber string    `db:"room_number" json:"roomNumber"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// RunStudentAssignment is one (student, block) -> course row persisted
// from a committed run's Schedule.StudentSchedules.
type RunStudentAssignment struct {
	ID         string `db:"id" json:"id"`
	RunID      string `db:"run_id" json:"runId"`
	StudentID  string `db:"student_id" json:"studentId"`
	Block      string `db:"block" json:"block"`
	CourseCode string `db:"course_code" json:"courseCode"`
}

// RunFilter encapsulates allowed search parameters for listing runs.
type RunFilter struct {
	TermID   string
	Status   RunStatus
	Page     int
	PageSize int
}
