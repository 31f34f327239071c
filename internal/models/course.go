package models

import "time"

// Course is the persisted form of a catalog entry: a term-scoped row that
// the repository layer maps to/from the engine's pure timetable.Course.
type Course struct {
	ID              string    `db:"id" json:"id"`
	TermID          string    `db:"term_id" json:"termId"`
	Code            string    `db:"code" json:"code"`
	Title           string    `db:"title" json:"title"`
	Credits         int       `db:"credits" json:"credits"`
	Department      string    `db:"department" json:"department"`
	Length          int       `db:"length" json:"length"`
	MinSize         int       `db:"min_size" json:"minSize"`
	TargetSize      int       `db:"target_size" json:"targetSize"`
	MaxSize         int       `db:"max_size" json:"maxSize"`
	Sections        int       `db:"sections" json:"sections"`
	AvailableBlocks []string  `db:"-" json:"availableBlocks,omitempty"`
	ForbiddenBlocks []string  `db:"-" json:"forbiddenBlocks,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	TermID     string
	Department string
	Search     string
	Page       int
	PageSize   int
}
