package models

import "time"

// Lecturer is the persisted form of a roster entry qualified to teach zero
// or more courses.
type Lecturer struct {
	ID         string    `db:"id" json:"id"`
	TermID     string    `db:"term_id" json:"termId"`
	FullName   string    `db:"full_name" json:"fullName"`
	Department string    `db:"department" json:"department"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// LecturerQualification links a lecturer to a course code they may teach.
type LecturerQualification struct {
	ID         string `db:"id" json:"id"`
	LecturerID string `db:"lecturer_id" json:"lecturerId"`
	CourseCode string `db:"course_code" json:"courseCode"`
}

// LecturerFilter encapsulates allowed search parameters for listing lecturers.
type LecturerFilter struct {
	TermID     string
	Department string
	Search     string
	Page       int
	PageSize   int
}
