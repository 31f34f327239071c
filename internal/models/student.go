package models

import "time"

// Student is the persisted form of a learner whose course requests feed
// the scheduling engine.
type Student struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"termId"`
	Year      int       `db:"year" json:"year"`
	FullName  string    `db:"full_name" json:"fullName"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	TermID   string
	Search   string
	Active   *bool
	Page     int
	PageSize int
}

// CourseRequest is one row of a student's three-bucket request set: a
// (student, course, priority) tuple persisted so a run can be regenerated
// from the same inputs.
type CourseRequest struct {
	ID         string    `db:"id" json:"id"`
	TermID     string    `db:"term_id" json:"termId"`
	StudentID  string    `db:"student_id" json:"studentId"`
	CourseCode string    `db:"course_code" json:"courseCode"`
	Priority   string    `db:"priority" json:"priority"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
