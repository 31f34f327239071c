// Package loader reads the CSV feeds an institution hands the scheduling
// engine (student requests, catalog, rooms, roster) and turns them into
// the rows the repository layer persists, synthesising a roster or room
// inventory when one isn't supplied.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

// StudentRequestRow is one parsed line of students.csv.
type StudentRequestRow struct {
	StudentID  string
	Year       int
	Priority   string
	CourseCode string
}

// CourseRow is one parsed line of courses.csv.
type CourseRow struct {
	Code            string
	Title           string
	Department      string
	Credits         int
	Length          int
	MinSize         int
	TargetSize      int
	MaxSize         int
	Sections        int
	AvailableBlocks []string
	ForbiddenBlocks []string
}

// RoomRow is one parsed line of rooms.csv, or a synthesized stand-in.
type RoomRow struct {
	Number   string
	Capacity int
	Type     string
	Building string
}

// LecturerRow is one parsed line of lecturers.csv, or a synthesized stand-in.
type LecturerRow struct {
	FullName    string
	Department  string
	CourseCodes []string
}

var priorityAliases = map[string]string{
	"required":    "required",
	"requested":   "requested",
	"recommended": "recommended",
}

func normalizePriority(raw string) (string, bool) {
	p, ok := priorityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// ParseStudentRequests reads student_id,year,priority,course_code rows.
// Unknown priority values and malformed rows are skipped and reported
// rather than failing the whole import; a duplicate (student_id,
// course_code) pair is a hard InputInvariantViolation since it means the
// source feed disagrees with itself about what the student asked for.
func ParseStudentRequests(r io.Reader) ([]StudentRequestRow, []string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "students.csv is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read students.csv header: %w", err)
	}
	col, err := columnIndex(header, "student_id", "year", "priority", "course_code")
	if err != nil {
		return nil, nil, err
	}

	var rows []StudentRequestRow
	var skipped []string
	seen := make(map[string]struct{})

	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read students.csv line %d: %w", lineNo, err)
		}

		studentID := strings.TrimSpace(record[col["student_id"]])
		courseCode := strings.TrimSpace(record[col["course_code"]])
		if studentID == "" || courseCode == "" {
			skipped = append(skipped, fmt.Sprintf("line %d: missing student_id or course_code", lineNo))
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[col["year"]]))
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: invalid year %q", lineNo, record[col["year"]]))
			continue
		}
		priority, ok := normalizePriority(record[col["priority"]])
		if !ok {
			skipped = append(skipped, fmt.Sprintf("line %d: unrecognised priority %q", lineNo, record[col["priority"]]))
			continue
		}

		key := studentID + "|" + courseCode
		if _, dup := seen[key]; dup {
			return nil, nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("duplicate request for student %s and course %s", studentID, courseCode))
		}
		seen[key] = struct{}{}

		rows = append(rows, StudentRequestRow{
			StudentID:  studentID,
			Year:       year,
			Priority:   priority,
			CourseCode: courseCode,
		})
	}
	return rows, skipped, nil
}

// ParseCourses reads the catalog feed. available_blocks and
// forbidden_blocks are optional pipe-separated columns.
func ParseCourses(r io.Reader) ([]CourseRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read courses.csv header: %w", err)
	}
	col, err := columnIndex(header, "code", "title", "department", "credits", "length", "min_size", "target_size", "max_size", "sections")
	if err != nil {
		return nil, err
	}
	availIdx, hasAvail := col["available_blocks"]
	forbidIdx, hasForbid := col["forbidden_blocks"]

	var courses []CourseRow
	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read courses.csv line %d: %w", lineNo, err)
		}
		course := CourseRow{
			Code:       strings.TrimSpace(record[col["code"]]),
			Title:      strings.TrimSpace(record[col["title"]]),
			Department: strings.TrimSpace(record[col["department"]]),
		}
		course.Credits, _ = strconv.Atoi(strings.TrimSpace(record[col["credits"]]))
		course.Length, _ = strconv.Atoi(strings.TrimSpace(record[col["length"]]))
		course.MinSize, _ = strconv.Atoi(strings.TrimSpace(record[col["min_size"]]))
		course.TargetSize, _ = strconv.Atoi(strings.TrimSpace(record[col["target_size"]]))
		course.MaxSize, _ = strconv.Atoi(strings.TrimSpace(record[col["max_size"]]))
		course.Sections, _ = strconv.Atoi(strings.TrimSpace(record[col["sections"]]))
		if hasAvail {
			course.AvailableBlocks = splitBlocks(record[availIdx])
		}
		if hasForbid {
			course.ForbiddenBlocks = splitBlocks(record[forbidIdx])
		}
		courses = append(courses, course)
	}
	if len(courses) == 0 {
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "courses.csv contains no rows")
	}
	return courses, nil
}

// ParseRooms reads the room inventory feed.
func ParseRooms(r io.Reader) ([]RoomRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read rooms.csv header: %w", err)
	}
	col, err := columnIndex(header, "number", "capacity", "type", "building")
	if err != nil {
		return nil, err
	}

	var rooms []RoomRow
	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rooms.csv line %d: %w", lineNo, err)
		}
		capacity, _ := strconv.Atoi(strings.TrimSpace(record[col["capacity"]]))
		rooms = append(rooms, RoomRow{
			Number:   strings.TrimSpace(record[col["number"]]),
			Capacity: capacity,
			Type:     strings.TrimSpace(record[col["type"]]),
			Building: strings.TrimSpace(record[col["building"]]),
		})
	}
	return rooms, nil
}

// ParseLecturers reads the optional roster feed. course_codes is a
// pipe-separated column.
func ParseLecturers(r io.Reader) ([]LecturerRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read lecturers.csv header: %w", err)
	}
	col, err := columnIndex(header, "full_name", "department", "course_codes")
	if err != nil {
		return nil, err
	}

	var lecturers []LecturerRow
	for lineNo := 2; ; lineNo++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read lecturers.csv line %d: %w", lineNo, err)
		}
		lecturers = append(lecturers, LecturerRow{
			FullName:    strings.TrimSpace(record[col["full_name"]]),
			Department:  strings.TrimSpace(record[col["department"]]),
			CourseCodes: splitBlocks(record[col["course_codes"]]),
		})
	}
	return lecturers, nil
}

// SynthesizeLecturers fabricates one lecturer per department present in
// the catalog, qualified to teach every course in that department. Used
// when a term has no lecturers.csv of its own.
func SynthesizeLecturers(courses []CourseRow) []LecturerRow {
	byDept := make(map[string][]string)
	var depts []string
	for _, c := range courses {
		if _, ok := byDept[c.Department]; !ok {
			depts = append(depts, c.Department)
		}
		byDept[c.Department] = append(byDept[c.Department], c.Code)
	}
	sort.Strings(depts)

	lecturers := make([]LecturerRow, 0, len(depts))
	for _, dept := range depts {
		lecturers = append(lecturers, LecturerRow{
			FullName:    fmt.Sprintf("%s staff lecturer", dept),
			Department:  dept,
			CourseCodes: byDept[dept],
		})
	}
	return lecturers
}

// SynthesizeRooms fabricates a room inventory sized to the 90th
// percentile of max_size across the catalog. Used when a term has no
// rooms.csv of its own.
func SynthesizeRooms(courses []CourseRow) []RoomRow {
	if len(courses) == 0 {
		return nil
	}
	sizes := make([]int, len(courses))
	for i, c := range courses {
		sizes[i] = c.MaxSize
	}
	sort.Ints(sizes)
	capacity := percentile(sizes, 90)
	if capacity <= 0 {
		capacity = 30
	}

	count := len(courses)
	if count < 1 {
		count = 1
	}
	rooms := make([]RoomRow, 0, count)
	for i := 0; i < count; i++ {
		rooms = append(rooms, RoomRow{
			Number:   fmt.Sprintf("GEN-%03d", i+1),
			Capacity: capacity,
			Type:     "classroom",
			Building: "generated",
		})
	}
	return rooms
}

func percentile(sorted []int, p int) int {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * (len(sorted) - 1)) / 100
	return sorted[idx]
}

func splitBlocks(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			blocks = append(blocks, p)
		}
	}
	return blocks
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("missing required column %q", name))
		}
	}
	return col, nil
}
