package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStudentRequestsNormalisesPriority(t *testing.T) {
	csv := "student_id,year,priority,course_code\n" +
		"s1,10,Required,MATH101\n" +
		"s1,10,Requested,HIST201\n" +
		"s2,11,RECOMMENDED,ART100\n"

	rows, skipped, err := ParseStudentRequests(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 3)
	assert.Equal(t, "required", rows[0].Priority)
	assert.Equal(t, "requested", rows[1].Priority)
	assert.Equal(t, "recommended", rows[2].Priority)
}

func TestParseStudentRequestsSkipsMalformedRows(t *testing.T) {
	csv := "student_id,year,priority,course_code\n" +
		"s1,not-a-year,Required,MATH101\n" +
		",10,Required,MATH101\n" +
		"s2,10,urgent,MATH101\n" +
		"s3,10,Required,HIST201\n"

	rows, skipped, err := ParseStudentRequests(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "s3", rows[0].StudentID)
	assert.Len(t, skipped, 3)
}

func TestParseStudentRequestsRejectsDuplicates(t *testing.T) {
	csv := "student_id,year,priority,course_code\n" +
		"s1,10,Required,MATH101\n" +
		"s1,10,Requested,MATH101\n"

	_, _, err := ParseStudentRequests(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate request")
}

func TestParseStudentRequestsRejectsEmptyFile(t *testing.T) {
	_, _, err := ParseStudentRequests(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseStudentRequestsRequiresColumns(t *testing.T) {
	_, _, err := ParseStudentRequests(strings.NewReader("student_id,priority,course_code\ns1,Required,MATH101\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year")
}

func TestParseCoursesWithBlocks(t *testing.T) {
	csv := "code,title,department,credits,length,min_size,target_size,max_size,sections,available_blocks,forbidden_blocks\n" +
		"MATH101,Algebra,Math,3,50,10,25,30,2,A|B,F\n"

	courses, err := ParseCourses(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, []string{"A", "B"}, courses[0].AvailableBlocks)
	assert.Equal(t, []string{"F"}, courses[0].ForbiddenBlocks)
}

func TestParseCoursesRejectsEmptyCatalog(t *testing.T) {
	_, err := ParseCourses(strings.NewReader("code,title,department,credits,length,min_size,target_size,max_size,sections\n"))
	require.Error(t, err)
}

func TestSynthesizeLecturersGroupsByDepartmentDeterministically(t *testing.T) {
	courses := []CourseRow{
		{Code: "HIST201", Department: "History"},
		{Code: "MATH101", Department: "Math"},
		{Code: "MATH102", Department: "Math"},
	}

	lecturers := SynthesizeLecturers(courses)
	require.Len(t, lecturers, 2)
	assert.Equal(t, "History", lecturers[0].Department)
	assert.Equal(t, "Math", lecturers[1].Department)
	assert.ElementsMatch(t, []string{"MATH101", "MATH102"}, lecturers[1].CourseCodes)
}

func TestSynthesizeRoomsUsesNinetiethPercentile(t *testing.T) {
	courses := []CourseRow{
		{Code: "A", MaxSize: 20},
		{Code: "B", MaxSize: 25},
		{Code: "C", MaxSize: 30},
	}

	rooms := SynthesizeRooms(courses)
	require.Len(t, rooms, 3)
	assert.Equal(t, 25, rooms[0].Capacity)
	assert.Equal(t, "GEN-001", rooms[0].Number)
}

func TestSynthesizeRoomsEmptyCatalog(t *testing.T) {
	assert.Nil(t, SynthesizeRooms(nil))
}
