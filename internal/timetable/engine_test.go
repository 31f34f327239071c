package timetable

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/pkg/ilp"
)

func baseRooms() []Room {
	return []Room{
		{Number: "R1", Capacity: 10, Type: "standard", Building: "A"},
	}
}

func TestScheduleEmptyRequests(t *testing.T) {
	model := InputModel{
		Blocks: []Block{"1A", "2A", "3A"},
		Courses: []Course{
			{Code: "C1", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "C2", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "C3", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "C4", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "C5", MinSize: 1, TargetSize: 5, MaxSize: 10},
		},
		Rooms: []Room{
			{Number: "R1", Capacity: 10}, {Number: "R2", Capacity: 10}, {Number: "R3", Capacity: 10},
			{Number: "R4", Capacity: 10}, {Number: "R5", Capacity: 10}, {Number: "R6", Capacity: 10},
			{Number: "R7", Capacity: 10},
		},
	}

	engine := NewEngine()
	result, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, result.Status)
	assert.Empty(t, result.Schedule.CourseBlocks)
	assert.Empty(t, result.Schedule.StudentSchedules)

	analysis := Analyze(model, result.Schedule, nil)
	assert.Equal(t, 0, analysis.ResolvedRequests)
}

func TestScheduleSingleFeasibleRequest(t *testing.T) {
	model := InputModel{
		Blocks: []Block{"1A", "2A"},
		Courses: []Course{
			{Code: "MATH101", MinSize: 1, TargetSize: 5, MaxSize: 10},
		},
		Students: []Student{
			{ID: "S1", Required: []string{"MATH101"}},
		},
		Lecturers: []Lecturer{
			{ID: "L1", Courses: []string{"MATH101"}},
		},
		Rooms: baseRooms(),
	}

	engine := NewEngine()
	result, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	require.Contains(t, []Status{StatusOptimal, StatusFeasible}, result.Status)
	require.Len(t, result.Schedule.CourseBlocks["MATH101"], 1)
	block := result.Schedule.CourseBlocks["MATH101"][0]
	assert.Equal(t, "MATH101", result.Schedule.StudentSchedules["S1"][block])
	assert.InDelta(t, 10, result.Objective, 1e-6)

	analysis := Analyze(model, result.Schedule, nil)
	assert.Equal(t, 1, analysis.TotalRequests)
	assert.Equal(t, 1, analysis.ResolvedRequests)
	assert.InDelta(t, 100, analysis.ByPriority["required"].Percentage, 1e-6)
}

func TestScheduleOverDemandEnrolsUpToRelaxedCap(t *testing.T) {
	students := make([]Student, 0, 100)
	for i := 0; i < 100; i++ {
		students = append(students, Student{ID: studentID(i), Required: []string{"X"}})
	}

	model := InputModel{
		Blocks: []Block{"1A"},
		Courses: []Course{
			{Code: "X", MinSize: 1, TargetSize: 15, MaxSize: 20},
		},
		Students: students,
		Rooms:    []Room{{Number: "R1", Capacity: 20}},
	}

	engine := NewEngine()
	result, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	block := result.Schedule.CourseBlocks["X"][0]
	enrolled := 0
	for _, sched := range result.Schedule.StudentSchedules {
		if sched[block] == "X" {
			enrolled++
		}
	}
	assert.LessOrEqual(t, enrolled, 25)
	assert.GreaterOrEqual(t, enrolled, 1)
}

func TestScheduleBlockConflictResolvesExactlyOne(t *testing.T) {
	model := InputModel{
		Blocks: []Block{"1A"},
		Courses: []Course{
			{Code: "A", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "B", MinSize: 1, TargetSize: 5, MaxSize: 10},
		},
		Students: []Student{
			{ID: "S1", Required: []string{"A", "B"}},
		},
		Rooms: []Room{{Number: "R1", Capacity: 10}, {Number: "R2", Capacity: 10}},
	}

	engine := NewEngine()
	result, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	assigned := 0
	for _, code := range result.Schedule.StudentSchedules["S1"] {
		if code == "A" || code == "B" {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)
}

func TestScheduleSolverUnavailableIsFatal(t *testing.T) {
	model := InputModel{
		Blocks:  []Block{"1A"},
		Courses: []Course{{Code: "C1", MinSize: 1, TargetSize: 5, MaxSize: 10}},
		Rooms:   baseRooms(),
	}

	engine := &Engine{Solver: nil}
	result, err := engine.Schedule(context.Background(), model)
	require.Error(t, err)
	assert.Nil(t, result)

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, KindSolverUnavailable, engineErr.Kind)
}

// alwaysTimeOutSolver simulates a solver backend that always exhausts its
// time budget without returning a usable solution, forcing the fallback
// heuristic to run.
type alwaysTimeOutSolver struct{}

func (alwaysTimeOutSolver) Solve(ctx context.Context, p *ilp.Problem, timeLimit time.Duration) ilp.Result {
	return ilp.Result{Status: ilp.StatusTimeLimit}
}

func TestScheduleSolverTimeoutFallsBackWithNonzeroResolution(t *testing.T) {
	students := make([]Student, 0, 50)
	for i := 0; i < 50; i++ {
		students = append(students, Student{ID: studentID(i), Required: []string{"X"}})
	}
	model := InputModel{
		Blocks:    []Block{"1A", "2A"},
		Courses:   []Course{{Code: "X", MinSize: 1, TargetSize: 10, MaxSize: 20}},
		Students:  students,
		Rooms:     []Room{{Number: "R1", Capacity: 20}},
		Lecturers: []Lecturer{{ID: "L1", Courses: []string{"X"}}},
	}

	engine := &Engine{Solver: alwaysTimeOutSolver{}, TimeLimit: 100 * time.Millisecond}
	result, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, result.Status)
	assert.Greater(t, result.Objective, 0.0)
	require.NotEmpty(t, result.Warnings)
}

func TestScheduleDeterministic(t *testing.T) {
	model := InputModel{
		Blocks: []Block{"1A", "2A", "3A"},
		Courses: []Course{
			{Code: "A", MinSize: 1, TargetSize: 5, MaxSize: 10},
			{Code: "B", MinSize: 1, TargetSize: 5, MaxSize: 10},
		},
		Students: []Student{
			{ID: "S1", Required: []string{"A"}, Requested: []string{"B"}},
			{ID: "S2", Required: []string{"B"}},
		},
		Rooms: []Room{{Number: "R1", Capacity: 10}, {Number: "R2", Capacity: 10}},
	}

	engine := NewEngine()
	first, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)
	second, err := engine.Schedule(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, first.Schedule.CourseBlocks, second.Schedule.CourseBlocks)
	assert.Equal(t, first.Schedule.StudentSchedules, second.Schedule.StudentSchedules)
	assert.Equal(t, first.Objective, second.Objective)
}

func studentID(i int) string {
	return fmt.Sprintf("S%03d", i)
}
