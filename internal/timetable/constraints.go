package timetable

import (
	"github.com/noah-isme/timetable-engine/pkg/ilp"
)

// capacityFloor is the §4/C5 relaxation: a room's effective capacity for
// scheduling purposes is never less than 5, so small seminars can run in
// otherwise-undersized rooms. This is a semantic constant, not a tuning
// knob — changing it changes the schedule produced on identical input.
const capacityFloor = 5

// sizeLowerSlack and sizeUpperSlack are the §4/C6 relaxation applied to a
// course's min_size/max_size before enforcing enrolment bounds.
const (
	sizeLowerSlack = 3
	sizeUpperSlack = 5
)

// BuildProblem translates the registered variables into the ilp.Problem
// the driver submits: the six constraint families from the constraint
// model plus the weighted-request objective. A constraint that would sum
// over zero variables is skipped entirely rather than emitted as a
// degenerate 0<=bound constraint.
func BuildProblem(model InputModel, reg *VariableRegistry) *ilp.Problem {
	p := &ilp.Problem{}

	priorities := buildPriorityLookup(model)

	xOffset := make([]int, len(reg.XVars))
	for i, key := range reg.XVars {
		weight := priorities[studentCourseKey{Student: key.Student, Course: key.Course}]
		xOffset[i] = p.AddVariable(key.name(), float64(weight))
	}
	yOffset := make([]int, len(reg.YVars))
	for i, key := range reg.YVars {
		yOffset[i] = p.AddVariable(key.name(), 0)
	}

	rooms := make(map[string]Room, len(model.Rooms))
	for _, r := range model.Rooms {
		rooms[r.Number] = r
	}
	courses := make(map[string]Course, len(model.Courses))
	for _, c := range model.Courses {
		courses[c.Code] = c
	}

	// C1: student conflict — at most one course per (student, block).
	seenStudentBlock := map[studentBlockKey]bool{}
	for _, key := range reg.XVars {
		sb := studentBlockKey{Student: key.Student, Block: key.Block}
		if seenStudentBlock[sb] {
			continue
		}
		seenStudentBlock[sb] = true
		indices := reg.XForStudentBlock(key.Student, key.Block)
		if len(indices) == 0 {
			continue
		}
		terms := make([]ilp.Term, len(indices))
		for i, idx := range indices {
			terms[i] = ilp.Term{VarIndex: xOffset[idx], Coeff: 1}
		}
		p.AddConstraint("C1_student_conflict", terms, ilp.LessOrEqual, 1)
	}

	// C2: course singular room — at most one room per (course, block).
	seenCourseBlock := map[courseBlockKey]bool{}
	for _, key := range reg.YVars {
		cb := courseBlockKey{Course: key.Course, Block: key.Block}
		if seenCourseBlock[cb] {
			continue
		}
		seenCourseBlock[cb] = true
		indices := reg.YForCourseBlock(key.Course, key.Block)
		if len(indices) == 0 {
			continue
		}
		terms := make([]ilp.Term, len(indices))
		for i, idx := range indices {
			terms[i] = ilp.Term{VarIndex: yOffset[idx], Coeff: 1}
		}
		p.AddConstraint("C2_course_singular_room", terms, ilp.LessOrEqual, 1)
	}

	// C3: room singular course — at most one course per (room, block).
	seenRoomBlock := map[roomBlockKey]bool{}
	for _, key := range reg.YVars {
		rb := roomBlockKey{Room: key.Room, Block: key.Block}
		if seenRoomBlock[rb] {
			continue
		}
		seenRoomBlock[rb] = true
		indices := reg.YForRoomBlock(key.Room, key.Block)
		if len(indices) == 0 {
			continue
		}
		terms := make([]ilp.Term, len(indices))
		for i, idx := range indices {
			terms[i] = ilp.Term{VarIndex: yOffset[idx], Coeff: 1}
		}
		p.AddConstraint("C3_room_singular_course", terms, ilp.LessOrEqual, 1)
	}

	// C4: attendance linkage — x[s,c,b] <= sum_r y[c,b,r].
	for i, key := range reg.XVars {
		yIndices := reg.YForCourseBlock(key.Course, key.Block)
		terms := make([]ilp.Term, 0, len(yIndices)+1)
		terms = append(terms, ilp.Term{VarIndex: xOffset[i], Coeff: 1})
		for _, yi := range yIndices {
			terms = append(terms, ilp.Term{VarIndex: yOffset[yi], Coeff: -1})
		}
		// Always has at least the x term, never skipped.
		p.AddConstraint("C4_attendance_linkage", terms, ilp.LessOrEqual, 0)
	}

	// C5: capacity — sum_s x[s,c,b] <= max(capacity(r), floor) * y[c,b,r].
	for i, key := range reg.YVars {
		xIndices := reg.XForCourseBlock(key.Course, key.Block)
		if len(xIndices) == 0 {
			continue
		}
		room := rooms[key.Room]
		effectiveCapacity := room.Capacity
		if effectiveCapacity < capacityFloor {
			effectiveCapacity = capacityFloor
		}
		terms := make([]ilp.Term, 0, len(xIndices)+1)
		for _, xi := range xIndices {
			terms = append(terms, ilp.Term{VarIndex: xOffset[xi], Coeff: 1})
		}
		terms = append(terms, ilp.Term{VarIndex: yOffset[i], Coeff: -float64(effectiveCapacity)})
		p.AddConstraint("C5_capacity", terms, ilp.LessOrEqual, 0)
	}

	// C6: size bounds — enrol <= max' * sched always; enrol >= min' *
	// sched only when the (course, block) has at least min' candidate
	// students.
	for cb := range seenCourseBlock {
		course := courses[cb.Course]
		minPrime := course.MinSize - sizeLowerSlack
		if minPrime < 1 {
			minPrime = 1
		}
		maxPrime := course.MaxSize + sizeUpperSlack

		xIndices := reg.XForCourseBlock(cb.Course, cb.Block)
		yIndices := reg.YForCourseBlock(cb.Course, cb.Block)
		if len(yIndices) == 0 {
			continue
		}

		upperTerms := make([]ilp.Term, 0, len(xIndices)+len(yIndices))
		for _, xi := range xIndices {
			upperTerms = append(upperTerms, ilp.Term{VarIndex: xOffset[xi], Coeff: 1})
		}
		for _, yi := range yIndices {
			upperTerms = append(upperTerms, ilp.Term{VarIndex: yOffset[yi], Coeff: -float64(maxPrime)})
		}
		if len(upperTerms) > 0 {
			p.AddConstraint("C6_size_upper", upperTerms, ilp.LessOrEqual, 0)
		}

		if len(xIndices) >= minPrime {
			lowerTerms := make([]ilp.Term, 0, len(xIndices)+len(yIndices))
			for _, xi := range xIndices {
				lowerTerms = append(lowerTerms, ilp.Term{VarIndex: xOffset[xi], Coeff: 1})
			}
			for _, yi := range yIndices {
				lowerTerms = append(lowerTerms, ilp.Term{VarIndex: yOffset[yi], Coeff: -float64(minPrime)})
			}
			p.AddConstraint("C6_size_lower", lowerTerms, ilp.GreaterOrEqual, 0)
		}
	}

	return p
}

type studentCourseKey struct {
	Student string
	Course  string
}

// buildPriorityLookup precomputes each (student, course) pair's objective
// weight from whichever bucket references it, so the constraint builder
// never rescans a student's request lists per variable.
func buildPriorityLookup(model InputModel) map[studentCourseKey]Priority {
	out := make(map[studentCourseKey]Priority)
	for _, s := range model.Students {
		for _, c := range s.Required {
			out[studentCourseKey{Student: s.ID, Course: c}] = PriorityRequired
		}
		for _, c := range s.Requested {
			out[studentCourseKey{Student: s.ID, Course: c}] = PriorityRequested
		}
		for _, c := range s.Recommended {
			out[studentCourseKey{Student: s.ID, Course: c}] = PriorityRecommended
		}
	}
	return out
}
