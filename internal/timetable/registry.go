package timetable

import "fmt"

// XKey identifies a student-attendance variable x[s,c,b].
type XKey struct {
	Student string
	Course  string
	Block   Block
}

// YKey identifies a course-scheduling variable y[c,b,r].
type YKey struct {
	Course string
	Block  Block
	Room   string
}

func (k XKey) name() string { return fmt.Sprintf("x_%s_%s_%s", k.Student, k.Course, k.Block) }
func (k YKey) name() string { return fmt.Sprintf("y_%s_%s_%s", k.Course, k.Block, k.Room) }

// VariableRegistry is the deterministic enumeration of every decision
// variable the constraint builder may reference. It is built once and
// never mutated after Build returns; membership checks are O(1) map
// lookups, which matters because the constraint builder probes it once
// per (student, block), (course, block) and (room, block) combination.
type VariableRegistry struct {
	// XVars/YVars list variables in enumeration order: the order the ILP
	// driver presents to the solver and the order that determines tie
	// breaks anywhere enumeration order matters.
	XVars []XKey
	YVars []YKey

	xIndex map[XKey]int
	yIndex map[YKey]int

	// xByStudentBlock / xByCourseBlock / yByCourseBlock / yByRoomBlock
	// index variables for the constraint families that sum over a
	// dimension other than enumeration order.
	xByStudentBlock map[studentBlockKey][]int
	xByCourseBlock  map[courseBlockKey][]int
	yByCourseBlock  map[courseBlockKey][]int
	yByRoomBlock    map[roomBlockKey][]int
}

type studentBlockKey struct {
	Student string
	Block   Block
}

type courseBlockKey struct {
	Course string
	Block  Block
}

type roomBlockKey struct {
	Room  string
	Block Block
}

// BuildVariableRegistry enumerates x and y variables restricted to
// demand.RequestedSet, in (student, course, block) and (course, block,
// room) input order respectively, deduplicating by key so repeated
// registration — a bug if it occurs — can never produce a duplicate
// variable.
func BuildVariableRegistry(model InputModel, demand *DemandIndex) *VariableRegistry {
	reg := &VariableRegistry{
		xIndex:          map[XKey]int{},
		yIndex:          map[YKey]int{},
		xByStudentBlock: map[studentBlockKey][]int{},
		xByCourseBlock:  map[courseBlockKey][]int{},
		yByCourseBlock:  map[courseBlockKey][]int{},
		yByRoomBlock:    map[roomBlockKey][]int{},
	}

	catalog := make(map[string]Course, len(model.Courses))
	for _, c := range model.Courses {
		catalog[c.Code] = c
	}

	for _, s := range model.Students {
		registered := map[string]bool{}
		for _, req := range s.Requests() {
			if registered[req.Code] || !demand.RequestedSet[req.Code] {
				continue
			}
			registered[req.Code] = true
			course := catalog[req.Code]
			for _, b := range course.EligibleBlocks(model.Blocks) {
				key := XKey{Student: s.ID, Course: req.Code, Block: b}
				if _, exists := reg.xIndex[key]; exists {
					continue
				}
				idx := len(reg.XVars)
				reg.XVars = append(reg.XVars, key)
				reg.xIndex[key] = idx

				sbKey := studentBlockKey{Student: s.ID, Block: b}
				reg.xByStudentBlock[sbKey] = append(reg.xByStudentBlock[sbKey], idx)
				cbKey := courseBlockKey{Course: req.Code, Block: b}
				reg.xByCourseBlock[cbKey] = append(reg.xByCourseBlock[cbKey], idx)
			}
		}
	}

	for _, c := range model.Courses {
		if !demand.RequestedSet[c.Code] {
			continue
		}
		for _, b := range c.EligibleBlocks(model.Blocks) {
			for _, r := range model.Rooms {
				key := YKey{Course: c.Code, Block: b, Room: r.Number}
				if _, exists := reg.yIndex[key]; exists {
					continue
				}
				idx := len(reg.YVars)
				reg.YVars = append(reg.YVars, key)
				reg.yIndex[key] = idx

				cbKey := courseBlockKey{Course: c.Code, Block: b}
				reg.yByCourseBlock[cbKey] = append(reg.yByCourseBlock[cbKey], idx)
				rbKey := roomBlockKey{Room: r.Number, Block: b}
				reg.yByRoomBlock[rbKey] = append(reg.yByRoomBlock[rbKey], idx)
			}
		}
	}

	return reg
}

// XIndexOf returns the enumeration index of x[s,c,b] and whether it exists.
func (r *VariableRegistry) XIndexOf(student, course string, block Block) (int, bool) {
	idx, ok := r.xIndex[XKey{Student: student, Course: course, Block: block}]
	return idx, ok
}

// YIndexOf returns the enumeration index of y[c,b,room] and whether it exists.
func (r *VariableRegistry) YIndexOf(course string, block Block, room string) (int, bool) {
	idx, ok := r.yIndex[YKey{Course: course, Block: block, Room: room}]
	return idx, ok
}

// XForStudentBlock returns the indices of every x variable for (student, block).
func (r *VariableRegistry) XForStudentBlock(student string, block Block) []int {
	return r.xByStudentBlock[studentBlockKey{Student: student, Block: block}]
}

// XForCourseBlock returns the indices of every x variable for (course, block).
func (r *VariableRegistry) XForCourseBlock(course string, block Block) []int {
	return r.xByCourseBlock[courseBlockKey{Course: course, Block: block}]
}

// YForCourseBlock returns the indices of every y variable for (course, block).
func (r *VariableRegistry) YForCourseBlock(course string, block Block) []int {
	return r.yByCourseBlock[courseBlockKey{Course: course, Block: block}]
}

// YForRoomBlock returns the indices of every y variable for (room, block).
func (r *VariableRegistry) YForRoomBlock(room string, block Block) []int {
	return r.yByRoomBlock[roomBlockKey{Room: room, Block: block}]
}

// TotalVariables is len(XVars) + len(YVars), the size of the ILP model.
func (r *VariableRegistry) TotalVariables() int {
	return len(r.XVars) + len(r.YVars)
}
