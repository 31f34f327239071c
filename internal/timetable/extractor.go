package timetable

// roundingThreshold is the §4.5 tolerance for treating a solved binary
// variable as 1.
const roundingThreshold = 0.5

// ExtractResult walks the solved variable values and produces a Schedule.
// It returns a KindInternalConsistency error if an x variable is above
// threshold while every y variable for its (course, block) is not — C4
// should make that unreachable, so its presence here indicates a bug in
// the constraint builder or the solver, not in caller input.
func ExtractResult(reg *VariableRegistry, xOffset, yOffset []int, values []float64) (*Schedule, error) {
	schedule := NewSchedule()

	for i, key := range reg.YVars {
		if values[yOffset[i]] <= roundingThreshold {
			continue
		}
		schedule.CourseBlocks[key.Course] = append(schedule.CourseBlocks[key.Course], key.Block)
		if schedule.CourseRooms[key.Course] == nil {
			schedule.CourseRooms[key.Course] = map[Block]string{}
		}
		schedule.CourseRooms[key.Course][key.Block] = key.Room
		if schedule.RoomSchedules[key.Room] == nil {
			schedule.RoomSchedules[key.Room] = map[Block]string{}
		}
		if existing, ok := schedule.RoomSchedules[key.Room][key.Block]; ok && existing != key.Course {
			return nil, newError(KindInternalConsistency, "room %q block %q double-booked: %q and %q", key.Room, key.Block, existing, key.Course)
		}
		schedule.RoomSchedules[key.Room][key.Block] = key.Course
	}

	for i, key := range reg.XVars {
		if values[xOffset[i]] <= roundingThreshold {
			continue
		}
		yIndices := reg.YForCourseBlock(key.Course, key.Block)
		scheduledSomewhere := false
		for _, yi := range yIndices {
			if values[yOffset[yi]] > roundingThreshold {
				scheduledSomewhere = true
				break
			}
		}
		if !scheduledSomewhere {
			return nil, newError(KindInternalConsistency, "x[%s,%s,%s] is set but the course has no scheduled room in that block (C4 violated)", key.Student, key.Course, key.Block)
		}
		if schedule.StudentSchedules[key.Student] == nil {
			schedule.StudentSchedules[key.Student] = map[Block]string{}
		}
		schedule.StudentSchedules[key.Student][key.Block] = key.Course
	}

	return schedule, nil
}
