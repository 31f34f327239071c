package timetable

import "sort"

// courseRank pairs a course code with its demand and catalog position so
// F1's course ordering is stable across runs: ties in demand break on
// input order, never on map iteration order.
type courseRank struct {
	code       string
	total      int
	inputIndex int
}

type blockLoad struct {
	block      Block
	load       int
	inputIndex int
}

type roomLoad struct {
	room       Room
	inputIndex int
}

// runFallback is the greedy heuristic invoked when the ILP is unusable.
// It proceeds through phases F1 (course-to-block/room packing), F2
// (student-to-course first-fit) and F3 (lecturer derivation, shared with
// the ILP path).
func runFallback(model InputModel, demand *DemandIndex) *Schedule {
	schedule := NewSchedule()

	catalogIndex := make(map[string]int, len(model.Courses))
	catalogByCode := make(map[string]Course, len(model.Courses))
	for i, c := range model.Courses {
		catalogIndex[c.Code] = i
		catalogByCode[c.Code] = c
	}

	ranks := make([]courseRank, 0, len(demand.RequestedSet))
	for code := range demand.RequestedSet {
		_, ok := catalogByCode[code]
		if !ok {
			continue
		}
		ranks = append(ranks, courseRank{
			code:       code,
			total:      demand.Demand[code].Total,
			inputIndex: catalogIndex[code],
		})
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].total != ranks[j].total {
			return ranks[i].total > ranks[j].total
		}
		return ranks[i].inputIndex < ranks[j].inputIndex
	})

	blockIndex := make(map[Block]int, len(model.Blocks))
	for i, b := range model.Blocks {
		blockIndex[b] = i
	}

	sortedRooms := sortRoomsByCapacity(model.Rooms)

	// blockLoadCount tracks how many courses have already been placed in
	// each block, across all courses processed so far.
	blockLoadCount := make(map[Block]int, len(model.Blocks))
	// roomUsedInBlock tracks which (room, block) pairs are taken.
	roomUsedInBlock := make(map[roomBlockKey]bool)

	for _, rank := range ranks {
		course := catalogByCode[rank.code]
		eligible := course.EligibleBlocks(model.Blocks)
		if len(eligible) == 0 {
			continue
		}

		block, room, ok := placeOneSection(course, eligible, sortedRooms, blockIndex, blockLoadCount, roomUsedInBlock, schedule)
		if !ok {
			continue
		}
		schedule.CourseBlocks[rank.code] = append(schedule.CourseBlocks[rank.code], block)
		if schedule.CourseRooms[rank.code] == nil {
			schedule.CourseRooms[rank.code] = map[Block]string{}
		}
		schedule.CourseRooms[rank.code][block] = room
		if schedule.RoomSchedules[room] == nil {
			schedule.RoomSchedules[room] = map[Block]string{}
		}
		schedule.RoomSchedules[room][block] = rank.code
		blockLoadCount[block]++
		roomUsedInBlock[roomBlockKey{Room: room, Block: block}] = true
	}

	runStudentAssignment(model, schedule)
	deriveLecturerSchedules(model, schedule)

	return schedule
}

// sortRoomsByCapacity returns rooms ordered by ascending capacity, ties
// broken by input order, so F1's room scan always tries the smallest
// adequate room first regardless of catalog order.
func sortRoomsByCapacity(rooms []Room) []Room {
	loads := make([]roomLoad, len(rooms))
	for i, r := range rooms {
		loads[i] = roomLoad{room: r, inputIndex: i}
	}
	sort.SliceStable(loads, func(i, j int) bool {
		if loads[i].room.Capacity != loads[j].room.Capacity {
			return loads[i].room.Capacity < loads[j].room.Capacity
		}
		return loads[i].inputIndex < loads[j].inputIndex
	})
	sorted := make([]Room, len(loads))
	for i, l := range loads {
		sorted[i] = l.room
	}
	return sorted
}

// placeOneSection finds the (block, room) pair for one section of course,
// scanning blocks by ascending (load, input-order index) and, for the
// first block with any free room of adequate capacity, scanning rooms by
// ascending (capacity, input-order index) for the first unused match. It
// does not place the course twice in the same block.
func placeOneSection(
	course Course,
	eligible []Block,
	rooms []Room,
	blockIndex map[Block]int,
	blockLoadCount map[Block]int,
	roomUsedInBlock map[roomBlockKey]bool,
	schedule *Schedule,
) (Block, string, bool) {
	alreadyPlaced := make(map[Block]bool, len(schedule.CourseBlocks[course.Code]))
	for _, b := range schedule.CourseBlocks[course.Code] {
		alreadyPlaced[b] = true
	}

	candidates := make([]blockLoad, 0, len(eligible))
	for _, b := range eligible {
		if alreadyPlaced[b] {
			continue
		}
		candidates = append(candidates, blockLoad{block: b, load: blockLoadCount[b], inputIndex: blockIndex[b]})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].load != candidates[j].load {
			return candidates[i].load < candidates[j].load
		}
		return candidates[i].inputIndex < candidates[j].inputIndex
	})

	for _, cand := range candidates {
		for _, r := range rooms {
			if roomUsedInBlock[roomBlockKey{Room: r.Number, Block: cand.block}] {
				continue
			}
			if r.Capacity < course.MinSize {
				continue
			}
			return cand.block, r.Number, true
		}
	}
	return "", "", false
}

// runStudentAssignment is phase F2: for each student in priority order,
// for each requested course that F1 placed, assign the student to the
// first placed block not already occupied in their own schedule.
func runStudentAssignment(model InputModel, schedule *Schedule) {
	for _, s := range model.Students {
		if schedule.StudentSchedules[s.ID] == nil {
			schedule.StudentSchedules[s.ID] = map[Block]string{}
		}
		occupied := schedule.StudentSchedules[s.ID]

		for _, bucket := range [][]string{s.Required, s.Requested, s.Recommended} {
			for _, code := range bucket {
				blocks, placed := schedule.CourseBlocks[code]
				if !placed {
					continue
				}
				for _, b := range blocks {
					if _, taken := occupied[b]; taken {
						continue
					}
					occupied[b] = code
					break
				}
			}
		}
	}
}
