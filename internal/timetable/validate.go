package timetable

// Validate enforces the fatal input invariants from the data model: no
// duplicate ids, no negative capacities, a non-empty block list, course
// size bounds in order, and at most one bucket per (student, course code).
// It returns the first violation found, wrapped as a KindInputInvariantViolation
// *Error; callers must refuse to schedule on a non-nil return.
func (m InputModel) Validate() error {
	if len(m.Blocks) == 0 {
		return newError(KindInputInvariantViolation, "block list is empty")
	}

	seenCourse := make(map[string]bool, len(m.Courses))
	for _, c := range m.Courses {
		if seenCourse[c.Code] {
			return newError(KindInputInvariantViolation, "duplicate course code %q", c.Code)
		}
		seenCourse[c.Code] = true
		if c.MinSize > c.TargetSize || c.TargetSize > c.MaxSize {
			return newError(KindInputInvariantViolation, "course %q violates min<=target<=max (%d<=%d<=%d)", c.Code, c.MinSize, c.TargetSize, c.MaxSize)
		}
	}

	seenStudent := make(map[string]bool, len(m.Students))
	for _, s := range m.Students {
		if seenStudent[s.ID] {
			return newError(KindInputInvariantViolation, "duplicate student id %q", s.ID)
		}
		seenStudent[s.ID] = true

		bucketOf := make(map[string]string, len(s.Required)+len(s.Requested)+len(s.Recommended))
		for _, code := range s.Required {
			if err := checkSingleBucket(s.ID, code, "required", bucketOf); err != nil {
				return err
			}
		}
		for _, code := range s.Requested {
			if err := checkSingleBucket(s.ID, code, "requested", bucketOf); err != nil {
				return err
			}
		}
		for _, code := range s.Recommended {
			if err := checkSingleBucket(s.ID, code, "recommended", bucketOf); err != nil {
				return err
			}
		}
	}

	seenLecturer := make(map[string]bool, len(m.Lecturers))
	for _, l := range m.Lecturers {
		if seenLecturer[l.ID] {
			return newError(KindInputInvariantViolation, "duplicate lecturer id %q", l.ID)
		}
		seenLecturer[l.ID] = true
	}

	seenRoom := make(map[string]bool, len(m.Rooms))
	for _, r := range m.Rooms {
		if seenRoom[r.Number] {
			return newError(KindInputInvariantViolation, "duplicate room number %q", r.Number)
		}
		seenRoom[r.Number] = true
		if r.Capacity < 1 {
			return newError(KindInputInvariantViolation, "room %q has non-positive capacity %d", r.Number, r.Capacity)
		}
	}

	return nil
}

func checkSingleBucket(studentID, code, bucket string, bucketOf map[string]string) error {
	if prior, ok := bucketOf[code]; ok && prior != bucket {
		return newError(KindInputInvariantViolation, "student %q references course %q in both %q and %q buckets", studentID, code, prior, bucket)
	}
	bucketOf[code] = bucket
	return nil
}
