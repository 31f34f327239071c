package timetable

import "sort"

// CourseDemand tallies how many requests of each priority target a course.
type CourseDemand struct {
	Required    int
	Requested   int
	Recommended int
	Total       int
}

// DemandIndex is built once per scheduling call by walking every student's
// requests. RequestedSet is the set of course codes referenced by at least
// one student; only these participate in variable enumeration, which
// shrinks the model by an order of magnitude on inputs where most of the
// catalog is never requested.
type DemandIndex struct {
	Demand      map[string]*CourseDemand
	RequestedSet map[string]bool

	// UnknownCodes are codes referenced by a request but absent from the
	// course catalog, in first-seen order. They are warnings, not fatal
	// errors, and are excluded from RequestedSet.
	UnknownCodes []string

	// PotentialConflicts are requested-set codes whose total demand
	// exceeds max_size * num_sections. Advisory only; does not block
	// scheduling.
	PotentialConflicts []string
}

// BuildDemandIndex walks every student's three buckets in input order,
// producing per-course tallies and the requested set. Codes absent from
// the catalog are recorded as unknown and excluded from the requested set.
func BuildDemandIndex(model InputModel) *DemandIndex {
	catalog := make(map[string]Course, len(model.Courses))
	for _, c := range model.Courses {
		catalog[c.Code] = c
	}

	idx := &DemandIndex{
		Demand:       map[string]*CourseDemand{},
		RequestedSet: map[string]bool{},
	}
	seenUnknown := map[string]bool{}

	for _, s := range model.Students {
		for _, req := range s.Requests() {
			if _, known := catalog[req.Code]; !known {
				if !seenUnknown[req.Code] {
					seenUnknown[req.Code] = true
					idx.UnknownCodes = append(idx.UnknownCodes, req.Code)
				}
				continue
			}
			idx.RequestedSet[req.Code] = true
			d, ok := idx.Demand[req.Code]
			if !ok {
				d = &CourseDemand{}
				idx.Demand[req.Code] = d
			}
			switch req.Priority {
			case PriorityRequired:
				d.Required++
			case PriorityRequested:
				d.Requested++
			case PriorityRecommended:
				d.Recommended++
			}
			d.Total++
		}
	}

	for code := range idx.RequestedSet {
		c, ok := catalog[code]
		if !ok {
			continue
		}
		capacity := c.MaxSize * maxInt(c.Sections, 1)
		if idx.Demand[code].Total > capacity {
			idx.PotentialConflicts = append(idx.PotentialConflicts, code)
		}
	}
	sort.Strings(idx.PotentialConflicts)

	return idx
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SortedRequestedCodes returns RequestedSet's members sorted
// lexicographically, for any caller that needs a deterministic order
// without relying on the original catalog ordering.
func (d *DemandIndex) SortedRequestedCodes() []string {
	out := make([]string, 0, len(d.RequestedSet))
	for code := range d.RequestedSet {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
