package timetable

import "sort"

// PriorityStats summarises resolution for one priority bucket.
type PriorityStats struct {
	Total      int
	Resolved   int
	Percentage float64
}

// CourseStats summarises resolution for one course code.
type CourseStats struct {
	Code       string
	Total      int
	Resolved   int
	Unresolved int
	Rate       float64
}

// Analysis is the §4.8 resolution report computed from a Schedule and the
// InputModel it was produced from.
type Analysis struct {
	TotalRequests      int
	ResolvedRequests   int
	UnresolvedRequests int
	ByPriority         map[string]PriorityStats
	ByCourse           map[string]CourseStats
	// CoursesByRateDescending lists course codes sorted by Rate
	// descending, ties broken by code, for deterministic reporting.
	CoursesByRateDescending []string
}

// Analyze walks every student request in input order and classifies it as
// resolved iff the student's schedule places them in the requested course
// in some block. A request naming a code absent from the catalog is
// excluded from every denominator, matching the demand index's treatment
// of unknown codes.
func Analyze(model InputModel, schedule *Schedule, unknownCodes []string) *Analysis {
	unknown := make(map[string]bool, len(unknownCodes))
	for _, c := range unknownCodes {
		unknown[c] = true
	}

	a := &Analysis{
		ByPriority: map[string]PriorityStats{
			"required":    {},
			"requested":   {},
			"recommended": {},
		},
		ByCourse: map[string]CourseStats{},
	}

	courseTotals := map[string]int{}
	courseResolved := map[string]int{}

	for _, s := range model.Students {
		for _, req := range s.Requests() {
			if unknown[req.Code] {
				continue
			}
			a.TotalRequests++
			courseTotals[req.Code]++

			resolved := false
			if studentSchedule, ok := schedule.StudentSchedules[s.ID]; ok {
				for _, code := range studentSchedule {
					if code == req.Code {
						resolved = true
						break
					}
				}
			}

			priorityKey := priorityName(req.Priority)
			stats := a.ByPriority[priorityKey]
			stats.Total++
			if resolved {
				stats.Resolved++
				a.ResolvedRequests++
				courseResolved[req.Code]++
			} else {
				a.UnresolvedRequests++
			}
			a.ByPriority[priorityKey] = stats
		}
	}

	for key, stats := range a.ByPriority {
		if stats.Total > 0 {
			stats.Percentage = float64(stats.Resolved) / float64(stats.Total) * 100
		}
		a.ByPriority[key] = stats
	}

	for code, total := range courseTotals {
		resolved := courseResolved[code]
		rate := 0.0
		if total > 0 {
			rate = float64(resolved) / float64(total) * 100
		}
		a.ByCourse[code] = CourseStats{
			Code:       code,
			Total:      total,
			Resolved:   resolved,
			Unresolved: total - resolved,
			Rate:       rate,
		}
	}

	codes := make([]string, 0, len(a.ByCourse))
	for code := range a.ByCourse {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		ri, rj := a.ByCourse[codes[i]].Rate, a.ByCourse[codes[j]].Rate
		if ri != rj {
			return ri > rj
		}
		return codes[i] < codes[j]
	})
	a.CoursesByRateDescending = codes

	return a
}

func priorityName(p Priority) string {
	switch p {
	case PriorityRequired:
		return "required"
	case PriorityRequested:
		return "requested"
	case PriorityRecommended:
		return "recommended"
	default:
		return "unknown"
	}
}
