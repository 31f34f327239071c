package export

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
)

// RunSectionsCSV renders one row per (course, block, room) placement.
func RunSectionsCSV(sections []models.RunSection) ([]byte, error) {
	rows := make([]map[string]string, 0, len(sections))
	for _, sec := range sections {
		rows = append(rows, map[string]string{
			"course_code": sec.CourseCode,
			"block":       sec.Block,
			"room_number": sec.RoomNumber,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i]["course_code"] != rows[j]["course_code"] {
			return rows[i]["course_code"] < rows[j]["course_code"]
		}
		return rows[i]["block"] < rows[j]["block"]
	})
	return NewCSVExporter().Render(Dataset{
		Headers: []string{"course_code", "block", "room_number"},
		Rows:    rows,
	})
}

// RunAnalysisPDF renders a per-priority and per-course resolution-rate
// report for a committed run.
func RunAnalysisPDF(runID string, analysis *dto.RunAnalysisResponse) ([]byte, error) {
	rows := make([]map[string]string, 0, len(analysis.ByCourse))
	for _, cs := range analysis.ByCourse {
		rows = append(rows, map[string]string{
			"course_code": cs.Code,
			"total":       fmt.Sprintf("%d", cs.Total),
			"resolved":    fmt.Sprintf("%d", cs.Resolved),
			"unresolved":  fmt.Sprintf("%d", cs.Unresolved),
			"rate":        fmt.Sprintf("%.1f%%", cs.Rate),
		})
	}
	return NewPDFExporter().Render(Dataset{
		Headers: []string{"course_code", "total", "resolved", "unresolved", "rate"},
		Rows:    rows,
	}, fmt.Sprintf("run %s resolution report", runID))
}
