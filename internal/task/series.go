package task

import (
	"slices"
	"strings"
)

// Series holds parallel per-task sequences plus project-wide totals. Index i
// of Names, PlannedDays and LoggedDays all describe the same task.
type Series struct {
	Names            []string  `json:"names"`
	PlannedDays      []float64 `json:"planned_days"`
	LoggedDays       []float64 `json:"logged_days"`
	TotalPlannedDays float64   `json:"total_planned_days"`
	TotalLoggedDays  float64   `json:"total_logged_days"`
}

// Transform keeps the records that carry an estimate, orders them by name and
// converts their minutes into 8-hour days. Records without an estimate are
// dropped entirely, even when they have logged time; a missing logged time
// counts as zero.
func Transform(records []Record) Series {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if r.EstimatedMinutes == nil {
			continue
		}
		kept = append(kept, r)
	}

	slices.SortStableFunc(kept, func(a, b Record) int {
		return strings.Compare(a.Name, b.Name)
	})

	s := Series{
		Names:       make([]string, 0, len(kept)),
		PlannedDays: make([]float64, 0, len(kept)),
		LoggedDays:  make([]float64, 0, len(kept)),
	}

	for _, r := range kept {
		planned := *r.EstimatedMinutes / MinutesPerDay
		logged := 0.0
		if r.LoggedMinutes != nil {
			logged = *r.LoggedMinutes / MinutesPerDay
		}

		s.Names = append(s.Names, DisplayName(r))
		s.PlannedDays = append(s.PlannedDays, planned)
		s.LoggedDays = append(s.LoggedDays, logged)
		s.TotalPlannedDays += planned
		s.TotalLoggedDays += logged
	}

	return s
}

func DisplayName(r Record) string {
	if r.Finished() {
		return r.Name + " " + FinishedGlyph
	}
	return r.Name
}

func (s Series) Len() int {
	return len(s.Names)
}
