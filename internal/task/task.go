// Package task defines the production-tracking records read from ShotGrid and
// shapes them into the plot-ready series shown on the dashboard.
package task

const (
	// StatusFinished is the sg_status_list code of a completed task.
	StatusFinished = "fin"

	// FinishedGlyph is appended to the display name of a finished task.
	FinishedGlyph = "⚫"

	MinutesPerHour = 60
	HoursPerDay    = 8
	MinutesPerDay  = MinutesPerHour * HoursPerDay
)

type (
	// Record is a task as returned by the data service. Nil estimates and
	// logged times mean the field was empty upstream.
	Record struct {
		ID               int      `json:"id"`
		Name             string   `json:"name"`
		EstimatedMinutes *float64 `json:"estimated_minutes"`
		LoggedMinutes    *float64 `json:"logged_minutes"`
		Status           string   `json:"status"`
	}

	// Entity is an episode, asset or shot reference.
	Entity struct {
		ID   int    `json:"id"`
		Code string `json:"code"`
	}
)

func (r Record) Finished() bool {
	return r.Status == StatusFinished
}

// Minutes returns a pointer to m, for building records with a known value.
func Minutes(m float64) *float64 {
	return &m
}
