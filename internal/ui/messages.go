package ui

import (
	"github.com/dori/workscope/internal/report"
)

// View represents the current active report tab
type View int

const (
	ViewLoggedTime View = iota
	ViewTeamSummary
	ViewTaskCompletions
)

// Kind returns the report kind shown by a tab
func (v View) Kind() report.Kind {
	switch v {
	case ViewTeamSummary:
		return report.KindTeamSummary
	case ViewTaskCompletions:
		return report.KindTaskCompletions
	default:
		return report.KindLoggedTime
	}
}

// String returns the display name for a view
func (v View) String() string {
	return v.Kind().Title()
}

// Messages for inter-component communication

// ErrorMsg contains an error to display
type ErrorMsg struct {
	Err error
}

// StatusMsg contains a status message to display
type StatusMsg struct {
	Message string
}
