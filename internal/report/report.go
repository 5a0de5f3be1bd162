// Package report aggregates a working set into the three fixed report
// shapes: logged time, team summary and task completions.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dori/workscope/internal/model"
)

// ErrUnknownKind is returned when a caller asks for a report that does not exist
var ErrUnknownKind = errors.New("unknown report kind")

// Kind discriminates report payloads
type Kind string

const (
	KindLoggedTime      Kind = "loggedTime"
	KindTeamSummary     Kind = "teamSummary"
	KindTaskCompletions Kind = "taskCompletions"
)

// Kinds returns every report kind in display order
func Kinds() []Kind {
	return []Kind{KindLoggedTime, KindTeamSummary, KindTaskCompletions}
}

// Slug returns the kebab-case name used in URLs and CLI arguments
func (k Kind) Slug() string {
	switch k {
	case KindLoggedTime:
		return "logged-time"
	case KindTeamSummary:
		return "team-summary"
	case KindTaskCompletions:
		return "task-completions"
	default:
		return string(k)
	}
}

// Title returns the display name of the report
func (k Kind) Title() string {
	switch k {
	case KindLoggedTime:
		return "Logged Time"
	case KindTeamSummary:
		return "Team Summary"
	case KindTaskCompletions:
		return "Task Completions"
	default:
		return string(k)
	}
}

// ParseKind accepts either the kind or its slug
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Slug()) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Payload is any report result
type Payload interface {
	ReportKind() Kind
}

// Clock fixes the moment and timezone a report is computed for
type Clock struct {
	Now      time.Time
	Location *time.Location
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Compute runs the engine for kind over tasks
func Compute(kind Kind, tasks []model.Task, clock Clock) (Payload, error) {
	switch kind {
	case KindLoggedTime:
		return LoggedTimeReport(tasks, clock), nil
	case KindTeamSummary:
		return TeamSummaryReport(tasks, clock), nil
	case KindTaskCompletions:
		return TaskCompletionReport(tasks), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
}

// StatusCounts tallies tasks per status
type StatusCounts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Blocked    int `json:"blocked"`
	Total      int `json:"total"`
}

// Add counts one task with status s
func (c StatusCounts) Add(s model.Status) StatusCounts {
	switch s {
	case model.StatusInProgress:
		c.InProgress++
	case model.StatusCompleted:
		c.Completed++
	case model.StatusBlocked:
		c.Blocked++
	default:
		c.Todo++
	}
	c.Total++
	return c
}

// Plus sums two tallies
func (c StatusCounts) Plus(o StatusCounts) StatusCounts {
	return StatusCounts{
		Todo:       c.Todo + o.Todo,
		InProgress: c.InProgress + o.InProgress,
		Completed:  c.Completed + o.Completed,
		Blocked:    c.Blocked + o.Blocked,
		Total:      c.Total + o.Total,
	}
}
