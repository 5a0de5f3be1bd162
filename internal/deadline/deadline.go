// Package deadline buckets tasks by how urgent their deadline is relative to
// a given moment. Everything here is pure: callers pass "now" and the report
// timezone explicitly.
package deadline

import (
	"fmt"
	"strings"
	"time"

	"github.com/dori/workscope/internal/model"
)

// Bucket is the urgency class of a task
type Bucket string

const (
	Overdue    Bucket = "overdue"
	DueToday   Bucket = "due_today"
	Upcoming   Bucket = "upcoming"
	Completed  Bucket = "completed"
	NoDeadline Bucket = "no_deadline"
	// Later covers deadlines past the upcoming window; digests drop them.
	Later Bucket = "later"
)

// UpcomingWindowDays is the inclusive horizon of the upcoming bucket
const UpcomingWindowDays = 14

// Classify returns the bucket for a task with the given status and deadline.
// Both deadline and now are reduced to their calendar day in loc before
// comparing; a nil loc means UTC.
func Classify(status model.Status, deadline *time.Time, now time.Time, loc *time.Location) Bucket {
	if status == model.StatusCompleted {
		return Completed
	}
	if deadline == nil || deadline.IsZero() {
		return NoDeadline
	}

	days := DaysBetween(now, *deadline, loc)
	switch {
	case days < 0:
		return Overdue
	case days == 0:
		return DueToday
	case days <= UpcomingWindowDays:
		return Upcoming
	default:
		return Later
	}
}

// ClassifyTask is Classify applied to a task record
func ClassifyTask(t *model.Task, now time.Time, loc *time.Location) Bucket {
	return Classify(t.Status, t.Deadline, now, loc)
}

// DaysBetween returns the number of calendar days from the day of "from" to
// the day of "to", both taken in loc. Daylight saving shifts do not matter
// because the dates are compared as plain calendar days.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	a := civilDay(from, loc)
	b := civilDay(to, loc)
	return int(b.Sub(a).Hours() / 24)
}

// Midnight returns the start of t's calendar day in loc
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func civilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FixedZone returns the report timezone for a UTC offset in minutes
func FixedZone(offsetMinutes int) *time.Location {
	if offsetMinutes == 0 {
		return time.UTC
	}
	sign := "+"
	off := offsetMinutes
	if off < 0 {
		sign = "-"
		off = -off
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, off/60, off%60), offsetMinutes*60)
}

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads a deadline or date string. Unparsable or empty input yields
// nil, which callers treat as "no deadline". Values without an offset are
// read in loc.
func Parse(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}
