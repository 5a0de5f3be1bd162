// Package digest builds per-assignee due-date summaries and pushes them
// through a notifier, once or on a fixed interval.
package digest

import (
	"sort"
	"time"

	"github.com/dori/workscope/internal/deadline"
	"github.com/dori/workscope/internal/model"
)

// Entry is one task line in a digest
type Entry struct {
	TaskID    int64     `json:"taskId"`
	Title     string    `json:"title"`
	ProjectID int64     `json:"projectId"`
	Deadline  time.Time `json:"deadline"`
	// DaysLeft is negative for overdue tasks
	DaysLeft int `json:"daysLeft"`
}

// Digest is what one assignee gets
type Digest struct {
	UserID   int64   `json:"userId"`
	UserName string  `json:"userName"`
	Overdue  []Entry `json:"overdue"`
	DueToday []Entry `json:"dueToday"`
	Upcoming []Entry `json:"upcoming"`
}

// Len returns the number of entries across all buckets
func (d *Digest) Len() int {
	return len(d.Overdue) + len(d.DueToday) + len(d.Upcoming)
}

// Build groups open tasks with a deadline inside the upcoming window by
// assignee. Completed tasks, tasks without a deadline and tasks due later
// than the window are left out, as are assignees with nothing to report.
// Digests are ordered by user name then id; entries by deadline then task id.
func Build(tasks []model.Task, now time.Time, loc *time.Location) []Digest {
	byUser := make(map[int64]*Digest)
	var order []int64

	for i := range tasks {
		t := &tasks[i]
		bucket := deadline.ClassifyTask(t, now, loc)
		if bucket != deadline.Overdue && bucket != deadline.DueToday && bucket != deadline.Upcoming {
			continue
		}
		e := Entry{
			TaskID:    t.ID,
			Title:     t.Title,
			ProjectID: t.ProjectID,
			Deadline:  t.Deadline.In(zone(loc)),
			DaysLeft:  deadline.DaysBetween(now, *t.Deadline, loc),
		}
		for _, a := range t.UniqueAssignees() {
			d, ok := byUser[a.UserID]
			if !ok {
				d = &Digest{UserID: a.UserID, UserName: a.Name()}
				byUser[a.UserID] = d
				order = append(order, a.UserID)
			}
			switch bucket {
			case deadline.Overdue:
				d.Overdue = append(d.Overdue, e)
			case deadline.DueToday:
				d.DueToday = append(d.DueToday, e)
			default:
				d.Upcoming = append(d.Upcoming, e)
			}
		}
	}

	out := make([]Digest, 0, len(order))
	for _, id := range order {
		d := byUser[id]
		sortEntries(d.Overdue)
		sortEntries(d.DueToday)
		sortEntries(d.Upcoming)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Deadline.Equal(entries[j].Deadline) {
			return entries[i].Deadline.Before(entries[j].Deadline)
		}
		return entries[i].TaskID < entries[j].TaskID
	})
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
