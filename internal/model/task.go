package model

import (
	"strings"
	"time"
)

// Status represents the current state of a task
type Status string

const (
	StatusToDo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// ParseStatus maps a stored status onto one of the four known states.
// Anything unrecognised is reported as to-do so status totals always add up.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in_progress", "in progress", "inprogress":
		return StatusInProgress
	case "completed", "done":
		return StatusCompleted
	case "blocked":
		return StatusBlocked
	default:
		return StatusToDo
	}
}

// Priority is the 1-10 urgency bucket of a task, orthogonal to status
type Priority int

const (
	PriorityMin Priority = 1
	PriorityMax Priority = 10
)

// Clamp returns the priority forced into the valid range
func (p Priority) Clamp() Priority {
	if p < PriorityMin {
		return PriorityMin
	}
	if p > PriorityMax {
		return PriorityMax
	}
	return p
}

// Task represents a unit of work inside a project
type Task struct {
	ID                 int64      `json:"id"`
	Title              string     `json:"title"`
	Status             Status     `json:"status"`
	Priority           Priority   `json:"priority"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	LoggedTime         int64      `json:"logged_time"` // Seconds
	ProjectID          int64      `json:"project_id"`
	CreatorID          int64      `json:"creator_id"`
	ParentID           *int64     `json:"parent_id,omitempty"` // For subtasks
	RecurrenceInterval *int       `json:"recurrence_interval,omitempty"` // Days
	Archived           bool       `json:"archived"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Loaded relationships (not stored in tasks table)
	Assignees []Assignee `json:"assignees,omitempty"`
}

// IsCompleted returns true if the task is done
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// CompletionTime returns when the task was finished. Tasks completed
// before completed_at was tracked fall back to their last update.
func (t *Task) CompletionTime() (time.Time, bool) {
	if !t.IsCompleted() {
		return time.Time{}, false
	}
	if t.CompletedAt != nil {
		return *t.CompletedAt, true
	}
	return t.UpdatedAt, true
}

// CompletedLate returns true if the task was finished after its deadline.
// A task without a deadline can never be late.
func (t *Task) CompletedLate() bool {
	done, ok := t.CompletionTime()
	if !ok || t.Deadline == nil {
		return false
	}
	return done.After(*t.Deadline)
}

// Delay returns how far past the deadline the task was completed
func (t *Task) Delay() time.Duration {
	if !t.CompletedLate() {
		return 0
	}
	done, _ := t.CompletionTime()
	return done.Sub(*t.Deadline)
}

// UniqueAssignees returns the assignee list with duplicate user ids removed,
// preserving the first occurrence.
func (t *Task) UniqueAssignees() []Assignee {
	seen := make(map[int64]bool, len(t.Assignees))
	out := make([]Assignee, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		if seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		out = append(out, a)
	}
	return out
}
