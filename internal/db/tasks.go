package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dori/workscope/internal/model"
)

const taskColumns = `id, title, status, priority, deadline, logged_time, project_id,
		       creator_id, parent_id, recurrence_interval, archived, completed_at,
		       created_at, updated_at`

// CreateTask inserts t. A zero ID lets SQLite pick one, which is written back
// into t along with any defaulted timestamps.
func (w *Writer) CreateTask(t *model.Task) error {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = model.StatusToDo
	}
	if t.Priority == 0 {
		t.Priority = 5
	}
	t.Priority = t.Priority.Clamp()
	if t.IsCompleted() && t.CompletedAt == nil {
		done := t.UpdatedAt
		t.CompletedAt = &done
	}

	var id any
	if t.ID != 0 {
		id = t.ID
	}
	var creator any
	if t.CreatorID != 0 {
		creator = t.CreatorID
	}

	res, err := w.ex.Exec(`
		INSERT INTO tasks (id, title, status, priority, deadline, logged_time, project_id,
		                   creator_id, parent_id, recurrence_interval, archived, completed_at,
		                   created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, t.Title, string(t.Status), int(t.Priority), formatTimePtr(t.Deadline), t.LoggedTime, t.ProjectID,
		creator, t.ParentID, t.RecurrenceInterval, boolInt(t.Archived), formatTimePtr(t.CompletedAt),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create task %q: %w", t.Title, err)
	}

	if t.ID == 0 {
		t.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	return nil
}

// AssignTask puts a user on a task. Assigning the same user twice is a no-op.
func (w *Writer) AssignTask(taskID, assigneeID, assignorID int64) error {
	var assignor any
	if assignorID != 0 {
		assignor = assignorID
	}
	_, err := w.ex.Exec(`
		INSERT OR IGNORE INTO task_assignments (task_id, assignee_id, assignor_id, assigned_at)
		VALUES (?, ?, ?, ?)
	`, taskID, assigneeID, assignor, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to assign task %d to user %d: %w", taskID, assigneeID, err)
	}
	return nil
}

// ArchiveTask hides a task from every report
func (w *Writer) ArchiveTask(id int64) error {
	_, err := w.ex.Exec(`UPDATE tasks SET archived = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	return err
}

// Helper functions

func scanTasks(rows *sql.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTaskRow(s scanner) (*model.Task, error) {
	var t model.Task
	var status string
	var priority, archived int
	var creatorID sql.NullInt64
	var deadlineAt, completedAt *string
	var createdAt, updatedAt string

	err := s.Scan(
		&t.ID, &t.Title, &status, &priority, &deadlineAt, &t.LoggedTime, &t.ProjectID,
		&creatorID, &t.ParentID, &t.RecurrenceInterval, &archived, &completedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = model.ParseStatus(status)
	t.Priority = model.Priority(priority).Clamp()
	t.CreatorID = creatorID.Int64
	t.Archived = archived == 1
	t.Deadline = parseTime(deadlineAt)
	t.CompletedAt = parseTime(completedAt)
	if parsed := parseTime(&createdAt); parsed != nil {
		t.CreatedAt = *parsed
	}
	if parsed := parseTime(&updatedAt); parsed != nil {
		t.UpdatedAt = *parsed
	}

	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
