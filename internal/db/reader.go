package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/source"
)

// reader implements source.Source over one transaction
type reader struct {
	tx *sql.Tx
}

// DepartmentTree implements source.Source
func (r *reader) DepartmentTree(ctx context.Context) ([]model.Department, error) {
	rows, err := r.tx.QueryContext(ctx, `SELECT id, name, parent_id FROM departments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var depts []model.Department
	for rows.Next() {
		var d model.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.ParentID); err != nil {
			return nil, err
		}
		depts = append(depts, d)
	}
	return depts, rows.Err()
}

// ScopeAssignments implements source.Source
func (r *reader) ScopeAssignments(ctx context.Context) ([]model.AssignmentRef, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT ta.task_id, ta.assignee_id, u.department_id
		FROM task_assignments ta
		LEFT JOIN users u ON u.id = ta.assignee_id
		ORDER BY ta.task_id, ta.assignee_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.AssignmentRef
	for rows.Next() {
		var ref model.AssignmentRef
		if err := rows.Scan(&ref.TaskID, &ref.AssigneeID, &ref.DepartmentID); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UserDepartment implements source.Source
func (r *reader) UserDepartment(ctx context.Context, userID int64) (int64, bool, error) {
	var dept sql.NullInt64
	err := r.tx.QueryRowContext(ctx, `SELECT department_id FROM users WHERE id = ?`, userID).Scan(&dept)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, source.ErrUserNotFound
	}
	if err != nil {
		return 0, false, err
	}
	return dept.Int64, dept.Valid, nil
}

// ProjectDepartmentLinks implements source.Source
func (r *reader) ProjectDepartmentLinks(ctx context.Context) ([]model.ProjectLink, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT project_id, department_id FROM project_departments
		ORDER BY project_id, department_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []model.ProjectLink
	for rows.Next() {
		var l model.ProjectLink
		if err := rows.Scan(&l.ProjectID, &l.DepartmentID); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// NonArchivedTasks implements source.Source. Assignees are loaded with a
// second query once the task rows are closed; the pool holds a single
// connection so the two cannot overlap.
func (r *reader) NonArchivedTasks(ctx context.Context, projectIDs []int64) ([]model.Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	in, args := inClause(projectIDs)

	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE archived = 0 AND project_id IN (`+in+`)
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	tasks, err := scanTasks(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	index := make(map[int64]int, len(tasks))
	for i := range tasks {
		index[tasks[i].ID] = i
	}

	arows, err := r.tx.QueryContext(ctx, `
		SELECT ta.task_id, ta.assignee_id, COALESCE(ta.assignor_id, 0),
		       COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), u.department_id
		FROM task_assignments ta
		JOIN tasks t ON t.id = ta.task_id
		LEFT JOIN users u ON u.id = ta.assignee_id
		WHERE t.archived = 0 AND t.project_id IN (`+in+`)
		ORDER BY ta.task_id, ta.assigned_at, ta.assignee_id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer arows.Close()

	for arows.Next() {
		var taskID int64
		var a model.Assignee
		if err := arows.Scan(&taskID, &a.UserID, &a.AssignorID, &a.FirstName, &a.LastName, &a.DepartmentID); err != nil {
			return nil, err
		}
		if i, ok := index[taskID]; ok {
			tasks[i].Assignees = append(tasks[i].Assignees, a)
		}
	}
	return tasks, arows.Err()
}

// Projects implements source.Source
func (r *reader) Projects(ctx context.Context, ids []int64) ([]model.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, name, archived, created_at, updated_at
		FROM projects WHERE id IN (`+in+`)
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// inClause returns "?, ?, ?" for ids along with the matching arguments
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
