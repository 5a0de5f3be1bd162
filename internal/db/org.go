package db

import (
	"fmt"
	"time"

	"github.com/dori/workscope/internal/model"
)

// CreateDepartment inserts a department and returns its id. id may be zero to
// let SQLite choose.
func (w *Writer) CreateDepartment(id int64, name string, parentID *int64) (int64, error) {
	res, err := w.ex.Exec(`INSERT INTO departments (id, name, parent_id) VALUES (?, ?, ?)`,
		nullID(id), name, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create department %q: %w", name, err)
	}
	return insertedID(id, res.LastInsertId)
}

// SetDepartmentParent re-parents a department. Nothing stops a cycle here;
// readers are expected to cope.
func (w *Writer) SetDepartmentParent(id int64, parentID *int64) error {
	_, err := w.ex.Exec(`UPDATE departments SET parent_id = ? WHERE id = ?`, parentID, id)
	return err
}

// CreateUser inserts a user and returns its id
func (w *Writer) CreateUser(id int64, firstName, lastName string, departmentID *int64) (int64, error) {
	res, err := w.ex.Exec(`INSERT INTO users (id, first_name, last_name, department_id) VALUES (?, ?, ?, ?)`,
		nullID(id), firstName, lastName, departmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to create user %q: %w", firstName+" "+lastName, err)
	}
	return insertedID(id, res.LastInsertId)
}

// CreateProject creates a new project linked to the given departments
func (w *Writer) CreateProject(id int64, name string, departmentIDs ...int64) (*model.Project, error) {
	now := time.Now()

	res, err := w.ex.Exec(`INSERT INTO projects (id, name, archived, created_at, updated_at) VALUES (?, ?, 0, ?, ?)`,
		nullID(id), name, formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to create project %q: %w", name, err)
	}
	id, err = insertedID(id, res.LastInsertId)
	if err != nil {
		return nil, err
	}

	for _, dept := range departmentIDs {
		if err := w.LinkProjectDepartment(id, dept); err != nil {
			return nil, err
		}
	}

	return &model.Project{
		ID:        id,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LinkProjectDepartment records that a project serves a department
func (w *Writer) LinkProjectDepartment(projectID, departmentID int64) error {
	_, err := w.ex.Exec(`INSERT OR IGNORE INTO project_departments (project_id, department_id) VALUES (?, ?)`,
		projectID, departmentID)
	if err != nil {
		return fmt.Errorf("failed to link project %d to department %d: %w", projectID, departmentID, err)
	}
	return nil
}

// ArchiveProject archives a project
func (w *Writer) ArchiveProject(id int64) error {
	_, err := w.ex.Exec(`UPDATE projects SET archived = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	return err
}

func scanProjectRow(s scanner) (*model.Project, error) {
	var p model.Project
	var archived int
	var createdAt, updatedAt string
	if err := s.Scan(&p.ID, &p.Name, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Archived = archived == 1
	if parsed := parseTime(&createdAt); parsed != nil {
		p.CreatedAt = *parsed
	}
	if parsed := parseTime(&updatedAt); parsed != nil {
		p.UpdatedAt = *parsed
	}
	return &p, nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func insertedID(id int64, last func() (int64, error)) (int64, error) {
	if id != 0 {
		return id, nil
	}
	return last()
}
