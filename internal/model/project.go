package model

import (
	"time"
)

// Project groups tasks and may serve several departments
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectLink ties a project to one of the departments it serves
type ProjectLink struct {
	ProjectID    int64 `json:"project_id"`
	DepartmentID int64 `json:"department_id"`
}
