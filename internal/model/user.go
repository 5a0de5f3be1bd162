package model

import "strings"

// User is a member of exactly one department
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DepartmentID *int64 `json:"department_id,omitempty"`
}

// Assignee is a user attached to a task, with the assignor that put them there
type Assignee struct {
	UserID       int64  `json:"user_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DepartmentID *int64 `json:"department_id,omitempty"`
	AssignorID   int64  `json:"assignor_id"`
}

// Name returns the display name of the assignee
func (a *Assignee) Name() string {
	return fullName(a.FirstName, a.LastName)
}

// AssignmentRef is the minimal projection used for colleague visibility:
// which user, from which department, sits on which task.
type AssignmentRef struct {
	TaskID       int64
	AssigneeID   int64
	DepartmentID *int64
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
