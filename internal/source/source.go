// Package source defines the read-only data access the reporting core runs
// against. Persistence lives behind it; the core never writes.
package source

import (
	"context"
	"errors"

	"github.com/dori/workscope/internal/model"
)

// ErrUserNotFound is returned by UserDepartment implementations that want to
// distinguish a missing user from a user without a department. The core
// treats both as an empty scope.
var ErrUserNotFound = errors.New("user not found")

// Source is a consistent read view of the organization
type Source interface {
	// DepartmentTree returns every department with its parent pointer
	DepartmentTree(ctx context.Context) ([]model.Department, error)

	// ScopeAssignments returns the (task, assignee, assignee department)
	// projection used for colleague visibility
	ScopeAssignments(ctx context.Context) ([]model.AssignmentRef, error)

	// UserDepartment returns the department of a user; ok is false when the
	// user has none
	UserDepartment(ctx context.Context, userID int64) (deptID int64, ok bool, err error)

	// ProjectDepartmentLinks returns the project <-> department pairs
	ProjectDepartmentLinks(ctx context.Context) ([]model.ProjectLink, error)

	// NonArchivedTasks returns non-archived tasks of the given projects with
	// their assignees attached. An empty filter returns no tasks.
	NonArchivedTasks(ctx context.Context, projectIDs []int64) ([]model.Task, error)

	// Projects returns the named projects among ids
	Projects(ctx context.Context, ids []int64) ([]model.Project, error)
}

// Store hands out a Source for the duration of fn and releases whatever
// backs it (transaction, connection) when fn returns, whatever the outcome.
type Store interface {
	View(ctx context.Context, fn func(Source) error) error
}
