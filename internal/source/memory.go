package source

import (
	"context"
	"sort"

	"github.com/dori/workscope/internal/model"
)

// Assignment is a raw task assignment row held by Memory
type Assignment struct {
	TaskID     int64
	AssigneeID int64
	AssignorID int64
}

// Memory is an in-process Store. It backs tests and small fixtures; it is
// safe for concurrent readers as long as nobody mutates the slices.
type Memory struct {
	Departments []model.Department
	Users       []model.User
	ProjectList []model.Project
	Links       []model.ProjectLink
	Tasks       []model.Task
	Assignments []Assignment

	// Err, when set, is returned from every read
	Err error
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

// View implements Store
func (m *Memory) View(ctx context.Context, fn func(Source) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(m)
}

// AddDepartment appends a department and returns its id
func (m *Memory) AddDepartment(id int64, name string, parent *int64) int64 {
	m.Departments = append(m.Departments, model.Department{ID: id, Name: name, ParentID: parent})
	return id
}

// AddUser appends a user in the given department
func (m *Memory) AddUser(id int64, first, last string, dept int64) int64 {
	d := dept
	m.Users = append(m.Users, model.User{ID: id, FirstName: first, LastName: last, DepartmentID: &d})
	return id
}

// AddProject appends a project linked to the given departments
func (m *Memory) AddProject(id int64, name string, depts ...int64) int64 {
	m.ProjectList = append(m.ProjectList, model.Project{ID: id, Name: name})
	for _, d := range depts {
		m.Links = append(m.Links, model.ProjectLink{ProjectID: id, DepartmentID: d})
	}
	return id
}

// AddTask appends a task and assigns it to the given users
func (m *Memory) AddTask(t model.Task, assignees ...int64) {
	m.Tasks = append(m.Tasks, t)
	for _, u := range assignees {
		m.Assignments = append(m.Assignments, Assignment{TaskID: t.ID, AssigneeID: u, AssignorID: t.CreatorID})
	}
}

// DepartmentTree implements Source
func (m *Memory) DepartmentTree(ctx context.Context) ([]model.Department, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.Department(nil), m.Departments...), nil
}

// ScopeAssignments implements Source
func (m *Memory) ScopeAssignments(ctx context.Context) ([]model.AssignmentRef, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	users := m.userIndex()
	refs := make([]model.AssignmentRef, 0, len(m.Assignments))
	for _, a := range m.Assignments {
		ref := model.AssignmentRef{TaskID: a.TaskID, AssigneeID: a.AssigneeID}
		if u, ok := users[a.AssigneeID]; ok {
			ref.DepartmentID = u.DepartmentID
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// UserDepartment implements Source
func (m *Memory) UserDepartment(ctx context.Context, userID int64) (int64, bool, error) {
	if m.Err != nil {
		return 0, false, m.Err
	}
	u, ok := m.userIndex()[userID]
	if !ok {
		return 0, false, ErrUserNotFound
	}
	if u.DepartmentID == nil {
		return 0, false, nil
	}
	return *u.DepartmentID, true, nil
}

// ProjectDepartmentLinks implements Source
func (m *Memory) ProjectDepartmentLinks(ctx context.Context) ([]model.ProjectLink, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]model.ProjectLink(nil), m.Links...), nil
}

// NonArchivedTasks implements Source
func (m *Memory) NonArchivedTasks(ctx context.Context, projectIDs []int64) ([]model.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(projectIDs) == 0 {
		return nil, nil
	}
	want := make(map[int64]bool, len(projectIDs))
	for _, id := range projectIDs {
		want[id] = true
	}

	users := m.userIndex()
	var tasks []model.Task
	for _, t := range m.Tasks {
		if t.Archived || !want[t.ProjectID] {
			continue
		}
		t.Assignees = nil
		for _, a := range m.Assignments {
			if a.TaskID != t.ID {
				continue
			}
			as := model.Assignee{UserID: a.AssigneeID, AssignorID: a.AssignorID}
			if u, ok := users[a.AssigneeID]; ok {
				as.FirstName = u.FirstName
				as.LastName = u.LastName
				as.DepartmentID = u.DepartmentID
			}
			t.Assignees = append(t.Assignees, as)
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// Projects implements Source
func (m *Memory) Projects(ctx context.Context, ids []int64) ([]model.Project, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Project
	for _, p := range m.ProjectList {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) userIndex() map[int64]model.User {
	idx := make(map[int64]model.User, len(m.Users))
	for _, u := range m.Users {
		idx[u.ID] = u
	}
	return idx
}
