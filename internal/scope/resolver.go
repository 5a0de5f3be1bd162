// Package scope decides which departments and projects a user may see.
//
// A user sees their own department and everything below it. On top of that,
// when two people share a task and one of them sits inside the requester's
// hierarchy, the other person's department becomes visible too. Admins see
// the whole organization.
package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/source"
)

// ColleagueVisibility selects how shared tasks widen a scope
type ColleagueVisibility string

const (
	// SharedTask adds the departments of co-assignees on tasks that have an
	// assignee inside the requester's hierarchy
	SharedTask ColleagueVisibility = "shared-task"
	// NoColleagues restricts the scope to the requester's own hierarchy
	NoColleagues ColleagueVisibility = "none"
)

// Policy configures the visibility rule
type Policy struct {
	Colleagues ColleagueVisibility
	// ExpandColleagueSubtrees also adds the descendants of departments
	// reached through shared tasks
	ExpandColleagueSubtrees bool
}

// DefaultPolicy returns the shared-task rule without subtree expansion
func DefaultPolicy() Policy {
	return Policy{Colleagues: SharedTask}
}

// Viewer is an authenticated caller. Admin has already been checked by the
// transport boundary.
type Viewer struct {
	UserID int64
	Admin  bool
}

// Scope is the resolved visibility of one viewer
type Scope struct {
	Viewer      Viewer
	Departments IDSet
	Projects    IDSet

	names map[int64]string // department id -> name
	links []model.ProjectLink
}

// Empty reports whether nothing is visible
func (s *Scope) Empty() bool {
	return len(s.Departments) == 0
}

// ProjectsOfDepartments returns the visible projects linked to any of the
// given departments. Departments outside the scope link to nothing.
func (s *Scope) ProjectsOfDepartments(deptIDs IDSet) IDSet {
	out := make(IDSet)
	for _, l := range s.links {
		if deptIDs.Has(l.DepartmentID) && s.Departments.Has(l.DepartmentID) && s.Projects.Has(l.ProjectID) {
			out.Add(l.ProjectID)
		}
	}
	return out
}

// DepartmentsOfProjects returns the visible departments linked to any of the
// given projects
func (s *Scope) DepartmentsOfProjects(projectIDs IDSet) IDSet {
	out := make(IDSet)
	for _, l := range s.links {
		if projectIDs.Has(l.ProjectID) && s.Departments.Has(l.DepartmentID) {
			out.Add(l.DepartmentID)
		}
	}
	return out
}

// Resolver computes scopes. It holds configuration only and is safe for
// concurrent use.
type Resolver struct {
	policy Policy
	log    *slog.Logger
}

// NewResolver creates a resolver with the given policy
func NewResolver(policy Policy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Colleagues == "" {
		policy.Colleagues = SharedTask
	}
	return &Resolver{policy: policy, log: logger}
}

// Policy returns the active visibility policy
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve computes the visible departments and projects for v
func (r *Resolver) Resolve(ctx context.Context, src source.Source, v Viewer) (*Scope, error) {
	tree, err := src.DepartmentTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load department tree: %w", err)
	}
	links, err := src.ProjectDepartmentLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load project links: %w", err)
	}

	s := &Scope{
		Viewer:      v,
		Departments: make(IDSet),
		Projects:    make(IDSet),
		names:       make(map[int64]string, len(tree)),
		links:       links,
	}
	for _, d := range tree {
		s.names[d.ID] = d.Name
	}

	if v.Admin {
		for _, d := range tree {
			s.Departments.Add(d.ID)
		}
	} else {
		depts, err := r.departments(ctx, src, tree, v.UserID)
		if err != nil {
			return nil, err
		}
		s.Departments = depts
	}

	for _, l := range links {
		if s.Departments.Has(l.DepartmentID) {
			s.Projects.Add(l.ProjectID)
		}
	}

	r.log.Debug("resolved scope",
		"user_id", v.UserID,
		"admin", v.Admin,
		"departments", len(s.Departments),
		"projects", len(s.Projects),
	)
	return s, nil
}

func (r *Resolver) departments(ctx context.Context, src source.Source, tree []model.Department, userID int64) (IDSet, error) {
	own, ok, err := src.UserDepartment(ctx, userID)
	if errors.Is(err, source.ErrUserNotFound) {
		r.log.Debug("unknown user, empty scope", "user_id", userID)
		return make(IDSet), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user department: %w", err)
	}
	if !ok {
		return make(IDSet), nil
	}

	children := childIndex(tree)
	visible := descendants(children, own)

	if r.policy.Colleagues != SharedTask {
		return visible, nil
	}

	refs, err := src.ScopeAssignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	for _, d := range colleagueDepartments(refs, visible).Sorted() {
		if r.policy.ExpandColleagueSubtrees {
			for id := range descendants(children, d) {
				visible.Add(id)
			}
			continue
		}
		visible.Add(d)
	}
	return visible, nil
}

// childIndex turns parent pointers into a parent -> children adjacency list
func childIndex(tree []model.Department) map[int64][]int64 {
	children := make(map[int64][]int64, len(tree))
	for _, d := range tree {
		if d.ParentID == nil {
			continue
		}
		children[*d.ParentID] = append(children[*d.ParentID], d.ID)
	}
	return children
}

// descendants returns root plus everything reachable below it. The visited
// set stops the walk if the data ever contains a cycle.
func descendants(children map[int64][]int64, root int64) IDSet {
	visited := NewIDSet(root)
	stack := []int64{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range children[id] {
			if visited.Add(child) {
				stack = append(stack, child)
			}
		}
	}
	return visited
}

// colleagueDepartments returns the departments of everyone who shares a task
// with somebody inside hierarchy
func colleagueDepartments(refs []model.AssignmentRef, hierarchy IDSet) IDSet {
	byTask := make(map[int64][]model.AssignmentRef)
	for _, ref := range refs {
		byTask[ref.TaskID] = append(byTask[ref.TaskID], ref)
	}

	out := make(IDSet)
	for _, group := range byTask {
		if len(group) < 2 {
			continue
		}
		shared := false
		for _, ref := range group {
			if ref.DepartmentID != nil && hierarchy.Has(*ref.DepartmentID) {
				shared = true
				break
			}
		}
		if !shared {
			continue
		}
		for _, ref := range group {
			if ref.DepartmentID != nil {
				out.Add(*ref.DepartmentID)
			}
		}
	}
	return out
}

// Option is an id/name pair for filter pickers
type Option struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Narrow restricts option lists. Nil fields mean "no restriction".
type Narrow struct {
	ProjectIDs    []int64
	DepartmentIDs []int64
}

// VisibleDepartments lists the departments v may see, optionally limited to
// those linked to Narrow.ProjectIDs and to Narrow.DepartmentIDs
func (r *Resolver) VisibleDepartments(ctx context.Context, store source.Store, v Viewer, n Narrow) ([]Option, error) {
	var opts []Option
	err := store.View(ctx, func(src source.Source) error {
		s, err := r.Resolve(ctx, src, v)
		if err != nil {
			return err
		}

		ids := s.Departments
		if n.ProjectIDs != nil {
			ids = s.DepartmentsOfProjects(NewIDSet(n.ProjectIDs...))
		}
		if n.DepartmentIDs != nil {
			ids = ids.Intersect(NewIDSet(n.DepartmentIDs...))
		}

		opts = make([]Option, 0, len(ids))
		for id := range ids {
			opts = append(opts, Option{ID: id, Name: s.names[id]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOptions(opts)
	return opts, nil
}

// VisibleProjects lists the projects v may see, optionally limited to
// Narrow.ProjectIDs and to projects linked to Narrow.DepartmentIDs
func (r *Resolver) VisibleProjects(ctx context.Context, store source.Store, v Viewer, n Narrow) ([]Option, error) {
	var opts []Option
	err := store.View(ctx, func(src source.Source) error {
		s, err := r.Resolve(ctx, src, v)
		if err != nil {
			return err
		}

		ids := s.Projects
		if n.ProjectIDs != nil {
			ids = ids.Intersect(NewIDSet(n.ProjectIDs...))
		}
		if n.DepartmentIDs != nil {
			ids = ids.Intersect(s.ProjectsOfDepartments(NewIDSet(n.DepartmentIDs...)))
		}
		if len(ids) == 0 {
			opts = []Option{}
			return nil
		}

		projects, err := src.Projects(ctx, ids.Sorted())
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		opts = make([]Option, 0, len(projects))
		for _, p := range projects {
			if p.Archived {
				continue
			}
			opts = append(opts, Option{ID: p.ID, Name: p.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOptions(opts)
	return opts, nil
}

func sortOptions(opts []Option) {
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].Name != opts[j].Name {
			return opts[i].Name < opts[j].Name
		}
		return opts[i].ID < opts[j].ID
	})
}
