package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
)

// WorkingSet is the scope- and filter-resolved task list of one report
type WorkingSet struct {
	Viewer  scope.Viewer
	Filters Filters
	// Projects is the effective project set the tasks were drawn from
	Projects []int64
	Tasks    []model.Task
}

// Len returns the number of tasks
func (ws *WorkingSet) Len() int {
	return len(ws.Tasks)
}

// Service builds working sets
type Service struct {
	resolver *scope.Resolver
	log      *slog.Logger
}

// NewService creates a filter service on top of a scope resolver
func NewService(resolver *scope.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, log: logger}
}

// WorkingSet resolves v's scope against src, narrows it with f and loads the
// matching non-archived tasks
func (s *Service) WorkingSet(ctx context.Context, src source.Source, v scope.Viewer, f Filters) (*WorkingSet, error) {
	sc, err := s.resolver.Resolve(ctx, src, v)
	if err != nil {
		return nil, err
	}

	projects := EffectiveProjects(sc, f)
	ws := &WorkingSet{
		Viewer:   v,
		Filters:  f,
		Projects: projects.Sorted(),
		Tasks:    []model.Task{},
	}
	if sc.Empty() || len(projects) == 0 {
		s.log.Debug("empty project scope", "user_id", v.UserID, "no_departments", sc.Empty())
		return ws, nil
	}

	tasks, err := src.NonArchivedTasks(ctx, ws.Projects)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	for _, t := range tasks {
		// The source already filters, the check keeps foreign rows out
		if t.Archived || !projects.Has(t.ProjectID) {
			continue
		}
		if !f.InRange(t.Deadline) {
			continue
		}
		ws.Tasks = append(ws.Tasks, t)
	}
	sort.Slice(ws.Tasks, func(i, j int) bool { return ws.Tasks[i].ID < ws.Tasks[j].ID })
	return ws, nil
}

// EffectiveProjects applies the project and department filters to a scope
func EffectiveProjects(sc *scope.Scope, f Filters) scope.IDSet {
	projects := sc.Projects
	if f.ProjectIDs != nil {
		projects = projects.Intersect(scope.NewIDSet(f.ProjectIDs...))
	}
	if f.DepartmentIDs != nil {
		projects = projects.Intersect(sc.ProjectsOfDepartments(scope.NewIDSet(f.DepartmentIDs...)))
	}
	return projects
}
