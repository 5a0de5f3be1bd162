package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
	"github.com/google/uuid"
)

// Options configures a Service
type Options struct {
	// Location is the report timezone; nil means UTC
	Location *time.Location
	// Now overrides the clock, mainly for tests
	Now    func() time.Time
	Logger *slog.Logger
}

// Service is the entry point callers use: it resolves scope, builds the
// working set inside one read view of the store and runs an engine over it.
// It keeps no state between calls.
type Service struct {
	store    source.Store
	resolver *scope.Resolver
	filters  *filter.Service
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewService wires a report service
func NewService(store source.Store, resolver *scope.Resolver, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		filters:  filter.NewService(resolver, opts.Logger),
		loc:      opts.Location,
		now:      opts.Now,
		log:      opts.Logger,
	}
}

// Location returns the report timezone
func (s *Service) Location() *time.Location {
	return s.loc
}

// LoggedTime computes the logged-time report for v
func (s *Service) LoggedTime(ctx context.Context, v scope.Viewer, p filter.Params) (*LoggedTime, error) {
	payload, err := s.Compute(ctx, KindLoggedTime, v, p)
	if err != nil {
		return nil, err
	}
	return payload.(*LoggedTime), nil
}

// TeamSummary computes the team-summary report for v
func (s *Service) TeamSummary(ctx context.Context, v scope.Viewer, p filter.Params) (*TeamSummary, error) {
	payload, err := s.Compute(ctx, KindTeamSummary, v, p)
	if err != nil {
		return nil, err
	}
	return payload.(*TeamSummary), nil
}

// TaskCompletions computes the task-completion report for v
func (s *Service) TaskCompletions(ctx context.Context, v scope.Viewer, p filter.Params) (*TaskCompletions, error) {
	payload, err := s.Compute(ctx, KindTaskCompletions, v, p)
	if err != nil {
		return nil, err
	}
	return payload.(*TaskCompletions), nil
}

// Compute runs the report of the given kind. Either the whole working set is
// fetched and aggregated, or an error comes back and no payload.
func (s *Service) Compute(ctx context.Context, kind Kind, v scope.Viewer, p filter.Params) (Payload, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	start := time.Now()
	f := filter.Parse(p, s.loc)

	var ws *filter.WorkingSet
	err = s.store.View(ctx, func(src source.Source) error {
		var err error
		ws, err = s.filters.WorkingSet(ctx, src, v, f)
		return err
	})
	if err != nil {
		s.log.Error("report failed",
			"computation_id", id,
			"kind", kind,
			"user_id", v.UserID,
			"error", err,
		)
		return nil, err
	}

	payload, err := Compute(kind, ws.Tasks, Clock{Now: s.now(), Location: s.loc})
	if err != nil {
		return nil, err
	}

	s.log.Debug("report computed",
		"computation_id", id,
		"kind", kind,
		"user_id", v.UserID,
		"projects", len(ws.Projects),
		"tasks", ws.Len(),
		"elapsed", time.Since(start),
	)
	return payload, nil
}

// VisibleDepartments lists the departments v may filter by. projectFilter
// holds raw ids; malformed entries are ignored.
func (s *Service) VisibleDepartments(ctx context.Context, v scope.Viewer, projectFilter []string) ([]scope.Option, error) {
	f := filter.Parse(filter.Params{ProjectIDs: projectFilter}, s.loc)
	return s.resolver.VisibleDepartments(ctx, s.store, v, scope.Narrow{ProjectIDs: f.ProjectIDs})
}

// VisibleProjects lists the projects v may filter by. departmentFilter holds
// raw ids; malformed entries are ignored.
func (s *Service) VisibleProjects(ctx context.Context, v scope.Viewer, departmentFilter []string) ([]scope.Option, error) {
	f := filter.Parse(filter.Params{DepartmentIDs: departmentFilter}, s.loc)
	return s.resolver.VisibleProjects(ctx, s.store, v, scope.Narrow{DepartmentIDs: f.DepartmentIDs})
}
