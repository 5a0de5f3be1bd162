package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
)

func serviceFixture() *source.Memory {
	m := source.NewMemory()
	m.AddDepartment(1, "Engineering", nil)
	m.AddDepartment(2, "Sales", nil)
	m.AddUser(10, "Ada", "Lovelace", 1)
	m.AddUser(20, "Sam", "Seller", 2)
	m.AddProject(100, "Platform", 1)
	m.AddProject(200, "Deals", 2)

	m.AddTask(model.Task{ID: 1, ProjectID: 100, Status: model.StatusCompleted, LoggedTime: 3600,
		Deadline: ts("2026-03-09T00:00:00Z"), CompletedAt: ts("2026-03-08T00:00:00Z")}, 10)
	m.AddTask(model.Task{ID: 2, ProjectID: 100, Status: model.StatusInProgress,
		Deadline: ts("2026-03-01T00:00:00Z")}, 10)
	m.AddTask(model.Task{ID: 3, ProjectID: 200, Status: model.StatusBlocked, LoggedTime: 60,
		Deadline: ts("2026-03-12T00:00:00Z")}, 20)
	return m
}

func newTestService(store source.Store) *Service {
	return NewService(store, scope.NewResolver(scope.DefaultPolicy(), nil), Options{
		Now: func() time.Time { return now },
	})
}

func TestServiceLoggedTime(t *testing.T) {
	svc := newTestService(serviceFixture())
	r, err := svc.LoggedTime(context.Background(), scope.Viewer{UserID: 10}, filter.Params{})
	if err != nil {
		t.Fatalf("LoggedTime() error: %v", err)
	}
	if r.Kind != KindLoggedTime || r.TotalTime != 3600 || r.CompletedTasks != 1 || r.OverdueTasks != 1 || r.BlockedTasks != 0 {
		t.Errorf("unexpected report: %+v", r)
	}
	if r.OnTimeCompletionRate != 1 {
		t.Errorf("OnTimeCompletionRate = %v, want 1", r.OnTimeCompletionRate)
	}
}

func TestServiceScopesByUser(t *testing.T) {
	svc := newTestService(serviceFixture())
	ctx := context.Background()

	eng, err := svc.TaskCompletions(ctx, scope.Viewer{UserID: 10}, filter.Params{})
	if err != nil {
		t.Fatal(err)
	}
	sales, err := svc.TaskCompletions(ctx, scope.Viewer{UserID: 20}, filter.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if eng.TotalTasks != 2 || sales.TotalTasks != 1 {
		t.Errorf("engineering saw %d tasks, sales saw %d", eng.TotalTasks, sales.TotalTasks)
	}

	engDepts, err := svc.VisibleDepartments(ctx, scope.Viewer{UserID: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	salesDepts, err := svc.VisibleDepartments(ctx, scope.Viewer{UserID: 20}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(engDepts) != 1 || len(salesDepts) != 1 || engDepts[0].ID == salesDepts[0].ID {
		t.Errorf("department lists should differ: %v vs %v", engDepts, salesDepts)
	}

	projects, err := svc.VisibleProjects(ctx, scope.Viewer{UserID: 20, Admin: true}, []string{"1", "oops"})
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Name != "Platform" {
		t.Errorf("projects of department 1 = %v", projects)
	}
}

func TestServiceEmptyScope(t *testing.T) {
	svc := newTestService(serviceFixture())
	ctx := context.Background()

	params := []filter.Params{
		{ProjectIDs: []string{"999"}},
		{ProjectIDs: []string{"200"}},  // exists, not visible
		{StartDate: "2030-01-01"},      // nothing that late
		{DepartmentIDs: []string{"2"}}, // department outside scope
	}
	for _, p := range params {
		r, err := svc.TeamSummary(ctx, scope.Viewer{UserID: 10}, p)
		if err != nil {
			t.Fatalf("%+v: %v", p, err)
		}
		if r.TotalTasks != 0 || r.TotalUsers != 0 || len(r.WeeklyBreakdown) != 0 {
			t.Errorf("%+v: expected empty report, got %+v", p, r)
		}
	}

	r, err := svc.LoggedTime(ctx, scope.Viewer{UserID: 424242}, filter.Params{})
	if err != nil {
		t.Fatalf("unknown user: %v", err)
	}
	if r.TotalTime != 0 || len(r.TimeByTask) != 0 {
		t.Errorf("unknown user should see nothing, got %+v", r)
	}
}

func TestServiceMalformedFiltersDoNotFail(t *testing.T) {
	svc := newTestService(serviceFixture())
	r, err := svc.TaskCompletions(context.Background(), scope.Viewer{UserID: 10}, filter.Params{
		ProjectIDs: []string{"abc"},
		StartDate:  "31/31/2026",
		EndDate:    "tomorrow",
	})
	if err != nil {
		t.Fatalf("malformed filters should not fail: %v", err)
	}
	if r.TotalTasks != 2 {
		t.Errorf("TotalTasks = %d, want the unfiltered 2", r.TotalTasks)
	}
}

func TestServiceIdempotent(t *testing.T) {
	svc := newTestService(serviceFixture())
	ctx := context.Background()
	v := scope.Viewer{UserID: 10, Admin: true}

	for _, kind := range Kinds() {
		a, err := svc.Compute(ctx, kind, v, filter.Params{})
		if err != nil {
			t.Fatal(err)
		}
		b, err := svc.Compute(ctx, kind, v, filter.Params{})
		if err != nil {
			t.Fatal(err)
		}
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		if string(ja) != string(jb) {
			t.Errorf("%s not idempotent:\n%s\n%s", kind, ja, jb)
		}
	}
}

func TestServiceErrors(t *testing.T) {
	m := serviceFixture()
	svc := newTestService(m)
	ctx := context.Background()

	if _, err := svc.Compute(ctx, Kind("velocity"), scope.Viewer{UserID: 10}, filter.Params{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}

	boom := errors.New("database is locked")
	m.Err = boom
	// The kind is rejected before the store is touched
	if _, err := svc.Compute(ctx, Kind("velocity"), scope.Viewer{UserID: 10}, filter.Params{}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind with a failing store: got %v", err)
	}
	r, err := svc.LoggedTime(ctx, scope.Viewer{UserID: 10}, filter.Params{})
	if !errors.Is(err, boom) {
		t.Errorf("expected data error, got %v", err)
	}
	if r != nil {
		t.Errorf("no partial report expected, got %+v", r)
	}
}

func TestServiceComputeNormalizesKind(t *testing.T) {
	svc := newTestService(serviceFixture())
	ctx := context.Background()

	tests := map[Kind]Kind{
		"logged-time":      KindLoggedTime,
		"TeamSummary":      KindTeamSummary,
		"TASK-COMPLETIONS": KindTaskCompletions,
	}
	for in, want := range tests {
		p, err := svc.Compute(ctx, in, scope.Viewer{UserID: 10}, filter.Params{})
		if err != nil {
			t.Errorf("Compute(%q) error: %v", in, err)
			continue
		}
		if p.ReportKind() != want {
			t.Errorf("Compute(%q) kind = %s, want %s", in, p.ReportKind(), want)
		}
	}
}
