package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(id int64) *int64 { return &id }

// fixture creates two departments, a shared task across them and an archived
// task that must never surface.
func fixture(t *testing.T, db *DB) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("fixture: %v", err)
		}
	}
	_, err := db.CreateDepartment(1, "Engineering", nil)
	must(err)
	_, err = db.CreateDepartment(2, "Backend", ptr(1))
	must(err)
	_, err = db.CreateDepartment(3, "Sales", nil)
	must(err)
	_, err = db.CreateUser(10, "Ada", "Lovelace", ptr(1))
	must(err)
	_, err = db.CreateUser(20, "Linus", "Bauer", ptr(2))
	must(err)
	_, err = db.CreateUser(30, "Sam", "Seller", ptr(3))
	must(err)
	_, err = db.CreateUser(40, "No", "Department", nil)
	must(err)
	_, err = db.CreateProject(100, "Platform", 1, 2)
	must(err)
	_, err = db.CreateProject(200, "Deals", 3)
	must(err)

	deadline := time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC)
	weekly := 7
	shared := &model.Task{ID: 1, Title: "Shared", ProjectID: 100, CreatorID: 10, Status: model.StatusInProgress,
		Deadline: &deadline, LoggedTime: 3600, RecurrenceInterval: &weekly}
	must(db.CreateTask(shared))
	must(db.AssignTask(1, 20, 10))
	must(db.AssignTask(1, 30, 10))
	must(db.AssignTask(1, 30, 10)) // duplicate is ignored

	done := &model.Task{ID: 2, Title: "Done", ProjectID: 100, Status: model.StatusCompleted}
	must(db.CreateTask(done))
	must(db.AssignTask(2, 20, 0))

	archived := &model.Task{ID: 3, Title: "Archived", ProjectID: 100, Archived: true}
	must(db.CreateTask(archived))

	must(db.CreateTask(&model.Task{ID: 4, Title: "Deal", ProjectID: 200}))
}

func TestOpenMigrates(t *testing.T) {
	db := openTestDB(t)
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion() error: %v", err)
	}
	if v != 1 {
		t.Errorf("schema version = %d, want 1", v)
	}

	// Reopening runs no migrations twice
	path := filepath.Join(t.TempDir(), "again.db")
	for i := 0; i < 2; i++ {
		again, err := Open(path, nil)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		again.Close()
	}
}

func TestReaderOrganization(t *testing.T) {
	db := openTestDB(t)
	fixture(t, db)
	ctx := context.Background()

	err := db.View(ctx, func(src source.Source) error {
		depts, err := src.DepartmentTree(ctx)
		if err != nil {
			return err
		}
		if len(depts) != 3 || depts[1].ParentID == nil || *depts[1].ParentID != 1 || !depts[0].IsRoot() {
			t.Errorf("unexpected departments: %+v", depts)
		}

		links, err := src.ProjectDepartmentLinks(ctx)
		if err != nil {
			return err
		}
		if len(links) != 3 {
			t.Errorf("links = %+v, want 3", links)
		}

		refs, err := src.ScopeAssignments(ctx)
		if err != nil {
			return err
		}
		if len(refs) != 3 {
			t.Errorf("assignment refs = %+v, want 3", refs)
		}
		for _, r := range refs {
			if r.DepartmentID == nil {
				t.Errorf("ref %+v missing department", r)
			}
		}

		if d, ok, err := src.UserDepartment(ctx, 20); err != nil || !ok || d != 2 {
			t.Errorf("UserDepartment(20) = %d, %v, %v", d, ok, err)
		}
		if _, ok, err := src.UserDepartment(ctx, 40); err != nil || ok {
			t.Errorf("UserDepartment(40) = %v, %v; want no department", ok, err)
		}
		if _, _, err := src.UserDepartment(ctx, 999); !errors.Is(err, source.ErrUserNotFound) {
			t.Errorf("UserDepartment(999) error = %v, want ErrUserNotFound", err)
		}

		projects, err := src.Projects(ctx, []int64{200, 999})
		if err != nil {
			return err
		}
		if len(projects) != 1 || projects[0].Name != "Deals" || projects[0].CreatedAt.IsZero() {
			t.Errorf("Projects() = %+v", projects)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}
}

func TestReaderTasks(t *testing.T) {
	db := openTestDB(t)
	fixture(t, db)
	ctx := context.Background()

	var tasks []model.Task
	err := db.View(ctx, func(src source.Source) error {
		none, err := src.NonArchivedTasks(ctx, nil)
		if err != nil {
			return err
		}
		if len(none) != 0 {
			t.Errorf("empty filter returned %d tasks", len(none))
		}
		tasks, err = src.NonArchivedTasks(ctx, []int64{100})
		return err
	})
	if err != nil {
		t.Fatalf("View() error: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 (archived excluded)", len(tasks))
	}
	shared := tasks[0]
	if shared.ID != 1 || shared.Status != model.StatusInProgress || shared.LoggedTime != 3600 {
		t.Errorf("unexpected task: %+v", shared)
	}
	if shared.Deadline == nil || !shared.Deadline.Equal(time.Date(2026, 3, 12, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("deadline = %v", shared.Deadline)
	}
	if shared.RecurrenceInterval == nil || *shared.RecurrenceInterval != 7 || shared.CreatorID != 10 {
		t.Errorf("recurrence/creator lost: %+v", shared)
	}
	if len(shared.Assignees) != 2 || shared.Assignees[0].Name() != "Linus Bauer" || shared.Assignees[1].AssignorID != 10 {
		t.Errorf("assignees = %+v", shared.Assignees)
	}

	done := tasks[1]
	if done.CompletedAt == nil {
		t.Error("completed task should get a completion time")
	}
	if done.Priority != 5 {
		t.Errorf("default priority = %d, want 5", done.Priority)
	}
	if len(done.Assignees) != 1 || done.Assignees[0].AssignorID != 0 {
		t.Errorf("assignees = %+v", done.Assignees)
	}
}

func TestViewReleasesOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	// More failures than the read pool has connections: a leaked
	// transaction would leave nothing for the final read
	for i := 0; i < 2*readConns; i++ {
		if err := db.View(ctx, func(source.Source) error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("View() error = %v, want boom", err)
		}
	}

	timeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.View(timeout, func(src source.Source) error {
		_, err := src.DepartmentTree(timeout)
		return err
	})
	if err != nil {
		t.Fatalf("read after failed views: %v", err)
	}

	if _, err := db.CreateDepartment(0, "After", nil); err != nil {
		t.Fatalf("write after failed views: %v", err)
	}

	cancelled, cancelNow := context.WithCancel(ctx)
	cancelNow()
	if err := db.View(cancelled, func(source.Source) error { return nil }); err == nil {
		t.Error("View() with cancelled context should fail")
	}
}

func TestConcurrentViews(t *testing.T) {
	db := openTestDB(t)
	fixture(t, db)
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- db.View(ctx, func(src source.Source) error {
			if _, err := src.DepartmentTree(ctx); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	timeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	err := db.View(timeout, func(src source.Source) error {
		tasks, err := src.NonArchivedTasks(timeout, []int64{100, 200})
		if err != nil {
			return err
		}
		if len(tasks) != 3 {
			t.Errorf("second reader saw %d tasks, want 3", len(tasks))
		}
		return nil
	})
	close(release)

	if err != nil {
		t.Fatalf("second read while the first is open: %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("first read: %v", err)
	}

	// A writer is not blocked by an open reader either
	holding = make(chan struct{})
	release = make(chan struct{})
	go func() {
		first <- db.View(ctx, func(src source.Source) error {
			src.DepartmentTree(ctx)
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	_, err = db.CreateDepartment(0, "During", nil)
	close(release)
	if err != nil {
		t.Fatalf("write while a read is open: %v", err)
	}
	<-first
}

func TestTransactionRollsBack(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")

	err := db.Transaction(func(w *Writer) error {
		if _, err := w.CreateDepartment(1, "Engineering", nil); err != nil {
			return err
		}
		if _, err := w.CreateUser(1, "Ada", "Lovelace", ptr(1)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rolled back transaction left %d departments", count)
	}

	err = db.Transaction(func(w *Writer) error {
		_, err := w.CreateDepartment(1, "Engineering", nil)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("committed departments = %d, want 1", count)
	}
}

// TestResolveNoDeadlock runs a full scope resolution and task load inside one
// view. Every query shares the view's connection, so a rows handle left open
// across the nested assignee query would hang here.
func TestResolveNoDeadlock(t *testing.T) {
	db := openTestDB(t)
	fixture(t, db)
	ctx := context.Background()
	resolver := scope.NewResolver(scope.DefaultPolicy(), nil)

	done := make(chan error, 1)
	go func() {
		done <- db.View(ctx, func(src source.Source) error {
			sc, err := resolver.Resolve(ctx, src, scope.Viewer{UserID: 10})
			if err != nil {
				return err
			}
			tasks, err := src.NonArchivedTasks(ctx, sc.Projects.Sorted())
			if err != nil {
				return err
			}
			if len(tasks) != 3 {
				t.Errorf("engineering root with a sales colleague sees %d tasks, want 3", len(tasks))
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("View() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out - possible deadlock detected")
	}
}

func TestSeed(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	sum, err := db.Seed(now)
	if err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	if sum.Departments != 4 || sum.Users != 4 || sum.Projects != 3 || sum.Tasks != 8 {
		t.Errorf("summary = %s", sum)
	}

	if _, err := db.Seed(now); !errors.Is(err, ErrNotEmpty) {
		t.Errorf("second Seed() error = %v, want ErrNotEmpty", err)
	}

	ctx := context.Background()
	err = db.View(ctx, func(src source.Source) error {
		tasks, err := src.NonArchivedTasks(ctx, []int64{1, 2, 3})
		if err != nil {
			return err
		}
		if len(tasks) != 8 {
			t.Errorf("seeded tasks = %d, want 8", len(tasks))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
