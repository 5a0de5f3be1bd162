package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/dori/workscope/internal/model"
)

// ErrNotEmpty is returned by Seed when the database already holds departments
var ErrNotEmpty = errors.New("database already has data")

// SeedSummary reports what Seed inserted
type SeedSummary struct {
	Departments int
	Users       int
	Projects    int
	Tasks       int
}

// Seed fills an empty database with a small demo organization in a single
// transaction. Deadlines are placed around now so every report and digest
// bucket has something in it.
func (db *DB) Seed(now time.Time) (*SeedSummary, error) {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrNotEmpty
	}

	sum := &SeedSummary{}
	err := db.Transaction(func(w *Writer) error {
		dept := func(id int64, name string, parent *int64) error {
			if _, err := w.CreateDepartment(id, name, parent); err != nil {
				return err
			}
			sum.Departments++
			return nil
		}
		user := func(id int64, first, last string, d int64) error {
			if _, err := w.CreateUser(id, first, last, &d); err != nil {
				return err
			}
			sum.Users++
			return nil
		}
		project := func(id int64, name string, depts ...int64) error {
			if _, err := w.CreateProject(id, name, depts...); err != nil {
				return err
			}
			sum.Projects++
			return nil
		}

		eng := int64(1)
		steps := []func() error{
			func() error { return dept(1, "Engineering", nil) },
			func() error { return dept(2, "Backend", &eng) },
			func() error { return dept(3, "Frontend", &eng) },
			func() error { return dept(4, "Sales", nil) },
			func() error { return user(1, "Ada", "Lovelace", 1) },
			func() error { return user(2, "Linus", "Bauer", 2) },
			func() error { return user(3, "Grace", "Hopper", 3) },
			func() error { return user(4, "Sam", "Seller", 4) },
			func() error { return project(1, "Platform", 1, 2) },
			func() error { return project(2, "Web App", 3) },
			func() error { return project(3, "Q4 Deals", 4) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}

		day := 24 * time.Hour
		at := func(d time.Duration) *time.Time {
			t := now.Add(d)
			return &t
		}
		created := now.Add(-21 * day)
		weekly := 7

		tasks := []struct {
			task      model.Task
			assignees []int64
		}{
			{model.Task{Title: "Migrate billing tables", Status: model.StatusCompleted, Priority: 8, ProjectID: 1, CreatorID: 1,
				Deadline: at(-5 * day), CompletedAt: at(-6 * day), LoggedTime: 5 * 3600, CreatedAt: created}, []int64{2}},
			{model.Task{Title: "Rotate API keys", Status: model.StatusCompleted, Priority: 9, ProjectID: 1, CreatorID: 1,
				Deadline: at(-3 * day), CompletedAt: at(-2 * day), LoggedTime: 2 * 3600, CreatedAt: created}, []int64{2}},
			{model.Task{Title: "Fix flaky integration suite", Status: model.StatusInProgress, Priority: 6, ProjectID: 1, CreatorID: 2,
				Deadline: at(-1 * day), LoggedTime: 3 * 3600, CreatedAt: created}, []int64{2, 3}},
			{model.Task{Title: "Weekly dependency review", Status: model.StatusToDo, Priority: 4, ProjectID: 1, CreatorID: 1,
				Deadline: at(2 * time.Hour), RecurrenceInterval: &weekly, CreatedAt: created}, []int64{1}},
			{model.Task{Title: "Design settings page", Status: model.StatusBlocked, Priority: 5, ProjectID: 2, CreatorID: 3,
				Deadline: at(4 * day), LoggedTime: 1800, CreatedAt: created}, []int64{3}},
			{model.Task{Title: "Accessibility audit", Status: model.StatusToDo, Priority: 3, ProjectID: 2, CreatorID: 3,
				Deadline: at(30 * day), CreatedAt: created}, []int64{3}},
			{model.Task{Title: "Renewal pitch deck", Status: model.StatusInProgress, Priority: 7, ProjectID: 3, CreatorID: 4,
				Deadline: at(10 * day), LoggedTime: 4 * 3600, CreatedAt: created}, []int64{4, 1}},
			{model.Task{Title: "Clean up old leads", Status: model.StatusToDo, Priority: 2, ProjectID: 3, CreatorID: 4,
				CreatedAt: created}, []int64{4}},
		}
		for i := range tasks {
			t := &tasks[i].task
			if err := w.CreateTask(t); err != nil {
				return err
			}
			for _, a := range tasks[i].assignees {
				if err := w.AssignTask(t.ID, a, t.CreatorID); err != nil {
					return err
				}
			}
			sum.Tasks++
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}
	return sum, nil
}

// String implements fmt.Stringer
func (s *SeedSummary) String() string {
	return fmt.Sprintf("%d departments, %d users, %d projects, %d tasks",
		s.Departments, s.Users, s.Projects, s.Tasks)
}
