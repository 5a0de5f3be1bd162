package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/dori/workscope/internal/config"
	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/notify"
	"github.com/dori/workscope/internal/scope"
)

func TestNewWiresServices(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Report.UTCOffsetMinutes = -300

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer a.Close()

	if _, ok := a.Notifier.(*notify.Log); !ok {
		t.Errorf("default notifier = %T, want *notify.Log", a.Notifier)
	}
	if got := a.Reports.Location().String(); got != "UTC-05:00" {
		t.Errorf("report location = %s", got)
	}

	if _, err := a.DB.Seed(time.Now()); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	ctx := context.Background()
	r, err := a.Reports.TaskCompletions(ctx, scope.Viewer{UserID: 1}, filter.Params{})
	if err != nil {
		t.Fatalf("TaskCompletions() error: %v", err)
	}
	// User 1 heads Engineering and shares a task with Sales
	if r.TotalTasks != 8 {
		t.Errorf("TotalTasks = %d, want 8", r.TotalTasks)
	}

	digests, err := a.Digest.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect() error: %v", err)
	}
	if len(digests) == 0 {
		t.Error("seeded data should produce digests")
	}
}
