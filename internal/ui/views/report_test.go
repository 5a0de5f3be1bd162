package views

import (
	"context"
	"testing"
	"time"

	"github.com/dori/workscope/internal/report"
)

func loadedView(t *testing.T, height int) ReportView {
	t.Helper()
	clock := report.Clock{Now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	load := func(ctx context.Context, kind report.Kind) (report.Payload, error) {
		return report.Compute(kind, sampleTasks(), clock)
	}
	payload, err := load(context.Background(), report.KindTaskCompletions)
	if err != nil {
		t.Fatal(err)
	}
	v := NewReportView(report.KindTaskCompletions, load).SetSize(100, height)
	v, _ = v.Update(ReportLoadedMsg{Kind: report.KindTaskCompletions, Payload: payload})
	return v
}

func TestReportViewScrollClamps(t *testing.T) {
	v := loadedView(t, 4)
	limit := v.maxScroll()
	if limit == 0 {
		t.Fatal("report should be taller than four lines")
	}

	for i := 0; i < limit+20; i++ {
		v = v.ScrollBy(1)
	}
	if v.scroll != limit {
		t.Fatalf("scroll = %d after overshooting, want %d", v.scroll, limit)
	}
	if v = v.ScrollBy(-1); v.scroll != limit-1 {
		t.Errorf("one step up from the bottom = %d, want %d", v.scroll, limit-1)
	}
	if v = v.ScrollBy(-100); v.scroll != 0 {
		t.Errorf("scroll = %d, want 0", v.scroll)
	}

	v = v.ScrollBy(limit).ScrollTop()
	if v.scroll != 0 {
		t.Errorf("ScrollTop left scroll at %d", v.scroll)
	}

	// Growing the window pulls the offset back
	v = v.ScrollBy(limit).SetSize(100, 1000)
	if v.scroll != 0 {
		t.Errorf("scroll = %d once everything fits", v.scroll)
	}
}

func TestReportViewScrollWithoutReport(t *testing.T) {
	v := NewReportView(report.KindLoggedTime, nil).SetSize(100, 4)
	if v.HasReport() {
		t.Error("nothing loaded yet")
	}
	if v = v.ScrollBy(5); v.scroll != 0 {
		t.Errorf("scroll = %d before any report loaded", v.scroll)
	}
}
