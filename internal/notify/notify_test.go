package notify

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDesktopArgs(t *testing.T) {
	var gotName string
	var gotArgs []string
	d := NewDesktop()
	d.run = func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}

	err := d.Send(context.Background(), Notification{
		Title:   "3 tasks overdue",
		Body:    "Fix flaky suite",
		Urgency: UrgencyCritical,
		Timeout: 15 * time.Second,
		Icon:    "emblem-important-symbolic",
	})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	want := []string{"-u", "critical", "-t", "15000", "-i", "emblem-important-symbolic",
		"-a", "workscope", "3 tasks overdue", "Fix flaky suite"}
	if gotName != "notify-send" || !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("ran %s %v, want notify-send %v", gotName, gotArgs, want)
	}

	gotArgs = nil
	d.SetEnabled(false)
	if err := d.Send(context.Background(), Notification{Title: "x"}); err != nil || gotArgs != nil {
		t.Errorf("disabled sender still ran: %v %v", gotArgs, err)
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := l.Send(context.Background(), Notification{UserID: 7, Title: "Due today", Body: "Ship it", Urgency: UrgencyCritical}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", `msg="Due today"`, "user_id=7", "urgency=critical"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestNewBackend(t *testing.T) {
	if _, ok := New("desktop", nil).(*Desktop); !ok {
		t.Error("desktop backend should be *Desktop")
	}
	if _, ok := New("log", nil).(*Log); !ok {
		t.Error("log backend should be *Log")
	}
}
