package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dori/workscope/internal/model"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/source"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func fixture() *source.Memory {
	m := source.NewMemory()
	m.AddDepartment(1, "Engineering", nil)
	m.AddDepartment(2, "Sales", nil)
	m.AddUser(10, "Ada", "Lovelace", 1)
	m.AddUser(20, "Sam", "Seller", 2)
	m.AddProject(100, "Platform", 1)
	m.AddProject(200, "Deals", 2)

	m.AddTask(model.Task{ID: 1, ProjectID: 100, Status: model.StatusCompleted, LoggedTime: 3600,
		Deadline: at("2026-03-09T00:00:00Z"), CompletedAt: at("2026-03-08T00:00:00Z")}, 10)
	m.AddTask(model.Task{ID: 2, ProjectID: 200, Status: model.StatusBlocked, LoggedTime: 60,
		Deadline: at("2026-03-12T00:00:00Z")}, 20)
	return m
}

func newTestApp(store source.Store, secret string) *fiber.App {
	svc := report.NewService(store, scope.NewResolver(scope.DefaultPolicy(), nil), report.Options{
		Now: func() time.Time { return now },
	})
	return New(svc, Options{JWTSecret: secret})
}

func do(t *testing.T, app *fiber.App, target string, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func TestHealthz(t *testing.T) {
	code, body := do(t, newTestApp(fixture(), ""), "/healthz", nil)
	if code != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", code, body)
	}
}

func TestReportEndpoint(t *testing.T) {
	app := newTestApp(fixture(), "")
	ada := map[string]string{"X-User-ID": "10"}

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantKind  string
		wantTotal float64
	}{
		{"slug", "/reports/logged-time", http.StatusOK, "loggedTime", 3600},
		{"camel case", "/reports/loggedTime", http.StatusOK, "loggedTime", 3600},
		{"malformed filters", "/reports/logged-time?projects=abc&start=nope", http.StatusOK, "loggedTime", 3600},
		{"invisible project", "/reports/logged-time?projects=200", http.StatusOK, "loggedTime", 0},
		{"date range", "/reports/logged-time?start=2026-03-10&end=2026-03-31", http.StatusOK, "loggedTime", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, app, tt.target, ada)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", code, tt.wantCode, body)
			}
			var got map[string]any
			decode(t, body, &got)
			if got["kind"] != tt.wantKind || got["totalTime"] != tt.wantTotal {
				t.Errorf("payload = %v", got)
			}
		})
	}
}

func TestReportErrors(t *testing.T) {
	app := newTestApp(fixture(), "")

	code, body := do(t, app, "/reports/velocity", map[string]string{"X-User-ID": "10"})
	if code != http.StatusBadRequest {
		t.Errorf("unknown kind status = %d", code)
	}
	var msg map[string]string
	decode(t, body, &msg)
	if msg["error"] == "" {
		t.Errorf("unknown kind should carry an error message: %s", body)
	}

	for _, h := range []map[string]string{nil, {"X-User-ID": "ada"}} {
		if code, _ := do(t, app, "/reports/logged-time", h); code != http.StatusUnauthorized {
			t.Errorf("headers %v: status = %d, want 401", h, code)
		}
	}

	broken := fixture()
	broken.Err = errors.New("disk on fire")
	code, body = do(t, newTestApp(broken, ""), "/reports/team-summary", map[string]string{"X-User-ID": "10"})
	if code != http.StatusInternalServerError {
		t.Fatalf("store failure status = %d", code)
	}
	decode(t, body, &msg)
	if msg["error"] != "internal error" {
		t.Errorf("store failure should not leak details: %s", body)
	}
}

func TestScopeEndpoints(t *testing.T) {
	app := newTestApp(fixture(), "")

	var opts []scope.Option
	_, body := do(t, app, "/scope/departments", map[string]string{"X-User-ID": "10"})
	decode(t, body, &opts)
	if len(opts) != 1 || opts[0].Name != "Engineering" {
		t.Errorf("departments for user 10 = %v", opts)
	}

	_, body = do(t, app, "/scope/departments", map[string]string{"X-User-ID": "10", "X-User-Admin": "true"})
	decode(t, body, &opts)
	if len(opts) != 2 {
		t.Errorf("admin should see every department, got %v", opts)
	}

	_, body = do(t, app, "/scope/projects?departments=2", map[string]string{"X-User-ID": "10"})
	if string(body) != "[]" {
		t.Errorf("projects outside scope = %s, want []", body)
	}
}

func TestBearerIdentity(t *testing.T) {
	const secret = "s3cret"
	app := newTestApp(fixture(), secret)

	token, err := SignToken(secret, scope.Viewer{UserID: 20})
	if err != nil {
		t.Fatal(err)
	}
	code, body := do(t, app, "/reports/task-completions", map[string]string{"Authorization": "Bearer " + token})
	if code != http.StatusOK {
		t.Fatalf("status = %d: %s", code, body)
	}
	var got map[string]any
	decode(t, body, &got)
	if got["totalTasks"] != float64(1) {
		t.Errorf("user 20 should see one task: %v", got)
	}

	forged, err := SignToken("other", scope.Viewer{UserID: 20, Admin: true})
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]map[string]string{
		"no token":      nil,
		"wrong secret":  {"Authorization": "Bearer " + forged},
		"headers only":  {"X-User-ID": "20"},
		"not a bearer":  {"Authorization": "Basic " + token},
		"garbage token": {"Authorization": "Bearer abc.def.ghi"},
	}
	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			if code, _ := do(t, app, "/reports/task-completions", h); code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", code)
			}
		})
	}
}
