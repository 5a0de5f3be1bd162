package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dori/workscope/internal/scope"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workscope.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Digest.Notifier != "log" || cfg.Log.Format != "json" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("default location = %s, want UTC", cfg.Location())
	}
	if cfg.Policy() != scope.DefaultPolicy() {
		t.Errorf("default policy = %+v", cfg.Policy())
	}
	if d, _ := cfg.DigestInterval(); d != time.Hour {
		t.Errorf("default digest interval = %s", d)
	}
	if !strings.HasSuffix(cfg.DigestLockPath(), ".digest.lock") {
		t.Errorf("lock path = %s", cfg.DigestLockPath())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
database:
  path: /tmp/ws.db
report:
  utc_offset_minutes: 330
scope:
  colleague_visibility: none
digest:
  interval: 30m
  notifier: desktop
log:
  level: debug
  format: text
`)
	t.Setenv("WORKSCOPE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("WORKSCOPE_SCOPE_EXPAND_COLLEAGUE_SUBTREES", "true")
	t.Setenv("WORKSCOPE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Path != "/tmp/ws.db" || cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("paths: %+v %+v", cfg.Database, cfg.Server)
	}
	if got := cfg.Location().String(); got != "UTC+05:30" {
		t.Errorf("location = %s", got)
	}
	if p := cfg.Policy(); p.Colleagues != scope.NoColleagues || !p.ExpandColleagueSubtrees {
		t.Errorf("policy = %+v", p)
	}
	if d, _ := cfg.DigestInterval(); d != 30*time.Minute {
		t.Errorf("interval = %s", d)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env should override file, level = %s", cfg.Log.Level)
	}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("text logger output = %q", buf.String())
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
		want string
	}{
		{"bad yaml", "database: [", nil, "parse config"},
		{"offset range", "report:\n  utc_offset_minutes: 2000\n", nil, "out of range"},
		{"visibility", "scope:\n  colleague_visibility: everyone\n", nil, "colleague_visibility"},
		{"short interval", "digest:\n  interval: 5s\n", nil, "shorter than a minute"},
		{"notifier", "digest:\n  notifier: pager\n", nil, "digest.notifier"},
		{"log level", "log:\n  level: loud\n", nil, "log.level"},
		{"env offset", "", map[string]string{"WORKSCOPE_REPORT_UTC_OFFSET_MINUTES": "east"}, "REPORT_UTC_OFFSET_MINUTES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("explicit missing config file should fail")
	}
}
