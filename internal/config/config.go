// Package config loads workscope settings from defaults, an optional YAML
// file, a .env file and WORKSCOPE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dori/workscope/internal/db"
	"github.com/dori/workscope/internal/deadline"
	"github.com/dori/workscope/internal/scope"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "WORKSCOPE_"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Report   ReportConfig   `yaml:"report"`
	Scope    ScopeConfig    `yaml:"scope"`
	Digest   DigestConfig   `yaml:"digest"`
	Log      LogConfig      `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AuthConfig struct {
	// JWTSecret enables bearer-token identity when set
	JWTSecret string `yaml:"jwt_secret"`
}

type ReportConfig struct {
	// UTCOffsetMinutes is the fixed offset used for every calendar-day rule
	UTCOffsetMinutes int `yaml:"utc_offset_minutes"`
}

type ScopeConfig struct {
	ColleagueVisibility     string `yaml:"colleague_visibility"`
	ExpandColleagueSubtrees bool   `yaml:"expand_colleague_subtrees"`
}

type DigestConfig struct {
	Interval string `yaml:"interval"`
	Notifier string `yaml:"notifier"`
	LockPath string `yaml:"lock_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: db.DefaultDBPath()},
		Server:   ServerConfig{Addr: ":8080"},
		Scope:    ScopeConfig{ColleagueVisibility: string(scope.SharedTask)},
		Digest:   DigestConfig{Interval: "1h", Notifier: "log"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the configuration. path may be empty, in which case no YAML
// file is read. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(EnvPrefix + key); exists {
		return value
	}
	return fallback
}

func (c *Config) applyEnv() error {
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Scope.ColleagueVisibility = getEnv("SCOPE_COLLEAGUE_VISIBILITY", c.Scope.ColleagueVisibility)
	c.Digest.Interval = getEnv("DIGEST_INTERVAL", c.Digest.Interval)
	c.Digest.Notifier = getEnv("DIGEST_NOTIFIER", c.Digest.Notifier)
	c.Digest.LockPath = getEnv("DIGEST_LOCK_PATH", c.Digest.LockPath)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	if v := getEnv("REPORT_UTC_OFFSET_MINUTES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sREPORT_UTC_OFFSET_MINUTES %q: %w", EnvPrefix, v, err)
		}
		c.Report.UTCOffsetMinutes = n
	}
	if v := getEnv("SCOPE_EXPAND_COLLEAGUE_SUBTREES", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sSCOPE_EXPAND_COLLEAGUE_SUBTREES %q: %w", EnvPrefix, v, err)
		}
		c.Scope.ExpandColleagueSubtrees = b
	}
	return nil
}

// Validate checks values that would otherwise fail later and far from the
// setting that caused it
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Report.UTCOffsetMinutes < -14*60 || c.Report.UTCOffsetMinutes > 14*60 {
		return fmt.Errorf("report.utc_offset_minutes %d out of range", c.Report.UTCOffsetMinutes)
	}
	switch scope.ColleagueVisibility(c.Scope.ColleagueVisibility) {
	case scope.SharedTask, scope.NoColleagues:
	default:
		return fmt.Errorf("unknown scope.colleague_visibility %q", c.Scope.ColleagueVisibility)
	}
	if _, err := c.DigestInterval(); err != nil {
		return err
	}
	switch c.Digest.Notifier {
	case "log", "desktop":
	default:
		return fmt.Errorf("unknown digest.notifier %q", c.Digest.Notifier)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// Location returns the fixed report timezone
func (c *Config) Location() *time.Location {
	return deadline.FixedZone(c.Report.UTCOffsetMinutes)
}

// Policy returns the colleague visibility policy
func (c *Config) Policy() scope.Policy {
	return scope.Policy{
		Colleagues:              scope.ColleagueVisibility(c.Scope.ColleagueVisibility),
		ExpandColleagueSubtrees: c.Scope.ExpandColleagueSubtrees,
	}
}

// DigestInterval returns the digest period
func (c *Config) DigestInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Digest.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid digest.interval %q: %w", c.Digest.Interval, err)
	}
	if d < time.Minute {
		return 0, fmt.Errorf("digest.interval %s is shorter than a minute", d)
	}
	return d, nil
}

// DigestLockPath returns where the digest loop takes its lock
func (c *Config) DigestLockPath() string {
	if c.Digest.LockPath != "" {
		return c.Digest.LockPath
	}
	return c.Database.Path + ".digest.lock"
}

// NewLogger builds the process logger
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log.level %q", s)
	}
	return level, nil
}
