package app

import (
	"fmt"
	"log/slog"

	"github.com/dori/workscope/internal/config"
	"github.com/dori/workscope/internal/db"
	"github.com/dori/workscope/internal/digest"
	"github.com/dori/workscope/internal/notify"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/scope"
)

// App holds the application state and dependencies
type App struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Notifier notify.Sender
	Resolver *scope.Resolver
	Reports  *report.Service
	Digest   *digest.Runner
}

// New opens the database and wires every service on top of it
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}

	database, err := db.Open(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return wire(cfg, database, logger), nil
}

func wire(cfg *config.Config, database *db.DB, logger *slog.Logger) *App {
	loc := cfg.Location()
	resolver := scope.NewResolver(cfg.Policy(), logger)
	notifier := notify.New(cfg.Digest.Notifier, logger)

	return &App{
		Config:   cfg,
		DB:       database,
		Logger:   logger,
		Notifier: notifier,
		Resolver: resolver,
		Reports: report.NewService(database, resolver, report.Options{
			Location: loc,
			Logger:   logger,
		}),
		Digest: digest.NewRunner(database, resolver, notifier, digest.Options{
			Location: loc,
			Logger:   logger,
			LockPath: cfg.DigestLockPath(),
		}),
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
