package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dori/workscope/internal/deadline"
	"github.com/dori/workscope/internal/source"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// readConns bounds the read-only pool that serves View
const readConns = 4

// DB wraps the SQL database connection. The embedded pool holds the single
// writer connection; reads go through their own read-only pool.
type DB struct {
	*sql.DB
	*Writer

	read *sql.DB
}

var _ source.Store = (*DB)(nil)

// DefaultDataDir returns the default data directory path
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".workscope"
	}
	return filepath.Join(home, ".local", "share", "workscope")
}

// DefaultDBPath returns the default database file path
func DefaultDBPath() string {
	return filepath.Join(DefaultDataDir(), "workscope.db")
}

// Open opens a database connection and runs migrations. Migration output goes
// to logger at debug level; a nil logger discards it.
func Open(dbPath string, logger *slog.Logger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// WAL lets report readers run while the seeder or another process writes
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1) // SQLite only supports one writer
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, Writer: &Writer{ex: sqlDB}}

	if err := db.migrate(logger); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// WAL readers see the last committed snapshot and never wait on each other
	readDSN := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", dbPath)
	db.read, err = sql.Open("sqlite3", readDSN)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open read pool: %w", err)
	}
	db.read.SetMaxOpenConns(readConns)
	db.read.SetMaxIdleConns(readConns)

	if err := db.read.Ping(); err != nil {
		db.read.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect read pool: %w", err)
	}

	return db, nil
}

// migrate runs database migrations using embedded SQL files
func (db *DB) migrate(logger *slog.Logger) error {
	if logger == nil {
		goose.SetLogger(log.New(io.Discard, "", 0))
	} else {
		goose.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	}
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SchemaVersion returns the applied migration version
func (db *DB) SchemaVersion() (int64, error) {
	return goose.GetDBVersion(db.DB)
}

// Close closes both connection pools
func (db *DB) Close() error {
	readErr := db.read.Close()
	if err := db.DB.Close(); err != nil {
		return err
	}
	return readErr
}

// Transaction runs fn with a Writer bound to one transaction. Any error rolls
// every write back.
func (db *DB) Transaction(fn func(*Writer) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}

	if err := fn(&Writer{ex: tx}); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// Writer holds the mutating statements, run either straight on the writer
// connection or inside a Transaction
type Writer struct {
	ex execer
}

// View runs fn against a read-only snapshot. The transaction is rolled back
// when fn returns, on success and failure alike.
func (db *DB) View(ctx context.Context, fn func(source.Source) error) error {
	tx, err := db.read.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read: %w", err)
	}
	defer tx.Rollback()

	return fn(&reader{tx: tx})
}

// formatTime renders a timestamp the way the schema stores it
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// parseTime reads a stored timestamp. Rows written by other tools sometimes
// carry bare dates, which are taken as UTC midnight.
func parseTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return deadline.Parse(*s, time.UTC)
}
