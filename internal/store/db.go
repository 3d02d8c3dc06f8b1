package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported relational drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps sqlx.DB for Postgres (pgx) or SQLite.
type DB struct {
	Client *sqlx.DB
	Driver string
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sqlx.Open(DriverPostgres, connString)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	d := &DB{Client: db, Driver: DriverPostgres}
	return d, errors.Wrap(db.PingContext(ctx), "ping postgres")
}

// NewSQLite opens (and creates) an SQLite database file. ":memory:" is accepted for tests.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create sqlite dir")
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)
	d := &DB{Client: db, Driver: DriverSQLite}
	return d, errors.Wrap(db.PingContext(ctx), "ping sqlite")
}

// Migrate creates the tables used by the SQL repositories.
func (d *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if d.Driver == DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate %q", firstLine(stmt))
		}
	}
	return nil
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_items (
		id             TEXT PRIMARY KEY,
		subject_id     TEXT NOT NULL,
		instructor_id  TEXT NOT NULL,
		session_type   TEXT NOT NULL,
		day            TEXT NOT NULL,
		start_time     TEXT NOT NULL,
		end_time       TEXT NOT NULL,
		room           TEXT NOT NULL DEFAULT '',
		section_number INTEGER,
		position       BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id           TEXT PRIMARY KEY,
		student_id   TEXT NOT NULL,
		schedule_id  TEXT NOT NULL,
		occurred_at  TIMESTAMPTZ NOT NULL,
		status       TEXT NOT NULL,
		verification TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id, schedule_id, occurred_at)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_items (
		id             TEXT PRIMARY KEY,
		subject_id     TEXT NOT NULL,
		instructor_id  TEXT NOT NULL,
		session_type   TEXT NOT NULL,
		day            TEXT NOT NULL,
		start_time     TEXT NOT NULL,
		end_time       TEXT NOT NULL,
		room           TEXT NOT NULL DEFAULT '',
		section_number INTEGER,
		position       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id           TEXT PRIMARY KEY,
		student_id   TEXT NOT NULL,
		schedule_id  TEXT NOT NULL,
		occurred_at  DATETIME NOT NULL,
		status       TEXT NOT NULL,
		verification TEXT NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance_records(student_id, schedule_id, occurred_at)`,
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
