// Package store opens the pose SQLite database and owns its schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// Config holds pool and pragma settings.
type Config struct {
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// DefaultConfig mirrors the historical pool sizing of eight connections.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns: 8,
		BusyTimeout:  5 * time.Second,
	}
}

// BenchmarkTable receives the rows written by the database benchmark.
const BenchmarkTable = "benchmark_rows"

const schema = `
create table if not exists accessTokens (
	key text primary key not null,
	userId integer not null
);
create table if not exists users (
	id integer primary key not null
);
create table if not exists benchmark_rows (
	id integer primary key autoincrement,
	key text not null,
	userId integer not null
);
`

// DB wraps the pooled handle. It is safe for concurrent use.
type DB struct {
	*sql.DB
	Path string
}

// NormalizePath strips the sqlite:// scheme accepted for compatibility with
// older invocations.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "sqlite://")
	return path
}

// Open connects, verifies, and migrates the database at path.
func Open(ctx context.Context, path string, cfg Config) (*DB, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = DefaultConfig().MaxOpenConns
	}

	db, err := sql.Open("sqlite", buildDSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: bootstrap schema: %w", err)
	}

	return &DB{DB: db, Path: path}, nil
}

// buildDSN percent-escapes path so '?', '#' and '%' in file names are not
// read as URI syntax.
func buildDSN(path string, busyTimeout time.Duration) string {
	escaped := (&url.URL{Path: path}).EscapedPath()
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		escaped, busyTimeout.Milliseconds())
}

// CountRows returns the number of rows in table. table must be a trusted
// identifier.
func (d *DB) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := d.QueryRowContext(ctx, "select count(*) from "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
