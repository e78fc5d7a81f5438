// Package postgreskv stores project records in a PostgreSQL table.
//
// The table is created on Open if it does not exist:
//
//	CREATE TABLE flowkeeper_kv (
//	    key        TEXT PRIMARY KEY,
//	    value      BYTEA NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	)
package postgreskv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"time"

	"github.com/lib/pq"

	"github.com/matzehuels/flowkeeper/pkg/kv"
)

// DefaultTable is the table used when Config.Table is empty.
const DefaultTable = "flowkeeper_kv"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures the PostgreSQL connection.
type Config struct {
	// DSN is a lib/pq connection string. When empty it is assembled from
	// the standard PGHOST, PGPORT, PGUSER, PGPASSWORD and PGDATABASE
	// environment variables.
	DSN   string
	Table string
}

// DSNFromEnv builds a connection string from the PG* environment variables.
func DSNFromEnv() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=disable",
		getEnv("PGHOST", "127.0.0.1"),
		getEnv("PGPORT", "5432"),
		getEnv("PGUSER", "flowkeeper"),
		getEnv("PGDATABASE", "flowkeeper"),
	)
	if pw := os.Getenv("PGPASSWORD"); pw != "" {
		dsn += " password=" + pw
	}
	return dsn
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Store implements kv.Store on a single table.
type Store struct {
	db    *sql.DB
	table string
}

var _ kv.Store = (*Store)(nil)

// Open connects, pings and ensures the table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		cfg.DSN = DSNFromEnv()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", errors.Join(kv.ErrUnavailable, err))
	}

	s := &Store{db: db, table: cfg.Table}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s table: %w", cfg.Table, err)
	}
	return s, nil
}

func (s *Store) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, pq.QuoteIdentifier(s.table)))
	return err
}

// Get implements kv.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, pq.QuoteIdentifier(s.table)), key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrap("get", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store as an upsert.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		pq.QuoteIdentifier(s.table)), key, value, time.Now().UTC())
	return wrap("set", key, err)
}

// Delete implements kv.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, pq.QuoteIdentifier(s.table)), key)
	return wrap("delete", key, err)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Postgres error classes worth retrying: connection exceptions, serialization
// failures and deadlocks, and operator intervention (e.g. admin shutdown).
var retryClasses = map[pq.ErrorClass]bool{
	"08": true,
	"40": true,
	"57": true,
}

func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) {
		return kv.ErrClosed
	}
	// database/sql does not export its closed-pool error.
	if err.Error() == "sql: database is closed" {
		return kv.ErrClosed
	}
	wrapped := fmt.Errorf("postgres %s %s: %w", op, key, err)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && retryClasses[pqErr.Code.Class()] {
		return kv.Retryable(wrapped)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return kv.Retryable(wrapped)
	}
	return wrapped
}
