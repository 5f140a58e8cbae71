package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour of a DB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// timestampLayout sorts lexicographically for UTC times.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const dateLayout = "2006-01-02"

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS budget_entries (
  id          %s,
  project_id  TEXT NOT NULL,
  activity    TEXT NOT NULL,
  hours       DOUBLE PRECISION NOT NULL CHECK (hours >= 0),
  change_type TEXT NOT NULL CHECK (change_type IN ('initial','extension','correction','reduction')),
  valid_from  TEXT NOT NULL,
  reason      TEXT NOT NULL CHECK (length(trim(reason)) > 0),
  reference   TEXT,
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_budget_entries_lookup ON budget_entries(project_id, activity, valid_from);
CREATE TABLE IF NOT EXISTS forecast_overrides (
  override_key     TEXT PRIMARY KEY,
  project_id       TEXT NOT NULL,
  activity         TEXT NOT NULL DEFAULT '',
  hours_per_sprint DOUBLE PRECISION NOT NULL CHECK (hours_per_sprint >= 0),
  reason           TEXT NOT NULL DEFAULT '',
  updated_at       TEXT NOT NULL,
  updated_by       TEXT NOT NULL DEFAULT '',
  active           INTEGER NOT NULL DEFAULT 1 CHECK (active IN (0,1))
);
`

// DB is a migrated database handle shared by SQLLedger and SQLOverrideStore.
type DB struct {
	sql         *sql.DB
	dialect     Dialect
	retryConfig retry.Config
}

// OpenDB opens and migrates a database. For sqlite the dsn is a file path.
func OpenDB(ctx context.Context, driver, dsn string) (*DB, error) {
	dialect := Dialect(driver)
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectSQLite:
		db, err = sql.Open("sqlite", "file:"+dsn+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	d := &DB{sql: db, dialect: dialect, retryConfig: defaultRetry()}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := d.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

// Dialect reports the SQL flavour.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Ping checks connectivity, retrying transient failures.
func (d *DB) Ping(ctx context.Context) error {
	retryer := retry.New[struct{}](d.retryConfig)
	_, err := retryer.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.sql.PingContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if d.dialect == DialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	_, err := d.sql.ExecContext(ctx, fmt.Sprintf(schemaTemplate, idColumn))
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *DB) rebind(query string) string {
	if d.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
