// Package journal records every item a run has durably written, so a
// partially applied run can be inspected afterwards.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Supported database/sql driver names
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Entry is one applied write
type Entry struct {
	RunID     string
	Table     string
	Seq       int // 1-based position of the write within its run
	Key       string
	AppliedAt time.Time
}

// Journal stores applied writes in a SQL table
type Journal struct {
	db     *sql.DB
	driver string
}

// Open connects to the journal database and verifies the connection
func Open(driver, dsn string) (*Journal, error) {
	if err := ValidateDriver(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if driver == DriverSQLite {
		// one connection so an in-memory database is shared by every query
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	return New(db, driver), nil
}

// New wraps an existing connection
func New(db *sql.DB, driver string) *Journal {
	return &Journal{db: db, driver: driver}
}

// ValidateDriver checks that driver is one the journal has SQL for
func ValidateDriver(driver string) error {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return nil
	default:
		return fmt.Errorf("unsupported journal driver %q (use %s or %s)", driver, DriverSQLite, DriverPostgres)
	}
}

// Close closes the underlying database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Initialize ensures the applied_writes table exists
func (j *Journal) Initialize(ctx context.Context) error {
	timestampType := "TIMESTAMP"
	if j.driver == DriverPostgres {
		timestampType = "TIMESTAMPTZ"
	}

	statements := []string{
		`
CREATE TABLE IF NOT EXISTS applied_writes (
	run_id VARCHAR(64) NOT NULL,
	seq INTEGER NOT NULL,
	table_name VARCHAR(255) NOT NULL,
	item_key TEXT NOT NULL,
	applied_at ` + timestampType + ` NOT NULL,
	PRIMARY KEY (run_id, seq)
)`,
		`
CREATE INDEX IF NOT EXISTS idx_applied_writes_table
ON applied_writes(table_name, applied_at)`,
	}

	for _, stmt := range statements {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize journal table: %w", err)
		}
	}

	return nil
}

// Record stores one applied write
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.AppliedAt.IsZero() {
		e.AppliedAt = time.Now().UTC()
	}

	query := j.rebind(`
INSERT INTO applied_writes (run_id, seq, table_name, item_key, applied_at)
VALUES (?, ?, ?, ?, ?)
`)
	if _, err := j.db.ExecContext(ctx, query, e.RunID, e.Seq, e.Table, e.Key, e.AppliedAt); err != nil {
		return fmt.Errorf("failed to record applied write: %w", err)
	}
	return nil
}

// Recent returns the newest entries for a table, newest first
func (j *Journal) Recent(ctx context.Context, table string, limit int) ([]Entry, error) {
	query := j.rebind(`
SELECT run_id, seq, table_name, item_key, applied_at
FROM applied_writes
WHERE table_name = ?
ORDER BY applied_at DESC, seq DESC
LIMIT ?
`)
	rows, err := j.db.QueryContext(ctx, query, table, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Seq, &e.Table, &e.Key, &e.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal: %w", err)
	}

	return entries, nil
}

// CountForRun returns how many writes were recorded for a run
func (j *Journal) CountForRun(ctx context.Context, runID string) (int, error) {
	query := j.rebind("SELECT COUNT(*) FROM applied_writes WHERE run_id = ?")
	var count int
	if err := j.db.QueryRowContext(ctx, query, runID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}

// rebind rewrites ? placeholders into $n for PostgreSQL
func (j *Journal) rebind(query string) string {
	if j.driver != DriverPostgres {
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
