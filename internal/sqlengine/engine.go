// Package sqlengine wraps the embedded analytic SQL engine SQLFlow plans and
// executors run against. It is grounded on the single-writer-mutex sqlite
// wrapper pattern used for an embedded knowledge store in the example pack
// (mattn/go-sqlite3 opened with WAL, one mutex serializing writes).
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
)

// memSeq numbers in-memory databases so each Open("") gets its own.
var memSeq atomic.Int64

// Engine is a single-process, single-writer handle onto the embedded
// analytic SQL database SQLFlow materializes tables into (spec §5: "the
// analytic engine is guarded by a single-writer mutex").
type Engine struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the analytic database at path. An empty path opens
// a fresh in-memory database of its own, used by tests and by `sqlflow run`
// when no database path is given.
func Open(path string) (*Engine, error) {
	dsn := path
	if dsn == "" {
		dsn = fmt.Sprintf("file:sqlflow-mem-%d?mode=memory&cache=shared", memSeq.Add(1))
	} else {
		dsn = dsn + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlengine: open: %w", err)
	}
	if path == "" {
		db.SetMaxOpenConns(1)
	}
	return &Engine{db: db}, nil
}

// Close closes the underlying database handle.
func (e *Engine) Close() error {
	return e.db.Close()
}

// TableExists reports whether name is a known table in the analytic
// database, used by APPEND/UPSERT/MERGE/INCREMENTAL to decide whether the
// first write must create the table or write into an existing one.
func (e *Engine) TableExists(ctx context.Context, name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var count int
	err := e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlengine: table_exists(%s): %w", name, err)
	}
	return count > 0, nil
}

// GuardTrue evaluates a "SELECT EXISTS(...)" guard statement and reports its
// boolean result, used by UPSERT/MERGE to no-op on an empty source set.
func (e *Engine) GuardTrue(ctx context.Context, guardSQL string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var exists bool
	if err := e.db.QueryRowContext(ctx, guardSQL).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlengine: guard: %w", err)
	}
	return exists, nil
}

// Query runs a read-only SELECT and returns the rows for the caller to
// iterate and close.
func (e *Engine) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.db.QueryContext(ctx, query, args...)
}

// RunTransactional runs stmts (a sequence of SQL statements, each with an
// optional guard) inside one transaction, serialized by the engine's
// single-writer mutex. A statement whose Guard evaluates false is skipped
// without aborting the transaction.
func (e *Engine) RunTransactional(ctx context.Context, stmts []Statement) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlengine: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, stmt := range stmts {
		if stmt.Guard != "" {
			var ok bool
			if err := tx.QueryRowContext(ctx, stmt.Guard).Scan(&ok); err != nil {
				return fmt.Errorf("sqlengine: guard %q: %w", stmt.Guard, err)
			}
			if !ok {
				continue
			}
		}
		const createOrReplace = "CREATE OR REPLACE TABLE "
		if n := len(createOrReplace); len(stmt.SQL) > n && strings.EqualFold(stmt.SQL[:n], createOrReplace) {
			// SQLite has no CREATE OR REPLACE TABLE: build the new table under a
			// scratch name, then drop the old one and rename, in this transaction.
			name, body, _ := strings.Cut(strings.TrimSpace(stmt.SQL[n:]), " ")
			tmp := name + "__replace"
			for _, q := range []string{"CREATE TABLE " + tmp + " " + body, "DROP TABLE IF EXISTS " + name, "ALTER TABLE " + tmp + " RENAME TO " + name} {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					return fmt.Errorf("sqlengine: exec %q: %w", q, err)
				}
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("sqlengine: exec %q: %w", stmt.SQL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlengine: commit: %w", err)
	}
	committed = true
	return nil
}

// Statement mirrors materialize.Statement without importing that package,
// keeping sqlengine free of a dependency on the planner/materialize layer.
type Statement struct {
	SQL   string
	Guard string
}
