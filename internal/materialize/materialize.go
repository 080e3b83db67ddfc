// Package materialize implements the Materialization Engine (spec §4.4):
// given a mode, a target table, and a SELECT body, it produces the
// side-effecting SQL statements to run against the analytic engine inside
// one transaction.
package materialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sqlflow/sqlflow/internal/model"
)

// Statement is one SQL statement to execute as part of materializing an
// operation; Guard, when non-empty, is a SELECT EXISTS(...) check that must
// return true for the statement to run (used by UPSERT/MERGE to
// no-op on an empty source set, per SPEC_FULL.md §12).
type Statement struct {
	SQL   string
	Guard string
}

// Plan describes the statements (in order) a Writer must execute inside a
// single transaction to realize one transform or load operation.
type Plan struct {
	TableExistsCheck string
	Statements       []Statement
}

// Build translates (mode, table, select) into a Plan, per the table in
// spec §4.4.
func Build(mode model.Mode, table, selectBody string, mergeKeys []string, timeColumn, lookback string) (*Plan, error) {
	switch mode {
	case model.ModeNone, model.ModeReplace:
		return &Plan{Statements: []Statement{
			{SQL: fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", table, selectBody)},
		}}, nil

	case model.ModeAppend:
		return &Plan{
			TableExistsCheck: table,
			Statements: []Statement{
				{SQL: fmt.Sprintf("INSERT INTO %s %s", table, selectBody)},
			},
		}, nil

	case model.ModeUpsert, model.ModeMerge:
		if len(mergeKeys) == 0 {
			return nil, fmt.Errorf("materialize: %s mode requires keys", mode)
		}
		matchClause := keyMatchClause(table, "s", mergeKeys)
		guard := fmt.Sprintf("SELECT EXISTS(%s)", selectBody)
		deleteSQL := fmt.Sprintf(
			"DELETE FROM %s WHERE EXISTS (SELECT 1 FROM (%s) s WHERE %s)",
			table, selectBody, matchClause,
		)
		return &Plan{
			TableExistsCheck: table,
			Statements: []Statement{
				{SQL: deleteSQL, Guard: guard},
				{SQL: fmt.Sprintf("INSERT INTO %s %s", table, selectBody), Guard: guard},
			},
		}, nil

	case model.ModeIncremental:
		if timeColumn == "" {
			return nil, fmt.Errorf("materialize: INCREMENTAL mode requires a time column")
		}
		highWaterMark := fmt.Sprintf("(SELECT COALESCE(MAX(%s), '1970-01-01') FROM %s)", timeColumn, table)
		windowPredicate := fmt.Sprintf("%s >= %s", timeColumn, highWaterMark)
		if lookback != "" {
			modifier, err := lookbackModifier(lookback)
			if err != nil {
				return nil, err
			}
			windowPredicate = fmt.Sprintf("%s >= datetime(%s, '%s')", timeColumn, highWaterMark, modifier)
		}
		return &Plan{
			TableExistsCheck: table,
			Statements: []Statement{
				{SQL: fmt.Sprintf("DELETE FROM %s WHERE %s", table, windowPredicate)},
				{SQL: fmt.Sprintf("INSERT INTO %s %s", table, selectBody)},
			},
		}, nil

	default:
		return nil, fmt.Errorf("materialize: unknown mode %q", mode)
	}
}

// lookbackModifier turns a LOOKBACK duration like "7d" or "2h" into a
// SQLite datetime() modifier ("-7 days", "-2 hours"). The analytic engine
// (internal/sqlengine, mattn/go-sqlite3) has no INTERVAL literal, so the
// window bound is computed with SQLite's own date/time modifiers instead.
func lookbackModifier(lookback string) (string, error) {
	if len(lookback) < 2 {
		return "", fmt.Errorf("materialize: invalid LOOKBACK %q", lookback)
	}
	unit := lookback[len(lookback)-1]
	qty, err := strconv.Atoi(lookback[:len(lookback)-1])
	if err != nil {
		return "", fmt.Errorf("materialize: invalid LOOKBACK %q: %w", lookback, err)
	}
	var word string
	switch unit {
	case 'd':
		word = "days"
	case 'h':
		word = "hours"
	case 'm':
		word = "minutes"
	case 's':
		word = "seconds"
	default:
		return "", fmt.Errorf("materialize: invalid LOOKBACK unit in %q", lookback)
	}
	return fmt.Sprintf("-%d %s", qty, word), nil
}

// keyMatchClause builds "target.k1 = s.k1 AND target.k2 = s.k2 ..." for the
// correlated DELETE ... WHERE EXISTS predicate (no USING clause, so the
// statement runs unmodified against SQLite as well as Postgres).
func keyMatchClause(targetAlias, sourceAlias string, keys []string) string {
	clauses := make([]string, len(keys))
	for i, k := range keys {
		clauses[i] = fmt.Sprintf("%s.%s = %s.%s", targetAlias, k, sourceAlias, k)
	}
	return strings.Join(clauses, " AND ")
}
