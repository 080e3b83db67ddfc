package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqlflow/sqlflow/internal/connector"
	"github.com/sqlflow/sqlflow/internal/sqlengine"
)

// rowsToStatements turns one chunk of connector rows into the DDL/DML the
// analytic engine needs to land them: a CREATE TABLE IF NOT EXISTS on the
// first chunk of a load (inferring a TEXT column per source field, since
// CSV and query sources carry no schema SQLFlow can trust further), then
// one INSERT per chunk.
func rowsToStatements(table string, chunk []connector.Row, firstChunk bool) []sqlengine.Statement {
	var stmts []sqlengine.Statement
	if len(chunk) == 0 {
		return stmts
	}

	columns := sortedColumns(chunk[0])

	if firstChunk {
		cols := make([]string, len(columns))
		for i, c := range columns {
			cols[i] = fmt.Sprintf("%s TEXT", c)
		}
		stmts = append(stmts, sqlengine.Statement{
			SQL: fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", ")),
		})
	}

	var values []string
	for _, row := range chunk {
		literals := make([]string, len(columns))
		for i, c := range columns {
			literals[i] = sqlLiteral(row[c])
		}
		values = append(values, "("+strings.Join(literals, ", ")+")")
	}
	stmts = append(stmts, sqlengine.Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(columns, ", "), strings.Join(values, ", ")),
	})
	return stmts
}

func sortedColumns(row connector.Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func sqlLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
