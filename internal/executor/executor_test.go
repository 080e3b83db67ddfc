package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sqlflow/sqlflow/internal/connector"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/sqlengine"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *sqlengine.Engine {
	t.Helper()
	eng, err := sqlengine.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestExecuteSourceDefinitionAndLoad(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "id,name\n1,alice\n2,bob\n")
	eng := newTestEngine(t)
	reg := connector.Default()
	ex := New(eng, reg, nil)
	ctx := context.Background()

	sourceOp := &model.Operation{
		ID:                  "source_customers",
		Type:                model.OpSourceDefinition,
		Name:                "customers",
		SourceConnectorType: "CSV",
		Query:               map[string]any{"path": path},
	}
	res := ex.Execute(ctx, sourceOp)
	require.True(t, res.Succeeded(), res.ErrorMessage)

	loadOp := &model.Operation{
		ID:          "load_raw_customers",
		Type:        model.OpLoad,
		TargetTable: "raw_customers",
		Query:       map[string]any{"source_name": "customers"},
	}
	res = ex.Execute(ctx, loadOp)
	require.True(t, res.Succeeded(), res.ErrorMessage)

	rows, err := eng.Query(ctx, "SELECT COUNT(*) FROM raw_customers")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	require.Equal(t, 2, count)
}

func TestExecuteTransformReplaceMode(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.RunTransactional(ctx, []sqlengine.Statement{
		{SQL: "CREATE TABLE raw (id INTEGER)"},
		{SQL: "INSERT INTO raw VALUES (1), (2), (3)"},
	}))

	ex := New(eng, connector.Default(), nil)
	op := &model.Operation{
		ID:          "transform_clean",
		Type:        model.OpTransform,
		TargetTable: "clean",
		Mode:        model.ModeReplace,
		Query:       "SELECT COUNT(*) AS c FROM raw",
	}
	res := ex.Execute(ctx, op)
	require.True(t, res.Succeeded(), res.ErrorMessage)

	rows, err := eng.Query(ctx, "SELECT c FROM clean")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var c int
	require.NoError(t, rows.Scan(&c))
	require.Equal(t, 3, c)
}

func TestExecuteTransformAppendCreatesTableOnFirstRun(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.RunTransactional(ctx, []sqlengine.Statement{
		{SQL: "CREATE TABLE staging (id INTEGER)"},
		{SQL: "INSERT INTO staging VALUES (1)"},
	}))

	ex := New(eng, connector.Default(), nil)
	op := &model.Operation{
		ID:          "transform_events",
		Type:        model.OpTransform,
		TargetTable: "events",
		Mode:        model.ModeAppend,
		Query:       "SELECT id FROM staging",
	}
	res := ex.Execute(ctx, op)
	require.True(t, res.Succeeded(), res.ErrorMessage)

	exists, err := eng.TableExists(ctx, "events")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestExecuteExportWritesCSV(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, eng.RunTransactional(ctx, []sqlengine.Statement{
		{SQL: "CREATE TABLE clean (id INTEGER, name TEXT)"},
		{SQL: "INSERT INTO clean VALUES (1, 'alice')"},
	}))

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.csv")

	ex := New(eng, connector.Default(), nil)
	op := &model.Operation{
		ID:                  "export_clean",
		Type:                model.OpExport,
		SourceConnectorType: "CSV",
		DestinationURI:      outPath,
		ConnectorOptions:    map[string]any{"header": true},
		Query:               "SELECT * FROM clean",
	}
	res := ex.Execute(ctx, op)
	require.True(t, res.Succeeded(), res.ErrorMessage)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "alice")
}

func TestExecuteUnknownSourceConnectorFails(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t)
	ex := New(eng, connector.Default(), nil)
	op := &model.Operation{
		ID:                  "source_bad",
		Type:                model.OpSourceDefinition,
		Name:                "bad",
		SourceConnectorType: "S3",
		Query:               map[string]any{},
	}
	res := ex.Execute(context.Background(), op)
	require.False(t, res.Succeeded())
	require.NotEmpty(t, res.ErrorMessage)
}
