package sqlengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableExistsFalseThenTrueAfterCreate(t *testing.T) {
	t.Parallel()

	eng, err := Open("")
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()
	exists, err := eng.TableExists(ctx, "widgets")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, eng.RunTransactional(ctx, []Statement{
		{SQL: "CREATE TABLE widgets (id INTEGER)"},
	}))

	exists, err = eng.TableExists(ctx, "widgets")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunTransactionalSkipsFalseGuard(t *testing.T) {
	t.Parallel()

	eng, err := Open("")
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()
	require.NoError(t, eng.RunTransactional(ctx, []Statement{
		{SQL: "CREATE TABLE t (id INTEGER)"},
		{SQL: "INSERT INTO t VALUES (1)", Guard: "SELECT EXISTS(SELECT 1 WHERE 0)"},
	}))

	rows, err := eng.Query(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	require.Equal(t, 0, count)
}

func TestRunTransactionalRollsBackOnError(t *testing.T) {
	t.Parallel()

	eng, err := Open("")
	require.NoError(t, err)
	defer eng.Close()

	ctx := context.Background()
	require.NoError(t, eng.RunTransactional(ctx, []Statement{
		{SQL: "CREATE TABLE t2 (id INTEGER PRIMARY KEY)"},
		{SQL: "INSERT INTO t2 VALUES (1)"},
	}))

	err = eng.RunTransactional(ctx, []Statement{
		{SQL: "INSERT INTO t2 VALUES (2)"},
		{SQL: "INSERT INTO t2 VALUES (2)"},
	})
	require.Error(t, err)

	rows, err := eng.Query(ctx, "SELECT COUNT(*) FROM t2")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var count int
	require.NoError(t, rows.Scan(&count))
	require.Equal(t, 1, count)
}
