package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sqlflow/sqlflow/internal/dag"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/sqlengine"
	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
	"github.com/stretchr/testify/require"
)

// TestReplaceRedefinesTable exercises S2: a second CREATE OR REPLACE TABLE
// overwrites an earlier definition and downstream transforms see the new
// shape.
func TestReplaceRedefinesTable(t *testing.T) {
	t.Parallel()

	const pipeline = `
SOURCE src TYPE CSV PARAMS {"path":"testdata/customers.csv","has_header":true};
LOAD t FROM src;
CREATE TABLE s AS SELECT count(*) c FROM t;
CREATE OR REPLACE TABLE s AS SELECT count(*) c, 'v2' v FROM t;
CREATE TABLE dep AS SELECT v FROM s;
`
	s := New(nil)
	plan, err := s.Compile("s2", pipeline, nil, nil, nil)
	require.NoError(t, err)

	var second *model.Operation
	for _, op := range plan.Operations {
		if op.TargetTable == "s" && op.IsReplace {
			second = op
		}
	}
	require.NotNil(t, second, "expected the CREATE OR REPLACE operation for table s")

	dep := plan.ByID("transform_dep")
	require.NotNil(t, dep)
	require.Contains(t, dep.DependsOn, second.ID)

	result, err := s.Run(context.Background(), RunOptions{PipelineName: "s2", Source: pipeline})
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Results["transform_dep"].Status)
}

// TestVariablePriorityCLIWinsOverProfileAndSet exercises S3: CLI variables
// take precedence over profile variables, which take precedence over a
// pipeline-local SET.
func TestVariablePriorityCLIWinsOverProfileAndSet(t *testing.T) {
	t.Parallel()

	const pipeline = `
SET env = 'set_env';
CREATE TABLE r AS SELECT '${env}' AS e;
`
	s := New(nil)
	plan, err := s.Compile("s3", pipeline, map[string]any{"env": "cli_env"}, map[string]any{"env": "profile_env"}, nil)
	require.NoError(t, err)

	op := plan.ByID("transform_r")
	require.NotNil(t, op)
	query, ok := op.Query.(string)
	require.True(t, ok)
	require.Contains(t, query, "cli_env")
	require.NotContains(t, query, "set_env")
	require.NotContains(t, query, "profile_env")
}

// TestConditionalBranchIncludesExpectedLoads exercises S4: when the condition
// is false, the else branch's steps are the only conditional steps present in
// the plan, next to the two unconditional SOURCE steps.
func TestConditionalBranchIncludesExpectedLoads(t *testing.T) {
	t.Parallel()

	const pipeline = `
SOURCE cs TYPE CSV PARAMS {"path":"testdata/customers.csv"};
SOURCE ss TYPE CSV PARAMS {"path":"testdata/customers.csv"};
IF ${env} == 'production' THEN
  LOAD customers FROM cs;
ELSE
  LOAD customers_raw FROM cs;
  LOAD sales_raw FROM ss;
  CREATE TABLE sales AS SELECT * FROM sales_raw LIMIT 10;
END IF;
`
	s := New(nil)
	plan, err := s.Compile("s4", pipeline, map[string]any{"env": "dev"}, nil, nil)
	require.NoError(t, err)

	var ids []string
	for _, op := range plan.Operations {
		ids = append(ids, op.ID)
	}
	require.Equal(t, []string{"source_cs", "source_ss", "load_customers_raw", "load_sales_raw", "transform_sales"}, ids)

	sales := plan.ByID("transform_sales")
	require.NotNil(t, sales)
	require.Contains(t, sales.DependsOn, "load_sales_raw")
}

// TestUpsertTwiceLeavesOneRowPerKey exercises S5: running an UPSERT load
// twice against the same source leaves exactly one row per (id, email).
func TestUpsertTwiceLeavesOneRowPerKey(t *testing.T) {
	t.Parallel()

	const pipeline = `
SOURCE src TYPE CSV PARAMS {"path":"testdata/users.csv","has_header":true};
LOAD users FROM src MODE UPSERT KEY (id, email);
`
	s := New(nil)
	plan, err := s.Compile("s5", pipeline, nil, nil, nil)
	require.NoError(t, err)

	load := plan.ByID("load_users")
	require.NotNil(t, load)
	require.Equal(t, model.ModeUpsert, load.Mode)
	require.Equal(t, []string{"id", "email"}, load.MergeKeys)

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "analytic.db")
	opts := RunOptions{PipelineName: "s5", Source: pipeline, AnalyticDBPath: dbPath}

	first, err := s.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, first.Results["load_users"].Status)

	second, err := s.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, second.Results["load_users"].Status)

	rowCount, emails := queryUsersTable(t, dbPath)
	require.Equal(t, 2, rowCount)
	require.ElementsMatch(t, []string{"alice@example.com", "bob@example.com"}, emails)
}

func queryUsersTable(t *testing.T, dbPath string) (int, []string) {
	t.Helper()
	eng, err := sqlengine.Open(dbPath)
	require.NoError(t, err)
	defer eng.Close()

	rows, err := eng.Query(context.Background(), "SELECT email FROM users ORDER BY email")
	require.NoError(t, err)
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		require.NoError(t, rows.Scan(&email))
		emails = append(emails, email)
	}
	require.NoError(t, rows.Err())
	return len(emails), emails
}

// TestCircularDependencyDetected exercises S6: a dependency graph where
// a.depends_on=[b] and b.depends_on=[a] surfaces a DependencyError with the
// cycle path, and no execution is attempted. The planner itself can only
// produce forward references (a table must already be produced to be
// referenced), so this drives the graph builder directly with the
// already-planned depends_on shape the planner would have to emit for a
// pipeline whose two CREATE TABLEs reference each other.
func TestCircularDependencyDetected(t *testing.T) {
	t.Parallel()

	_, err := dag.Build(map[string][]string{
		"transform_a": {"transform_b"},
		"transform_b": {"transform_a"},
	})
	require.Error(t, err)

	var depErr *sqlflowerrors.DependencyError
	require.ErrorAs(t, err, &depErr)
	require.NotEmpty(t, depErr.Cycles)
}
