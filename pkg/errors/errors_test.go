package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineNotFoundErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewPipelineNotFoundError("orders", []string{"pipelines/", "."}, []string{"order.sqlflow"})

	var notFound *PipelineNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Contains(t, err.Error(), `"orders"`)
	require.Contains(t, err.Error(), "pipelines/")
	require.Contains(t, err.Error(), "order.sqlflow")
}

func TestValidationErrorAccumulatesDetail(t *testing.T) {
	t.Parallel()

	err := NewValidationError("planning failed").
		WithMissingVariables("env", "region").
		WithMissingTables("raw_orders").
		WithContext(ContextLocation{StepID: "transform_sales", Field: "sql_query", Line: 4})

	require.True(t, err.HasIssues())
	require.Contains(t, err.Error(), "missing variables: env, region")
	require.Contains(t, err.Error(), "missing tables: raw_orders")
	require.Len(t, err.ContextLocations, 1)
}

func TestDependencyErrorReportsCycle(t *testing.T) {
	t.Parallel()

	err := NewDependencyError().WithCycle([]string{"a", "b", "a"})
	require.Contains(t, err.Error(), "cycle: a -> b -> a")
}

func TestExecutionErrorUnwrap(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("connection refused")
	err := NewExecutionError("load_raw_orders", "connector read", underlying)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "load_raw_orders", execErr.StepID)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestConnectorErrorWrapsExecutionError(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("timeout")
	err := NewConnectorError("export_clean", "csv", true, underlying)

	var connErr *ConnectorError
	require.ErrorAs(t, err, &connErr)
	require.True(t, connErr.Retryable)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "retryable=true")
}

func TestStepBuildErrorAggregatesFailures(t *testing.T) {
	t.Parallel()

	err := NewStepBuildError().WithFailure("load_x", "unknown source").WithFailure("transform_y", "empty select")
	require.True(t, err.HasFailures())
	require.Contains(t, err.Error(), "load_x: unknown source")
}
