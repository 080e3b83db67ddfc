package service

import (
	"context"
	"testing"

	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/stretchr/testify/require"
)

const samplePipeline = `
SOURCE customers TYPE CSV PARAMS {"path":"testdata/customers.csv","has_header":true};
LOAD raw_customers FROM customers;
CREATE TABLE clean AS SELECT id, name FROM raw_customers;
`

func TestCompileProducesOrderedPlan(t *testing.T) {
	t.Parallel()

	s := New(nil)
	plan, err := s.Compile("s1", samplePipeline, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.Operations, 3)
	require.Equal(t, "source_customers", plan.Operations[0].ID)
}

func TestValidateBuildsDependencyGraph(t *testing.T) {
	t.Parallel()

	s := New(nil)
	result, err := s.Validate("s1", samplePipeline, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result.Graph)
	require.Len(t, result.Graph.Levels, 3)
}

func TestValidateDetectsMissingVariable(t *testing.T) {
	t.Parallel()

	s := New(nil)
	_, err := s.Validate("bad", `CREATE TABLE r AS SELECT '${missing}' AS e;`, nil, nil, nil)
	require.Error(t, err)
}

func TestRunExecutesPlanEndToEnd(t *testing.T) {
	t.Parallel()

	s := New(nil)
	result, err := s.Run(context.Background(), RunOptions{
		PipelineName: "s1",
		Source:       samplePipeline,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, result.Results["source_customers"].Status)
}
