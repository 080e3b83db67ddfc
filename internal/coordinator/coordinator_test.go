package coordinator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	failIDs map[string]bool
}

func newFakeRunner(failIDs ...string) *fakeRunner {
	set := make(map[string]bool, len(failIDs))
	for _, id := range failIDs {
		set[id] = true
	}
	return &fakeRunner{failIDs: set}
}

func (f *fakeRunner) Execute(_ context.Context, op *model.Operation) model.StepResult {
	f.mu.Lock()
	f.calls = append(f.calls, op.ID)
	f.mu.Unlock()

	if f.failIDs[op.ID] {
		return model.StepResult{StepID: op.ID, Status: model.StatusError, ErrorMessage: "boom"}
	}
	return model.StepResult{StepID: op.ID, Status: model.StatusSuccess}
}

func plan(ops ...*model.Operation) *model.Plan {
	return &model.Plan{PipelineName: "p", Operations: ops}
}

func TestRunExecutesAllStepsInDependencyOrder(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	c := New(runner, StrategyCompatibility)

	p := plan(
		&model.Operation{ID: "a"},
		&model.Operation{ID: "b", DependsOn: []string{"a"}},
		&model.Operation{ID: "c", DependsOn: []string{"b"}},
	)

	results, err := c.Run(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, model.StatusSuccess, results["a"].Status)
	require.Equal(t, model.StatusSuccess, results["b"].Status)
	require.Equal(t, model.StatusSuccess, results["c"].Status)
	require.Equal(t, []string{"a", "b", "c"}, runner.calls)
}

func TestRunCascadeSkipsDependentsOnFailure(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner("b")
	c := New(runner, StrategyCompatibility)

	p := plan(
		&model.Operation{ID: "a"},
		&model.Operation{ID: "b", DependsOn: []string{"a"}},
		&model.Operation{ID: "c", DependsOn: []string{"b"}},
		&model.Operation{ID: "d", DependsOn: []string{"a"}},
	)

	results, err := c.Run(context.Background(), p)
	require.Error(t, err)
	require.Equal(t, model.StatusSuccess, results["a"].Status)
	require.Equal(t, model.StatusError, results["b"].Status)
	require.Equal(t, model.StatusSkipped, results["c"].Status)
	// d is a's other dependent, in the same level as the failing step b
	// (not one of its transitive dependents), so it still runs to
	// completion per the per-level fail-fast rule.
	require.Equal(t, model.StatusSuccess, results["d"].Status)
}

func TestRunIndependentBranchesBothExecute(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	c := New(runner, StrategySpeedOptimized)

	var ops []*model.Operation
	ops = append(ops, &model.Operation{ID: "root"})
	for i := 0; i < 5; i++ {
		ops = append(ops, &model.Operation{ID: fmt.Sprintf("leaf_%d", i), DependsOn: []string{"root"}})
	}

	results, err := c.Run(context.Background(), plan(ops...))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.Equal(t, model.StatusSuccess, results[fmt.Sprintf("leaf_%d", i)].Status)
	}
}
