// Package coordinator implements the Execution Coordinator (spec §4.6):
// level-by-level barrier scheduling over the dependency graph, with
// strategy-selected concurrency, fail-fast-per-level semantics, and
// cooperative cancellation.
//
// Grounded in the teacher's level-by-level executor, reconstructed here
// in the same shape: one goroutine per ready step inside a level, a
// WaitGroup barrier between levels, and a sync.Once-guarded first error.
package coordinator

import (
	"context"
	"sync"

	"github.com/sqlflow/sqlflow/internal/dag"
	"github.com/sqlflow/sqlflow/internal/model"
)

// StepRunner executes one operation and returns its result; Executor
// satisfies this.
type StepRunner interface {
	Execute(ctx context.Context, op *model.Operation) model.StepResult
}

// Coordinator runs a plan's operations across the levels of its dependency
// graph.
type Coordinator struct {
	runner   StepRunner
	strategy Strategy
}

// New returns a Coordinator that executes steps via runner under strategy.
func New(runner StepRunner, strategy Strategy) *Coordinator {
	return &Coordinator{runner: runner, strategy: strategy}
}

// Run executes every operation in plan, level by level, and returns one
// StepResult per operation (including StatusSkipped for operations whose
// dependency failed). ctx cancellation is cooperative: in-flight steps are
// allowed to finish their current unit of work, but no new level starts.
func (c *Coordinator) Run(ctx context.Context, plan *model.Plan) (map[string]model.StepResult, error) {
	byID := make(map[string]*model.Operation, len(plan.Operations))
	dependsOn := make(map[string][]string, len(plan.Operations))
	for _, op := range plan.Operations {
		byID[op.ID] = op
		dependsOn[op.ID] = op.DependsOn
	}

	graph, err := dag.Build(dependsOn)
	if err != nil {
		return nil, err
	}

	widest := 0
	for _, level := range graph.Levels {
		if len(level) > widest {
			widest = len(level)
		}
	}
	params := Resolve(c.strategy, widest)

	results := make(map[string]model.StepResult, len(byID))
	var resultsMu sync.Mutex
	skipped := make(map[string]bool)

	sem := make(chan struct{}, maxInt(params.MaxConcurrency, 1))

	for _, level := range graph.Levels {
		if ctx.Err() != nil {
			markRemainingSkipped(graph, level, results, &resultsMu, skipped)
			continue
		}

		var wg sync.WaitGroup
		var firstErr error
		var firstErrOnce sync.Once

		for _, id := range level {
			if skipped[id] {
				resultsMu.Lock()
				results[id] = model.StepResult{StepID: id, Status: model.StatusSkipped, Message: "dependency failed"}
				resultsMu.Unlock()
				continue
			}

			op := byID[id]
			wg.Add(1)
			sem <- struct{}{}
			go func(op *model.Operation) {
				defer wg.Done()
				defer func() { <-sem }()

				res := c.runner.Execute(ctx, op)

				resultsMu.Lock()
				results[op.ID] = res
				resultsMu.Unlock()

				if res.Status == model.StatusError {
					firstErrOnce.Do(func() {
						firstErr = &StepFailure{StepID: op.ID, Message: res.ErrorMessage}
					})
					for _, dependent := range graph.ReverseDependencies(op.ID) {
						resultsMu.Lock()
						skipped[dependent] = true
						resultsMu.Unlock()
					}
				}
			}(op)
		}

		wg.Wait()

		if firstErr != nil {
			// Fail-fast-per-level: this level's siblings all finished, but
			// later levels are skipped entirely, not just the transitive
			// dependents already marked above.
			for _, laterLevel := range remainingLevelsAfter(graph.Levels, level) {
				markRemainingSkipped(graph, laterLevel, results, &resultsMu, skipped)
			}
			return results, firstErr
		}
	}

	return results, nil
}

func remainingLevelsAfter(levels [][]string, current []string) [][]string {
	found := false
	var rest [][]string
	for _, level := range levels {
		if found {
			rest = append(rest, level)
			continue
		}
		if len(level) == len(current) && sameSet(level, current) {
			found = true
		}
	}
	return rest
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if !set[v] {
			return false
		}
	}
	return true
}

func markRemainingSkipped(graph *dag.Graph, level []string, results map[string]model.StepResult, mu *sync.Mutex, skipped map[string]bool) {
	mu.Lock()
	defer mu.Unlock()
	for _, id := range level {
		if _, done := results[id]; done {
			continue
		}
		skipped[id] = true
		results[id] = model.StepResult{StepID: id, Status: model.StatusSkipped, Message: "execution cancelled"}
	}
}

// StepFailure is the error Run returns when any step fails; it identifies
// the first step (in level order) whose failure triggered the cascade.
type StepFailure struct {
	StepID  string
	Message string
}

func (e *StepFailure) Error() string {
	return "coordinator: step " + e.StepID + " failed: " + e.Message
}
