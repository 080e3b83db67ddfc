// Package service wires the DSL parser, planner, dependency graph,
// materialization engine, connectors, coordinator, and observability
// manager into the handful of operations cmd/sqlflow's subcommands call.
//
// Grounded on the teacher's app-layer pipeline.Service (Prepare/Apply):
// same shape (a thin service fronting the domain pieces), adapted to
// SQLFlow's compile/run/validate operations instead of apply/verify.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlflow/sqlflow/internal/connector"
	"github.com/sqlflow/sqlflow/internal/coordinator"
	"github.com/sqlflow/sqlflow/internal/dag"
	"github.com/sqlflow/sqlflow/internal/dsl"
	"github.com/sqlflow/sqlflow/internal/executor"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/observability"
	"github.com/sqlflow/sqlflow/internal/planner"
	"github.com/sqlflow/sqlflow/internal/profile"
	"github.com/sqlflow/sqlflow/internal/sqlengine"
)

func defaultRegistry() *connector.Registry {
	return connector.Default()
}

// Service is the compile/run/validate entry point used by the CLI.
type Service struct {
	connectors EnvLookup
}

// EnvLookup resolves an OS environment variable, matching the planner's
// envLookup signature (kept local so this package does not need to import
// os directly, for testability).
type EnvLookup func(string) (string, bool)

// New returns a Service using envLookup to resolve ${VAR} tokens whose
// priority chain bottoms out at the process environment.
func New(envLookup EnvLookup) *Service {
	if envLookup == nil {
		envLookup = func(string) (string, bool) { return "", false }
	}
	return &Service{connectors: envLookup}
}

// Compile parses source and plans it against cliVars/profileVars,
// returning the operation plan without executing anything. profileConnectors
// is the active profile's named connector configs (nil if none loaded),
// used to resolve "SOURCE x FROM <name>" (spec §6.1).
func (s *Service) Compile(pipelineName, source string, cliVars, profileVars map[string]any, profileConnectors map[string]profile.ConnectorConfig) (*model.Plan, error) {
	pipeline, err := dsl.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing pipeline: %w", err)
	}

	pl := planner.New(cliVars, profileVars, s.connectors, nil, profileConnectors)
	plan, err := pl.Plan(pipelineName, pipeline)
	if err != nil {
		return nil, fmt.Errorf("planning pipeline: %w", err)
	}
	return plan, nil
}

// ValidationResult is the outcome of building the dependency graph for a
// compiled plan, without executing it.
type ValidationResult struct {
	Plan  *model.Plan
	Graph *dag.Graph
}

// Validate compiles source and builds its dependency graph, surfacing any
// cycle or missing-dependency error before a run is attempted.
func (s *Service) Validate(pipelineName, source string, cliVars, profileVars map[string]any, profileConnectors map[string]profile.ConnectorConfig) (*ValidationResult, error) {
	plan, err := s.Compile(pipelineName, source, cliVars, profileVars, profileConnectors)
	if err != nil {
		return nil, err
	}

	dependsOn := make(map[string][]string, len(plan.Operations))
	for _, op := range plan.Operations {
		dependsOn[op.ID] = op.DependsOn
	}
	graph, err := dag.Build(dependsOn)
	if err != nil {
		return &ValidationResult{Plan: plan}, err
	}
	return &ValidationResult{Plan: plan, Graph: graph}, nil
}

// RunOptions configures a Run invocation.
type RunOptions struct {
	PipelineName        string
	Source               string
	CLIVariables         map[string]any
	ProfileVariables     map[string]any
	ProfileConnectors    map[string]profile.ConnectorConfig
	AnalyticDBPath       string
	Strategy             coordinator.Strategy
	SlowExecutionWarning time.Duration
}

// RunResult carries the executed plan's per-step results and final
// observability snapshot.
type RunResult struct {
	Plan    *model.Plan
	Results map[string]model.StepResult
	Health  observability.HealthStatus
	Alerts  []observability.Alert
}

// Run compiles opts.Source and executes the resulting plan end to end.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	plan, err := s.Compile(opts.PipelineName, opts.Source, opts.CLIVariables, opts.ProfileVariables, opts.ProfileConnectors)
	if err != nil {
		return nil, err
	}

	engine, err := sqlengine.Open(opts.AnalyticDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening analytic engine: %w", err)
	}
	defer engine.Close()

	obs := observability.New(nil, opts.SlowExecutionWarning)
	exec := executor.New(engine, defaultRegistry(), nil)
	instrumented := &instrumentedRunner{exec: exec, obs: obs}

	coord := coordinator.New(instrumented, opts.Strategy)
	results, runErr := coord.Run(ctx, plan)

	return &RunResult{
		Plan:    plan,
		Results: results,
		Health:  obs.CheckSystemHealth(),
		Alerts:  obs.Alerts(),
	}, runErr
}

// instrumentedRunner wraps an Executor so every step's start/success/
// failure is recorded by the observability manager without the
// coordinator needing to know observability exists.
type instrumentedRunner struct {
	exec *executor.Executor
	obs  *observability.Manager
}

func (r *instrumentedRunner) Execute(ctx context.Context, op *model.Operation) model.StepResult {
	r.obs.RecordStepStart(op)
	res := r.exec.Execute(ctx, op)
	if res.Status == model.StatusError {
		r.obs.RecordStepFailure(op, res.ExecutionTime, fmt.Errorf("%s", res.ErrorMessage))
	} else {
		r.obs.RecordStepSuccess(op, res.ExecutionTime)
	}
	return res
}
