// Package executor implements the Step Executors (spec §4.5): the
// CanExecute/Execute contract each operation kind satisfies against the
// analytic engine and the connector registry.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/sqlflow/sqlflow/internal/connector"
	"github.com/sqlflow/sqlflow/internal/materialize"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/sqlengine"
	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

// Executor runs one Operation to completion against the analytic engine
// and the connector registry shared by the whole plan.
type Executor struct {
	engine   *sqlengine.Engine
	registry *connector.Registry
	sources  map[string]connector.Source
}

// New returns an Executor bound to engine and registry. sources is the
// shared, plan-scoped map of opened Source handles keyed by source name
// (spec §5: "SourceHandles are immutable after registration").
func New(engine *sqlengine.Engine, registry *connector.Registry, sources map[string]connector.Source) *Executor {
	if sources == nil {
		sources = make(map[string]connector.Source)
	}
	return &Executor{engine: engine, registry: registry, sources: sources}
}

// CanExecute reports whether op's kind is one this Executor handles.
func (e *Executor) CanExecute(op *model.Operation) bool {
	switch op.Type {
	case model.OpSourceDefinition, model.OpLoad, model.OpTransform, model.OpExport:
		return true
	default:
		return false
	}
}

// Execute runs op and returns its StepResult. It never panics and never
// silently drops a step failure: every failure path returns an error
// carrying the step id, either wrapped with the operation type and a short
// hint or, for a missing connector, as a ConnectorError naming the connector
// type (spec §4.5's "errors are never swallowed").
func (e *Executor) Execute(ctx context.Context, op *model.Operation) model.StepResult {
	start := time.Now()
	result := model.StepResult{StepID: op.ID, Status: model.StatusRunning}

	var err error
	switch op.Type {
	case model.OpSourceDefinition:
		err = e.execSourceDefinition(ctx, op)
	case model.OpLoad:
		err = e.execLoad(ctx, op)
	case model.OpTransform:
		err = e.execTransform(ctx, op, &result)
	case model.OpExport:
		err = e.execExport(ctx, op)
	default:
		err = wrapStep(op, fmt.Errorf("executor: unknown operation type %q", op.Type), "dispatching operation")
	}

	result.ExecutionTime = time.Since(start)
	if err != nil {
		result.Status = model.StatusError
		result.ErrorMessage = err.Error()
		return result
	}
	result.Status = model.StatusSuccess
	return result
}

func (e *Executor) execSourceDefinition(ctx context.Context, op *model.Operation) error {
	params, _ := op.Query.(map[string]any)
	src, ok := e.registry.NewSource(op.SourceConnectorType)
	if !ok {
		return sqlflowerrors.NewConnectorError(op.ID, op.SourceConnectorType, false,
			fmt.Errorf("no connector registered for type %q", op.SourceConnectorType))
	}
	if err := src.Open(ctx, params); err != nil {
		return wrapStep(op, err, "opening source connector")
	}
	e.sources[op.Name] = src
	return nil
}

// execLoad stages the source's rows into a scratch table, then applies
// op.Mode's materialization plan (REPLACE/APPEND/UPSERT/MERGE) from the
// staging table into the target, exactly as execTransform does for a CREATE
// TABLE — a LOAD with a mode is a materialization whose SELECT body is "the
// whole staged source" rather than hand-written SQL.
func (e *Executor) execLoad(ctx context.Context, op *model.Operation) error {
	meta, _ := op.Query.(map[string]any)
	sourceName, _ := meta["source_name"].(string)
	src, ok := e.sources[sourceName]
	if !ok {
		return sqlflowerrors.NewExecutionError(op.ID, "load",
			fmt.Errorf("source %q was never opened", sourceName))
	}

	table := op.TargetTable
	staging := table + "__load_stage"

	first := true
	err := src.Rows(ctx, func(chunk []connector.Row) error {
		stmts := rowsToStatements(staging, chunk, first)
		first = false
		return e.engine.RunTransactional(ctx, stmts)
	})
	if err != nil {
		return wrapStep(op, err, "loading rows")
	}
	if first {
		// the source yielded no rows at all; nothing to materialize.
		return nil
	}
	defer e.engine.RunTransactional(ctx, []sqlengine.Statement{ //nolint:errcheck
		{SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", staging)},
	})

	selectBody := fmt.Sprintf("SELECT * FROM %s", staging)
	plan, err := materialize.Build(op.Mode, table, selectBody, op.MergeKeys, "", "")
	if err != nil {
		return wrapStep(op, err, "building load materialization plan")
	}

	if plan.TableExistsCheck != "" {
		exists, err := e.engine.TableExists(ctx, plan.TableExistsCheck)
		if err != nil {
			return wrapStep(op, err, "checking load target existence")
		}
		if !exists {
			createPlan, _ := materialize.Build(sourceModeFor(op.Mode), table, selectBody, nil, "", "")
			if err := e.engine.RunTransactional(ctx, toEngineStatements(createPlan.Statements)); err != nil {
				return wrapStep(op, err, "creating load target table")
			}
			return nil
		}
	}

	if err := e.engine.RunTransactional(ctx, toEngineStatements(plan.Statements)); err != nil {
		return wrapStep(op, err, "materializing load target")
	}
	return nil
}

func (e *Executor) execTransform(ctx context.Context, op *model.Operation, result *model.StepResult) error {
	sqlText, _ := op.Query.(string)

	plan, err := materialize.Build(op.Mode, op.TargetTable, sqlText, op.MergeKeys, op.TimeColumn, op.Lookback)
	if err != nil {
		return wrapStep(op, err, "building materialization plan")
	}

	if plan.TableExistsCheck != "" {
		exists, err := e.engine.TableExists(ctx, plan.TableExistsCheck)
		if err != nil {
			return wrapStep(op, err, "checking table existence")
		}
		if !exists {
			createPlan, _ := materialize.Build(sourceModeFor(op.Mode), op.TargetTable, sqlText, nil, "", "")
			if err := e.engine.RunTransactional(ctx, toEngineStatements(createPlan.Statements)); err != nil {
				return wrapStep(op, err, "creating target table")
			}
			result.RowCount = 0
			return nil
		}
	}

	if err := e.engine.RunTransactional(ctx, toEngineStatements(plan.Statements)); err != nil {
		return wrapStep(op, err, "materializing table")
	}
	return nil
}

func (e *Executor) execExport(ctx context.Context, op *model.Operation) error {
	sqlText, _ := op.Query.(string)
	dst, ok := e.registry.NewDestination(op.SourceConnectorType)
	if !ok {
		return sqlflowerrors.NewConnectorError(op.ID, op.SourceConnectorType, false,
			fmt.Errorf("no destination connector registered for type %q", op.SourceConnectorType))
	}

	rows, err := e.engine.Query(ctx, sqlText)
	if err != nil {
		return wrapStep(op, err, "querying export select")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return wrapStep(op, err, "reading export columns")
	}

	var readErr error
	writeErr := dst.Write(ctx, op.DestinationURI, op.ConnectorOptions, func(yield func(connector.Row) bool) {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				readErr = err
				return
			}
			row := make(connector.Row, len(columns))
			for i, c := range columns {
				row[c] = values[i]
			}
			if !yield(row) {
				return
			}
		}
	})
	if readErr != nil {
		return wrapStep(op, readErr, "reading export rows")
	}
	if writeErr != nil {
		return wrapStep(op, writeErr, "writing export destination")
	}
	if err := rows.Err(); err != nil {
		return wrapStep(op, err, "reading export rows")
	}
	return nil
}

// sourceModeFor returns the mode used to create a table for the first time
// under a mode whose steady-state behavior (APPEND/UPSERT/MERGE/INCREMENTAL)
// assumes the table already exists.
func sourceModeFor(mode model.Mode) model.Mode {
	return model.ModeReplace
}

func toEngineStatements(stmts []materialize.Statement) []sqlengine.Statement {
	out := make([]sqlengine.Statement, len(stmts))
	for i, s := range stmts {
		out[i] = sqlengine.Statement{SQL: s.SQL, Guard: s.Guard}
	}
	return out
}

func wrapStep(op *model.Operation, err error, hint string) error {
	return sqlflowerrors.NewExecutionError(op.ID, fmt.Sprintf("%s: %s", op.Type, hint), err)
}
