package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sqlflow/sqlflow/internal/coordinator"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/service"
)

type runOptions struct {
	pipelinePath string
	variables    []string
	dbPath       string
	strategy     string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile and execute a pipeline against the analytic engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.pipelinePath, "pipeline", "p", "", "Path to a .sqlflow pipeline file")
	cmd.Flags().StringArrayVar(&opts.variables, "variables", nil, "CLI variable overrides (key=value or a JSON object); repeatable")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "Path to the analytic database file (in-memory if empty)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "auto", "Execution strategy: compatibility|auto|memory_optimized|speed_optimized|hybrid")
	cmd.MarkFlagRequired("pipeline") //nolint:errcheck

	return cmd
}

func runRun(cmd *cobra.Command, root *rootFlags, opts *runOptions) error {
	source, err := os.ReadFile(opts.pipelinePath)
	if err != nil {
		return fmt.Errorf("reading pipeline file: %w", err)
	}

	cliVars, err := parseVariables(opts.variables)
	if err != nil {
		return err
	}
	prof, err := loadProfile(root.profile)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", runID)

	svc := service.New(os.LookupEnv)
	result, runErr := svc.Run(context.Background(), service.RunOptions{
		PipelineName:         pipelineNameFromPath(opts.pipelinePath),
		Source:               string(source),
		CLIVariables:         cliVars,
		ProfileVariables:     prof.VariablesAsAny(),
		ProfileConnectors:    prof.ConnectorsMap(),
		AnalyticDBPath:       opts.dbPath,
		Strategy:             coordinator.Strategy(opts.strategy),
		SlowExecutionWarning: 30 * time.Second,
	})
	if result != nil {
		printRunSummary(cmd, result)
	}
	return runErr
}

func printRunSummary(cmd *cobra.Command, result *service.RunResult) {
	out := cmd.OutOrStdout()
	for _, op := range result.Plan.Operations {
		res, ok := result.Results[op.ID]
		if !ok {
			continue
		}
		status := res.Status
		switch status {
		case model.StatusSuccess:
			fmt.Fprintf(out, "  ok      %s (%s)\n", op.ID, res.ExecutionTime)
		case model.StatusError:
			fmt.Fprintf(out, "  error   %s: %s\n", op.ID, res.ErrorMessage)
		case model.StatusSkipped:
			fmt.Fprintf(out, "  skipped %s\n", op.ID)
		}
	}
	fmt.Fprintf(out, "\nsystem health: %s\n", result.Health)
}
