package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqlflow/sqlflow/internal/diagviz"
	"github.com/sqlflow/sqlflow/internal/service"
	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

type validateOptions struct {
	pipelinePath string
	variables    []string
}

func newValidateCmd(root *rootFlags) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline's variables, tables, and dependency graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.pipelinePath, "pipeline", "p", "", "Path to a .sqlflow pipeline file")
	cmd.Flags().StringArrayVar(&opts.variables, "variables", nil, "CLI variable overrides (key=value or a JSON object); repeatable")
	cmd.MarkFlagRequired("pipeline") //nolint:errcheck

	return cmd
}

func runValidate(cmd *cobra.Command, root *rootFlags, opts *validateOptions) error {
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

	svc := service.New(os.LookupEnv)
	result, err := svc.Validate(pipelineNameFromPath(opts.pipelinePath), string(source), cliVars, prof.VariablesAsAny(), prof.ConnectorsMap())
	if err != nil {
		var depErr *sqlflowerrors.DependencyError
		if errors.As(err, &depErr) && len(depErr.Cycles) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), diagviz.RenderCycle(depErr.Cycles[0]))
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "pipeline valid: %d operations\n\n", len(result.Plan.Operations))
	fmt.Fprintln(cmd.OutOrStdout(), diagviz.RenderDependencyTree(result.Graph))
	return nil
}
