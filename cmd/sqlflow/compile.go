package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/service"
)

type compileOptions struct {
	pipelinePath string
	variables    []string
	format       string
}

func newCompileCmd(root *rootFlags) *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a pipeline file into its operation plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.pipelinePath, "pipeline", "p", "", "Path to a .sqlflow pipeline file")
	cmd.Flags().StringArrayVar(&opts.variables, "variables", nil, "CLI variable overrides (key=value or a JSON object); repeatable")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json")
	cmd.MarkFlagRequired("pipeline") //nolint:errcheck

	return cmd
}

func runCompile(cmd *cobra.Command, root *rootFlags, opts *compileOptions) error {
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
	plan, err := svc.Compile(pipelineNameFromPath(opts.pipelinePath), string(source), cliVars, prof.VariablesAsAny(), prof.ConnectorsMap())
	if err != nil {
		return err
	}

	artifact := struct {
		PipelineName   string             `json:"pipeline_name"`
		OperationCount int                `json:"operation_count"`
		Operations     []*model.Operation `json:"operations"`
	}{plan.PipelineName, plan.OperationCount(), plan.Operations}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(artifact)
}

func pipelineNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
