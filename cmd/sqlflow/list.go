package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sqlflow/sqlflow/internal/cliutil"
)

type listOptions struct {
	dir    string
	format string
}

type pipelineListing struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func newListCmd(root *rootFlags) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List .sqlflow pipeline files in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "Directory to scan for .sqlflow files")
	cmd.Flags().StringVar(&opts.format, "format", "table", "Output format: table|json")

	return cmd
}

func runList(cmd *cobra.Command, opts *listOptions) error {
	entries, err := os.ReadDir(opts.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.dir, err)
	}

	var pipelines []pipelineListing
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sqlflow" {
			continue
		}
		pipelines = append(pipelines, pipelineListing{
			Name: pipelineNameFromPath(entry.Name()),
			Path: filepath.Join(opts.dir, entry.Name()),
		})
	}
	sort.Slice(pipelines, func(i, j int) bool { return pipelines[i].Name < pipelines[j].Name })

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pipelines)
	}

	rows := make([][]string, 0, len(pipelines))
	for _, p := range pipelines {
		rows = append(rows, []string{p.Name, p.Path})
	}
	fmt.Fprintln(cmd.OutOrStdout(), cliutil.RenderTable([]string{"Name", "Path"}, rows))
	return nil
}
