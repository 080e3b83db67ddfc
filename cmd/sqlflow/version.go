package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sqlflow/sqlflow/internal/cliutil"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := cliutil.RenderTable(
				[]string{"Field", "Value"},
				[][]string{
					{"Version", version},
					{"Commit", commit},
					{"Built", date},
				},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
