package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
	profile string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "sqlflow",
		Short:         "sqlflow compiles and runs declarative SQL data pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose flag; accepted but not read by any subcommand")
	cmd.PersistentFlags().StringVar(&flags.profile, "profile", "", "Path to a profile YAML file to compile/run against (a file path; profile names are not looked up)")

	cmd.AddCommand(newCompileCmd(flags))
	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newListCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
