// Package cli wires the groupops commands.
package cli

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "groupops",
		Short:         "Operator bot for bulk group admin management",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to an environment file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source file and line in logs")

	root.AddCommand(
		ServeCmd(),
		ConfigCmd(),
		VersionCmd(),
	)
	return root
}
