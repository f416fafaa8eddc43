package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/groupops/engine/infra/monitoring"
)

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, commit, goVersion := monitoring.BuildInfo()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "groupops %s (commit %s, %s)\n", version, commit, goVersion)
			return err
		},
	}
}
