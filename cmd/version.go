package cmd

import (
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/spf13/cobra"
)

// versionCmd shows the application version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "lfs-debug v%s\n", tooling.GetVersion())
		return err
	},
}
