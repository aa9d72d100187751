package cmd

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/spf13/cobra"
)

var gstateCmd = &cobra.Command{
	Use:   "gstate IMAGE",
	Short: "Print the global state accumulated over every metadata pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, doc, opts, err := inspect(cmd, args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		exitCode |= doc.ExitCode
		return report.RenderGState(cmd.OutOrStdout(), doc, opts)
	},
}
