package cmd

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree IMAGE",
	Short: "Print the directory tree and every problem found",
	Long: `Walk the image from its root pair and print the reconstructed tree,
orphaned pairs, the accumulated global state and all diagnostics.

--mode tags lists the live tags of every pair instead of entries, and
--mode log shows both blocks of every pair commit by commit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, doc, opts, err := inspect(cmd, args[0])
		if err != nil {
			return err
		}
		defer in.Close()

		exitCode |= doc.ExitCode
		return report.Render(cmd.OutOrStdout(), doc, opts)
	},
}

// inspect walks path and builds its report document
func inspect(cmd *cobra.Command, path string) (*tooling.Inspection, *report.Document, report.Options, error) {
	opts, err := reportOptions(cmd)
	if err != nil {
		return nil, nil, opts, err
	}
	in, err := tooling.InspectImage(path, imageOptions())
	if err != nil {
		return nil, nil, opts, err
	}
	doc, err := in.Document(opts)
	if err != nil {
		in.Close()
		return nil, nil, opts, err
	}
	return in, doc, opts, nil
}
