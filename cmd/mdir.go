package cmd

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/mdir"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/walk"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/spf13/cobra"
)

var mdirCmd = &cobra.Command{
	Use:   "mdir IMAGE PAIR",
	Short: "Dump one metadata pair",
	Long: `Parse the two blocks of PAIR (for example 0,1 or 0x2,0x3) without
walking the rest of the image. The default mode is log, which shows every
commit of both blocks; --mode tags shows the live tags only.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, err := parsePair(args[1])
		if err != nil {
			return err
		}
		opts, err := reportOptions(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("mode") {
			opts.Mode = report.ModeLog
		}

		r, err := tooling.Open(args[0], imageOptions())
		if err != nil {
			return err
		}
		defer r.Close()

		m := mdir.Fetch(r, pair)
		res := &walk.Result{
			Roots: pair,
			Root:  m,
			Dirs:  []*walk.Dir{{Path: pair.String(), Pair: pair, Mdirs: []*mdir.MDir{m}}},
			Mdirs: []*mdir.MDir{m},
		}
		if !m.Valid() {
			d := walk.Diagnostic{Kind: walk.KindCorruptedMdir, Pair: pair}
			for _, e := range m.Errs {
				if e != nil {
					d.Detail = e.Error()
					break
				}
			}
			res.Diagnostics = append(res.Diagnostics, d)
		}

		doc, err := report.Build(res, r, report.Meta{Image: args[0], BlockSize: r.BlockSize(), BlockCount: r.BlockCount()}, opts)
		if err != nil {
			return err
		}
		exitCode |= doc.ExitCode
		return report.Render(cmd.OutOrStdout(), doc, opts)
	},
}
