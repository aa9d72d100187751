package cmd

import (
	"fmt"

	compression "github.com/deploymenttheory/go-lfs-debug/internal/common/compressionutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/common/fsutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/builder"
	"github.com/spf13/cobra"
)

var fixtureCmd = &cobra.Command{
	Use:   "fixture OUT",
	Short: "Write a small demo image",
	Long: fmt.Sprintf(`Write a consistent demo image with %d blocks of %d bytes: a root with an
inline, a ctz and a B-tree file plus a subdirectory spanning two pairs.

The image is compressed when --compress is given or OUT ends in .gz, .zst,
.xz, .bz2 or .lz4. Inspect it with --block-size %d.`, builder.DemoBlockCount, builder.DemoBlockSize, builder.DemoBlockSize),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := fsutil.ExpandTilde(args[0])
		if err != nil {
			return err
		}

		format := compression.FormatFromExtension(out)
		if cmd.Flags().Changed("compress") {
			name, _ := cmd.Flags().GetString("compress")
			format = compression.Format(name)
		}

		img, err := builder.Demo()
		if err != nil {
			return err
		}

		if format == compression.FormatNone {
			err = fsutil.WriteFile(out, img.Bytes(), 0o644)
		} else {
			err = compression.WriteFile(out, img.Bytes(), format)
		}
		if err != nil {
			return err
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d blocks of %d bytes\n", out, img.BlockCount, img.BlockSize)
		return err
	},
}

func init() {
	fixtureCmd.Flags().String("compress", "", "Compression: gzip, zstd, xz, bzip2 or lz4")
}
