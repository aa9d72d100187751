package cmd

import (
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/file"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/deploymenttheory/go-lfs-debug/pkg/tooling"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat IMAGE PATH",
	Short: "Write the contents of one file to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := tooling.InspectImage(args[0], imageOptions())
		if err != nil {
			return err
		}
		defer in.Close()

		if code := in.Result.ExitCode(); code != 0 {
			logger.LogWarn("Image has diagnostics, contents may be incomplete", map[string]interface{}{
				"image":     args[0],
				"exit_code": code,
			})
		}

		e, err := in.Result.Lookup(args[1])
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("offset") && !cmd.Flags().Changed("length") {
			_, err = file.WriteTo(cmd.OutOrStdout(), in.Reader, e)
			return err
		}

		offset, _ := cmd.Flags().GetUint32("offset")
		length, _ := cmd.Flags().GetUint32("length")
		if !cmd.Flags().Changed("length") {
			length = e.Size
		}
		data, err := file.ReadAt(in.Reader, e, offset, length)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	catCmd.Flags().Uint32("offset", 0, "Start reading at this byte offset")
	catCmd.Flags().Uint32("length", 0, "Read at most this many bytes")
}
