package cmd

import (
	"errors"
	"fmt"

	"github.com/deploymenttheory/go-lfs-debug/internal/composition"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check PLAN",
	Short: "Check every image listed in a plan file",
	Long: `Check a batch of images described by a YAML, JSON or TOML plan:

  name: nightly
  defaults:
    block_size: 512
  images:
    - path: board-a.img
    - path: board-b.img.zst
      roots: [2, 3]

The exit status is the bitwise OR of every image's status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reportOptions(cmd)
		if err != nil {
			return err
		}

		plan, err := composition.LoadPlan(args[0])
		if err != nil {
			return err
		}
		if errs := composition.ValidatePlan(plan); len(errs) > 0 {
			for _, err := range errs {
				logger.LogError("Plan validation error", err, nil)
			}
			return fmt.Errorf("plan validation failed: %w", errors.Join(errs...))
		}

		res, err := composition.ExecutePlan(plan, imageOptions())
		if err != nil {
			return err
		}
		exitCode |= res.ExitCode

		if opts.Format != report.FormatText {
			return report.Encode(cmd.OutOrStdout(), res, opts)
		}
		return renderPlan(cmd, res, opts.Color)
	},
}

func renderPlan(cmd *cobra.Command, res *composition.PlanResult, colored bool) error {
	ok, bad, dim := color.New(color.FgGreen), color.New(color.FgRed, color.Bold), color.New(color.Faint)
	for _, c := range []*color.Color{ok, bad, dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	out := cmd.OutOrStdout()
	for _, img := range res.Images {
		var status string
		switch {
		case img.Skipped:
			status = dim.Sprint("skipped")
		case img.Error != "":
			status = bad.Sprintf("error: %s", img.Error)
		case img.ExitCode != 0:
			status = bad.Sprintf("exit %d", img.ExitCode)
		default:
			status = ok.Sprint("ok")
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n", img.Name, status); err != nil {
			return err
		}
		for _, d := range img.Diagnostics {
			if _, err := fmt.Fprintf(out, "  %s\n", d); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(out, "%s: %d image(s), exit status %d\n", res.Plan, len(res.Images), res.ExitCode)
	return err
}
