package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/report"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/tag"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/types"
	"github.com/spf13/cobra"
)

// decodedWord is one tag word as printed by the tag command
type decodedWord struct {
	Raw      string `json:"raw" yaml:"raw" cbor:"raw" plist:"raw"`
	Valid    bool   `json:"valid" yaml:"valid" cbor:"valid" plist:"valid"`
	Type     uint16 `json:"type" yaml:"type" cbor:"type" plist:"type"`
	ID       int    `json:"id" yaml:"id" cbor:"id" plist:"id"`
	Label    string `json:"label" yaml:"label" cbor:"label" plist:"label"`
	Category string `json:"category" yaml:"category" cbor:"category" plist:"category"`
}

var tagCmd = &cobra.Command{
	Use:   "tag WORD...",
	Short: "Decode raw tag words",
	Long: `Decode tag words as read from a block, in order. Words are hex and are
XOR-chained: each is decoded against the one before it, starting from
--prev (zero at the start of a block).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := reportOptions(cmd)
		if err != nil {
			return err
		}
		prevStr, _ := cmd.Flags().GetString("prev")
		prev, err := parseWord(prevStr)
		if err != nil {
			return err
		}

		words := make([]decodedWord, 0, len(args))
		for _, a := range args {
			raw, err := parseWord(a)
			if err != nil {
				return err
			}
			var w tag.Word
			w, prev = tag.DecodeWord(raw, prev)
			d := decodedWord{
				Raw:      fmt.Sprintf("%08x", raw),
				Valid:    w.Valid,
				Type:     w.Type,
				ID:       int(w.ID),
				Label:    tag.Label(w.Type),
				Category: tag.Classify(w.Type).String(),
			}
			if w.ID == types.NoID {
				d.ID = -1
			}
			words = append(words, d)
		}

		if opts.Format != report.FormatText {
			return report.Encode(cmd.OutOrStdout(), words, opts)
		}
		out := cmd.OutOrStdout()
		for _, d := range words {
			id := "-"
			if d.ID >= 0 {
				id = strconv.Itoa(d.ID)
			}
			valid := ""
			if !d.Valid {
				valid = "  invalid"
			}
			if _, err := fmt.Fprintf(out, "%s  %-20s type 0x%04x id %s%s\n", d.Raw, d.Label, d.Type, id, valid); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	tagCmd.Flags().String("prev", "0", "XOR chain state before the first word (hex)")
}

func parseWord(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid tag word %q: %w", s, err)
	}
	return uint32(n), nil
}
