package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/deploymenttheory/go-lfs-debug/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/common/plistutil"
	"golang.org/x/term"
)

// Mode selects the dump granularity
type Mode string

const (
	ModeTree Mode = "tree"
	ModeTags Mode = "tags"
	ModeLog  Mode = "log"
)

// Format selects the output encoding
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
	FormatPlist Format = "plist"
)

// Options controls document building and rendering
type Options struct {
	Mode         Mode
	Format       Format
	Truncate     bool
	PreviewBytes int
	Color        bool
	Digest       cryptoutil.HashAlgorithm
	PlistFormat  plistutil.Format
}

// DefaultOptions renders a truncated, uncolored text tree
func DefaultOptions() Options {
	return Options{
		Mode:         ModeTree,
		Format:       FormatText,
		Truncate:     true,
		PreviewBytes: 16,
	}
}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeTree, ModeTags, ModeLog:
		return m, nil
	}
	return "", fmt.Errorf("unknown report mode %q (want tree, tags or log)", s)
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR, FormatPlist:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// ColorEnabled resolves a color setting of always, never or auto. Auto
// colors only terminals and honors NO_COLOR.
func ColorEnabled(setting string, f *os.File) bool {
	switch strings.ToLower(setting) {
	case "always", "true", "yes":
		return true
	case "never", "false", "no":
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
