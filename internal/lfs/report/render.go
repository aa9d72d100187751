package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-lfs-debug/internal/common/plistutil"
	"github.com/deploymenttheory/go-lfs-debug/internal/lfs/walk"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Render writes doc to w in the format selected by opts
func Render(w io.Writer, doc *Document, opts Options) error {
	if opts.Format == FormatText || opts.Format == "" {
		return renderText(w, doc, opts)
	}
	return Encode(w, doc, opts)
}

// RenderGState writes only the global state of doc
func RenderGState(w io.Writer, doc *Document, opts Options) error {
	if opts.Format == FormatText || opts.Format == "" {
		t := &textWriter{w: w}
		p := newPalette(opts.Color)
		renderGState(t, doc, p)
		for _, d := range doc.Diagnostics {
			if d.Kind == string(walk.KindBadGlobalState) {
				t.printf("  %s\n", p.bad.Sprint(d.Message))
			}
		}
		return t.err
	}
	return Encode(w, doc.GState, opts)
}

// Encode writes v in one of the structured formats. Text output needs a
// dedicated renderer and is rejected.
func Encode(w io.Writer, v interface{}, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case FormatCBOR:
		data, err := MarshalCBOR(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatPlist:
		return plistutil.Encode(w, v, opts.PlistFormat)
	default:
		return fmt.Errorf("format %q is not a structured format", opts.Format)
	}
}

// MarshalCBOR encodes v with the core deterministic encoding, so the same
// image always produces byte-identical output
func MarshalCBOR(v interface{}) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	data, err := em.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cbor report: %w", err)
	}
	return data, nil
}
