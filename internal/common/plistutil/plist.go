// Package plistutil encodes reports as property lists
package plistutil

import (
	"fmt"
	"io"
	"strings"

	"howett.net/plist"
)

// Format represents the plist format
type Format int

const (
	// FormatXML is the XML plist format
	FormatXML Format = iota
	// FormatBinary is the binary plist format
	FormatBinary
	// FormatOpenStep is the OpenStep plist format
	FormatOpenStep
	// FormatGNUStep is the GNUStep plist format
	FormatGNUStep
)

var plistFormats = map[Format]int{
	FormatXML:      plist.XMLFormat,
	FormatBinary:   plist.BinaryFormat,
	FormatOpenStep: plist.OpenStepFormat,
	FormatGNUStep:  plist.GNUStepFormat,
}

// FormatToString converts a Format enum to a string
func FormatToString(format Format) string {
	switch format {
	case FormatXML:
		return "XML"
	case FormatBinary:
		return "Binary"
	case FormatOpenStep:
		return "OpenStep"
	case FormatGNUStep:
		return "GNUStep"
	default:
		return "Unknown"
	}
}

// StringToFormat converts a string to a Format enum, defaulting to XML
func StringToFormat(formatStr string) Format {
	switch strings.ToLower(formatStr) {
	case "binary":
		return FormatBinary
	case "openstep":
		return FormatOpenStep
	case "gnustep":
		return FormatGNUStep
	default:
		return FormatXML
	}
}

// Marshal encodes v. Text formats are indented with tabs.
func Marshal(v interface{}, format Format) ([]byte, error) {
	pf, ok := plistFormats[format]
	if !ok {
		return nil, fmt.Errorf("unknown plist format %d", format)
	}
	var (
		data []byte
		err  error
	)
	if format == FormatBinary {
		data, err = plist.Marshal(v, pf)
	} else {
		data, err = plist.MarshalIndent(v, pf, "\t")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s plist: %w", FormatToString(format), err)
	}
	return data, nil
}

// Encode writes v to w
func Encode(w io.Writer, v interface{}, format Format) error {
	data, err := Marshal(v, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Unmarshal decodes any plist format into v and reports which one it was
func Unmarshal(data []byte, v interface{}) (Format, error) {
	pf, err := plist.Unmarshal(data, v)
	if err != nil {
		return FormatXML, fmt.Errorf("failed to decode plist: %w", err)
	}
	for f, p := range plistFormats {
		if p == pf {
			return f, nil
		}
	}
	return FormatXML, nil
}
