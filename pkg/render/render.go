// Package render exports a laid-out diagram in file formats.
//
// The diagram is already positioned when it gets here, so no layout runs:
// [JSON] writes the node/edge contract a browser front end consumes, [DOT]
// writes Graphviz source with every node pinned to its computed box, and
// [SVG] draws that DOT with Graphviz. PDF and PNG are converted from the
// SVG with rsvg-convert.
//
//	data, err := render.Render(ctx, d, render.FormatSVG, render.Options{})
package render

import (
	"context"
	"strings"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
)

// Format is an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatDOT, FormatSVG, FormatPDF, FormatPNG}

// ParseFormat parses a format name or file extension.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unknown format %q (valid: json, dot, svg, pdf, png)", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string { return "." + string(f) }

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	case FormatPNG:
		return "image/png"
	default:
		return "text/vnd.graphviz"
	}
}

// Options configures export.
type Options struct {
	// Scale is the PNG resolution factor. Zero means 2.
	Scale float64
	// Indent pretty-prints JSON output.
	Indent bool
}

// Render encodes d in format f.
func Render(ctx context.Context, d *diagram.Diagram, f Format, opts Options) ([]byte, error) {
	if d == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nothing to render")
	}
	switch f {
	case FormatJSON:
		return JSON(d, opts.Indent)
	case FormatDOT:
		return []byte(DOT(d)), nil
	case FormatSVG:
		return SVG(ctx, d)
	case FormatPDF:
		svg, err := SVG(ctx, d)
		if err != nil {
			return nil, err
		}
		return ToPDF(ctx, svg)
	case FormatPNG:
		svg, err := SVG(ctx, d)
		if err != nil {
			return nil, err
		}
		scale := opts.Scale
		if scale <= 0 {
			scale = 2
		}
		return ToPNG(ctx, svg, scale)
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown format %q", f)
}
