package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// rsvgConvert is the converter binary. Tests point it elsewhere.
var rsvgConvert = "rsvg-convert"

// ToPDF converts an SVG diagram to a single-page PDF.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return convertSVG(ctx, svg, FormatPDF)
}

// ToPNG rasterizes an SVG diagram. scale multiplies the diagram's pixel
// size, so 2 gives sharp labels on high density screens.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	return convertSVG(ctx, svg, FormatPNG, "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
}

// convertSVG pipes svg through rsvg-convert. A missing binary is reported as
// UNSUPPORTED with install hints; a failed conversion carries the tool's
// stderr.
func convertSVG(ctx context.Context, svg []byte, to Format, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(rsvgConvert)
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"%s export needs %s from librsvg (brew install librsvg, apt install librsvg2-bin)", to, rsvgConvert)
	}
	cmd := exec.CommandContext(ctx, bin, append([]string{"--format", string(to)}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s export: %s", to, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
