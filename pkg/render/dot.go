package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/upgraph/pkg/diagram"
)

const pointsPerInch = 72

// palette maps a node's visual class to its fill and border colors.
var palette = map[string][2]string{
	diagram.ClassFn:        {"#e8f5e9", "#2e7d32"},
	diagram.ClassUnsafeFn:  {"#ffebee", "#c62828"},
	diagram.ClassTag:       {"#fff8e1", "#f9a825"},
	diagram.ClassAdt:       {"#e3f2fd", "#1565c0"},
	diagram.ClassAdtFnKind: {"#f3e5f5", "#6a1b9a"},
	diagram.ClassField:     {"#ffffff", "#455a64"},
	diagram.ClassHeader:    {"transparent", "transparent"},
}

// DOT converts d to Graphviz source with every node pinned to its absolute
// box. Parents are written before their children so nested nodes are
// drawn on top.
func DOT(d *diagram.Diagram) string {
	abs := d.Absolute()

	var buf bytes.Buffer
	buf.WriteString("digraph upg {\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  notranslate=true;\n")
	buf.WriteString("  overlap=true;\n")
	fmt.Fprintf(&buf, "  splines=%s;\n", splines(d))
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fixedsize=true, fontname=\"monospace\", fontsize=10];\n")
	buf.WriteString("  edge [arrowsize=0.6, fontsize=9];\n")
	buf.WriteString("\n")

	for _, n := range drawOrder(d) {
		b := abs[n.ID]
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, b), ", "))
	}

	buf.WriteString("\n")
	for _, e := range d.Edges {
		attrs := []string{}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		if e.MarkerStart {
			attrs = append(attrs, "dir=both")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n diagram.Node, b diagram.Box) []string {
	// Graphviz positions are centers with y pointing up.
	cx, cy := b.X+b.Width/2, -(b.Y + b.Height/2)
	attrs := []string{
		fmt.Sprintf("label=%q", n.Label),
		fmt.Sprintf("pos=\"%s,%s!\"", num(cx), num(cy)),
		fmt.Sprintf("width=%s", num(b.Width/pointsPerInch)),
		fmt.Sprintf("height=%s", num(b.Height/pointsPerInch)),
	}
	base := strings.Fields(n.Class)
	if len(base) > 0 {
		if c, ok := palette[base[0]]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", c[0]), fmt.Sprintf("color=%q", c[1]))
		}
	}
	switch n.Kind {
	case diagram.KindAdt, diagram.KindAccessKindGroup:
		attrs = append(attrs, "labelloc=t")
	case diagram.KindFieldHeader, diagram.KindCallerHeader:
		attrs = append(attrs, "shape=plaintext")
	}
	if strings.Contains(n.Class, diagram.ClassAdtNoFloor) {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

// drawOrder lists nodes parents first, keeping input order among siblings.
func drawOrder(d *diagram.Diagram) []diagram.Node {
	present := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		present[n.ID] = true
	}
	children := make(map[string][]diagram.Node)
	var roots []diagram.Node
	for _, n := range d.Nodes {
		if n.ParentID == "" || !present[n.ParentID] {
			roots = append(roots, n)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	out := make([]diagram.Node, 0, len(d.Nodes))
	seen := make(map[string]bool, len(d.Nodes))
	var walk func(n diagram.Node)
	walk = func(n diagram.Node) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		out = append(out, n)
		for _, c := range children[n.ID] {
			walk(c)
		}
	}
	for _, n := range roots {
		walk(n)
	}
	// Nodes on a parent cycle are unreachable from any root.
	for _, n := range d.Nodes {
		walk(n)
	}
	return out
}

func splines(d *diagram.Diagram) string {
	style := diagram.EdgeCurve
	if len(d.Edges) > 0 {
		style = d.Edges[0].Style
	}
	switch style {
	case diagram.EdgeStep, diagram.EdgeSmoothStep:
		return "ortho"
	case diagram.EdgeStraight:
		return "line"
	default:
		return "spline"
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// SVG draws d with Graphviz. Nodes keep their pinned positions; only the
// edges are routed.
func SVG(ctx context.Context, d *diagram.Diagram) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(DOT(d)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	gv.SetLayout(graphviz.NEATO)

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the SVG scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
