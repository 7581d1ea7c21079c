// Package gv runs both layout ports on Graphviz (through go-graphviz).
//
// The graph is written as DOT text, laid out by the engine matching the
// requested algorithm (dot for layered and tree, fdp for force, twopi for
// radial), rendered back to DOT and parsed again so node "pos" and cluster
// "bb" attributes can be read. Compound nodes become clusters; edges that
// end on a compound are attached to its first leaf and clipped to the
// cluster with lhead/ltail.
//
// Graphviz works in points with y growing upwards. Boxes returned by this
// package are converted to top-left coordinates with y growing downwards.
package gv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/upgraph/pkg/layout"
)

const pointsPerInch = 72

// EngineFor returns the Graphviz engine used for alg.
func EngineFor(alg layout.Algorithm) graphviz.Layout {
	switch alg {
	case layout.Force:
		return graphviz.FDP
	case layout.Radial:
		return graphviz.TWOPI
	default:
		return graphviz.DOT
	}
}

// Hierarchical implements [layout.HierarchicalPort] on Graphviz clusters.
type Hierarchical struct {
	Logger *log.Logger
}

// NewHierarchical creates a Graphviz nested layout engine.
func NewHierarchical(logger *log.Logger) *Hierarchical {
	return &Hierarchical{Logger: orDiscard(logger)}
}

// Layout implements [layout.HierarchicalPort].
func (h *Hierarchical) Layout(ctx context.Context, g *layout.Graph) (layout.Positions, error) {
	const engine = "graphviz nested"
	if g == nil {
		return nil, layout.Failure(engine, fmt.Errorf("nil graph"))
	}
	dot := HierarchicalDOT(g)
	out, err := run(ctx, dot, EngineFor(g.Algorithm))
	if err != nil {
		return nil, layout.Failure(engine, err)
	}
	defer out.Close()

	pos, err := readHierarchical(out, g)
	if err != nil {
		return nil, layout.Failure(engine, err)
	}
	if err := layout.CheckComplete(engine, pos, g.IDs()); err != nil {
		return nil, err
	}
	h.Logger.Debug("graphviz nested layout", "engine", EngineFor(g.Algorithm), "nodes", len(pos))
	return pos, nil
}

// Tree implements [layout.TreePort] with dot and rankdir=LR.
type Tree struct {
	Logger *log.Logger
}

// NewTree creates a Graphviz tree layout engine.
func NewTree(logger *log.Logger) *Tree {
	return &Tree{Logger: orDiscard(logger)}
}

// Layout implements [layout.TreePort].
func (t *Tree) Layout(ctx context.Context, nodes []layout.TreeNode, edges []layout.Edge) (layout.Positions, error) {
	const engine = "graphviz tree"
	dot := TreeDOT(nodes, edges)
	out, err := run(ctx, dot, graphviz.DOT)
	if err != nil {
		return nil, layout.Failure(engine, err)
	}
	defer out.Close()

	height := graphHeight(out)
	pos := make(layout.Positions, len(nodes))
	for _, n := range nodes {
		b, err := nodeBox(out, n.ID, height)
		if err != nil {
			return nil, layout.Failure(engine, err)
		}
		pos[n.ID] = b
	}
	t.Logger.Debug("graphviz tree layout", "nodes", len(pos))
	return pos, nil
}

func orDiscard(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return logger
}

// run lays out dot with engine and returns the parsed, positioned graph.
func run(ctx context.Context, dot string, engine graphviz.Layout) (*graphviz.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	gv.SetLayout(engine)
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := graphviz.ParseBytes(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse layout output: %w", err)
	}
	return out, nil
}

// HierarchicalDOT writes g as DOT with one cluster per compound node.
func HierarchicalDOT(g *layout.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  compound=true;\n")
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(layout.NodeSpacing/2))
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(layout.RankSpacing))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")

	for _, n := range g.Children {
		writeNode(&buf, n, "  ")
	}

	anchors := make(map[string]string)
	clusters := make(map[string]bool)
	g.Walk(func(n, _ *layout.Node) {
		if n.IsCompound() {
			clusters[n.ID] = true
		}
		anchors[n.ID] = firstLeaf(n)
	})
	for _, e := range g.Edges {
		src, ok1 := anchors[e.Source]
		dst, ok2 := anchors[e.Target]
		if !ok1 || !ok2 || src == dst {
			continue
		}
		var attrs []string
		if clusters[e.Source] {
			attrs = append(attrs, fmt.Sprintf("ltail=%q", clusterName(e.Source)))
		}
		if clusters[e.Target] {
			attrs = append(attrs, fmt.Sprintf("lhead=%q", clusterName(e.Target)))
		}
		if len(attrs) > 0 {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", src, dst, strings.Join(attrs, ", "))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", src, dst)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *layout.Node, indent string) {
	if !n.IsCompound() {
		w, h := n.Width, n.Height
		if w == 0 || h == 0 {
			w, h = n.LabelWidth, n.LabelHeight
		}
		fmt.Fprintf(buf, "%s%q [width=%s, height=%s];\n", indent, n.ID, inches(w), inches(h))
		return
	}
	fmt.Fprintf(buf, "%ssubgraph %q {\n", indent, clusterName(n.ID))
	fmt.Fprintf(buf, "%s  label=%q;\n", indent, n.Label)
	fmt.Fprintf(buf, "%s  labelloc=t;\n", indent)
	fmt.Fprintf(buf, "%s  margin=%s;\n", indent, strconv.FormatFloat(n.Hints.Padding, 'f', 2, 64))
	for _, c := range n.Children {
		writeNode(buf, c, indent+"  ")
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

// TreeDOT writes a flat left-to-right DOT graph.
func TreeDOT(nodes []layout.TreeNode, edges []layout.Edge) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(layout.NodeSpacing))
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(layout.RankSpacing))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
		fmt.Fprintf(&buf, "  %q [width=%s, height=%s];\n", n.ID, inches(n.Width), inches(n.Height))
	}
	for _, e := range edges {
		if known[e.Source] && known[e.Target] && e.Source != e.Target {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

func clusterName(id string) string {
	return "cluster_" + id
}

func firstLeaf(n *layout.Node) string {
	for n.IsCompound() {
		n = n.Children[0]
	}
	return n.ID
}

func inches(points float64) string {
	return strconv.FormatFloat(points/pointsPerInch, 'f', 4, 64)
}
