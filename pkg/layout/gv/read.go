package gv

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/upgraph/pkg/layout"
)

// readHierarchical collects the boxes of every node in g from the laid
// out graph out. Clusters without a bounding box (engines that ignore
// clusters) are sized to enclose their children plus padding.
func readHierarchical(out *graphviz.Graph, g *layout.Graph) (layout.Positions, error) {
	height := graphHeight(out)
	pos := make(layout.Positions)

	var visit func(n *layout.Node) error
	visit = func(n *layout.Node) error {
		if !n.IsCompound() {
			b, err := nodeBox(out, n.ID, height)
			if err != nil {
				return err
			}
			pos[n.ID] = b
			return nil
		}
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		if b, ok := clusterBox(out, n.ID, height); ok {
			pos[n.ID] = b
			return nil
		}
		pos[n.ID] = enclose(n, pos)
		return nil
	}

	for _, n := range g.Children {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// graphHeight returns the height of the root bounding box in points.
func graphHeight(g *graphviz.Graph) float64 {
	bb, err := parseFloats(g.GetStr("bb"), 4)
	if err != nil {
		return 0
	}
	return bb[3]
}

func nodeBox(g *graphviz.Graph, id string, height float64) (layout.Box, error) {
	n, err := g.NodeByName(id)
	if err != nil || n == nil {
		return layout.Box{}, fmt.Errorf("node %s missing from layout", id)
	}
	p, err := parseFloats(strings.TrimSuffix(n.GetStr("pos"), "!"), 2)
	if err != nil {
		return layout.Box{}, fmt.Errorf("node %s: pos: %w", id, err)
	}
	w, err := strconv.ParseFloat(n.GetStr("width"), 64)
	if err != nil {
		return layout.Box{}, fmt.Errorf("node %s: width: %w", id, err)
	}
	h, err := strconv.ParseFloat(n.GetStr("height"), 64)
	if err != nil {
		return layout.Box{}, fmt.Errorf("node %s: height: %w", id, err)
	}
	w *= pointsPerInch
	h *= pointsPerInch
	return layout.Box{X: p[0] - w/2, Y: height - p[1] - h/2, Width: w, Height: h}, nil
}

func clusterBox(g *graphviz.Graph, id string, height float64) (layout.Box, bool) {
	sub, err := g.SubGraphByName(clusterName(id))
	if err != nil || sub == nil {
		return layout.Box{}, false
	}
	bb, err := parseFloats(sub.GetStr("bb"), 4)
	if err != nil {
		return layout.Box{}, false
	}
	return layout.Box{X: bb[0], Y: height - bb[3], Width: bb[2] - bb[0], Height: bb[3] - bb[1]}, true
}

// enclose returns the box around n's children grown by padding, with room
// for the label on top.
func enclose(n *layout.Node, pos layout.Positions) layout.Box {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range n.Children {
		b := pos[c.ID]
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.Right())
		maxY = math.Max(maxY, b.Bottom())
	}
	pad := n.Hints.Padding
	b := layout.Box{
		X:      minX - pad,
		Y:      minY - pad - n.LabelHeight,
		Width:  maxX - minX + 2*pad,
		Height: maxY - minY + 2*pad + n.LabelHeight,
	}
	if b.Width < n.LabelWidth {
		b.X -= (n.LabelWidth - b.Width) / 2
		b.Width = n.LabelWidth
	}
	return b
}

// parseFloats parses a comma separated list of exactly n numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
