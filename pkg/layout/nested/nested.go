// Package nested is the native compound layout engine behind
// [layout.HierarchicalPort].
//
// Every compound node is laid out bottom-up: its children are packed in
// rows (direction right) or columns (direction down) whose length is
// chosen so the packed block approaches the node's target aspect ratio,
// then the block is framed by padding and a label header. The top level
// is arranged by the graph's algorithm using only the edges between
// top-level nodes (nested endpoints are lifted to their top-level
// ancestor):
//
//	layered  longest-path columns, barycentric order inside a column
//	tree     longest-path columns, depth-first order inside a column
//	radial   first node in the middle, the rest on a ring around it
//	force    spring relaxation seeded from the radial arrangement
//
// The engine is deterministic: identical graphs produce identical boxes.
package nested

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/layout"
)

const engineName = "nested"

// Engine lays out compound node forests.
type Engine struct {
	Logger *log.Logger
}

// New creates an engine that logs to logger (nil discards).
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{Logger: logger}
}

type size struct{ w, h float64 }

// Layout implements [layout.HierarchicalPort].
func (e *Engine) Layout(ctx context.Context, g *layout.Graph) (layout.Positions, error) {
	if err := ctx.Err(); err != nil {
		return nil, layout.Failure(engineName, err)
	}
	if g == nil {
		return nil, layout.Failure(engineName, fmt.Errorf("nil graph"))
	}

	m := &measurer{rel: make(map[string]layout.Box)}
	sizes := make([]size, len(g.Children))
	for i, n := range g.Children {
		s, err := m.measure(n)
		if err != nil {
			return nil, layout.Failure(engineName, err)
		}
		sizes[i] = s
	}

	if err := ctx.Err(); err != nil {
		return nil, layout.Failure(engineName, err)
	}

	top := arrangeTop(g, sizes)
	pos := make(layout.Positions, len(m.rel)+len(top))
	for i, n := range g.Children {
		place(n, top[i], m.rel, pos)
	}

	if err := layout.CheckComplete(engineName, pos, g.IDs()); err != nil {
		return nil, err
	}
	e.Logger.Debug("nested layout", "algorithm", g.Algorithm, "nodes", len(pos))
	return pos, nil
}

// place records the absolute box of n and its descendants.
func place(n *layout.Node, box layout.Box, rel map[string]layout.Box, pos layout.Positions) {
	pos[n.ID] = box
	for _, c := range n.Children {
		r := rel[c.ID]
		place(c, layout.Box{X: box.X + r.X, Y: box.Y + r.Y, Width: r.Width, Height: r.Height}, rel, pos)
	}
}

// measurer sizes compound nodes and remembers child offsets.
type measurer struct {
	rel   map[string]layout.Box
	depth int
}

const maxDepth = 64

func (m *measurer) measure(n *layout.Node) (size, error) {
	if n == nil {
		return size{}, fmt.Errorf("nil node")
	}
	if bad(n.Width) || bad(n.Height) || bad(n.LabelWidth) || bad(n.LabelHeight) {
		return size{}, fmt.Errorf("node %s: invalid dimensions", n.ID)
	}

	if !n.IsCompound() {
		s := size{n.Width, n.Height}
		if s.w == 0 || s.h == 0 {
			s = size{n.LabelWidth, n.LabelHeight}
		}
		if s.w == 0 || s.h == 0 {
			return size{}, fmt.Errorf("node %s has no size", n.ID)
		}
		return s, nil
	}

	m.depth++
	defer func() { m.depth-- }()
	if m.depth > maxDepth {
		return size{}, fmt.Errorf("node %s: nesting deeper than %d", n.ID, maxDepth)
	}

	children := make([]size, len(n.Children))
	for i, c := range n.Children {
		s, err := m.measure(c)
		if err != nil {
			return size{}, err
		}
		children[i] = s
	}

	h := n.Hints
	offsets, content := pack(children, h)

	header := n.LabelHeight + h.Padding
	w := math.Max(content.w+2*h.Padding, n.LabelWidth)
	shift := h.Padding
	if h.Center {
		shift = (w - content.w) / 2
	}
	for i, c := range n.Children {
		m.rel[c.ID] = layout.Box{
			X:      offsets[i].X + shift,
			Y:      offsets[i].Y + header,
			Width:  children[i].w,
			Height: children[i].h,
		}
	}
	return size{w, header + content.h + h.Padding}, nil
}

func bad(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// pack lines items up in rows (direction right) or columns (direction
// down). Line length targets the hint's aspect ratio. It returns the
// offset of every item and the size of the packed block.
func pack(items []size, h layout.Hints) ([]layout.Box, size) {
	out := make([]layout.Box, len(items))
	if len(items) == 0 {
		return out, size{}
	}

	down := h.Direction == layout.Down
	// Work in (main, cross) coordinates and swap at the end for columns.
	main := func(s size) float64 {
		if down {
			return s.h
		}
		return s.w
	}
	cross := func(s size) float64 {
		if down {
			return s.w
		}
		return s.h
	}

	aspect := h.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	var area, longest float64
	for _, s := range items {
		area += (s.w + h.Spacing) * (s.h + h.Spacing)
		longest = math.Max(longest, main(s))
	}
	limit := math.Sqrt(area * aspect)
	if down {
		limit = math.Sqrt(area / aspect)
	}
	limit = math.Max(limit, longest)

	type line struct {
		first, last int
		length      float64
		thickness   float64
	}
	var lines []line
	cur := line{first: 0, last: -1}
	for i, s := range items {
		next := cur.length + main(s)
		if cur.last >= cur.first {
			next += h.Spacing
		}
		if cur.last >= cur.first && next > limit+1e-9 {
			lines = append(lines, cur)
			cur = line{first: i, last: -1}
			next = main(s)
		}
		cur.last = i
		cur.length = next
		cur.thickness = math.Max(cur.thickness, cross(s))
	}
	lines = append(lines, cur)

	var blockMain, blockCross float64
	for i, l := range lines {
		blockMain = math.Max(blockMain, l.length)
		blockCross += l.thickness
		if i > 0 {
			blockCross += h.Spacing
		}
	}

	var offCross float64
	for _, l := range lines {
		offMain := 0.0
		if h.Center {
			offMain = (blockMain - l.length) / 2
		}
		for i := l.first; i <= l.last; i++ {
			s := items[i]
			c := offCross
			if h.Center {
				c += (l.thickness - cross(s)) / 2
			}
			if down {
				out[i] = layout.Box{X: c, Y: offMain, Width: s.w, Height: s.h}
			} else {
				out[i] = layout.Box{X: offMain, Y: c, Width: s.w, Height: s.h}
			}
			offMain += main(s) + h.Spacing
		}
		offCross += l.thickness + h.Spacing
	}

	if down {
		return out, size{blockCross, blockMain}
	}
	return out, size{blockMain, blockCross}
}
