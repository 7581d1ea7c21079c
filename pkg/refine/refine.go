// Package refine applies geometric fixes to a laid out diagram.
//
// The refiner runs after both layout stages. It works on the flat node
// list, where positions are relative to the parent node, and applies five
// passes in order:
//
//  1. label overflow guard: compounds grow to contain children that became
//     wider than their layout box
//  2. spacing enlargement: the ADT wrapping the caller is widened so its
//     fields keep a readable distance from the caller
//  3. overlap avoidance: ungrouped callees move right of every ADT
//  4. root clearance: a top-level caller keeps a gap to its callees
//  5. header synthesis: "Fields" and "Caller" header pseudo nodes
//
// Every pass moves things to a fixed target rather than by a fixed amount,
// so refining an already refined diagram changes nothing.
package refine

import (
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/diagram"
)

// Distances in diagram units. Margins given in cells are multiplied by the
// character width.
const (
	OverflowCellsX = 3
	OverflowCellsY = 2
	FieldGapCells  = 7
	HeaderCells    = 3
	OrphanMargin   = 50
	RootClearance  = 100
)

// epsilon absorbs rounding so a target reached in one run is not missed
// by a hair in the next.
const epsilon = 1e-6

// Options configures a refinement.
type Options struct {
	// CharWidth is the width of one label cell. Defaults to 8.
	CharWidth float64
	Logger    *log.Logger
}

// Report counts what a refinement changed.
type Report struct {
	Grown   int `json:"grown"`
	Widened int `json:"widened"`
	Moved   int `json:"moved"`
	Headers int `json:"headers"`
}

// Changed reports whether any pass modified the diagram.
func (r Report) Changed() bool {
	return r.Grown+r.Widened+r.Moved+r.Headers > 0
}

// Refine applies all passes to d in place. rootID is the caller node.
func Refine(d *diagram.Diagram, rootID string, opts Options) Report {
	if opts.CharWidth <= 0 {
		opts.CharWidth = 8
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	r := &refiner{d: d, rootID: rootID, px: opts.CharWidth}
	r.index()

	r.guardOverflow()
	r.enlargeSpacing()
	r.avoidOverlap()
	r.clearRoot()
	r.synthesizeHeaders()

	opts.Logger.Debug("refined diagram",
		"grown", r.report.Grown, "widened", r.report.Widened,
		"moved", r.report.Moved, "headers", r.report.Headers)
	return r.report
}

type refiner struct {
	d        *diagram.Diagram
	rootID   string
	px       float64
	byID     map[string]int
	children map[string][]int
	report   Report
}

func (r *refiner) index() {
	r.byID = make(map[string]int, len(r.d.Nodes))
	r.children = make(map[string][]int)
	for i, n := range r.d.Nodes {
		r.byID[n.ID] = i
	}
	for i, n := range r.d.Nodes {
		if n.ParentID != "" {
			r.children[n.ParentID] = append(r.children[n.ParentID], i)
		}
	}
}

func (r *refiner) node(id string) *diagram.Node {
	if i, ok := r.byID[id]; ok {
		return &r.d.Nodes[i]
	}
	return nil
}

func (r *refiner) depth(i int) int {
	depth := 0
	for n := r.d.Nodes[i]; n.ParentID != "" && depth <= len(r.d.Nodes); depth++ {
		p, ok := r.byID[n.ParentID]
		if !ok {
			break
		}
		n = r.d.Nodes[p]
	}
	return depth
}

// pseudoHeader reports whether n is a header label drawn by this package.
// The "Fields" compound shares the header kind but holds the field leaves.
func (r *refiner) pseudoHeader(n diagram.Node) bool {
	return n.Kind.IsHeader() && len(r.children[n.ID]) == 0
}

// guardOverflow grows parents so every child stays inside, deepest first
// so growth propagates outwards. The caller keeps a wider margin to its
// ADT border; other children only need to fit.
func (r *refiner) guardOverflow() {
	order := make([]int, 0, len(r.d.Nodes))
	depths := make([]int, len(r.d.Nodes))
	for i, n := range r.d.Nodes {
		if n.ParentID == "" || r.pseudoHeader(n) {
			continue
		}
		depths[i] = r.depth(i)
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool { return depths[order[a]] > depths[order[b]] })

	for _, i := range order {
		c := r.d.Nodes[i]
		p := r.node(c.ParentID)
		if p == nil {
			continue
		}
		var mx, my float64
		if c.ID == r.rootID {
			mx, my = OverflowCellsX*r.px, OverflowCellsY*r.px
		}
		grown := false
		if need := c.Position.X + c.Width + mx; p.Width < need-epsilon {
			p.Width = need
			grown = true
		}
		if need := c.Position.Y + c.Height + my; p.Height < need-epsilon {
			p.Height = need
			grown = true
		}
		if grown {
			r.report.Grown++
		}
	}
}

// selfAdt describes an ADT that holds the caller next to its fields.
type selfAdt struct {
	adt    *diagram.Node
	root   *diagram.Node
	fields []*diagram.Node
}

func (r *refiner) selfAdts() []selfAdt {
	var out []selfAdt
	for i := range r.d.Nodes {
		n := &r.d.Nodes[i]
		if n.Kind != diagram.KindAdt {
			continue
		}
		s := selfAdt{adt: n}
		for _, ci := range r.children[n.ID] {
			c := &r.d.Nodes[ci]
			switch {
			case c.ID == r.rootID:
				s.root = c
			case c.Kind == diagram.KindField:
				s.fields = append(s.fields, c)
			}
		}
		if s.root != nil && len(s.fields) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// enlargeSpacing pushes the caller away from the fields it touches. The
// ADT moves left and widens by the same amount so its right border and
// the caller's absolute position stay put.
func (r *refiner) enlargeSpacing() {
	minGap := FieldGapCells * r.px
	for _, s := range r.selfAdts() {
		gap := math.Inf(1)
		for _, f := range s.fields {
			gap = math.Min(gap, s.root.Position.X-f.Position.X-f.Width)
		}
		if gap >= minGap-epsilon {
			continue
		}
		d := minGap - gap
		s.adt.Position.X -= d
		s.adt.Width += d
		s.root.Position.X += d
		r.report.Widened++
	}
}

// avoidOverlap moves every top-level ungrouped callee right of the
// rightmost top-level ADT.
func (r *refiner) avoidOverlap() {
	maxRight := math.Inf(-1)
	for _, n := range r.d.Nodes {
		if n.ParentID == "" && n.Kind == diagram.KindAdt {
			maxRight = math.Max(maxRight, n.Position.X+n.Width)
		}
	}
	if math.IsInf(maxRight, -1) {
		return
	}
	limit := maxRight + OrphanMargin
	for i := range r.d.Nodes {
		n := &r.d.Nodes[i]
		if n.ParentID != "" || n.ID == r.rootID {
			continue
		}
		if n.Kind != diagram.KindSafeFn && n.Kind != diagram.KindUnsafeFn {
			continue
		}
		if n.Position.X < limit-epsilon {
			n.Position.X = limit
			r.report.Moved++
		}
	}
}

// clearRoot keeps a top-level caller at least RootClearance left of the
// leftmost other top-level node.
func (r *refiner) clearRoot() {
	root := r.node(r.rootID)
	if root == nil || root.ParentID != "" {
		return
	}
	leftmost := math.Inf(1)
	for _, n := range r.d.Nodes {
		if n.ParentID != "" || n.ID == r.rootID || n.Kind.IsHeader() {
			continue
		}
		leftmost = math.Min(leftmost, n.Position.X)
	}
	if math.IsInf(leftmost, 1) {
		return
	}
	if gap := leftmost - root.Position.X - root.Width; gap < RootClearance-epsilon {
		root.Position.X = leftmost - RootClearance - root.Width
		r.report.Moved++
	}
}

// synthesizeHeaders labels the field column and the caller inside each
// ADT that wraps the caller. Existing headers are repositioned, never
// duplicated.
func (r *refiner) synthesizeHeaders() {
	offset := HeaderCells * r.px
	var headers []diagram.Node
	for _, s := range r.selfAdts() {
		minX, minY := math.Inf(1), math.Inf(1)
		for _, f := range s.fields {
			minX = math.Min(minX, f.Position.X)
			minY = math.Min(minY, f.Position.Y)
		}
		label := "Fields"
		if len(s.fields) == 1 {
			label = "Field"
		}
		headers = append(headers,
			diagram.Node{
				ID: diagram.FieldHeaderID(s.adt.ID), Label: label, Kind: diagram.KindFieldHeader,
				ParentID: s.adt.ID, Position: diagram.Position{X: minX, Y: minY - offset},
			},
			diagram.Node{
				ID: diagram.CallerHeaderID(s.root.ID), Label: "Caller", Kind: diagram.KindCallerHeader,
				ParentID: s.adt.ID, Position: diagram.Position{X: s.root.Position.X, Y: s.root.Position.Y - offset},
			},
		)
	}
	for _, h := range headers {
		r.header(h)
	}
}

func (r *refiner) header(h diagram.Node) {
	if n := r.node(h.ID); n != nil {
		n.Position = h.Position
		n.Label = h.Label
		return
	}
	h.Width, h.Height = diagram.Footprint(h.Label, r.px)
	h.Class = h.Kind.Class()
	h.Handle = h.Kind.Handle()
	h.Anchors = h.Kind.Anchors()
	r.d.Nodes = append(r.d.Nodes, h)
	i := len(r.d.Nodes) - 1
	r.byID[h.ID] = i
	r.children[h.ParentID] = append(r.children[h.ParentID], i)
	r.report.Headers++
}
