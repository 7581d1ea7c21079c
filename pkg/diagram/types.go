package diagram

import (
	"math"
	"strings"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// Position is a node's top-left corner.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is an axis-aligned rectangle.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (b Box) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b Box) Bottom() float64 { return b.Y + b.Height }

// Node is one positioned diagram node.
type Node struct {
	ID       string      `json:"id"`
	Label    string      `json:"label"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Position Position    `json:"position"`
	ParentID string      `json:"parentId,omitempty"`
	Kind     NodeKind    `json:"kind"`
	Class    string      `json:"visualClass"`
	Handle   string      `json:"type"`
	Anchors  AnchorSides `json:"anchorSides"`
}

// Edge is one diagram edge.
type Edge struct {
	ID          string    `json:"id"`
	Source      string    `json:"sourceId"`
	Target      string    `json:"targetId"`
	Style       EdgeStyle `json:"style"`
	Label       string    `json:"label,omitempty"`
	MarkerStart bool      `json:"markerStart,omitempty"`
}

// Diagram is the complete output of one render.
type Diagram struct {
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
	FitView bool   `json:"fitView"`
	Bounds  Box    `json:"bounds"`
}

// Index returns the position of id in d.Nodes, or -1.
func (d *Diagram) Index(id string) int {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// Absolute resolves every node to an absolute box by adding up parent
// offsets. Nodes whose parent is missing are treated as top-level.
func (d *Diagram) Absolute() map[string]Box {
	byID := make(map[string]*Node, len(d.Nodes))
	for i := range d.Nodes {
		byID[d.Nodes[i].ID] = &d.Nodes[i]
	}
	out := make(map[string]Box, len(d.Nodes))
	var resolve func(n *Node, depth int) Box
	resolve = func(n *Node, depth int) Box {
		if b, ok := out[n.ID]; ok {
			return b
		}
		b := Box{X: n.Position.X, Y: n.Position.Y, Width: n.Width, Height: n.Height}
		if p, ok := byID[n.ParentID]; ok && depth < len(d.Nodes) {
			pb := resolve(p, depth+1)
			b.X += pb.X
			b.Y += pb.Y
		}
		out[n.ID] = b
		return b
	}
	for i := range d.Nodes {
		resolve(&d.Nodes[i], 0)
	}
	return out
}

// ComputeBounds sets d.Bounds to the box enclosing every node.
func (d *Diagram) ComputeBounds() {
	if len(d.Nodes) == 0 {
		d.Bounds = Box{}
		return
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range d.Absolute() {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.Right())
		maxY = math.Max(maxY, b.Bottom())
	}
	d.Bounds = Box{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Clone returns a deep copy of d.
func (d *Diagram) Clone() *Diagram {
	if d == nil {
		return nil
	}
	out := *d
	out.Nodes = append([]Node(nil), d.Nodes...)
	out.Edges = append([]Edge(nil), d.Edges...)
	return &out
}

// EdgeStyle is the curve an edge is drawn with.
type EdgeStyle string

const (
	EdgeCurve      EdgeStyle = "curve"
	EdgeStep       EdgeStyle = "step"
	EdgeSmoothStep EdgeStyle = "smoothstep"
	EdgeStraight   EdgeStyle = "straight"
)

// ParseEdgeStyle parses an edge style name. "bezier" and "default" are
// accepted as aliases of "curve".
func ParseEdgeStyle(s string) (EdgeStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "curve", "bezier", "default":
		return EdgeCurve, nil
	case "step":
		return EdgeStep, nil
	case "smoothstep":
		return EdgeSmoothStep, nil
	case "straight":
		return EdgeStraight, nil
	}
	return "", errors.New(errors.ErrCodeInvalidEdge, "unknown edge style %q (valid: curve, step, smoothstep, straight)", s)
}

// Views are the semantic dimensions drawn in a diagram.
type Views struct {
	Callees bool `json:"callees" toml:"callees"`
	Adts    bool `json:"adts" toml:"adts"`
	Tags    bool `json:"tags" toml:"tags"`
}

// AllViews enables every view.
var AllViews = Views{Callees: true, Adts: true, Tags: true}

// ParseViews parses view names ("callees", "adts", "tags"). A list that
// names nothing, nil or empty or only blanks, enables every view; "none"
// disables them all and cannot be combined with other names.
func ParseViews(names []string) (Views, error) {
	var v Views
	var named, none bool
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "callees", "callee":
			v.Callees = true
		case "adts", "adt":
			v.Adts = true
		case "tags", "tag":
			v.Tags = true
		case "none":
			none = true
			continue
		case "":
			continue
		default:
			return Views{}, errors.New(errors.ErrCodeInvalidView, "unknown view %q (valid: callees, adts, tags, none)", name)
		}
		named = true
	}
	switch {
	case none && named:
		return Views{}, errors.New(errors.ErrCodeInvalidView, "view \"none\" cannot be combined with other views")
	case none:
		return Views{}, nil
	case !named:
		return AllViews, nil
	}
	return v, nil
}

// Names returns the enabled view names.
func (v Views) Names() []string {
	var names []string
	if v.Callees {
		names = append(names, "callees")
	}
	if v.Adts {
		names = append(names, "adts")
	}
	if v.Tags {
		names = append(names, "tags")
	}
	return names
}
