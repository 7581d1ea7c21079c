package layout

import (
	"context"
	"sort"
	"strings"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
)

// Algorithm selects how the top level of a diagram is arranged.
type Algorithm string

const (
	Layered Algorithm = "layered"
	Tree    Algorithm = "tree"
	Radial  Algorithm = "radial"
	Force   Algorithm = "force"
)

// Algorithms lists the supported algorithms.
var Algorithms = []Algorithm{Layered, Tree, Radial, Force}

// ParseAlgorithm parses an algorithm name. "mrtree" is accepted as an
// alias of "tree".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "layered":
		return Layered, nil
	case "tree", "mrtree":
		return Tree, nil
	case "radial":
		return Radial, nil
	case "force":
		return Force, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLayout, "unknown layout %q (valid: layered, tree, radial, force)", s)
}

// Direction is the main axis children of a compound are laid along.
type Direction string

const (
	Right Direction = "right"
	Down  Direction = "down"
)

// Hints tune how one compound node arranges its children.
type Hints struct {
	Direction   Direction
	AspectRatio float64 // target width/height of the packed children
	Center      bool    // center rows along the cross axis
	Padding     float64
	Spacing     float64
}

// Box is an absolute top-left rectangle.
type Box = diagram.Box

// Positions maps node ids to absolute boxes.
type Positions map[string]Box

// Node is one node submitted for layout. Leaves carry a fixed size;
// compound nodes leave Width and Height at zero and are sized from their
// children and label.
type Node struct {
	ID          string
	Label       string
	Width       float64
	Height      float64
	LabelWidth  float64
	LabelHeight float64
	Hints       Hints
	Children    []*Node
}

// IsCompound reports whether n has children.
func (n *Node) IsCompound() bool {
	return len(n.Children) > 0
}

// Edge is a directed edge between two node ids.
type Edge struct {
	ID     string
	Source string
	Target string
}

// Graph is the input of a hierarchical layout.
type Graph struct {
	Algorithm Algorithm
	Children  []*Node
	Edges     []Edge
}

// Walk visits every node depth-first, parents before children. parent is
// nil for top-level nodes.
func (g *Graph) Walk(fn func(n, parent *Node)) {
	var walk func(nodes []*Node, parent *Node)
	walk = func(nodes []*Node, parent *Node) {
		for _, n := range nodes {
			fn(n, parent)
			walk(n.Children, n)
		}
	}
	walk(g.Children, nil)
}

// IDs returns every node id in walk order.
func (g *Graph) IDs() []string {
	var ids []string
	g.Walk(func(n, _ *Node) { ids = append(ids, n.ID) })
	return ids
}

// Parents maps every nested node id to its parent id.
func (g *Graph) Parents() map[string]string {
	parents := make(map[string]string)
	g.Walk(func(n, parent *Node) {
		if parent != nil {
			parents[n.ID] = parent.ID
		}
	})
	return parents
}

// TreeNode is one node submitted for tree layout.
type TreeNode struct {
	ID     string
	Width  float64
	Height float64
}

// HierarchicalPort lays out a compound node forest.
type HierarchicalPort interface {
	Layout(ctx context.Context, g *Graph) (Positions, error)
}

// TreePort lays out flat nodes left to right.
type TreePort interface {
	Layout(ctx context.Context, nodes []TreeNode, edges []Edge) (Positions, error)
}

// HierarchicalFunc adapts a function to a HierarchicalPort.
type HierarchicalFunc func(ctx context.Context, g *Graph) (Positions, error)

// Layout calls f.
func (f HierarchicalFunc) Layout(ctx context.Context, g *Graph) (Positions, error) {
	return f(ctx, g)
}

// TreeFunc adapts a function to a TreePort.
type TreeFunc func(ctx context.Context, nodes []TreeNode, edges []Edge) (Positions, error)

// Layout calls f.
func (f TreeFunc) Layout(ctx context.Context, nodes []TreeNode, edges []Edge) (Positions, error) {
	return f(ctx, nodes, edges)
}

// Failure wraps an engine error as a LAYOUT_ENGINE_FAILURE.
func Failure(engine string, err error) error {
	if errors.Is(err, errors.ErrCodeLayoutEngine) {
		return err
	}
	return errors.Wrap(errors.ErrCodeLayoutEngine, err, "%s layout failed", engine)
}

// CheckComplete reports a LAYOUT_ENGINE_FAILURE listing the ids that pos
// has no box for.
func CheckComplete(engine string, pos Positions, ids []string) error {
	var missing []string
	for _, id := range ids {
		if _, ok := pos[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	if len(missing) > 5 {
		missing = append(missing[:5], "...")
	}
	return errors.New(errors.ErrCodeLayoutEngine, "%s layout returned no position for %s", engine, strings.Join(missing, ", "))
}
