package pipeline

import (
	"math"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/layout"
)

// flatten converts the nested layout into diagram nodes, parents before
// children. Positions become relative to the parent; top-level nodes keep
// absolute coordinates. A node is never narrower than its label.
func flatten(built *build.Result, abs layout.Positions) *diagram.Diagram {
	d := &diagram.Diagram{}
	built.Graph.Walk(func(n, parent *layout.Node) {
		box := abs[n.ID]
		pos := diagram.Position{X: box.X, Y: box.Y}
		var parentID string
		if parent != nil {
			parentID = parent.ID
			pb := abs[parent.ID]
			pos.X -= pb.X
			pos.Y -= pb.Y
		}
		kind, _ := built.Kinds.Kind(n.ID)
		class := kind.Class()
		if kind == diagram.KindAdt && built.NoFloor[n.ID] {
			class += " " + diagram.ClassAdtNoFloor
		}
		d.Nodes = append(d.Nodes, diagram.Node{
			ID:       n.ID,
			Label:    n.Label,
			Width:    math.Max(box.Width, n.LabelWidth),
			Height:   box.Height,
			Position: pos,
			ParentID: parentID,
			Kind:     kind,
			Class:    class,
			Handle:   kind.Handle(),
			Anchors:  kind.Anchors(),
		})
	})
	return d
}

// treeInput selects the top-level nodes taking part in the tree stage and
// links each of them to the node holding the caller.
func treeInput(d *diagram.Diagram, rootID string) ([]layout.TreeNode, []layout.Edge) {
	source := topLevelAncestor(d, rootID)

	var nodes []layout.TreeNode
	for _, n := range d.Nodes {
		if n.ParentID != "" || !n.Kind.Refinable() {
			continue
		}
		nodes = append(nodes, layout.TreeNode{ID: n.ID, Width: n.Width, Height: n.Height})
	}

	var edges []layout.Edge
	if source == "" {
		return nodes, nil
	}
	for _, n := range nodes {
		if n.ID == source {
			continue
		}
		edges = append(edges, layout.Edge{ID: diagram.EdgeID(source, n.ID), Source: source, Target: n.ID})
	}
	return nodes, edges
}

// topLevelAncestor returns the top-level node containing id, or id itself
// when it is top-level. It returns "" when id is not in d.
func topLevelAncestor(d *diagram.Diagram, id string) string {
	parents := make(map[string]string, len(d.Nodes))
	for _, n := range d.Nodes {
		parents[n.ID] = n.ParentID
	}
	if _, ok := parents[id]; !ok {
		return ""
	}
	for i := 0; parents[id] != "" && i < len(d.Nodes); i++ {
		id = parents[id]
	}
	return id
}

// applyTree moves top-level nodes to their tree positions. Nested nodes
// are relative and follow their ancestors.
func applyTree(d *diagram.Diagram, pos layout.Positions) {
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.ParentID != "" {
			continue
		}
		if b, ok := pos[n.ID]; ok {
			n.Position = diagram.Position{X: b.X, Y: b.Y}
		}
	}
}
