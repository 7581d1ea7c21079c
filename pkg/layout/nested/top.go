package nested

import (
	"math"

	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/layout/tree"
)

// arrangeTop positions the top-level nodes. sizes is aligned with
// g.Children and so is the result.
func arrangeTop(g *layout.Graph, sizes []size) []layout.Box {
	nodes := make([]layout.TreeNode, len(g.Children))
	for i, n := range g.Children {
		nodes[i] = layout.TreeNode{ID: n.ID, Width: sizes[i].w, Height: sizes[i].h}
	}
	edges := liftEdges(g)

	var boxes []layout.Box
	switch g.Algorithm {
	case layout.Radial:
		boxes = radial(nodes)
	case layout.Force:
		boxes = force(nodes, edges)
	default:
		order := tree.OrderBarycenter
		if g.Algorithm == layout.Tree {
			order = tree.OrderDepthFirst
		}
		pos := tree.Arrange(nodes, edges, order)
		boxes = make([]layout.Box, len(nodes))
		for i, n := range nodes {
			boxes[i] = pos[n.ID]
		}
	}
	return normalize(boxes)
}

// liftEdges maps every edge to the top-level ancestors of its endpoints and
// drops the ones that stay inside a single top-level node.
func liftEdges(g *layout.Graph) []layout.Edge {
	topOf := make(map[string]string)
	for _, n := range g.Children {
		var mark func(m *layout.Node)
		mark = func(m *layout.Node) {
			topOf[m.ID] = n.ID
			for _, c := range m.Children {
				mark(c)
			}
		}
		mark(n)
	}

	seen := make(map[[2]string]bool)
	var out []layout.Edge
	for _, e := range g.Edges {
		s, ok1 := topOf[e.Source]
		t, ok2 := topOf[e.Target]
		if !ok1 || !ok2 || s == t || seen[[2]string{s, t}] {
			continue
		}
		seen[[2]string{s, t}] = true
		out = append(out, layout.Edge{ID: e.ID, Source: s, Target: t})
	}
	return out
}

// radial places the first node in the center and the others evenly on a
// ring large enough that neighbours do not touch.
func radial(nodes []layout.TreeNode) []layout.Box {
	boxes := make([]layout.Box, len(nodes))
	if len(nodes) == 0 {
		return boxes
	}
	diag := func(n layout.TreeNode) float64 { return math.Hypot(n.Width, n.Height) }

	center := nodes[0]
	boxes[0] = layout.Box{X: -center.Width / 2, Y: -center.Height / 2, Width: center.Width, Height: center.Height}

	rest := nodes[1:]
	if len(rest) == 0 {
		return boxes
	}
	var circumference, widest float64
	for _, n := range rest {
		circumference += diag(n) + layout.NodeSpacing
		widest = math.Max(widest, diag(n))
	}
	radius := math.Max(circumference/(2*math.Pi), (diag(center)+widest)/2+layout.RankSpacing)

	step := 2 * math.Pi / float64(len(rest))
	for i, n := range rest {
		a := float64(i) * step
		cx, cy := radius*math.Cos(a), radius*math.Sin(a)
		boxes[i+1] = layout.Box{X: cx - n.Width/2, Y: cy - n.Height/2, Width: n.Width, Height: n.Height}
	}
	return boxes
}

// force relaxes the radial arrangement with Fruchterman-Reingold springs:
// every pair repels, edges attract. The step size cools linearly.
func force(nodes []layout.TreeNode, edges []layout.Edge) []layout.Box {
	boxes := radial(nodes)
	if len(nodes) < 2 {
		return boxes
	}
	index := make(map[string]int, len(nodes))
	cx := make([]float64, len(nodes))
	cy := make([]float64, len(nodes))
	var k float64
	for i, n := range nodes {
		index[n.ID] = i
		cx[i] = boxes[i].X + n.Width/2
		cy[i] = boxes[i].Y + n.Height/2
		k = math.Max(k, math.Hypot(n.Width, n.Height))
	}
	k += layout.NodeSpacing

	const iterations = 200
	temp := k
	dx := make([]float64, len(nodes))
	dy := make([]float64, len(nodes))
	for it := 0; it < iterations; it++ {
		clear(dx)
		clear(dy)
		for i := range nodes {
			for j := i + 1; j < len(nodes); j++ {
				ex, ey := cx[i]-cx[j], cy[i]-cy[j]
				d := math.Max(math.Hypot(ex, ey), 0.01)
				f := k * k / d
				dx[i] += ex / d * f
				dy[i] += ey / d * f
				dx[j] -= ex / d * f
				dy[j] -= ey / d * f
			}
		}
		for _, e := range edges {
			s, t := index[e.Source], index[e.Target]
			ex, ey := cx[s]-cx[t], cy[s]-cy[t]
			d := math.Max(math.Hypot(ex, ey), 0.01)
			f := d * d / k
			dx[s] -= ex / d * f
			dy[s] -= ey / d * f
			dx[t] += ex / d * f
			dy[t] += ey / d * f
		}
		for i := range nodes {
			d := math.Max(math.Hypot(dx[i], dy[i]), 0.01)
			step := math.Min(d, temp)
			cx[i] += dx[i] / d * step
			cy[i] += dy[i] / d * step
		}
		temp = k * (1 - float64(it+1)/iterations)
	}

	for i, n := range nodes {
		boxes[i] = layout.Box{X: cx[i] - n.Width/2, Y: cy[i] - n.Height/2, Width: n.Width, Height: n.Height}
	}
	return boxes
}

// normalize shifts boxes so the smallest x and y are 0.
func normalize(boxes []layout.Box) []layout.Box {
	if len(boxes) == 0 {
		return boxes
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, b := range boxes {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
	}
	for i := range boxes {
		boxes[i].X -= minX
		boxes[i].Y -= minY
	}
	return boxes
}
