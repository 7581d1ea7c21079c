// Package tree is the native left-to-right ranked layout engine behind
// [layout.TreePort].
//
// Nodes are assigned to columns by longest path from the sources, ordered
// inside each column, and stacked: columns are [layout.RankSpacing] apart,
// nodes within a column [layout.NodeSpacing] apart, every node centered on
// its column's axis and every column centered vertically on the tallest
// one. Boxes are returned top-left, shifted so the smallest x and y are 0.
package tree

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/layout"
)

const engineName = "tree"

// Order selects how nodes are ordered within a column.
type Order int

const (
	// OrderBarycenter sorts by the mean position of predecessors.
	OrderBarycenter Order = iota
	// OrderDepthFirst follows a depth-first walk from the sources.
	OrderDepthFirst
	// OrderInput keeps the input order.
	OrderInput
)

// Engine lays out flat nodes left to right.
type Engine struct {
	Order  Order
	Logger *log.Logger
}

// New creates an engine using barycentric ordering.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Engine{Order: OrderBarycenter, Logger: logger}
}

// Layout implements [layout.TreePort].
func (e *Engine) Layout(ctx context.Context, nodes []layout.TreeNode, edges []layout.Edge) (layout.Positions, error) {
	if err := ctx.Err(); err != nil {
		return nil, layout.Failure(engineName, err)
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.ID] {
			return nil, layout.Failure(engineName, fmt.Errorf("duplicate node %s", n.ID))
		}
		if n.Width < 0 || n.Height < 0 || math.IsNaN(n.Width) || math.IsNaN(n.Height) {
			return nil, layout.Failure(engineName, fmt.Errorf("node %s: invalid dimensions", n.ID))
		}
		seen[n.ID] = true
	}

	pos := Arrange(nodes, edges, e.Order)
	e.Logger.Debug("tree layout", "nodes", len(nodes), "edges", len(edges))
	return pos, nil
}

// Arrange computes the layout synchronously. Edges whose endpoints are not
// both in nodes are ignored.
func Arrange(nodes []layout.TreeNode, edges []layout.Edge, order Order) layout.Positions {
	pos := make(layout.Positions, len(nodes))
	if len(nodes) == 0 {
		return pos
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	succ := make([][]int, len(nodes))
	pred := make([][]int, len(nodes))
	for _, e := range edges {
		s, ok1 := index[e.Source]
		t, ok2 := index[e.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		succ[s] = append(succ[s], t)
		pred[t] = append(pred[t], s)
	}

	ranks := AssignRanks(len(nodes), succ, pred)
	columns := orderColumns(ranks, succ, pred, order)

	// Column widths and x positions.
	colX := make([]float64, len(columns))
	colW := make([]float64, len(columns))
	colH := make([]float64, len(columns))
	var x, tallest float64
	for c, col := range columns {
		for i, n := range col {
			colW[c] = math.Max(colW[c], nodes[n].Width)
			colH[c] += nodes[n].Height
			if i > 0 {
				colH[c] += layout.NodeSpacing
			}
		}
		colX[c] = x
		x += colW[c] + layout.RankSpacing
		tallest = math.Max(tallest, colH[c])
	}

	for c, col := range columns {
		y := (tallest - colH[c]) / 2
		for _, n := range col {
			nd := nodes[n]
			pos[nd.ID] = layout.Box{
				X:      colX[c] + (colW[c]-nd.Width)/2,
				Y:      y,
				Width:  nd.Width,
				Height: nd.Height,
			}
			y += nd.Height + layout.NodeSpacing
		}
	}
	return pos
}

// AssignRanks assigns every node the length of the longest path reaching
// it from a source (Kahn's algorithm). Nodes on a cycle, which never reach
// in-degree zero, are ranked one past their furthest ranked predecessor.
func AssignRanks(n int, succ, pred [][]int) []int {
	ranks := make([]int, n)
	inDegree := make([]int, n)
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		inDegree[i] = len(pred[i])
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	done := make([]bool, n)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		done[curr] = true

		for _, child := range succ[curr] {
			if r := ranks[curr] + 1; r > ranks[child] {
				ranks[child] = r
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for i := 0; i < n; i++ {
		if done[i] {
			continue
		}
		for _, p := range pred[i] {
			if done[p] && ranks[p]+1 > ranks[i] {
				ranks[i] = ranks[p] + 1
			}
		}
		done[i] = true
	}
	return ranks
}

// orderColumns groups node indices by rank and orders each column.
func orderColumns(ranks []int, succ, pred [][]int, order Order) [][]int {
	maxRank := 0
	for _, r := range ranks {
		maxRank = max(maxRank, r)
	}
	columns := make([][]int, maxRank+1)

	switch order {
	case OrderDepthFirst:
		visited := make([]bool, len(ranks))
		var visit func(i int)
		visit = func(i int) {
			if visited[i] {
				return
			}
			visited[i] = true
			columns[ranks[i]] = append(columns[ranks[i]], i)
			for _, c := range succ[i] {
				visit(c)
			}
		}
		for i := range ranks {
			if len(pred[i]) == 0 {
				visit(i)
			}
		}
		for i := range ranks {
			visit(i)
		}
	default:
		for i, r := range ranks {
			columns[r] = append(columns[r], i)
		}
	}

	if order == OrderBarycenter {
		slot := make([]float64, len(ranks))
		for c, col := range columns {
			for i, n := range col {
				slot[n] = float64(i)
			}
			if c == 0 {
				continue
			}
			bary := make(map[int]float64, len(col))
			for _, n := range col {
				var sum float64
				var cnt int
				for _, p := range pred[n] {
					if ranks[p] < c {
						sum += slot[p]
						cnt++
					}
				}
				if cnt > 0 {
					bary[n] = sum / float64(cnt)
				} else {
					bary[n] = slot[n]
				}
			}
			sort.SliceStable(col, func(a, b int) bool { return bary[col[a]] < bary[col[b]] })
			for i, n := range col {
				slot[n] = float64(i)
			}
		}
	}

	// Drop empty columns left by ranks without nodes.
	out := columns[:0]
	for _, col := range columns {
		if len(col) > 0 {
			out = append(out, col)
		}
	}
	return out
}
