package tree

import (
	"context"
	"testing"

	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
)

func TestLayoutColumns(t *testing.T) {
	nodes := []layout.TreeNode{
		{ID: "root", Width: 100, Height: 40},
		{ID: "a", Width: 60, Height: 40},
		{ID: "b", Width: 80, Height: 40},
	}
	edges := []layout.Edge{{Source: "root", Target: "a"}, {Source: "root", Target: "b"}}

	pos, err := New(nil).Layout(context.Background(), nodes, edges)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}

	root, a, b := pos["root"], pos["a"], pos["b"]
	if root.X != 0 {
		t.Errorf("root.X = %v, want 0", root.X)
	}
	// Column 1 starts after the root and the rank gap; a is centered on it.
	if b.X != 150 || a.X != 160 {
		t.Errorf("a.X, b.X = %v, %v, want 160, 150", a.X, b.X)
	}
	if a.Y != 0 || b.Y != 90 {
		t.Errorf("a.Y, b.Y = %v, %v, want 0, 90", a.Y, b.Y)
	}
	// Root is centered on the 130-high column.
	if root.Y != 45 {
		t.Errorf("root.Y = %v, want 45", root.Y)
	}
}

func TestAssignRanks(t *testing.T) {
	// 0 -> 1 -> 2, 0 -> 2, and a cycle 3 <-> 4 fed by 2.
	succ := [][]int{{1, 2}, {2}, {3}, {4}, {3}}
	pred := [][]int{{}, {0}, {0, 1}, {2, 4}, {3}}
	ranks := AssignRanks(5, succ, pred)

	if ranks[0] != 0 || ranks[1] != 1 || ranks[2] != 2 {
		t.Errorf("ranks = %v", ranks)
	}
	if ranks[3] < 3 || ranks[4] < ranks[3] {
		t.Errorf("cycle ranks = %v", ranks)
	}
}

func TestArrangeOrders(t *testing.T) {
	nodes := []layout.TreeNode{
		{ID: "r1", Width: 10, Height: 10},
		{ID: "r2", Width: 10, Height: 10},
		{ID: "x", Width: 10, Height: 10},
		{ID: "y", Width: 10, Height: 10},
	}
	// r2 feeds x, r1 feeds y: barycentric order puts y above x.
	edges := []layout.Edge{{Source: "r2", Target: "x"}, {Source: "r1", Target: "y"}}

	bary := Arrange(nodes, edges, OrderBarycenter)
	if bary["y"].Y >= bary["x"].Y {
		t.Errorf("barycenter: y=%v x=%v", bary["y"].Y, bary["x"].Y)
	}
	input := Arrange(nodes, edges, OrderInput)
	if input["x"].Y >= input["y"].Y {
		t.Errorf("input: x=%v y=%v", input["x"].Y, input["y"].Y)
	}
	dfs := Arrange(nodes, edges, OrderDepthFirst)
	if dfs["y"].Y >= dfs["x"].Y {
		t.Errorf("depth first: y=%v x=%v", dfs["y"].Y, dfs["x"].Y)
	}
}

func TestLayoutIgnoresForeignEdges(t *testing.T) {
	nodes := []layout.TreeNode{{ID: "a", Width: 10, Height: 10}}
	pos, err := New(nil).Layout(context.Background(), nodes, []layout.Edge{{Source: "a", Target: "ghost"}})
	if err != nil {
		t.Fatal(err)
	}
	if pos["a"].X != 0 || pos["a"].Y != 0 {
		t.Errorf("a = %+v", pos["a"])
	}
}

func TestLayoutFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).Layout(ctx, nil, nil); !errors.Is(err, errors.ErrCodeLayoutEngine) {
		t.Errorf("cancelled: %v", err)
	}

	dup := []layout.TreeNode{{ID: "a", Width: 1, Height: 1}, {ID: "a", Width: 1, Height: 1}}
	if _, err := New(nil).Layout(context.Background(), dup, nil); !errors.Is(err, errors.ErrCodeLayoutEngine) {
		t.Errorf("duplicate: %v", err)
	}
}
