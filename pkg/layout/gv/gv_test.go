package gv

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/upgraph/pkg/layout"
)

func sample() *layout.Graph {
	return &layout.Graph{
		Algorithm: layout.Layered,
		Children: []*layout.Node{
			{ID: "root", Width: 80, Height: 40},
			{
				ID: "adt@Vec", Label: "Vec", LabelWidth: 40, LabelHeight: 20,
				Hints: layout.AdtHints,
				Children: []*layout.Node{
					{ID: "c@push@kind@MutRef@adt@Vec", Width: 60, Height: 30},
				},
			},
		},
		Edges: []layout.Edge{
			{ID: "e@root->adt@Vec", Source: "root", Target: "adt@Vec"},
		},
	}
}

func TestHierarchicalDOT(t *testing.T) {
	dot := HierarchicalDOT(sample())

	for _, want := range []string{
		`subgraph "cluster_adt@Vec"`,
		`label="Vec"`,
		`"root" [width=1.1111, height=0.5556];`,
		`"root" -> "c@push@kind@MutRef@adt@Vec" [lhead="cluster_adt@Vec"];`,
		"compound=true",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestTreeDOTSkipsUnknownEdges(t *testing.T) {
	dot := TreeDOT(
		[]layout.TreeNode{{ID: "a", Width: 72, Height: 36}},
		[]layout.Edge{{Source: "a", Target: "ghost"}, {Source: "a", Target: "a"}},
	)
	if strings.Contains(dot, "->") {
		t.Errorf("expected no edges:\n%s", dot)
	}
	if !strings.Contains(dot, `"a" [width=1.0000, height=0.5000];`) {
		t.Errorf("node sizing wrong:\n%s", dot)
	}
}

func TestEngineFor(t *testing.T) {
	tests := []struct {
		alg  layout.Algorithm
		want graphviz.Layout
	}{
		{layout.Layered, graphviz.DOT},
		{layout.Tree, graphviz.DOT},
		{layout.Force, graphviz.FDP},
		{layout.Radial, graphviz.TWOPI},
	}
	for _, tt := range tests {
		if got := EngineFor(tt.alg); got != tt.want {
			t.Errorf("EngineFor(%s) = %s, want %s", tt.alg, got, tt.want)
		}
	}
}

func TestParseFloats(t *testing.T) {
	got, err := parseFloats("0,0,108.5, 72", 4)
	if err != nil {
		t.Fatal(err)
	}
	if got[2] != 108.5 || got[3] != 72 {
		t.Errorf("got %v", got)
	}
	if _, err := parseFloats("1,2", 4); err == nil {
		t.Error("expected error for short list")
	}
	if _, err := parseFloats("", 2); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestEnclose(t *testing.T) {
	n := &layout.Node{
		ID: "g", LabelWidth: 200, LabelHeight: 20,
		Hints:    layout.Hints{Padding: 10},
		Children: []*layout.Node{{ID: "a"}, {ID: "b"}},
	}
	pos := layout.Positions{
		"a": {X: 100, Y: 100, Width: 40, Height: 20},
		"b": {X: 150, Y: 130, Width: 40, Height: 20},
	}
	b := enclose(n, pos)
	if b.Width != 200 {
		t.Errorf("width = %v, want label width 200", b.Width)
	}
	if b.Y != 70 || b.Height != 70 {
		t.Errorf("vertical extent = (%v, %v), want (70, 70)", b.Y, b.Height)
	}
	if b.X > 100 || b.Right() < 190 {
		t.Errorf("box %+v does not enclose children", b)
	}
}

func TestHierarchicalLayout(t *testing.T) {
	g := sample()
	pos, err := NewHierarchical(nil).Layout(context.Background(), g)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	for _, id := range g.IDs() {
		if _, ok := pos[id]; !ok {
			t.Errorf("missing position for %s", id)
		}
	}
	root, adt, callee := pos["root"], pos["adt@Vec"], pos["c@push@kind@MutRef@adt@Vec"]
	if root.Width < 79 || root.Width > 81 {
		t.Errorf("root width = %v, want 80", root.Width)
	}
	if callee.X < adt.X || callee.Right() > adt.Right()+0.5 {
		t.Errorf("callee %+v escapes cluster %+v", callee, adt)
	}
	if root.Right() > adt.X {
		t.Errorf("root %+v should sit left of cluster %+v", root, adt)
	}
}

func TestTreeLayout(t *testing.T) {
	nodes := []layout.TreeNode{
		{ID: "root", Width: 72, Height: 36},
		{ID: "a", Width: 72, Height: 36},
		{ID: "b", Width: 72, Height: 36},
	}
	edges := []layout.Edge{{Source: "root", Target: "a"}, {Source: "root", Target: "b"}}
	pos, err := NewTree(nil).Layout(context.Background(), nodes, edges)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(pos) != 3 {
		t.Fatalf("got %d positions", len(pos))
	}
	if pos["a"].X <= pos["root"].Right() || pos["b"].X <= pos["root"].Right() {
		t.Errorf("children should be right of root: %+v", pos)
	}
	if pos["a"].Y == pos["b"].Y {
		t.Errorf("siblings share a row: %+v", pos)
	}
}

func TestLayoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTree(nil).Layout(ctx, []layout.TreeNode{{ID: "a", Width: 1, Height: 1}}, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}
