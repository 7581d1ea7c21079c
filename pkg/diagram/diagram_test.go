package diagram

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/matzehuels/upgraph/pkg/errors"
)

func TestIDs(t *testing.T) {
	adt := AdtID("Vec")
	group := KindGroupID(adt, "Constructor")

	tests := []struct {
		got, want string
	}{
		{RootID("crate::foo"), "crate::foo"},
		{CalleeID("crate::bar", ""), "c@crate::bar"},
		{CalleeID("Vec::push", group), "c@Vec::push@kind@Constructor@adt@Vec"},
		{adt, "adt@Vec"},
		{SelfAdtID("Vec"), "self@adt@Vec"},
		{group, "kind@Constructor@adt@Vec"},
		{FieldsID(adt), "Fields@adt@Vec"},
		{FieldID(adt, "len"), "field@len@adt@Vec"},
		{TagID("ValidPtr", "f", 3), "tag@ValidPtr@f@3"},
		{EdgeID("a", "b"), "e@a->b"},
		{FieldHeaderID(adt), "FieldHeader@adt@Vec"},
		{CallerHeaderID("f"), "CallerHeader@f"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("id = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestCalleeIDsDifferPerGroup(t *testing.T) {
	a := CalleeID("f", KindGroupID(AdtID("A"), "Constructor"))
	b := CalleeID("f", KindGroupID(AdtID("B"), "Constructor"))
	c := CalleeID("f", KindGroupID(AdtID("A"), "MutableAsArgument"))
	if a == b || a == c || b == c {
		t.Errorf("callee ids collide: %q %q %q", a, b, c)
	}
}

func TestFnKind(t *testing.T) {
	tests := []struct {
		safe, root, withAdt bool
		want                NodeKind
	}{
		{true, true, false, KindSafeRoot},
		{false, true, false, KindUnsafeRoot},
		{true, false, false, KindSafeFn},
		{false, false, false, KindUnsafeFn},
		{true, false, true, KindSafeFnWithAdt},
		{false, false, true, KindUnsafeFnWithAdt},
	}
	for _, tt := range tests {
		if got := FnKind(tt.safe, tt.root, tt.withAdt); got != tt.want {
			t.Errorf("FnKind(%v, %v, %v) = %v, want %v", tt.safe, tt.root, tt.withAdt, got, tt.want)
		}
	}
}

func TestKindProperties(t *testing.T) {
	tests := []struct {
		kind      NodeKind
		class     string
		handle    string
		anchors   AnchorSides
		refinable bool
	}{
		{KindSafeRoot, ClassFn, HandleDefault, AnchorSides{SideRight, SideLeft}, true},
		{KindUnsafeRoot, ClassUnsafeFn, HandleDefault, AnchorSides{SideRight, SideLeft}, true},
		{KindSafeFn, ClassFn, HandleOutput, AnchorSides{SideRight, SideLeft}, true},
		{KindUnsafeFn, ClassUnsafeFn, HandleOutput, AnchorSides{SideRight, SideLeft}, true},
		{KindSafeFnWithAdt, ClassFn, HandleOutput, AnchorSides{SideRight, SideBottom}, false},
		{KindUnsafeFnWithAdt, ClassUnsafeFn, HandleOutput, AnchorSides{SideRight, SideBottom}, false},
		{KindTag, ClassTag, HandleTag, AnchorSides{}, false},
		{KindAdt, ClassAdt, HandleNone, AnchorSides{SideRight, SideLeft}, true},
		{KindAccessKindGroup, ClassAdtFnKind, HandleNone, AnchorSides{Source: SideBottom}, false},
		{KindField, ClassField, HandleInput, AnchorSides{SideRight, SideLeft}, false},
		{KindFieldHeader, ClassHeader, HandleNone, AnchorSides{}, false},
		{KindCallerHeader, ClassHeader, HandleNone, AnchorSides{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.Class(); got != tt.class {
				t.Errorf("Class() = %q, want %q", got, tt.class)
			}
			if got := tt.kind.Handle(); got != tt.handle {
				t.Errorf("Handle() = %q, want %q", got, tt.handle)
			}
			if got := tt.kind.Anchors(); got != tt.anchors {
				t.Errorf("Anchors() = %+v, want %+v", got, tt.anchors)
			}
			if got := tt.kind.Refinable(); got != tt.refinable {
				t.Errorf("Refinable() = %v, want %v", got, tt.refinable)
			}
		})
	}
}

func TestNodeKindJSON(t *testing.T) {
	data, err := json.Marshal(KindAccessKindGroup)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"AccessKindGroup"` {
		t.Errorf("Marshal = %s", data)
	}

	var k NodeKind
	if err := json.Unmarshal([]byte(`"Field"`), &k); err != nil || k != KindField {
		t.Errorf("Unmarshal = %v, %v", k, err)
	}
	if err := json.Unmarshal([]byte(`"Blob"`), &k); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestRegistryCollision(t *testing.T) {
	r := NewRegistry()
	if err := r.Register("adt@Vec", KindAdt); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register("adt@Vec", KindField)
	if !errors.Is(err, errors.ErrCodeIdentityCollision) {
		t.Fatalf("second Register = %v, want IDENTITY_COLLISION", err)
	}
	if k, _ := r.Kind("adt@Vec"); k != KindAdt {
		t.Errorf("Kind = %v, first registration must stay", k)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestEdgeSetLastWriteWins(t *testing.T) {
	s := NewEdgeSet()
	s.Put(Edge{Source: "a", Target: "b", Label: "read"})
	s.Put(Edge{Source: "a", Target: "c"})
	replaced := s.Put(Edge{Source: "a", Target: "b", Label: "write"})

	if !replaced {
		t.Error("Put of an existing id should report a replacement")
	}
	edges := s.Edges()
	if len(edges) != 2 {
		t.Fatalf("len = %d, want 2", len(edges))
	}
	if edges[0].ID != EdgeID("a", "b") || edges[0].Label != "write" {
		t.Errorf("edges[0] = %+v, want last label in first slot", edges[0])
	}
}

func TestAbsolute(t *testing.T) {
	d := &Diagram{Nodes: []Node{
		{ID: "child", ParentID: "mid", Position: Position{X: 1, Y: 2}, Width: 5, Height: 5},
		{ID: "top", Position: Position{X: 100, Y: 200}, Width: 50, Height: 50},
		{ID: "mid", ParentID: "top", Position: Position{X: 10, Y: 20}, Width: 20, Height: 20},
	}}

	abs := d.Absolute()
	if got := abs["child"]; got.X != 111 || got.Y != 222 {
		t.Errorf("child = %+v, want (111, 222)", got)
	}

	d.ComputeBounds()
	want := Box{X: 100, Y: 200, Width: 50, Height: 50}
	if d.Bounds != want {
		t.Errorf("Bounds = %+v, want %+v", d.Bounds, want)
	}
}

func TestParseEdgeStyle(t *testing.T) {
	for in, want := range map[string]EdgeStyle{"bezier": EdgeCurve, "curve": EdgeCurve, "Step": EdgeStep, "smoothstep": EdgeSmoothStep, "straight": EdgeStraight} {
		got, err := ParseEdgeStyle(in)
		if err != nil || got != want {
			t.Errorf("ParseEdgeStyle(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseEdgeStyle("zigzag"); !errors.Is(err, errors.ErrCodeInvalidEdge) {
		t.Errorf("zigzag: %v", err)
	}
}

func TestParseViews(t *testing.T) {
	for _, names := range [][]string{nil, {}, {"", " "}} {
		v, err := ParseViews(names)
		if err != nil || v != AllViews {
			t.Errorf("ParseViews(%q) = %+v, %v, want all views", names, v, err)
		}
	}

	v, err := ParseViews([]string{"none"})
	if err != nil || v != (Views{}) {
		t.Errorf("ParseViews(none) = %+v, %v, want no views", v, err)
	}
	if _, err := ParseViews([]string{"none", "tags"}); !errors.Is(err, errors.ErrCodeInvalidView) {
		t.Errorf("none+tags: %v", err)
	}

	v, err = ParseViews([]string{"callees", "tags"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v.Names(), []string{"callees", "tags"}) {
		t.Errorf("Names() = %v", v.Names())
	}

	if _, err := ParseViews([]string{"mir"}); !errors.Is(err, errors.ErrCodeInvalidView) {
		t.Errorf("mir: %v", err)
	}
}
