package build

import (
	"reflect"
	"sort"
	"testing"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/upg"
)

func allViews() Options {
	return Options{Views: diagram.AllViews}
}

// collect maps every node id to its parent id ("" for top-level).
func collect(r *Result) map[string]string {
	out := map[string]string{}
	r.Graph.Walk(func(n, parent *layout.Node) {
		p := ""
		if parent != nil {
			p = parent.ID
		}
		out[n.ID] = p
	})
	return out
}

func kindOf(t *testing.T, r *Result, id string) diagram.NodeKind {
	t.Helper()
	k, ok := r.Kinds.Kind(id)
	if !ok {
		t.Fatalf("node %q not registered", id)
	}
	return k
}

func mustBuild(t *testing.T, c *upg.Caller, tags upg.TagTable, opts Options) *Result {
	t.Helper()
	r, err := Build(c, tags, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func edgeIDs(r *Result) []string {
	var ids []string
	for _, e := range r.Edges {
		ids = append(ids, e.ID)
	}
	return ids
}

func TestPlainCalleeLeaf(t *testing.T) {
	c := &upg.Caller{
		Name:    "crate::foo",
		Safe:    true,
		Callees: map[string]upg.CalleeInfo{"crate::bar": {Safe: true}},
	}
	r := mustBuild(t, c, nil, allViews())

	nodes := collect(r)
	want := map[string]string{"crate::foo": "", "c@crate::bar": ""}
	if !reflect.DeepEqual(nodes, want) {
		t.Errorf("nodes = %v, want %v", nodes, want)
	}
	if got := edgeIDs(r); !reflect.DeepEqual(got, []string{"e@crate::foo->c@crate::bar"}) {
		t.Errorf("edges = %v", got)
	}
	if k := kindOf(t, r, "crate::foo"); k != diagram.KindSafeRoot {
		t.Errorf("root kind = %v", k)
	}
	if k := kindOf(t, r, "c@crate::bar"); k != diagram.KindSafeFn {
		t.Errorf("callee kind = %v", k)
	}
}

func TestAdtAccessKindGrouping(t *testing.T) {
	c := &upg.Caller{
		Name: "crate::foo",
		Safe: true,
		Callees: map[string]upg.CalleeInfo{
			"Vec::push": {Safe: true, Adts: map[string]*upg.AdtUsage{
				"Vec": {Kind: upg.Constructor, Fields: map[string]upg.FieldAccess{"len": upg.Write}},
			}},
		},
	}
	r := mustBuild(t, c, nil, allViews())

	adt := "adt@Vec"
	group := "kind@Constructor@adt@Vec"
	push := "c@Vec::push@" + group
	fields := "Fields@adt@Vec"
	field := "field@len@adt@Vec"

	nodes := collect(r)
	want := map[string]string{
		"crate::foo": "",
		adt:          "",
		group:        adt,
		push:         group,
		fields:       adt,
		field:        fields,
	}
	if !reflect.DeepEqual(nodes, want) {
		t.Errorf("nodes = %v, want %v", nodes, want)
	}

	kinds := map[string]diagram.NodeKind{
		adt:    diagram.KindAdt,
		group:  diagram.KindAccessKindGroup,
		push:   diagram.KindSafeFnWithAdt,
		fields: diagram.KindFieldHeader,
		field:  diagram.KindField,
	}
	for id, k := range kinds {
		if got := kindOf(t, r, id); got != k {
			t.Errorf("kind(%s) = %v, want %v", id, got, k)
		}
	}

	if len(r.Edges) != 3 {
		t.Fatalf("edges = %v, want 3", edgeIDs(r))
	}
	byID := map[string]diagram.Edge{}
	for _, e := range r.Edges {
		byID[e.ID] = e
	}
	if _, ok := byID[diagram.EdgeID("crate::foo", adt)]; !ok {
		t.Error("missing root -> Vec edge")
	}
	if _, ok := byID[diagram.EdgeID(group, push)]; !ok {
		t.Error("missing group -> push edge")
	}
	if e, ok := byID[diagram.EdgeID(push, field)]; !ok || e.Label != "write" {
		t.Errorf("push -> len edge = %+v, %v", e, ok)
	}
	if !r.NoFloor[adt] {
		t.Error("Vec holds fields and should be marked")
	}
}

func TestCalleeDuplicatedPerAdt(t *testing.T) {
	c := &upg.Caller{
		Name: "f",
		Callees: map[string]upg.CalleeInfo{
			"copy": {Adts: map[string]*upg.AdtUsage{
				"A": {Kind: upg.ImmutableAsArgument},
				"B": {Kind: upg.MutableAsArgument},
			}},
		},
	}
	tags := upg.TagTable{"copy": {{Name: "ValidPtr"}}}
	r := mustBuild(t, c, tags, allViews())

	a := diagram.CalleeID("copy", diagram.KindGroupID("adt@A", "ImmutableAsArgument"))
	b := diagram.CalleeID("copy", diagram.KindGroupID("adt@B", "MutableAsArgument"))
	if a == b {
		t.Fatal("callee ids must differ per group")
	}

	tagsOf := map[string][]string{}
	for id, parent := range collect(r) {
		if k, _ := r.Kinds.Kind(id); k == diagram.KindTag {
			tagsOf[parent] = append(tagsOf[parent], id)
		}
	}
	if len(tagsOf[a]) != 1 || len(tagsOf[b]) != 1 {
		t.Fatalf("tag children = %v", tagsOf)
	}
	if tagsOf[a][0] == tagsOf[b][0] {
		t.Error("tag children must be distinct nodes")
	}
	if k := kindOf(t, r, a); k != diagram.KindUnsafeFnWithAdt {
		t.Errorf("kind = %v", k)
	}
}

func TestDuplicateTagsDisambiguated(t *testing.T) {
	c := &upg.Caller{Name: "f", Safe: false}
	tags := upg.TagTable{"f": {{Name: "ValidPtr", Args: []string{"p"}}, {Name: "ValidPtr", Args: []string{"p"}}}}
	r := mustBuild(t, c, tags, allViews())

	var ids []string
	for id := range collect(r) {
		if k, _ := r.Kinds.Kind(id); k == diagram.KindTag {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	want := []string{"tag@ValidPtr@f@0", "tag@ValidPtr@f@1"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("tag ids = %v, want %v", ids, want)
	}
	if r.Disambiguator != 2 {
		t.Errorf("Disambiguator = %d, want 2", r.Disambiguator)
	}

	root := r.Graph.Children[0]
	if !root.IsCompound() || root.Width != 0 {
		t.Errorf("root with tags should be a compound without footprint: %+v", root)
	}
}

func TestTagLabelText(t *testing.T) {
	hazard := "hazard"
	c := &upg.Caller{Name: "f", Safe: false}
	tags := upg.TagTable{"f": {{Type: &hazard, Name: "Alias", Args: []string{"a"}}}}

	for _, tt := range []struct {
		tagArgs bool
		want    string
	}{
		{false, "Alias"},
		{true, "hazard.Alias(a)"},
	} {
		opts := allViews()
		opts.TagArgs = tt.tagArgs
		r := mustBuild(t, c, tags, opts)
		var labels []string
		r.Graph.Walk(func(n, _ *layout.Node) {
			if k, _ := r.Kinds.Kind(n.ID); k == diagram.KindTag {
				labels = append(labels, n.Label)
			}
		})
		if len(labels) != 1 || labels[0] != tt.want {
			t.Errorf("TagArgs=%v: tag labels = %v, want [%s]", tt.tagArgs, labels, tt.want)
		}
	}
}

func richCaller() *upg.Caller {
	return &upg.Caller{
		Name: "crate::Buf::grow",
		Safe: false,
		Callees: map[string]upg.CalleeInfo{
			"ptr::copy": {Safe: false, Adts: map[string]*upg.AdtUsage{
				"Buf": {Kind: upg.MutableAsArgument, Fields: map[string]upg.FieldAccess{"ptr": upg.Read, "cap": upg.Other}},
			}},
			"Buf::len": {Safe: true, Adts: map[string]*upg.AdtUsage{
				"Buf": {Kind: upg.MethodImmutableRefReceiver, Fields: map[string]upg.FieldAccess{"len": upg.Read}},
				"Raw": {Kind: upg.ImmutableAsArgument},
			}},
			"alloc::alloc": {Safe: false},
			"core::hint":   {Safe: true},
		},
		AdtsOfSelf: map[string]*upg.AdtUsage{
			"Buf": {Kind: upg.MethodMutableRefReceiver, Fields: map[string]upg.FieldAccess{"ptr": upg.Write, "cap": upg.Write, "meta": upg.Other}},
		},
	}
}

func TestDeterministic(t *testing.T) {
	tags := upg.TagTable{
		"ptr::copy":        {{Name: "ValidPtr"}, {Name: "Align"}},
		"crate::Buf::grow": {{Name: "Init"}},
	}
	r1 := mustBuild(t, richCaller(), tags, allViews())
	r2 := mustBuild(t, richCaller(), tags, allViews())

	if !reflect.DeepEqual(r1.Kinds.IDs(), r2.Kinds.IDs()) {
		t.Error("ids differ between identical builds")
	}
	if !reflect.DeepEqual(collect(r1), collect(r2)) {
		t.Error("structure differs between identical builds")
	}
	if !reflect.DeepEqual(r1.Edges, r2.Edges) {
		t.Error("edges differ between identical builds")
	}
}

func TestUniqueIDs(t *testing.T) {
	tags := upg.TagTable{"ptr::copy": {{Name: "A"}, {Name: "A"}}, "Buf::len": {{Name: "A"}}}
	r := mustBuild(t, richCaller(), tags, allViews())

	seen := map[string]bool{}
	r.Graph.Walk(func(n, _ *layout.Node) {
		if seen[n.ID] {
			t.Errorf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = true
	})
	if len(seen) != r.Kinds.Len() {
		t.Errorf("walked %d nodes, registered %d", len(seen), r.Kinds.Len())
	}
}

func TestOrphansStayTopLevel(t *testing.T) {
	r := mustBuild(t, richCaller(), nil, allViews())
	nodes := collect(r)

	for _, name := range []string{"alloc::alloc", "core::hint"} {
		id := diagram.CalleeID(name, "")
		parent, ok := nodes[id]
		if !ok {
			t.Errorf("orphan %s missing", name)
			continue
		}
		if parent != "" {
			t.Errorf("orphan %s nested under %s", name, parent)
		}
	}
}

func TestFieldViewFilter(t *testing.T) {
	tests := []struct {
		view upg.FieldView
		want []string
	}{
		{upg.FieldViewCaller, []string{"field@len@adt@Buf", "field@ptr@adt@Buf"}},
		{upg.FieldViewAggregate, []string{"field@cap@adt@Buf", "field@len@adt@Buf", "field@ptr@adt@Buf"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			opts := allViews()
			opts.FieldView = tt.view
			r := mustBuild(t, richCaller(), nil, opts)

			var got []string
			for id, parent := range collect(r) {
				if parent == diagram.FieldsID("adt@Buf") {
					got = append(got, id)
				}
			}
			sort.Strings(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelfAdt(t *testing.T) {
	r := mustBuild(t, richCaller(), nil, allViews())
	nodes := collect(r)
	self := diagram.SelfAdtID("Buf")

	if nodes["crate::Buf::grow"] != self {
		t.Fatalf("root parent = %q, want %q", nodes["crate::Buf::grow"], self)
	}
	var fields []string
	for id, parent := range nodes {
		if parent == self && id != "crate::Buf::grow" {
			fields = append(fields, id)
		}
	}
	sort.Strings(fields)
	want := []string{diagram.FieldID(self, "cap"), diagram.FieldID(self, "ptr")}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("self fields = %v, want %v", fields, want)
	}

	var found bool
	for _, e := range r.Edges {
		if e.Source == diagram.FieldID(self, "ptr") && e.Target == "crate::Buf::grow" {
			found = true
			if e.Label != "write" || !e.MarkerStart {
				t.Errorf("field edge = %+v", e)
			}
		}
	}
	if !found {
		t.Error("missing field -> caller edge")
	}
	if k := kindOf(t, r, "crate::Buf::grow"); k != diagram.KindUnsafeRoot {
		t.Errorf("root kind = %v", k)
	}
}

func TestViews(t *testing.T) {
	tags := upg.TagTable{"ptr::copy": {{Name: "ValidPtr"}}}

	t.Run("no callees", func(t *testing.T) {
		r := mustBuild(t, richCaller(), tags, Options{Views: diagram.Views{Adts: true}})
		if len(r.Graph.Children) != 1 || r.Graph.Children[0].ID != diagram.SelfAdtID("Buf") {
			t.Errorf("top = %v", r.Graph.Children)
		}
	})

	t.Run("no adts", func(t *testing.T) {
		r := mustBuild(t, richCaller(), tags, Options{Views: diagram.Views{Callees: true, Tags: true}})
		nodes := collect(r)
		if len(r.Graph.Children) != 5 {
			t.Errorf("top-level nodes = %d, want 5", len(r.Graph.Children))
		}
		if nodes["crate::Buf::grow"] != "" {
			t.Error("root must not be wrapped without the adts view")
		}
		if k := kindOf(t, r, diagram.CalleeID("ptr::copy", "")); k != diagram.KindUnsafeFn {
			t.Errorf("kind = %v", k)
		}
	})

	t.Run("no tags", func(t *testing.T) {
		r := mustBuild(t, richCaller(), tags, Options{Views: diagram.Views{Callees: true, Adts: true}})
		r.Graph.Walk(func(n, _ *layout.Node) {
			if k, _ := r.Kinds.Kind(n.ID); k == diagram.KindTag {
				t.Errorf("unexpected tag node %s", n.ID)
			}
		})
	})
}

func TestMalformedEntriesSkipped(t *testing.T) {
	c := &upg.Caller{
		Name: "f",
		Callees: map[string]upg.CalleeInfo{
			"g": {Adts: map[string]*upg.AdtUsage{
				"Nil":  nil,
				"Bad":  {Kind: "Teleport"},
				"Good": {Kind: upg.Constructor, Fields: map[string]upg.FieldAccess{"x": "poke", "y": upg.Read}},
			}},
			"h": {Adts: map[string]*upg.AdtUsage{"Nil": nil}},
		},
	}
	tags := upg.TagTable{"g": {{Name: ""}, {Name: "Ok"}}}
	r := mustBuild(t, c, tags, allViews())
	nodes := collect(r)

	if _, ok := nodes["adt@Good"]; !ok {
		t.Error("valid ADT usage must survive")
	}
	if _, ok := nodes["adt@Bad"]; ok {
		t.Error("malformed ADT usage must be skipped")
	}
	if _, ok := nodes[diagram.FieldID("adt@Good", "x")]; ok {
		t.Error("malformed field must be skipped")
	}
	if nodes[diagram.CalleeID("h", "")] != "" {
		t.Error("callee with only malformed usages should be drawn ungrouped")
	}

	var malformed int
	for _, d := range r.Diagnostics {
		if d.Code == errors.ErrCodeMalformedInput {
			malformed++
		}
	}
	// Nil and Bad under g, Nil under h, field x, one nameless tag.
	if malformed != 5 {
		t.Errorf("malformed diagnostics = %d, want 5: %+v", malformed, r.Diagnostics)
	}
}

func TestIdentityCollisionReported(t *testing.T) {
	c := &upg.Caller{
		Name: "adt@Vec",
		Callees: map[string]upg.CalleeInfo{
			"push": {Adts: map[string]*upg.AdtUsage{"Vec": {Kind: upg.Constructor}}},
		},
	}
	r := mustBuild(t, c, nil, allViews())

	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Code != errors.ErrCodeIdentityCollision {
		t.Fatalf("diagnostics = %+v", r.Diagnostics)
	}
	if k := kindOf(t, r, "adt@Vec"); k != diagram.KindSafeRoot && k != diagram.KindUnsafeRoot {
		t.Errorf("first registration must win, got %v", k)
	}
}

func TestFootprint(t *testing.T) {
	c := &upg.Caller{Name: "abcd", Safe: true}
	r := mustBuild(t, c, nil, Options{Views: diagram.AllViews, CharWidth: 10})

	root := r.Graph.Children[0]
	if root.Width != 80 || root.Height != 48 {
		t.Errorf("footprint = %vx%v, want 80x48", root.Width, root.Height)
	}
}

func TestBuildRejectsInvalidCaller(t *testing.T) {
	if _, err := Build(&upg.Caller{}, nil, allViews()); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestDisambiguatorSeed(t *testing.T) {
	c := &upg.Caller{Name: "f"}
	tags := upg.TagTable{"f": {{Name: "A"}}}
	opts := allViews()
	opts.Disambiguator = 41
	r := mustBuild(t, c, tags, opts)

	if !r.Kinds.Has("tag@A@f@41") {
		t.Errorf("ids = %v", r.Kinds.IDs())
	}
	if r.Disambiguator != 42 {
		t.Errorf("Disambiguator = %d, want 42", r.Disambiguator)
	}
}
