package build

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// DefaultCharWidth is the width of one label cell in diagram units.
const DefaultCharWidth = 8

// Options configures one build.
type Options struct {
	Views         diagram.Views
	FieldView     upg.FieldView
	EdgeStyle     diagram.EdgeStyle // style of the top-level edges
	TagArgs       bool              // print tag arguments in tag labels
	CharWidth     float64
	Disambiguator int // first tag counter value
	Logger        *log.Logger
}

func (o *Options) setDefaults() {
	if o.FieldView == "" {
		o.FieldView = upg.FieldViewCaller
	}
	if o.EdgeStyle == "" {
		o.EdgeStyle = diagram.EdgeCurve
	}
	if o.CharWidth <= 0 {
		o.CharWidth = DefaultCharWidth
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Diagnostic reports an entry skipped during the build.
type Diagnostic struct {
	Code    errors.Code `json:"code"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

// Result is the outcome of one build.
type Result struct {
	// Graph is the full forest with every edge, ready for nested layout.
	Graph *layout.Graph
	// Edges are the styled diagram edges, unique by id.
	Edges []diagram.Edge
	// Kinds is the id to kind side table.
	Kinds *diagram.Registry
	// RootID is the caller node id.
	RootID string
	// NoFloor holds the ADT ids that contain fields.
	NoFloor map[string]bool
	// Diagnostics lists skipped entries in the order they were found.
	Diagnostics []Diagnostic
	// Disambiguator is the next unused tag counter value.
	Disambiguator int
}

// Build builds the diagram forest of caller. tags may be nil.
func Build(caller *upg.Caller, tags upg.TagTable, opts Options) (*Result, error) {
	if err := caller.Validate(); err != nil {
		return nil, err
	}
	b := NewBuilder(tags, opts)
	return b.Build(caller), nil
}

// Builder holds the state of one build. A Builder must not be reused
// across renders unless its counter is meant to continue.
type Builder struct {
	opts    Options
	tags    upg.TagTable
	disam   int
	kinds   *diagram.Registry
	edges   *diagram.EdgeSet
	noFloor map[string]bool
	diags   []Diagnostic
}

// NewBuilder creates a builder whose tag counter starts at
// opts.Disambiguator.
func NewBuilder(tags upg.TagTable, opts Options) *Builder {
	opts.setDefaults()
	return &Builder{
		opts:    opts,
		tags:    tags,
		disam:   opts.Disambiguator,
		kinds:   diagram.NewRegistry(),
		edges:   diagram.NewEdgeSet(),
		noFloor: make(map[string]bool),
	}
}

// Build walks caller into a fresh forest.
func (b *Builder) Build(caller *upg.Caller) *Result {
	rootID := diagram.RootID(caller.Name)
	root := b.fnNode(rootID, caller.Name, diagram.FnKind(caller.Safe, true, false), nil)

	var top []*layout.Node
	if self := b.selfAdt(caller, root); self != nil {
		top = append(top, self)
	} else if root != nil {
		top = append(top, root)
	}

	if b.opts.Views.Callees {
		top = append(top, b.callees(caller, rootID)...)
	}

	edges := b.edges.Edges()
	graphEdges := make([]layout.Edge, len(edges))
	for i, e := range edges {
		graphEdges[i] = layout.Edge{ID: e.ID, Source: e.Source, Target: e.Target}
	}

	return &Result{
		Graph:         &layout.Graph{Children: top, Edges: graphEdges},
		Edges:         edges,
		Kinds:         b.kinds,
		RootID:        rootID,
		NoFloor:       b.noFloor,
		Diagnostics:   b.diags,
		Disambiguator: b.disam,
	}
}

// size returns the footprint of a node labelled label.
func (b *Builder) size(label string) (w, h float64) {
	return diagram.Footprint(label, b.opts.CharWidth)
}

// register records id as kind, reporting a collision as a diagnostic.
func (b *Builder) register(id string, kind diagram.NodeKind) bool {
	if err := b.kinds.Register(id, kind); err != nil {
		b.report(errors.ErrCodeIdentityCollision, id, err)
		return false
	}
	return true
}

func (b *Builder) report(code errors.Code, subject string, err error) {
	msg := errors.UserMessage(err)
	b.opts.Logger.Warn("skipping entry", "code", code, "subject", subject, "reason", msg)
	b.diags = append(b.diags, Diagnostic{Code: code, Subject: subject, Message: msg})
}

func (b *Builder) edge(src, dst string, style diagram.EdgeStyle, label string, markerStart bool) {
	b.edges.Put(diagram.Edge{
		ID:          diagram.EdgeID(src, dst),
		Source:      src,
		Target:      dst,
		Style:       style,
		Label:       label,
		MarkerStart: markerStart,
	})
}

// leaf creates a fixed-size node.
func (b *Builder) leaf(id, label string, kind diagram.NodeKind, hints layout.Hints) *layout.Node {
	if !b.register(id, kind) {
		return nil
	}
	w, h := b.size(label)
	return &layout.Node{ID: id, Label: label, Width: w, Height: h, LabelWidth: w, LabelHeight: h, Hints: hints}
}

// compound creates a node sized from its children.
func (b *Builder) compound(id, label string, kind diagram.NodeKind, hints layout.Hints) *layout.Node {
	if !b.register(id, kind) {
		return nil
	}
	w, h := b.size(label)
	return &layout.Node{ID: id, Label: label, LabelWidth: w, LabelHeight: h, Hints: hints}
}

// fnNode creates a function node. With the tags view on and tags present
// it becomes a compound holding one node per tag occurrence.
func (b *Builder) fnNode(id, name string, kind diagram.NodeKind, fallback upg.TagList) *layout.Node {
	if !b.register(id, kind) {
		return nil
	}
	w, h := b.size(name)
	n := &layout.Node{ID: id, Label: name, LabelWidth: w, LabelHeight: h, Hints: layout.FnHints}
	if b.opts.Views.Tags {
		n.Children = b.tagNodes(name, fallback)
	}
	if !n.IsCompound() {
		n.Width, n.Height = w, h
	}
	return n
}

func (b *Builder) tagNodes(fn string, fallback upg.TagList) []*layout.Node {
	var nodes []*layout.Node
	for _, tag := range b.tags.Lookup(fn, fallback) {
		if err := tag.Validate(); err != nil {
			b.report(errors.ErrCodeMalformedInput, fn, err)
			continue
		}
		text := tag.Text(b.opts.TagArgs)
		id := diagram.TagID(text, fn, b.disam)
		b.disam++
		if n := b.leaf(id, text, diagram.KindTag, layout.TagHints); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func appendNode(nodes []*layout.Node, n *layout.Node) []*layout.Node {
	if n == nil {
		return nodes
	}
	return append(nodes, n)
}
