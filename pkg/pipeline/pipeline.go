// Package pipeline turns a caller record into a positioned diagram.
//
// This package implements the complete build → layout → refine pipeline
// used by the CLI, the HTTP server and watch mode. By centralizing this
// logic, every entry point produces byte-identical diagrams for identical
// input.
//
// # Architecture
//
// A render runs four steps:
//
//  1. Build: synthesize the compound node forest and edges ([build.Build])
//  2. Nested layout (stage A): size and place every node, keeping children
//     inside their parents
//  3. Tree layout (stage B): re-place the top-level nodes left to right;
//     nested nodes keep their offsets
//  4. Refine: geometric fixes ([refine.Refine])
//
// Both layout stages go through ports ([layout.HierarchicalPort] and
// [layout.TreePort]) and their results are cached by content hash. A
// failure in either stage aborts the render with a LAYOUT_ENGINE_FAILURE
// wrapped in an [errors.StageError]; nothing is returned partially.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Render(ctx, caller, tags, pipeline.Options{
//	    Layout:    "tree",
//	    EdgeStyle: "step",
//	})
//	if err != nil {
//	    return err
//	}
//	nodes := result.Diagram.Nodes
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/refine"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Watch Mode
// =============================================================================

const (
	// DefaultLayout is the nested layout algorithm.
	DefaultLayout = layout.Tree

	// DefaultEdgeStyle is the style of the caller's outgoing edges.
	DefaultEdgeStyle = diagram.EdgeCurve

	// DefaultFieldView draws read and write field accesses.
	DefaultFieldView = upg.FieldViewCaller

	// DefaultCharWidth is the width of one label cell.
	DefaultCharWidth = build.DefaultCharWidth

	// DefaultEngine is the layout engine used by both stages.
	DefaultEngine = EngineNative
)

// Layout engines.
const (
	EngineNative   = "native"
	EngineGraphviz = "graphviz"
)

// ValidEngines is the set of supported layout engines.
var ValidEngines = map[string]bool{
	EngineNative:   true,
	EngineGraphviz: true,
}

// Stage names, as reported in errors, hooks and cache keys.
const (
	StageNested = "nested"
	StageTree   = "tree"
)

// =============================================================================
// Options - Render Configuration
// =============================================================================

// Options contains all configuration for one render.
// This struct supports JSON serialization for API requests.
type Options struct {
	Layout    string   `json:"layout,omitempty"`
	EdgeStyle string   `json:"edgeStyle,omitempty"`
	FitView   bool     `json:"fitView,omitempty"`
	Views     []string `json:"views,omitempty"`
	FieldView string   `json:"fieldView,omitempty"`
	TagArgs   bool     `json:"tagArgs,omitempty"`
	CharWidth float64  `json:"charWidth,omitempty"`

	// Engines per stage: "native" or "graphviz".
	NestedEngine string `json:"nestedEngine,omitempty"`
	TreeEngine   string `json:"treeEngine,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	algorithm layout.Algorithm
	edgeStyle diagram.EdgeStyle
	views     diagram.Views
	fieldView upg.FieldView

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of one render.
type Result struct {
	// Diagram is the positioned node and edge list.
	Diagram *diagram.Diagram `json:"diagram"`

	// RootID is the caller node id.
	RootID string `json:"rootId"`

	// Diagnostics lists input entries the builder skipped.
	Diagnostics []build.Diagnostic `json:"diagnostics,omitempty"`

	// Refine counts the geometric fixes applied.
	Refine refine.Report `json:"refine"`

	// Stats contains timing and size information.
	Stats Stats `json:"stats"`

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains render statistics.
type Stats struct {
	NodeCount  int           `json:"nodes"`
	EdgeCount  int           `json:"edges"`
	BuildTime  time.Duration `json:"buildTime"`
	NestedTime time.Duration `json:"nestedTime"`
	TreeTime   time.Duration `json:"treeTime"`
	RefineTime time.Duration `json:"refineTime"`
}

// CacheInfo tracks cache hits for each layout stage.
type CacheInfo struct {
	NestedHit bool `json:"nestedHit"`
	TreeHit   bool `json:"treeHit"`
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks every option and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.Layout == "" {
		o.Layout = string(DefaultLayout)
	}
	alg, err := layout.ParseAlgorithm(o.Layout)
	if err != nil {
		return err
	}
	o.algorithm = alg

	if o.EdgeStyle == "" {
		o.EdgeStyle = string(DefaultEdgeStyle)
	}
	style, err := diagram.ParseEdgeStyle(o.EdgeStyle)
	if err != nil {
		return err
	}
	o.edgeStyle = style

	views, err := diagram.ParseViews(o.Views)
	if err != nil {
		return err
	}
	o.views = views

	if o.FieldView == "" {
		o.FieldView = string(DefaultFieldView)
	}
	o.fieldView = upg.FieldView(o.FieldView)
	if !o.fieldView.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown field view %q (valid: caller, aggregate)", o.FieldView)
	}

	if o.CharWidth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "char width must not be negative")
	}
	if o.CharWidth == 0 {
		o.CharWidth = DefaultCharWidth
	}

	if o.NestedEngine == "" {
		o.NestedEngine = DefaultEngine
	}
	if o.TreeEngine == "" {
		o.TreeEngine = DefaultEngine
	}
	for _, e := range []string{o.NestedEngine, o.TreeEngine} {
		if !ValidEngines[e] {
			return errors.New(errors.ErrCodeInvalidLayout, "unknown layout engine %q (valid: native, graphviz)", e)
		}
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Algorithm returns the parsed nested layout algorithm.
func (o *Options) Algorithm() layout.Algorithm { return o.algorithm }

// Style returns the parsed edge style.
func (o *Options) Style() diagram.EdgeStyle { return o.edgeStyle }

// ActiveViews returns the parsed views.
func (o *Options) ActiveViews() diagram.Views { return o.views }

// BuildOptions returns the builder configuration.
func (o *Options) BuildOptions() build.Options {
	return build.Options{
		Views:     o.views,
		FieldView: o.fieldView,
		EdgeStyle: o.edgeStyle,
		TagArgs:   o.TagArgs,
		CharWidth: o.CharWidth,
		Logger:    o.Logger,
	}
}
