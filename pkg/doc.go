// Package pkg provides the core libraries for upgraph, the unsafety
// propagation graph renderer.
//
// # Overview
//
// upgraph turns a caller record (a function, the callees it invokes, the
// data types those calls touch and the safety tags attached to them) into
// a positioned diagram. The pkg directory is organized into three areas:
//
//  1. Domain: input records, graph construction, layout and refinement
//  2. Output: diagram types and export formats
//  3. Infrastructure: caching, persistence, sessions, configuration and
//     the HTTP API
//
// # Architecture
//
// The data flow through upgraph:
//
//	caller record + tag table
//	         ↓
//	    [upg] package (decode and validate)
//	         ↓
//	    [build] package (classify, assign ids, emit nodes and edges)
//	         ↓
//	    [layout] packages (nested stage, then tree stage)
//	         ↓
//	    [refine] package (overflow, spacing, orphan and header passes)
//	         ↓
//	    [render] package (JSON, DOT, SVG, PDF, PNG)
//
// [pipeline] runs the whole chain with stage caching; [session] orders
// concurrent renders so only the newest result becomes visible.
//
// # Quick Start
//
//	caller, _ := upg.LoadCaller("caller.json")
//	tags, _ := upg.LoadTagTable("tags.json")
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Render(ctx, caller, tags, pipeline.Options{EdgeStyle: "step"})
//
//	svg, _ := render.Render(ctx, res.Diagram, render.FormatSVG, render.Options{})
//
// # Main Packages
//
// ## Domain
//
// [upg] - Caller records, access kinds, field views and the tag table.
//
// [diagram] - Node and edge types, the id scheme and bounding boxes.
//
// [build] - Node classification and graph construction.
//
// [layout] - Layout ports with native engines in layout/nested and
// layout/tree, and Graphviz-backed engines in layout/gv.
//
// [refine] - Geometry passes applied to the flattened diagram.
//
// [pipeline] - Orchestrates build, both layout stages and refinement.
//
// ## Output
//
// [render] - Export formats. SVG goes through Graphviz with pinned
// positions; PDF and PNG are converted from SVG.
//
// [artifact] - Stores exports in a directory or an S3-compatible bucket.
//
// ## Infrastructure
//
// [cache] - Content-addressed layout and export cache (null, memory, file,
// redis).
//
// [store] - Snapshot persistence (memory, file, mongo).
//
// [session] - Render sequencing, stale-result discard and subscriptions.
//
// [server] - HTTP and websocket API.
//
// [watch] - File watching with debounce.
//
// [config] - Defaults, TOML file and environment overrides.
//
// [errors], [observability], [buildinfo] - Shared error codes, hooks and
// version metadata.
//
// # Testing
//
//	go test ./pkg/...
package pkg
