// Package layout defines the two layout ports a render is composed from.
//
// A [HierarchicalPort] positions a forest of compound nodes: it receives
// every node of the diagram, nested the way it will be drawn, together with
// per-node [Hints], and returns an absolute box for every node. A
// [TreePort] positions a flat set of top-level nodes left to right and
// knows nothing about nesting.
//
// Implementations live in sub-packages:
//
//	nested  native compound layout (row packing inside every compound)
//	tree    native left-to-right ranked layout
//	gv      Graphviz engines behind both ports
//
// Engines report every failure, including cancellation and positions
// missing from their result, as a LAYOUT_ENGINE_FAILURE error (see
// [Failure] and [CheckComplete]), so the orchestrator can abort a render
// without inspecting engine specific errors.
package layout
