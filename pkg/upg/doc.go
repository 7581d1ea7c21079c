// Package upg defines the input records of an unsafety propagation graph.
//
// A [Caller] is the per-function record produced by the analyzer: the
// function itself, the callees it reaches, and for each callee the ADTs it
// touches with their access kinds and field accesses. A [TagTable] maps
// function names to the safety tags documented on them.
//
// Records are read-only inputs. Maps are always walked in sorted key order
// (see [SortedKeys]) so that identical records always produce identical
// diagrams.
//
// # Reading Records
//
//	caller, err := upg.LoadCaller("callers/crate::foo.json")
//	tags, err := upg.LoadTagTable("tags.json")
//
// Structurally invalid entries (an ADT usage without an access kind, a
// field with an unknown access, a nameless tag) are kept as-is by the
// decoder and reported later by [AdtUsage.Validate] and [Tag.Validate], so
// one bad entry never prevents the rest of a record from being drawn.
package upg
