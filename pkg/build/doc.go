// Package build turns one caller record into the compound node forest and
// edge set of its diagram.
//
// The forest has up to four levels below the top:
//
//	adt@Vec                               ADT group
//	  kind@Constructor@adt@Vec            access-kind group
//	    c@Vec::new@kind@Constructor@...   callee, once per group it is used in
//	      tag@Init@Vec::new@0             safety tags of the callee
//	  Fields@adt@Vec                      fields header
//	    field@len@adt@Vec                 one leaf per accessed field
//
// Callees without any ADT association become top-level leaves next to the
// caller, and when the caller is itself a method of an ADT it is drawn
// inside that ADT together with the fields it touches.
//
// Every node is registered in a [diagram.Registry] at creation time. Tag
// ids carry a counter owned by the [Builder] of the render, so two
// renders of the same record produce the same ids.
//
// Entries that lack expected structure are skipped and reported as
// [Diagnostic] values; a bad entry never aborts the build.
package build
