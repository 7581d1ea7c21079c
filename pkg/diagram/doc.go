// Package diagram defines the positioned node/edge diagram handed to a
// renderer, together with the vocabulary used to build it: deterministic
// node ids ([RootID], [AdtID], [TagID], ...) and the [NodeKind] side table
// ([Registry]) that fixes what every node means.
//
// # Identity
//
// Every id function is a total, pure string transform. Ids are namespaced
// by prefix so entities of different kinds never share an id:
//
//	adt@Vec                       ADT group
//	kind@Constructor@adt@Vec      access-kind group inside it
//	c@Vec::push@kind@...          callee drawn inside that group
//	field@len@adt@Vec             field of the ADT
//	tag@Init@Vec::push@3          third tag emitted in this render
//
// # Kinds
//
// A node's [NodeKind] is recorded once, when the node is created, and is
// the only source of its visual class, its anchor sides and whether it
// takes part in top-level tree refinement. Nothing downstream parses ids.
//
// # Coordinates
//
// [Node.Position] is relative to the parent node when [Node.ParentID] is
// set and absolute otherwise, which is what nested-node renderers expect.
// [Diagram.Absolute] resolves absolute boxes when needed.
package diagram
