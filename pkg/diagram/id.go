package diagram

import "fmt"

// RootID returns the id of the caller node.
func RootID(caller string) string {
	return caller
}

// CalleeID returns the id of an ungrouped callee, or of a callee drawn
// inside the access-kind group groupID when groupID is not empty.
func CalleeID(name, groupID string) string {
	if groupID == "" {
		return "c@" + name
	}
	return "c@" + name + "@" + groupID
}

// AdtID returns the id of an ADT group.
func AdtID(adt string) string {
	return "adt@" + adt
}

// SelfAdtID returns the id of the ADT compound that wraps the caller.
func SelfAdtID(adt string) string {
	return "self@" + AdtID(adt)
}

// KindGroupID returns the id of the access-kind group kind inside the ADT
// node adtID.
func KindGroupID(adtID, kind string) string {
	return "kind@" + kind + "@" + adtID
}

// FieldsID returns the id of the "Fields" compound inside the ADT node adtID.
func FieldsID(adtID string) string {
	return "Fields@" + adtID
}

// FieldID returns the id of field inside the ADT node adtID. Field ids only
// depend on the pair, so they are stable across renders.
func FieldID(adtID, field string) string {
	return "field@" + field + "@" + adtID
}

// TagID returns the id of a tag node. n is the render-scoped disambiguator.
func TagID(text, owner string, n int) string {
	return fmt.Sprintf("tag@%s@%s@%d", text, owner, n)
}

// EdgeID returns the id of the edge from src to dst.
func EdgeID(src, dst string) string {
	return "e@" + src + "->" + dst
}

// FieldHeaderID returns the id of the "Fields" header pseudo node drawn
// inside the ADT node adtID.
func FieldHeaderID(adtID string) string {
	return "FieldHeader@" + adtID
}

// CallerHeaderID returns the id of the "Caller" header pseudo node.
func CallerHeaderID(caller string) string {
	return "CallerHeader@" + caller
}
