package upg

import "slices"

// AccessKind is how a function touches an ADT instance.
type AccessKind string

const (
	Constructor                AccessKind = "Constructor"
	MethodOwnedReceiver        AccessKind = "MethodOwnedReceiver"
	MethodMutableRefReceiver   AccessKind = "MethodMutableRefReceiver"
	MethodImmutableRefReceiver AccessKind = "MethodImmutableRefReceiver"
	MutableAsArgument          AccessKind = "MutableAsArgument"
	ImmutableAsArgument        AccessKind = "ImmutableAsArgument"
)

// AccessKinds lists every access kind in display order.
var AccessKinds = []AccessKind{
	Constructor,
	MethodOwnedReceiver,
	MethodMutableRefReceiver,
	MethodImmutableRefReceiver,
	MutableAsArgument,
	ImmutableAsArgument,
}

// Valid reports whether k is a known access kind.
func (k AccessKind) Valid() bool {
	return slices.Contains(AccessKinds, k)
}

// IsReceiver reports whether k is a method call on the ADT itself.
func (k AccessKind) IsReceiver() bool {
	switch k {
	case MethodOwnedReceiver, MethodMutableRefReceiver, MethodImmutableRefReceiver:
		return true
	}
	return false
}

// Order returns the display position of k; unknown kinds sort last.
func (k AccessKind) Order() int {
	if i := slices.Index(AccessKinds, k); i >= 0 {
		return i
	}
	return len(AccessKinds)
}

// FieldAccess classifies how a function touches one ADT field.
type FieldAccess string

const (
	Read  FieldAccess = "read"
	Write FieldAccess = "write"
	Other FieldAccess = "other"
)

// Valid reports whether a is a known field access.
func (a FieldAccess) Valid() bool {
	return a == Read || a == Write || a == Other
}

// FieldView selects which field accesses are drawn.
type FieldView string

const (
	// FieldViewCaller draws read and write accesses only.
	FieldViewCaller FieldView = "caller"
	// FieldViewAggregate draws every access, including "other".
	FieldViewAggregate FieldView = "aggregate"
)

// Valid reports whether v is a known field view.
func (v FieldView) Valid() bool {
	return v == FieldViewCaller || v == FieldViewAggregate
}

// Includes reports whether an access of kind a is drawn under view v.
func (v FieldView) Includes(a FieldAccess) bool {
	if v == FieldViewAggregate {
		return true
	}
	return a != Other
}
