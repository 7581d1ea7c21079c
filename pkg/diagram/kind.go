package diagram

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// NodeKind is the semantic kind of a diagram node.
type NodeKind int

const (
	KindSafeRoot NodeKind = iota
	KindUnsafeRoot
	KindSafeFn
	KindUnsafeFn
	KindSafeFnWithAdt
	KindUnsafeFnWithAdt
	KindTag
	KindAdt
	KindAccessKindGroup
	KindField
	KindFieldHeader
	KindCallerHeader
)

var kindNames = [...]string{
	KindSafeRoot:        "SafeRoot",
	KindUnsafeRoot:      "UnsafeRoot",
	KindSafeFn:          "SafeFn",
	KindUnsafeFn:        "UnsafeFn",
	KindSafeFnWithAdt:   "SafeFnWithAdt",
	KindUnsafeFnWithAdt: "UnsafeFnWithAdt",
	KindTag:             "Tag",
	KindAdt:             "Adt",
	KindAccessKindGroup: "AccessKindGroup",
	KindField:           "Field",
	KindFieldHeader:     "FieldHeader",
	KindCallerHeader:    "CallerHeader",
}

// String returns the kind name.
func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// MarshalJSON encodes the kind by name.
func (k NodeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind name.
func (k *NodeKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for i, name := range kindNames {
		if name == s {
			*k = NodeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", s)
}

// FnKind returns the kind of a function node.
func FnKind(safe, root, withAdt bool) NodeKind {
	switch {
	case root && safe:
		return KindSafeRoot
	case root:
		return KindUnsafeRoot
	case withAdt && safe:
		return KindSafeFnWithAdt
	case withAdt:
		return KindUnsafeFnWithAdt
	case safe:
		return KindSafeFn
	default:
		return KindUnsafeFn
	}
}

// IsRoot reports whether k is a caller kind.
func (k NodeKind) IsRoot() bool {
	return k == KindSafeRoot || k == KindUnsafeRoot
}

// IsFn reports whether k is any function kind, the caller included.
func (k NodeKind) IsFn() bool {
	return k <= KindUnsafeFnWithAdt
}

// IsUnsafe reports whether k is an unsafe function kind.
func (k NodeKind) IsUnsafe() bool {
	return k == KindUnsafeRoot || k == KindUnsafeFn || k == KindUnsafeFnWithAdt
}

// IsHeader reports whether k is a cosmetic header pseudo node.
func (k NodeKind) IsHeader() bool {
	return k == KindFieldHeader || k == KindCallerHeader
}

// Visual classes shared with the renderer's stylesheet.
const (
	ClassFn         = "upg-node-fn"
	ClassUnsafeFn   = "upg-node-unsafe-fn"
	ClassTag        = "upg-node-tag"
	ClassAdt        = "upg-node-adt"
	ClassAdtFnKind  = "upg-node-adt-fn-kind"
	ClassField      = "upg-node-field"
	ClassHeader     = "upg-node-header"
	ClassAdtNoFloor = "upg-node-adt-border-b-0"
)

// Class returns the visual class of k.
func (k NodeKind) Class() string {
	switch k {
	case KindUnsafeRoot, KindUnsafeFn, KindUnsafeFnWithAdt:
		return ClassUnsafeFn
	case KindSafeRoot, KindSafeFn, KindSafeFnWithAdt:
		return ClassFn
	case KindTag:
		return ClassTag
	case KindAdt:
		return ClassAdt
	case KindAccessKindGroup:
		return ClassAdtFnKind
	case KindField:
		return ClassField
	default:
		return ClassHeader
	}
}

// Handle types tell the renderer which connection points a node shows.
const (
	HandleDefault = "default"
	HandleOutput  = "output"
	HandleInput   = "input"
	HandleTag     = "tag"
	HandleNone    = "no-handle"
)

// Handle returns the handle type of k.
func (k NodeKind) Handle() string {
	switch {
	case k.IsRoot():
		return HandleDefault
	case k.IsFn():
		return HandleOutput
	case k == KindTag:
		return HandleTag
	case k == KindField:
		return HandleInput
	default:
		return HandleNone
	}
}

// Side is a node border an edge may attach to.
type Side string

const (
	SideNone   Side = ""
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// AnchorSides are the borders outgoing (Source) and incoming (Target)
// edges attach to.
type AnchorSides struct {
	Source Side `json:"source,omitempty"`
	Target Side `json:"target,omitempty"`
}

// Anchors returns the anchor sides of k.
func (k NodeKind) Anchors() AnchorSides {
	switch k {
	case KindSafeRoot, KindUnsafeRoot, KindSafeFn, KindUnsafeFn, KindAdt, KindField:
		return AnchorSides{Source: SideRight, Target: SideLeft}
	case KindSafeFnWithAdt, KindUnsafeFnWithAdt:
		return AnchorSides{Source: SideRight, Target: SideBottom}
	case KindAccessKindGroup:
		return AnchorSides{Source: SideBottom}
	default:
		return AnchorSides{}
	}
}

// Refinable reports whether a top-level node of kind k takes part in the
// top-level tree refinement.
func (k NodeKind) Refinable() bool {
	switch k {
	case KindSafeRoot, KindUnsafeRoot, KindSafeFn, KindUnsafeFn, KindAdt:
		return true
	}
	return false
}

// Registry is the id to kind side table of one render. It is the only
// authority on node semantics once a node exists.
type Registry struct {
	kinds map[string]NodeKind
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]NodeKind)}
}

// Register records the kind of id. Registering an id twice is an identity
// collision and leaves the first registration in place.
func (r *Registry) Register(id string, kind NodeKind) error {
	if prev, ok := r.kinds[id]; ok {
		return errors.New(errors.ErrCodeIdentityCollision, "node id %q already used by a %s node (new %s)", id, prev, kind)
	}
	r.kinds[id] = kind
	r.order = append(r.order, id)
	return nil
}

// Kind returns the kind of id.
func (r *Registry) Kind(id string) (NodeKind, bool) {
	k, ok := r.kinds[id]
	return k, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.kinds[id]
	return ok
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	return len(r.kinds)
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
