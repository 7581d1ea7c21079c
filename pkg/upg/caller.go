package upg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// Caller is the record of one analyzed function.
type Caller struct {
	Name       string                `json:"name"`
	Safe       bool                  `json:"safe"`
	Doc        string                `json:"doc,omitempty"`
	Span       string                `json:"span,omitempty"`
	Callees    map[string]CalleeInfo `json:"callees,omitempty"`
	AdtsOfSelf map[string]*AdtUsage  `json:"adts,omitempty"`
}

// UnmarshalJSON accepts "adtsOfSelf" as an alias of "adts".
func (c *Caller) UnmarshalJSON(data []byte) error {
	type plain Caller
	var aux struct {
		plain
		AdtsOfSelf map[string]*AdtUsage `json:"adtsOfSelf"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = Caller(aux.plain)
	if c.AdtsOfSelf == nil {
		c.AdtsOfSelf = aux.AdtsOfSelf
	}
	return nil
}

// Validate checks the fields the diagram cannot be drawn without.
func (c *Caller) Validate() error {
	if c == nil {
		return errors.New(errors.ErrCodeInvalidInput, "caller record is empty")
	}
	return errors.ValidateFunctionName(c.Name)
}

// CalleeNames returns the callee names in sorted order.
func (c *Caller) CalleeNames() []string {
	return SortedKeys(c.Callees)
}

// SelfAdt returns the first ADT (in name order) the caller is a method of.
// ok is false when the caller has no receiver ADT.
func (c *Caller) SelfAdt() (name string, usage *AdtUsage, ok bool) {
	for _, adt := range SortedKeys(c.AdtsOfSelf) {
		u := c.AdtsOfSelf[adt]
		if u != nil && u.Kind.IsReceiver() {
			return adt, u, true
		}
	}
	return "", nil, false
}

// CalleeInfo describes one callee of a caller.
type CalleeInfo struct {
	Safe bool                 `json:"safe"`
	Doc  string               `json:"doc,omitempty"`
	Tags TagList              `json:"tags,omitempty"`
	Adts map[string]*AdtUsage `json:"adt,omitempty"`
}

// AdtNames returns the ADT names the callee touches in sorted order.
func (ci CalleeInfo) AdtNames() []string {
	return SortedKeys(ci.Adts)
}

// AdtUsage is how a function uses one ADT.
type AdtUsage struct {
	Kind   AccessKind             `json:"kind"`
	Fields map[string]FieldAccess `json:"field,omitempty"`
}

// UnmarshalJSON accepts the object form, a bare access kind string, or a
// list of access kinds (the first receiver kind wins, else the first).
func (u *AdtUsage) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var kind string
		if err := json.Unmarshal(data, &kind); err != nil {
			return err
		}
		*u = AdtUsage{Kind: AccessKind(kind)}
		return nil
	case '[':
		var kinds []AccessKind
		if err := json.Unmarshal(data, &kinds); err != nil {
			return err
		}
		*u = AdtUsage{}
		for _, k := range kinds {
			if k.IsReceiver() {
				u.Kind = k
				return nil
			}
		}
		if len(kinds) > 0 {
			u.Kind = kinds[0]
		}
		return nil
	}

	var aux struct {
		Kind       AccessKind             `json:"kind"`
		AccessKind AccessKind             `json:"accessKind"`
		Fields     map[string]FieldAccess `json:"field"`
		FieldsAlt  map[string]FieldAccess `json:"fields"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.Kind = aux.Kind
	if u.Kind == "" {
		u.Kind = aux.AccessKind
	}
	u.Fields = aux.Fields
	if u.Fields == nil {
		u.Fields = aux.FieldsAlt
	}
	return nil
}

// Validate reports a MALFORMED_INPUT error when the usage lacks a known
// access kind.
func (u *AdtUsage) Validate() error {
	if u == nil {
		return errors.New(errors.ErrCodeMalformedInput, "adt usage is null")
	}
	if !u.Kind.Valid() {
		return errors.New(errors.ErrCodeMalformedInput, "unknown access kind %q", u.Kind)
	}
	return nil
}

// FieldNames returns the accessed field names in sorted order.
func (u *AdtUsage) FieldNames() []string {
	if u == nil {
		return nil
	}
	return SortedKeys(u.Fields)
}

// ValidateField reports a MALFORMED_INPUT error for an unknown field access.
func ValidateField(field string, access FieldAccess) error {
	if field == "" {
		return errors.New(errors.ErrCodeMalformedInput, "field name is empty")
	}
	if !access.Valid() {
		return errors.New(errors.ErrCodeMalformedInput, "field %s: unknown access %q", field, access)
	}
	return nil
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}

// String implements fmt.Stringer for log output.
func (u *AdtUsage) String() string {
	if u == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%v", u.Kind, u.FieldNames())
}
