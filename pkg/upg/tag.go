package upg

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/matzehuels/upgraph/pkg/errors"
)

// TagTypePrecond is the tag type prefix that is never printed.
const TagTypePrecond = "precond"

// Tag is one safety property instance on a function.
type Tag struct {
	Type *string  `json:"typ"`
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
	Doc  string   `json:"doc,omitempty"`
}

// UnmarshalJSON accepts the flat form {"typ","name","args","doc"} and the
// analyzer form {"tag": {"typ","name"}, "args"}.
func (t *Tag) UnmarshalJSON(data []byte) error {
	var aux struct {
		Type *string  `json:"typ"`
		Name string   `json:"name"`
		Args []string `json:"args"`
		Doc  string   `json:"doc"`
		Tag  *struct {
			Type *string `json:"typ"`
			Name string  `json:"name"`
		} `json:"tag"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Tag{Type: aux.Type, Name: aux.Name, Args: aux.Args, Doc: aux.Doc}
	if aux.Tag != nil {
		t.Type = aux.Tag.Type
		t.Name = aux.Tag.Name
	}
	return nil
}

// Text returns the display text of the tag. Without args it is the bare
// name; with args the type prefix and argument list are added.
func (t Tag) Text(withArgs bool) string {
	if !withArgs {
		return t.Name
	}
	var b strings.Builder
	if t.Type != nil && *t.Type != "" && *t.Type != TagTypePrecond {
		b.WriteString(*t.Type)
		b.WriteByte('.')
	}
	b.WriteString(t.Name)
	if len(t.Args) > 0 {
		b.WriteByte('(')
		b.WriteString(strings.Join(t.Args, ", "))
		b.WriteByte(')')
	}
	return b.String()
}

// Validate reports a MALFORMED_INPUT error for a nameless tag.
func (t Tag) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New(errors.ErrCodeMalformedInput, "tag has no name")
	}
	return nil
}

// TagList is the tags attached to one function.
type TagList []Tag

// UnmarshalJSON accepts a bare array or the analyzer's {"tags": [...]} object.
func (l *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var aux struct {
			Tags []Tag `json:"tags"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return err
		}
		*l = aux.Tags
		return nil
	}
	var tags []Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*l = tags
	return nil
}

// TagTable maps function names to their tags.
type TagTable map[string]TagList

// Lookup returns the tags of fn, falling back to fallback when the table
// has no entry for it.
func (tt TagTable) Lookup(fn string, fallback TagList) TagList {
	if tags, ok := tt[fn]; ok {
		return tags
	}
	return fallback
}

// UnmarshalJSON accepts a flat {fn: [tag...]} map and the analyzer form
// {"v_fn": {fn: [{"tags": [{"sp": tag, "doc"}], "doc"}]}}.
func (tt *TagTable) UnmarshalJSON(data []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return err
	}
	raw, nested := top["v_fn"]
	if !nested {
		flat := map[string]TagList{}
		if err := json.Unmarshal(data, &flat); err != nil {
			return err
		}
		*tt = flat
		return nil
	}

	var vfn map[string][]struct {
		Tags []map[string]json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(raw, &vfn); err != nil {
		return err
	}
	out := make(TagTable, len(vfn))
	for fn, groups := range vfn {
		var list TagList
		for _, g := range groups {
			for _, item := range g.Tags {
				tag, err := decodeUsageItem(item)
				if err != nil {
					return err
				}
				list = append(list, tag)
			}
		}
		out[fn] = list
	}
	*tt = out
	return nil
}

// decodeUsageItem decodes one {"sp": tag, "doc"} entry of the analyzer
// form; entries without "sp" are decoded as a tag directly.
func decodeUsageItem(item map[string]json.RawMessage) (Tag, error) {
	var tag Tag
	if sp, ok := item["sp"]; ok {
		if err := json.Unmarshal(sp, &tag); err != nil {
			return tag, err
		}
	} else {
		data, err := json.Marshal(item)
		if err != nil {
			return tag, err
		}
		if err := json.Unmarshal(data, &tag); err != nil {
			return tag, err
		}
	}
	if doc, ok := item["doc"]; ok {
		var s string
		if err := json.Unmarshal(doc, &s); err == nil && s != "" {
			tag.Doc = s
		}
	}
	return tag, nil
}
