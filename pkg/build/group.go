package build

import (
	"fmt"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// selfAdt wraps root in the ADT the caller is a method of, next to the
// fields the caller touches. It returns nil when the caller is not drawn
// inside an ADT.
func (b *Builder) selfAdt(caller *upg.Caller, root *layout.Node) *layout.Node {
	if !b.opts.Views.Adts || root == nil {
		return nil
	}
	adt, usage, ok := caller.SelfAdt()
	if !ok {
		return nil
	}

	id := diagram.SelfAdtID(adt)
	self := b.compound(id, adt, diagram.KindAdt, layout.AdtHints)
	if self == nil {
		return nil
	}
	for _, field := range usage.FieldNames() {
		access := usage.Fields[field]
		if err := upg.ValidateField(field, access); err != nil {
			b.report(errors.ErrCodeMalformedInput, caller.Name+" "+adt, err)
			continue
		}
		if !b.opts.FieldView.Includes(access) {
			continue
		}
		fid := diagram.FieldID(id, field)
		if n := b.leaf(fid, field, diagram.KindField, layout.FnHints); n != nil {
			self.Children = append(self.Children, n)
			b.edge(fid, root.ID, diagram.EdgeStep, string(access), true)
		}
	}
	if len(self.Children) > 0 {
		b.noFloor[id] = true
	}
	self.Children = append(self.Children, root)
	return self
}

// calleeRef is one callee used in an (ADT, access kind) group.
type calleeRef struct {
	name string
	info upg.CalleeInfo
}

// fieldRef is one access of a field by a grouped callee.
type fieldRef struct {
	callee string
	kind   upg.AccessKind
	access upg.FieldAccess
}

// adtGroup collects everything drawn inside one ADT node.
type adtGroup struct {
	kinds  map[upg.AccessKind][]calleeRef
	fields map[string][]fieldRef
}

// callees creates the ADT groups and the ungrouped callee leaves, plus the
// edges from the caller to each of them.
func (b *Builder) callees(caller *upg.Caller, rootID string) []*layout.Node {
	groups := map[string]*adtGroup{}
	grouped := map[string]bool{}

	if b.opts.Views.Adts {
		for _, name := range caller.CalleeNames() {
			info := caller.Callees[name]
			for _, adt := range info.AdtNames() {
				usage := info.Adts[adt]
				if adt == "" {
					b.report(errors.ErrCodeMalformedInput, name, fmt.Errorf("adt name is empty"))
					continue
				}
				if err := usage.Validate(); err != nil {
					b.report(errors.ErrCodeMalformedInput, name+" "+adt, err)
					continue
				}
				g := groups[adt]
				if g == nil {
					g = &adtGroup{kinds: map[upg.AccessKind][]calleeRef{}, fields: map[string][]fieldRef{}}
					groups[adt] = g
				}
				g.kinds[usage.Kind] = append(g.kinds[usage.Kind], calleeRef{name: name, info: info})
				grouped[name] = true

				for _, field := range usage.FieldNames() {
					access := usage.Fields[field]
					if err := upg.ValidateField(field, access); err != nil {
						b.report(errors.ErrCodeMalformedInput, name+" "+adt, err)
						continue
					}
					if !b.opts.FieldView.Includes(access) {
						continue
					}
					g.fields[field] = append(g.fields[field], fieldRef{callee: name, kind: usage.Kind, access: access})
				}
			}
		}
	}

	var nodes []*layout.Node
	for _, adt := range upg.SortedKeys(groups) {
		if n := b.adtNode(adt, groups[adt]); n != nil {
			nodes = append(nodes, n)
			b.edge(rootID, n.ID, b.opts.EdgeStyle, "", false)
		}
	}

	for _, name := range caller.CalleeNames() {
		if grouped[name] {
			continue
		}
		info := caller.Callees[name]
		id := diagram.CalleeID(name, "")
		if n := b.fnNode(id, name, diagram.FnKind(info.Safe, false, false), info.Tags); n != nil {
			nodes = append(nodes, n)
			b.edge(rootID, id, b.opts.EdgeStyle, "", false)
		}
	}
	return nodes
}

// adtNode creates one ADT group: an access-kind node per kind in display
// order, then the fields header when any field passes the field view.
func (b *Builder) adtNode(adt string, g *adtGroup) *layout.Node {
	adtID := diagram.AdtID(adt)
	n := b.compound(adtID, adt, diagram.KindAdt, layout.AdtHints)
	if n == nil {
		return nil
	}

	for _, kind := range upg.AccessKinds {
		refs := g.kinds[kind]
		if len(refs) == 0 {
			continue
		}
		gid := diagram.KindGroupID(adtID, string(kind))
		group := b.compound(gid, string(kind), diagram.KindAccessKindGroup, layout.GroupHints)
		if group == nil {
			continue
		}
		for _, ref := range refs {
			cid := diagram.CalleeID(ref.name, gid)
			callee := b.fnNode(cid, ref.name, diagram.FnKind(ref.info.Safe, false, true), ref.info.Tags)
			if callee == nil {
				continue
			}
			group.Children = append(group.Children, callee)
			b.edge(gid, cid, diagram.EdgeStraight, "", false)
		}
		n.Children = appendNode(n.Children, group)
	}

	if len(g.fields) > 0 {
		n.Children = appendNode(n.Children, b.fieldsNode(adtID, g))
	}
	return n
}

func (b *Builder) fieldsNode(adtID string, g *adtGroup) *layout.Node {
	label := "Fields"
	if len(g.fields) == 1 {
		label = "Field"
	}
	header := b.compound(diagram.FieldsID(adtID), label, diagram.KindFieldHeader, layout.FieldsHints)
	if header == nil {
		return nil
	}
	for _, field := range upg.SortedKeys(g.fields) {
		fid := diagram.FieldID(adtID, field)
		leaf := b.leaf(fid, field, diagram.KindField, layout.FnHints)
		if leaf == nil {
			continue
		}
		header.Children = append(header.Children, leaf)
		for _, ref := range g.fields[field] {
			src := diagram.CalleeID(ref.callee, diagram.KindGroupID(adtID, string(ref.kind)))
			if !b.kinds.Has(src) {
				continue
			}
			b.edge(src, fid, diagram.EdgeStep, string(ref.access), false)
		}
	}
	if len(header.Children) == 0 {
		return nil
	}
	b.noFloor[adtID] = true
	return header
}
