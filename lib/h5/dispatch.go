package h5

import (
	"strings"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
)

// constructors maps the array classes to their wrappers. VLARRAY is refined
// by the subdtype attribute in resolve.
var constructors = map[Class]func(n node) Node{
	ClassCArray: func(n node) Node {
		n.kind = "CArray"
		return &CArray{node: n}
	},
	ClassEArray: func(n node) Node {
		n.kind = "EArray"
		return &EArray{CArray: CArray{node: n}}
	},
	ClassVLArray: func(n node) Node {
		n.kind = "VLArray"
		return &VLArray{node: n}
	},
}

func newGroup(t *tree, h backend.Handle) *Group {
	return &Group{node: node{t: t, h: h, class: ClassGroup, kind: "Group"}}
}

func newStringArray(t *tree, h backend.Handle) *StringArray {
	return &StringArray{node: node{t: t, h: h, class: ClassVLArray, kind: "StringArray"}}
}

// resolve reads the CLASS attribute of h and builds the matching wrapper.
// Nodes without CLASS are groups.
func (t *tree) resolve(h backend.Handle) (Node, error) {
	raw, ok, err := t.b.GetAttr(h, attrs.KeyClass)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := t.repairClass(h); err != nil {
			return nil, err
		}
		return newGroup(t, h), nil
	}

	class := Class(attrs.DecodeStructural(raw))
	if !strings.Contains(string(class), "ARRAY") {
		return newGroup(t, h), nil
	}

	construct, known := constructors[class]
	if !known {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s has unknown CLASS %q", h.Path(), class)
	}

	if class == ClassVLArray {
		sub, ok, err := t.b.GetAttr(h, "subdtype")
		if err != nil {
			return nil, err
		}
		if ok && attrs.AsString(attrs.Decode(sub)) == SubDTypeString {
			return newStringArray(t, h), nil
		}
	}
	return construct(node{t: t, h: h, class: class}), nil
}

// repairClass writes CLASS=GROUP onto an untyped node if the tree allows it.
func (t *tree) repairClass(h backend.Handle) error {
	if !t.classRepair || !t.b.Mode().Writable() {
		return nil
	}
	Logger.Debugf("%s has no CLASS, marking it as GROUP", h.Path())
	return t.b.SetAttr(h, attrs.KeyClass, string(ClassGroup))
}

// resolvePath looks up path and resolves it.
func (t *tree) resolvePath(path string) (Node, error) {
	h, err := t.b.Lookup(path)
	if err != nil {
		return nil, err
	}
	return t.resolve(h)
}

// group resolves path and requires a group.
func (t *tree) group(path string) (*Group, error) {
	n, err := t.resolvePath(path)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%s is a %s, not a group", n.Path(), n.Class())
	}
	return g, nil
}
