package h5

import (
	"fmt"
	"strings"
)

// Group is a container node without payload.
type Group struct {
	node
}

// Children returns the direct children in insertion order, each resolved to
// its wrapper.
func (g *Group) Children() (*Children, error) {
	native, err := g.t.b.Children(g.h)
	if err != nil {
		return nil, err
	}
	children := &Children{}
	for _, c := range native {
		n, err := g.t.resolve(c.Handle)
		if err != nil {
			return nil, err
		}
		children.add(c.Name, n)
	}
	return children, nil
}

// ChildrenNames returns the names of the direct children in insertion order.
func (g *Group) ChildrenNames() ([]string, error) {
	native, err := g.t.b.Children(g.h)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(native))
	for i, c := range native {
		names[i] = c.Name
	}
	return names, nil
}

// String lists the group and its children.
func (g *Group) String() string {
	var rep []string
	if children, err := g.Children(); err == nil {
		for name, child := range children.All() {
			rep = append(rep, fmt.Sprintf("%q (%s)", name, child.base().kind))
		}
	}
	return fmt.Sprintf("%s\n  children := [%s]", g.node.String(), strings.Join(rep, ", "))
}
