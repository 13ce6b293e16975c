package h5

import (
	"fmt"
	"iter"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
)

// Class is the value of the CLASS attribute selecting the node wrapper.
type Class string

const (
	ClassGroup   Class = "GROUP"
	ClassCArray  Class = "CARRAY"
	ClassEArray  Class = "EARRAY"
	ClassVLArray Class = "VLARRAY"
)

// SubDTypeString marks a VLARRAY that holds serialized values.
const SubDTypeString = "string"

// Where addresses a node: any Node, or a Path.
type Where interface {
	Path() string
}

// Path addresses a node by its absolute path.
type Path string

func (p Path) Path() string { return backend.CleanPath(string(p)) }

// --------------------------------------------------------------------------
// Node
// --------------------------------------------------------------------------

// Node is a transient view of one element of the tree. Nodes are built on
// every access and become invalid when the file they come from is closed.
type Node interface {
	// Path returns the absolute path of the node.
	Path() string
	// Name returns the last path component, "/" for the root.
	Name() string
	// Backend returns the backend the node was read from.
	Backend() backend.ID
	// Class returns the structural class of the node.
	Class() Class
	// Attrs returns the attribute accessor of the node.
	Attrs() *Attributes
	// Title returns the TITLE attribute, "" if it is missing.
	Title() string
	String() string

	base() *node
}

// tree is what all nodes of one open file share with the facade.
type tree struct {
	b           backend.IBackend
	classRepair bool
}

// node is embedded by every wrapper.
type node struct {
	t     *tree
	h     backend.Handle
	class Class
	kind  string // wrapper name used in String()
}

func (n *node) base() *node            { return n }
func (n *node) Path() string           { return backend.CleanPath(n.h.Path()) }
func (n *node) Name() string           { return backend.BaseName(n.h.Path()) }
func (n *node) Backend() backend.ID    { return n.t.b.ID() }
func (n *node) Class() Class           { return n.class }
func (n *node) Attrs() *Attributes     { return &Attributes{n: n} }
func (n *node) Handle() backend.Handle { return n.h }

func (n *node) Title() string {
	v, ok, err := n.Attrs().Lookup(attrs.KeyTitle)
	if err != nil || !ok {
		return ""
	}
	return attrs.AsString(v)
}

func (n *node) String() string {
	return fmt.Sprintf("%s (%s) %q", n.Path(), n.kind, n.Title())
}

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

// Attributes reads and writes the attributes of one node through the
// attribute codec.
type Attributes struct {
	n *node
}

// Lookup returns the decoded value of key and whether it exists.
func (a *Attributes) Lookup(key string) (interface{}, bool, error) {
	raw, ok, err := a.n.t.b.GetAttr(a.n.h, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return attrs.DecodeKey(key, raw), true, nil
}

// Get returns the decoded value of key. A missing key is ErrNotFound.
func (a *Attributes) Get(key string) (interface{}, error) {
	v, ok, err := a.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, backend.Errorf(backend.RetCNotFound, "%s has no attribute %s", a.n.Path(), key)
	}
	return v, nil
}

// Set encodes v and stores it under key.
func (a *Attributes) Set(key string, v interface{}) error {
	raw, err := attrs.EncodeKey(key, v)
	if err != nil {
		return backend.Errorf(backend.RetCInvalidArgument, "attribute %s: %v", key, err)
	}
	return a.n.t.b.SetAttr(a.n.h, key, raw)
}

func (a *Attributes) Has(key string) (bool, error) {
	_, ok, err := a.n.t.b.GetAttr(a.n.h, key)
	return ok, err
}

// Names returns the attribute names in insertion order.
func (a *Attributes) Names() ([]string, error) {
	return a.n.t.b.AttrNames(a.n.h)
}

// All returns every attribute, decoded.
func (a *Attributes) All() (map[string]interface{}, error) {
	raw, err := a.n.t.b.Attrs(a.n.h)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = attrs.DecodeKey(k, v)
	}
	return out, nil
}

func (a *Attributes) String() string {
	names, _ := a.Names()
	return fmt.Sprintf("%s.attrs (Attributes), %d attributes", a.n.Path(), len(names))
}

// shape reads the `shape` attribute.
func (a *Attributes) shape() ([]int, error) {
	v, err := a.Get("shape")
	if err != nil {
		return nil, err
	}
	shape, err := attrs.AsShape(v)
	if err != nil {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s: %v", a.n.Path(), err)
	}
	return shape, nil
}

// --------------------------------------------------------------------------
// Children
// --------------------------------------------------------------------------

// Children is an ordered mapping of child names to nodes.
type Children struct {
	names []string
	nodes map[string]Node
}

func (c *Children) add(name string, n Node) {
	if c.nodes == nil {
		c.nodes = make(map[string]Node)
	}
	c.names = append(c.names, name)
	c.nodes[name] = n
}

// Len returns the number of children.
func (c *Children) Len() int { return len(c.names) }

// Names returns the child names in insertion order.
func (c *Children) Names() []string { return append([]string(nil), c.names...) }

// Get returns the child called name.
func (c *Children) Get(name string) (Node, bool) {
	n, ok := c.nodes[name]
	return n, ok
}

// All iterates over the children in insertion order.
func (c *Children) All() iter.Seq2[string, Node] {
	return func(yield func(string, Node) bool) {
		for _, name := range c.names {
			if !yield(name, c.nodes[name]) {
				return
			}
		}
	}
}
