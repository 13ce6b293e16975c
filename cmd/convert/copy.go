package convert

import (
	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/h5"
)

// countNodes returns the number of nodes in the open file of s.
func countNodes(s *h5.Storage) (int, error) {
	count := 0
	for _, err := range s.WalkNodes(h5.Path("/")) {
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// copyTree recreates every node of src in dst, parents before children.
// Attributes are copied after the data; CLASS is set by the array
// constructors and `backend` names the destination backend.
func copyTree(src, dst *h5.Storage, done func(n h5.Node)) error {
	for n, err := range src.WalkNodes(h5.Path("/")) {
		if err != nil {
			return err
		}
		out, err := copyNode(dst, n)
		if err != nil {
			return err
		}
		if err := copyAttrs(dst, n, out); err != nil {
			return err
		}
		if done != nil {
			done(n)
		}
	}
	return dst.Flush()
}

func copyNode(dst *h5.Storage, n h5.Node) (h5.Node, error) {
	parentPath, ok := backend.ParentPath(n.Path())
	if !ok {
		return dst.Root()
	}
	parent, name, title := h5.Path(parentPath), n.Name(), n.Title()

	switch a := n.(type) {
	case *h5.Group:
		return dst.GetSetGroup(parent, name, title)

	case *h5.EArray:
		shape, err := a.Shape()
		if err != nil {
			return nil, err
		}
		if len(shape) == 0 {
			return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s has an empty shape attribute", n.Path())
		}
		dt, err := a.DType()
		if err != nil {
			return nil, err
		}
		out, err := dst.CreateEArray(parent, name, string(dt), shape[1:], title)
		if err != nil {
			return nil, err
		}
		rows, err := a.Len()
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			row, err := a.Row(i)
			if err != nil {
				return nil, err
			}
			if err := out.Append(row); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *h5.CArray:
		data, err := a.Read()
		if err != nil {
			return nil, err
		}
		return dst.CreateCArray(parent, name, data, title)

	case *h5.StringArray:
		values, err := a.Read()
		if err != nil {
			return nil, err
		}
		out, err := dst.CreateStringArray(parent, name, title)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if err := out.Append(v); err != nil {
				return nil, err
			}
		}
		return out, nil

	case *h5.VLArray:
		dt, err := a.DType()
		if err != nil {
			return nil, err
		}
		elements, err := a.Read()
		if err != nil {
			return nil, err
		}
		created, err := dst.CreateVLArray(parent, name, string(dt), title)
		if err != nil {
			return nil, err
		}
		out := created.(*h5.VLArray)
		for _, e := range elements {
			if err := out.Append(e); err != nil {
				return nil, err
			}
		}
		return out, nil

	default:
		return nil, backend.Errorf(backend.RetCInvalidArgument, "cannot copy %s of class %s", n.Path(), n.Class())
	}
}

func copyAttrs(dst *h5.Storage, from, to h5.Node) error {
	names, err := from.Attrs().Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == attrs.KeyClass {
			continue
		}
		if name == "backend" {
			if err := to.Attrs().Set(name, string(dst.BackendID())); err != nil {
				return err
			}
			continue
		}
		v, err := from.Attrs().Get(name)
		if err != nil {
			return err
		}
		if err := to.Attrs().Set(name, v); err != nil {
			return err
		}
	}
	return nil
}
