package h5

import "iter"

// WalkGroups yields every group reachable from where, depth first, each once
// and siblings in insertion order. Arrays are never yielded; if where is not a
// group nothing is. Iteration stops after the first error.
func (s *Storage) WalkGroups(where Where) iter.Seq2[*Group, error] {
	return func(yield func(*Group, error) bool) {
		n, err := s.GetNode(where)
		if err != nil {
			yield(nil, err)
			return
		}
		start, ok := n.(*Group)
		if !ok {
			return
		}

		stack := []*Group{start}
		for len(stack) > 0 {
			g := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(g, nil) {
				return
			}

			children, err := g.Children()
			if err != nil {
				yield(nil, err)
				return
			}
			// push in reverse so the first child is visited first
			names := children.Names()
			for i := len(names) - 1; i >= 0; i-- {
				child, _ := children.Get(names[i])
				if sub, ok := child.(*Group); ok {
					stack = append(stack, sub)
				}
			}
		}
	}
}

// WalkNodes yields where itself and then the direct children of every group
// from WalkGroups(where).
func (s *Storage) WalkNodes(where Where) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		n, err := s.GetNode(where)
		if err != nil {
			yield(nil, err)
			return
		}
		if !yield(n, nil) {
			return
		}

		for g, err := range s.WalkGroups(n) {
			if err != nil {
				yield(nil, err)
				return
			}
			children, err := g.Children()
			if err != nil {
				yield(nil, err)
				return
			}
			for _, child := range children.All() {
				if !yield(child, nil) {
					return
				}
			}
		}
	}
}
