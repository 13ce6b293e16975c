package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

var (
	fmtGroup = color.New(color.FgBlue, color.Bold)
	fmtArray = color.New(color.FgGreen)
	fmtInfo  = color.New(color.Faint)
)

// kindOf returns the wrapper name of n, e.g. StringArray for a VLARRAY of
// serialized values.
func kindOf(n h5.Node) string {
	switch n.(type) {
	case *h5.Group:
		return "Group"
	case *h5.EArray:
		return "EArray"
	case *h5.CArray:
		return "CArray"
	case *h5.StringArray:
		return "StringArray"
	case *h5.VLArray:
		return "VLArray"
	default:
		return string(n.Class())
	}
}

// describe returns the shape and dtype of an array node, empty for groups.
func describe(n h5.Node) (shape, dtype string) {
	if _, ok := n.(*h5.Group); ok {
		return "", ""
	}
	if v, ok, err := n.Attrs().Lookup("shape"); err == nil && ok {
		if s, err := attrs.AsShape(v); err == nil {
			shape = fmt.Sprint(s)
		}
	}
	if v, ok, err := n.Attrs().Lookup("dtype"); err == nil && ok {
		dtype = attrs.AsString(v)
	}
	if _, ok := n.(*h5.StringArray); ok {
		dtype = h5.SubDTypeString
	}
	return shape, dtype
}

// --------------------------------------------------------------------------
// tree
// --------------------------------------------------------------------------

// printTree renders every node below where as an indented tree. Siblings keep
// their insertion order.
func printTree(w io.Writer, s *h5.Storage, where h5.Where) error {
	var start h5.Node
	children := map[string][]h5.Node{}

	for n, err := range s.WalkNodes(where) {
		if err != nil {
			return err
		}
		if start == nil {
			start = n
			continue
		}
		parent, _ := backend.ParentPath(n.Path())
		children[parent] = append(children[parent], n)
	}
	if start == nil {
		return nil
	}

	fmt.Fprintln(w, label(start, start.Path()))
	var walk func(path, prefix string)
	walk = func(path, prefix string) {
		list := children[path]
		for i, n := range list {
			branch, indent := "├── ", "│   "
			if i == len(list)-1 {
				branch, indent = "└── ", "    "
			}
			fmt.Fprintln(w, prefix+branch+label(n, n.Name()))
			walk(n.Path(), prefix+indent)
		}
	}
	walk(start.Path(), "")
	return nil
}

func label(n h5.Node, name string) string {
	var sb strings.Builder
	if _, ok := n.(*h5.Group); ok {
		sb.WriteString(fmtGroup.Sprint(name))
	} else {
		sb.WriteString(fmtArray.Sprint(name))
		shape, dtype := describe(n)
		sb.WriteString(fmtInfo.Sprintf(" %s %s %s", kindOf(n), shape, dtype))
	}
	if title := n.Title(); title != "" {
		sb.WriteString(fmtInfo.Sprintf(" %q", title))
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// ls
// --------------------------------------------------------------------------

// printChildren writes a table of the direct children of where.
func printChildren(w io.Writer, s *h5.Storage, where h5.Where) error {
	children, err := s.GetChildren(where)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Class", "Shape", "DType", "Title"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	for name, n := range children.All() {
		shape, dtype := describe(n)
		table.Append([]string{name, kindOf(n), shape, dtype, n.Title()})
	}
	table.Render()
	return nil
}

// --------------------------------------------------------------------------
// attrs
// --------------------------------------------------------------------------

// printAttrs writes the attributes of where as yaml or json. The yaml output
// keeps the insertion order of the attributes.
func printAttrs(w io.Writer, s *h5.Storage, where h5.Where, format string) error {
	n, err := s.GetNode(where)
	if err != nil {
		return err
	}
	values, err := n.Attrs().All()
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	case "yaml":
		names, err := n.Attrs().Names()
		if err != nil {
			return err
		}
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for _, name := range names {
			value := &yaml.Node{}
			if err := value.Encode(values[name]); err != nil {
				return fmt.Errorf("attribute %s: %w", name, err)
			}
			doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, value)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid format %s (expected yaml or json)", format)
	}
}
