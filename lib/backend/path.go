package backend

import (
	"strings"
)

// CleanPath normalizes a node path: leading "/", no trailing "/", no empty
// components. The root is always "/".
func CleanPath(path string) string {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// SplitPath splits a path into its non-empty components.
//
//   - "/" -> []string{}
//   - "/foo/bar" -> []string{"foo", "bar"}
func SplitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// JoinPath appends name to the parent path.
func JoinPath(parent, name string) string {
	parent = CleanPath(parent)
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// ParentPath returns the path of the parent node and false for the root.
func ParentPath(path string) (string, bool) {
	path = CleanPath(path)
	if path == "/" {
		return "", false
	}
	idx := strings.LastIndex(path, "/")
	if idx == 0 {
		return "/", true
	}
	return path[:idx], true
}

// BaseName returns the last path component, "/" for the root.
func BaseName(path string) string {
	path = CleanPath(path)
	if path == "/" {
		return "/"
	}
	return path[strings.LastIndex(path, "/")+1:]
}

// ValidateName checks that name can be used as a single path component.
func ValidateName(name string) error {
	if name == "" || strings.Contains(name, "/") || strings.ContainsRune(name, 0) {
		return Errorf(RetCInvalidArgument, "invalid node name %q", name)
	}
	return nil
}

// ParseAttrPath splits "/group/node@attr" into the node path and the attribute
// name.
func ParseAttrPath(path string) (nodePath, attrName string, err error) {
	idx := strings.LastIndex(path, "@")
	if idx == -1 {
		return "", "", Errorf(RetCInvalidArgument, "attribute path must contain '@': %s", path)
	}
	nodePath, attrName = CleanPath(path[:idx]), path[idx+1:]
	if attrName == "" {
		return "", "", Errorf(RetCInvalidArgument, "attribute name cannot be empty: %s", path)
	}
	return nodePath, attrName, nil
}
