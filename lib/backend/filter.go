package backend

import (
	"fmt"
	"strings"
)

// Normalized compression filter names.
const (
	FilterNone    = ""
	FilterDeflate = "deflate"
	FilterZstd    = "zstd"
)

// MaxFilterLevel is the strongest compression level.
const MaxFilterLevel = 9

// Filter is the normalized (name, level) compression configuration applied
// to dataset creation. The zero value means no compression.
type Filter struct {
	Name  string
	Level int
}

// Enabled reports whether the filter compresses anything.
func (f Filter) Enabled() bool {
	return f.Name != FilterNone && f.Level > 0
}

func (f Filter) String() string {
	if !f.Enabled() {
		return "none"
	}
	return fmt.Sprintf("%s(%d)", f.Name, f.Level)
}

// NormalizeFilter maps the aliases used by the different native libraries
// onto one filter: "gzip" (h5py) and "zlib" (tables) are both deflate.
// A level of 0 or an empty name disables compression.
func NormalizeFilter(name string, level int) (Filter, error) {
	if level < 0 || level > MaxFilterLevel {
		return Filter{}, Errorf(RetCInvalidArgument, "compression level %d out of range 0..%d", level, MaxFilterLevel)
	}

	var normalized string
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return Filter{}, nil
	case "gzip", "zlib", "deflate":
		normalized = FilterDeflate
	case "zstd":
		normalized = FilterZstd
	default:
		return Filter{}, Errorf(RetCInvalidArgument, "unsupported compression filter %q", name)
	}

	if level == 0 {
		return Filter{}, nil
	}
	return Filter{Name: normalized, Level: level}, nil
}

// NativeFilterName returns the name a backend uses for a normalized filter.
func NativeFilterName(id ID, f Filter) string {
	if !f.Enabled() {
		return ""
	}
	if f.Name == FilterDeflate {
		if id == IDTables {
			return "zlib"
		}
		return "gzip"
	}
	return f.Name
}
