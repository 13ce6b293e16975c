package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

// --------------------------------------------------------------------------
// Payload encoding for structured message values
// --------------------------------------------------------------------------

// wireAttr is a raw attribute tagged with backend.EncodeRaw, so the type of
// the value (text, bytes, integer) survives every serializer.
type wireAttr struct {
	Name string `json:"name"`
	Raw  []byte `json:"raw"`
}

// wireSpec is backend.DatasetSpec without the rows, which travel in
// Message.Rows.
type wireSpec struct {
	Kind     backend.DatasetKind `json:"kind"`
	DType    string              `json:"dtype"`
	Shape    []int               `json:"shape"`
	MaxShape []int               `json:"maxshape,omitempty"`
	Filter   backend.Filter      `json:"filter"`
	Title    string              `json:"title"`
	Class    string              `json:"class"`
	Attrs    []wireAttr          `json:"attrs,omitempty"`
}

// EncodeDatasetSpec encodes everything of spec except its rows.
func EncodeDatasetSpec(spec backend.DatasetSpec) ([]byte, error) {
	w := wireSpec{
		Kind:     spec.Kind,
		DType:    spec.DType,
		Shape:    spec.Shape,
		MaxShape: spec.MaxShape,
		Filter:   spec.Filter,
		Title:    spec.Title,
		Class:    spec.Class,
	}
	for _, a := range spec.Attrs {
		raw, err := backend.EncodeRaw(a.Value)
		if err != nil {
			return nil, err
		}
		w.Attrs = append(w.Attrs, wireAttr{Name: a.Name, Raw: raw})
	}
	return json.Marshal(w)
}

// DecodeDatasetSpec is the inverse of EncodeDatasetSpec; rows are attached
// as given.
func DecodeDatasetSpec(b []byte, rows [][]byte) (backend.DatasetSpec, error) {
	var w wireSpec
	if err := json.Unmarshal(b, &w); err != nil {
		return backend.DatasetSpec{}, backend.Errorf(backend.RetCInvalidArgument, "malformed dataset spec: %v", err)
	}
	spec := backend.DatasetSpec{
		Kind:     w.Kind,
		DType:    w.DType,
		Shape:    w.Shape,
		MaxShape: w.MaxShape,
		Filter:   w.Filter,
		Rows:     rows,
		Title:    w.Title,
		Class:    w.Class,
	}
	if spec.Shape == nil {
		spec.Shape = []int{}
	}
	for _, a := range w.Attrs {
		v, err := backend.DecodeRaw(a.Raw)
		if err != nil {
			return backend.DatasetSpec{}, err
		}
		spec.Attrs = append(spec.Attrs, backend.Attr{Name: a.Name, Value: v})
	}
	return spec, nil
}

// EncodeDatasetInfo encodes a dataset layout.
func EncodeDatasetInfo(info backend.DatasetInfo) ([]byte, error) {
	return json.Marshal(info)
}

// DecodeDatasetInfo is the inverse of EncodeDatasetInfo.
func DecodeDatasetInfo(b []byte) (backend.DatasetInfo, error) {
	var info backend.DatasetInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return backend.DatasetInfo{}, fmt.Errorf("malformed dataset info: %w", err)
	}
	return info, nil
}

// EncodeAttrs splits raw attributes into parallel name and tagged value lists.
func EncodeAttrs(attrs map[string]interface{}) ([]string, [][]byte, error) {
	names := make([]string, 0, len(attrs))
	values := make([][]byte, 0, len(attrs))
	for name, v := range attrs {
		raw, err := backend.EncodeRaw(v)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		values = append(values, raw)
	}
	return names, values, nil
}

// DecodeAttrs is the inverse of EncodeAttrs.
func DecodeAttrs(names []string, values [][]byte) (map[string]interface{}, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("attribute listing has %d names but %d values", len(names), len(values))
	}
	out := make(map[string]interface{}, len(names))
	for i, name := range names {
		v, err := backend.DecodeRaw(values[i])
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
