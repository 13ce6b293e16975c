package kvtree

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

// Key layout. Paths never contain NUL, so "<prefix><path>\x00" selects
// exactly the entries of one node in a prefix scan.
//
//	n:<path>              node record (JSON)
//	a:<path>\x00<name>    raw attribute value (backend.EncodeRaw)
//	o:<path>\x00<seq>     attribute name, in insertion order
//	c:<parent>\x00<seq>   child name, in insertion order
//	r:<path>\x00<idx>     row payload, compressed with the dataset filter
//	s:seq                 sequence counter (uint64, big endian)
const (
	prefixNode  = "n:"
	prefixAttr  = "a:"
	prefixOrder = "o:"
	prefixChild = "c:"
	prefixRow   = "r:"
	keySeq      = "s:seq"
)

func nodeKey(path string) string { return prefixNode + path }
func attrKey(path, name string) string { return prefixAttr + path + "\x00" + name }
func attrScan(path string) string { return prefixAttr + path + "\x00" }
func orderKey(path string, seq uint64) string {
	return fmt.Sprintf("%s%s\x00%020d", prefixOrder, path, seq)
}
func orderScan(path string) string { return prefixOrder + path + "\x00" }
func childKey(parent string, seq uint64) string {
	return fmt.Sprintf("%s%s\x00%020d", prefixChild, parent, seq)
}
func childScan(parent string) string { return prefixChild + parent + "\x00" }
func rowKey(path string, idx int) string {
	return fmt.Sprintf("%s%s\x00%020d", prefixRow, path, idx)
}
func rowScan(path string) string { return prefixRow + path + "\x00" }

func encodeSeq(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func decodeSeq(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, backend.Errorf(backend.RetCCorruptMetadata, "sequence counter has %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// --------------------------------------------------------------------------
// Node records
// --------------------------------------------------------------------------

const (
	recordGroup   = "group"
	recordDataset = "dataset"
)

type nodeRecord struct {
	Type    string         `json:"type"`
	Dataset *datasetRecord `json:"dataset,omitempty"`
}

type datasetRecord struct {
	Kind      backend.DatasetKind `json:"kind"`
	DType     string              `json:"dtype"`
	ElemShape []int               `json:"elem_shape,omitempty"`
	MaxShape  []int               `json:"maxshape,omitempty"`
	Filter    string              `json:"compression,omitempty"` // "gzip" or "zstd"
	Level     int                 `json:"compression_opts,omitempty"`
	Rows      int                 `json:"rows"`
}

func (r *datasetRecord) info() backend.DatasetInfo {
	return backend.DatasetInfo{
		Kind:       r.Kind,
		DType:      r.DType,
		ElemShape:  r.ElemShape,
		MaxShape:   r.MaxShape,
		FilterName: r.Filter,
		Level:      r.Level,
		Rows:       r.Rows,
	}
}

func encodeRecord(r nodeRecord) ([]byte, error) {
	return json.Marshal(r)
}

func decodeRecord(path string, b []byte) (nodeRecord, error) {
	var r nodeRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return r, backend.Errorf(backend.RetCCorruptMetadata, "node record of %s: %v", path, err)
	}
	if r.Type == recordDataset && r.Dataset == nil {
		return r, backend.Errorf(backend.RetCCorruptMetadata, "dataset %s has no layout", path)
	}
	return r, nil
}
