package backend

import "fmt"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// ID identifies one of the interchangeable native libraries.
// The value is also what gets stored in the `backend` attribute of nodes.
type ID string

const (
	IDTables ID = "tables" // table oriented (SQLite)
	IDH5py   ID = "h5py"   // general hierarchical (KV tree)
	IDH5pyd  ID = "h5pyd"  // networked variant of h5py
)

// Mode is the open mode of a session.
type Mode string

const (
	ModeRead      Mode = "r"  // read only, file must exist
	ModeReadWrite Mode = "r+" // read/write, file must exist
	ModeAppend    Mode = "a"  // read/write, create if missing
	ModeWrite     Mode = "w"  // create, truncate if exists
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRead, ModeReadWrite, ModeAppend, ModeWrite:
		return m, nil
	default:
		return "", Errorf(RetCInvalidArgument, "invalid open mode %q (expected r, r+, a or w)", s)
	}
}

// Writable reports whether the mode allows mutations.
func (m Mode) Writable() bool {
	return m != ModeRead
}

// Handle is a backend-native reference to one node of an open session.
// Handles are only valid while the session that produced them is open.
type Handle interface {
	Path() string
}

// Child is one entry of an ordered children listing.
type Child struct {
	Name   string
	Handle Handle
}

// DatasetKind distinguishes the storage layouts a backend must support.
type DatasetKind uint8

const (
	KindFixed      DatasetKind = iota + 1 // shape fixed at creation
	KindExtendable                        // enlargeable along axis 0
	KindVarLen                            // one independently sized element per row
)

func (k DatasetKind) String() string {
	switch k {
	case KindFixed:
		return "fixed"
	case KindExtendable:
		return "extendable"
	case KindVarLen:
		return "varlen"
	default:
		return fmt.Sprintf("DatasetKind(%d)", uint8(k))
	}
}

// Attr is a raw (already encoded) attribute value. Value must be a string,
// []byte or int64.
type Attr struct {
	Name  string
	Value interface{}
}

// DatasetSpec describes a dataset to be created. Title, Class and Attrs are
// written in the same transaction as the dataset itself.
type DatasetSpec struct {
	Kind     DatasetKind
	DType    string   // element dtype name, e.g. "float64"
	Shape    []int    // full shape, axis 0 is 0 for extendable and varlen datasets
	MaxShape []int    // -1 marks an unlimited axis, nil means Shape
	Filter   Filter   // normalized filter, translated by the backend to its native name
	Rows     [][]byte // initial rows along axis 0
	Title    string
	Class    string
	Attrs    []Attr
}

// DatasetInfo is what a backend reports about an existing dataset.
type DatasetInfo struct {
	Kind       DatasetKind
	DType      string
	ElemShape  []int // shape of one row, nil for varlen datasets
	MaxShape   []int
	FilterName string // native filter name as stored ("zlib", "gzip", "zstd" or "")
	Level      int
	Rows       int
}

// Filter returns the normalized filter of the dataset.
func (i DatasetInfo) Filter() Filter {
	f, err := NormalizeFilter(i.FilterName, i.Level)
	if err != nil {
		return Filter{}
	}
	return f
}

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IDriver loads one native library and opens sessions on it.
type IDriver interface {
	// ID returns the identifier of the backend this driver implements.
	ID() ID
	// Probe checks that the native library is usable in this process.
	// It must not leave any resources open.
	Probe() error
	// Open opens (or creates, depending on mode) the container at path.
	Open(path string, mode Mode) (IBackend, error)
}

// IBackend is one open session on a container. Implementations are not safe
// for concurrent use; callers serialize access themselves.
type IBackend interface {

	// --------------------------------------------------------------------------
	// Session
	// --------------------------------------------------------------------------

	// ID returns the backend identifier.
	ID() ID
	// Path returns the location the session was opened on.
	Path() string
	// Mode returns the mode the session was opened with.
	Mode() Mode
	// IsOpen reports whether the session can still be used.
	IsOpen() bool
	// Flush makes all previous writes durable.
	Flush() error
	// Close releases the session. Unflushed writes may be lost on failure.
	Close() error
	// CopyTo writes a full structural copy of the container to path.
	CopyTo(path string) error

	// --------------------------------------------------------------------------
	// Navigation
	// --------------------------------------------------------------------------

	// Root returns the handle of "/".
	Root() (Handle, error)
	// Lookup resolves an absolute path. ErrNotFound if there is no such node.
	Lookup(path string) (Handle, error)
	// Children lists the direct children of a group in insertion order.
	Children(h Handle) ([]Child, error)
	// Parent returns the parent handle; false for the root.
	Parent(h Handle) (Handle, bool, error)

	// --------------------------------------------------------------------------
	// Creation
	// --------------------------------------------------------------------------

	// CreateGroup creates a group below parent and writes TITLE and
	// CLASS=GROUP in the same transaction. ErrExists if the name is taken.
	CreateGroup(parent Handle, name, title string) (Handle, error)
	// CreateDataset creates a dataset below parent as described by spec.
	CreateDataset(parent Handle, name string, spec DatasetSpec) (Handle, error)

	// --------------------------------------------------------------------------
	// Attributes
	// --------------------------------------------------------------------------

	// GetAttr returns the raw value of one attribute.
	GetAttr(h Handle, key string) (value interface{}, ok bool, err error)
	// Attrs returns all raw attributes of a node.
	Attrs(h Handle) (map[string]interface{}, error)
	// AttrNames returns the attribute names in insertion order.
	AttrNames(h Handle) ([]string, error)
	// SetAttr creates or replaces one attribute.
	SetAttr(h Handle, key string, value interface{}) error

	// --------------------------------------------------------------------------
	// Data
	// --------------------------------------------------------------------------

	// Dataset returns the dataset layout; ErrInvalidArgument for groups.
	Dataset(h Handle) (DatasetInfo, error)
	// AppendRow appends one row to an extendable or varlen dataset.
	AppendRow(h Handle, row []byte) error
	// ReadRows returns all rows of a dataset, decompressed.
	ReadRows(h Handle) ([][]byte, error)
	// RowCount returns the native length along axis 0.
	RowCount(h Handle) (int, error)
}
