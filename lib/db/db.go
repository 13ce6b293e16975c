package db

import (
	"bytes"
	"io"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMaple Implementation = "maple"
	ImplBolt  Implementation = "bolt"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureSet     Feature = 1 << iota // Support for Set operations
	FeatureGet                         // Support for Get operations
	FeatureDelete                      // Support for Delete operations
	FeatureHas                         // Support for Has operations
	FeatureRange                       // Support for ordered prefix scans
	FeatureBatch                       // Support for atomic multi-key writes
	FeatureSave                        // Support for Save operations
	FeatureLoad                        // Support for Load operations
	FeatureDurable                     // Writes survive the process (Sync persists them)
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureHas:
		return "Has"
	case FeatureRange:
		return "Range"
	case FeatureBatch:
		return "Batch"
	case FeatureSave:
		return "Save"
	case FeatureLoad:
		return "Load"
	case FeatureDurable:
		return "Durable"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	Keys              int            `json:"keys"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// Entry is one operation of a batch: a Set, or a Delete if Delete is true.
type Entry struct {
	Key    string
	Value  []byte
	Delete bool
}

// RangeFunc is called for every key of a Range scan. Returning false stops
// the scan.
type RangeFunc func(key string, value []byte) bool

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for key-value database implementations.
// It provides methods for basic operations like Set, Get, Delete, ordered scans
// and various utility functions.
// Implementations can vary in their feature support, which can be queried with SupportsFeature.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// If the key already exists, the old value should be overwritten.
	Set(key string, value []byte) (err error)

	// Delete removes an entry with the specified key.
	// Deleting a missing key is not an error.
	Delete(key string) (err error)

	// Batch applies all entries atomically and in order: either every entry
	// is applied or none is.
	Batch(entries []Entry) (err error)

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	// The returned slice is owned by the caller.
	Get(key string) (value []byte, loaded bool, err error)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool, err error)

	// Range calls fn for every key starting with prefix in ascending byte order.
	Range(prefix string, fn RangeFunc) (err error)

	// --------------------------------------------------------------------------
	// Persistence Operations
	// --------------------------------------------------------------------------

	// Save persists the current state of the database to the provided io.Writer.
	Save(w io.Writer) (err error)

	// Load restores the database state data provided by an io.Reader.
	// Existing entries are discarded.
	Load(r io.Reader) (err error)

	// Sync makes all previous writes durable. A no-op for in-memory engines.
	Sync() (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Returns true if the feature is supported, false otherwise.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close closes the database.
	Close() (err error)
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// Features expands a feature mask into its single flags.
func Features(mask Feature) []Feature {
	var out []Feature
	for f := FeatureSet; f <= FeatureDurable; f <<= 1 {
		if mask&f != 0 {
			out = append(out, f)
		}
	}
	return out
}

// Copy streams every entry of src into dst.
func Copy(dst, src KVDB) error {
	var batch []Entry
	err := src.Range("", func(key string, value []byte) bool {
		batch = append(batch, Entry{Key: key, Value: bytes.Clone(value)})
		return true
	})
	if err != nil {
		return err
	}
	return dst.Batch(batch)
}
