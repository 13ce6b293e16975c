// Package util provides helpers shared by the db.KVDB engines.
//
// The package contains:
//   - functions: the seeded FNV-1a hash used for shard selection and prefix range helpers
//   - statistics: shard distribution statistics reported by GetInfo
package util
