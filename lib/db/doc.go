// Package db provides a standardized interface for the key-value engines the
// kvtree backend stores container files in.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Ordered prefix scans, which the tree layout relies on for child and row order
//   - Atomic batches, so a node and its structural attributes appear together
//   - Feature discovery through capability flags
//
// Key Components:
//
//   - KVDB Interface: The interface all engines satisfy. It provides Set, Get,
//     Has, Delete, Range, Batch, persistence (Save, Load, Sync) and metadata
//     (GetInfo, SupportsFeature).
//
//   - Feature Flags: The Feature type defines capability flags that engines
//     advertise through SupportsFeature. FeatureDurable marks engines whose
//     Sync persists writes on its own.
//
//   - Implementation Identifiers: ImplMaple (in memory, snapshot to file) and
//     ImplBolt (bbolt file).
//
// Related Packages:
//
// The engines/maple package is the sharded in-memory engine. The engines/bolt
// package stores keys in a single bbolt bucket. The testing package provides
// RunKVDBTests and RunKVDBBenchmarks that every engine runs.
package db
