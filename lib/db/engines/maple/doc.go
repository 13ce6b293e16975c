// Package maple implements an in-memory key-value database (KVDB) for the
// db.KVDB interface.
//
// Keys are spread over a fixed number of shards, each an xsync.MapOf. The
// shard of a key is chosen with the seeded FNV-1a hash from the util package.
// Single key operations only touch their shard. Batches, snapshots and loads
// take a database wide lock so a batch is never observed half applied.
//
// Range scans collect the matching keys of every shard and sort them, which
// is linear in the size of the database. This is fine for the metadata sized
// trees maple holds; large files should use the bolt engine.
//
// Persistence Format:
//  1. Magic number "MAPLEDB\x00" to identify the file format
//  2. Version number (currently 4)
//  3. Number of entries (uint64, little endian)
//  4. For each entry in key order: key length (uvarint), key, value length
//     (uvarint), value bytes
//
// Sync is a no-op. Durability comes from the caller writing Save output to a
// file, which is what the kvtree backend does on flush.
package maple
