// Package bolt implements db.KVDB on top of a single bbolt bucket.
//
// Keys are stored in byte order, so Range is a cursor seek followed by a
// linear walk. Every write is its own transaction, Batch commits all entries
// in one. With NoSync (the default of the kvtree backend) commits skip fsync
// and Sync flushes the file explicitly.
//
// Save streams the bbolt file image (Tx.WriteTo). Load accepts such an image,
// opens it read-only from a temporary file and replaces the bucket content in
// one transaction, leaving the database unchanged if the image is invalid.
package bolt
