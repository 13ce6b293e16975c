// Package compress implements the normalized compression filters applied to
// dataset rows. Deflate (stored as "zlib" by the tables backend and as "gzip" by
// the h5py backends) and zstd are provided by github.com/klauspost/compress.
package compress
