package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Codec compresses and decompresses dataset rows for one normalized filter.
// A Codec for a disabled filter passes data through untouched.
type Codec struct {
	filter backend.Filter

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// New initializes the compression routines for f.
func New(f backend.Filter) (*Codec, error) {
	c := &Codec{filter: f}
	if !f.Enabled() {
		return c, nil
	}

	switch f.Name {
	case backend.FilterDeflate:
		// zlib writers are created per call, nothing to prepare
	case backend.FilterZstd:
		var err error
		c.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(f.Level)))
		if err != nil {
			return nil, err
		}
		c.decoder, err = zstd.NewReader(nil)
		if err != nil {
			_ = c.encoder.Close()
			return nil, err
		}
	default:
		return nil, backend.Errorf(backend.RetCInvalidArgument, "unsupported compression filter %q", f.Name)
	}
	return c, nil
}

// ForNative builds a Codec from the filter name and level stored by a backend.
func ForNative(nativeName string, level int) (*Codec, error) {
	f, err := backend.NormalizeFilter(nativeName, level)
	if err != nil {
		return nil, err
	}
	return New(f)
}

// Filter returns the filter this codec implements.
func (c *Codec) Filter() backend.Filter {
	return c.filter
}

// Compress compresses data if the filter is enabled
// and returns data untouched otherwise.
func (c *Codec) Compress(data []byte) ([]byte, error) {
	if !c.filter.Enabled() {
		return data, nil
	}

	switch c.filter.Name {
	case backend.FilterZstd:
		maxSize := c.encoder.MaxEncodedSize(len(data))
		return c.encoder.EncodeAll(data, make([]byte, 0, maxSize)), nil
	default:
		var buf bytes.Buffer
		w, err := zlib.NewWriterLevel(&buf, c.filter.Level)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
}

// Decompress reverses Compress.
func (c *Codec) Decompress(data []byte) ([]byte, error) {
	if !c.filter.Enabled() {
		return data, nil
	}

	switch c.filter.Name {
	case backend.FilterZstd:
		return c.decoder.DecodeAll(data, nil)
	default:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("corrupt deflate stream: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	}
}

// Close closes encoder and decoder, returns any error occurred.
func (c *Codec) Close() error {
	var err error
	if c.encoder != nil {
		err = c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return err
}
