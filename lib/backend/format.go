package backend

import (
	"errors"
	"io"
	"os"
)

// HeaderSize is the number of leading bytes of a file passed to
// IFormat.Recognize.
const HeaderSize = 64

// IFormat is implemented by drivers of local container files.
type IFormat interface {
	IDriver
	// Recognize reports whether header (the first HeaderSize bytes of a file,
	// fewer for short files) starts a container written by this driver.
	Recognize(header []byte) bool
}

// ReadHeader returns up to HeaderSize leading bytes of the file at path.
func ReadHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return header[:n], nil
}

// Interop returns a driver that opens existing files written by one of
// others with the driver that wrote them. Such sessions report the ID of
// primary. ModeWrite always creates a file of primary. If primary does not
// implement IFormat it is returned unchanged.
func Interop(primary IDriver, others ...IDriver) IDriver {
	own, ok := primary.(IFormat)
	if !ok {
		return primary
	}
	d := &interopDriver{IFormat: own}
	for _, o := range others {
		if f, ok := o.(IFormat); ok && o.ID() != primary.ID() {
			d.others = append(d.others, f)
		}
	}
	if len(d.others) == 0 {
		return primary
	}
	return d
}

type interopDriver struct {
	IFormat
	others []IFormat
}

func (d *interopDriver) Open(path string, mode Mode) (IBackend, error) {
	if mode != ModeWrite {
		if writer := d.writerOf(path); writer != nil {
			b, err := writer.Open(path, mode)
			if err != nil {
				return nil, err
			}
			Logger.Debugf("%s was written by %s, opened for %s", path, writer.ID(), d.ID())
			return &foreignSession{IBackend: b, id: d.ID()}, nil
		}
	}
	return d.IFormat.Open(path, mode)
}

// writerOf returns the foreign driver that wrote path, nil if the file is
// missing, empty or belongs to the primary driver.
func (d *interopDriver) writerOf(path string) IFormat {
	header, err := ReadHeader(path)
	if err != nil || len(header) == 0 || d.IFormat.Recognize(header) {
		return nil
	}
	for _, f := range d.others {
		if f.Recognize(header) {
			return f
		}
	}
	return nil
}

// foreignSession is a session of another driver presented under id.
type foreignSession struct {
	IBackend
	id ID
}

func (s *foreignSession) ID() ID { return s.id }
