package format

import (
	"bytes"
	"io"
	"os"
)

// Source is something a descriptor can read from. Open may be called more
// than once; every call starts at the beginning.
type Source struct {
	// Name is the literal file name, used for provenance and for the
	// fallback stack.
	Name string
	open func() (io.ReadCloser, error)
}

// FileSource reads from the file at path.
func FileSource(path string) Source {
	return Source{Name: path, open: func() (io.ReadCloser, error) { return os.Open(path) }}
}

// BytesSource reads from data.
func BytesSource(name string, data []byte) Source {
	return Source{Name: name, open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

// FuncSource reads from whatever open returns.
func FuncSource(name string, open func() (io.ReadCloser, error)) Source {
	return Source{Name: name, open: open}
}

// Open returns a fresh reader.
func (s Source) Open() (io.ReadCloser, error) {
	if s.open == nil {
		return nil, os.ErrNotExist
	}
	return s.open()
}

// ReadAll returns the whole content of s.
func (s Source) ReadAll() ([]byte, error) {
	rc, err := s.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
