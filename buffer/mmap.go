//go:build unix

package buffer

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/robert-malhotra/go-volume/errs"
)

// MapOption configures Map.
type MapOption func(*mapOptions)

type mapOptions struct {
	offset   int64
	readOnly bool
	create   bool
}

// WithOffset maps the file starting at off, which must be a multiple of the
// page size.
func WithOffset(off int64) MapOption {
	return func(o *mapOptions) {
		o.offset = off
	}
}

// ReadOnly maps the file without write access. Stores through the
// buffer's methods then fail with a resource error.
func ReadOnly() MapOption {
	return func(o *mapOptions) {
		o.readOnly = true
	}
}

// Create creates or grows the file to hold the mapping.
func Create() MapOption {
	return func(o *mapOptions) {
		o.create = true
	}
}

// Map creates a shared buffer of n elements backed by the file at path.
// Writes reach the file; the mapping is synced and unmapped when the last
// handle is released.
func Map(path string, t ElementType, n int, opts ...MapOption) (*Buffer, error) {
	const op = "buffer.Map"
	if !t.Valid() {
		return nil, errs.New(errs.KindConversion, op, "unknown element type %d", t)
	}
	if n < 0 {
		return nil, errs.New(errs.KindRange, op, "negative length %d", n)
	}
	o := &mapOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.offset%int64(os.Getpagesize()) != 0 {
		return nil, errs.New(errs.KindRange, op, "offset %d is not page aligned", o.offset)
	}

	flag, prot := os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	if o.readOnly {
		flag, prot = os.O_RDONLY, unix.PROT_READ
	}
	if o.create && !o.readOnly {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.KindResource, op, err, "open %s", path)
	}

	size := int64(n * t.Size())
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.KindResource, op, err, "stat %s", path)
	}
	if need := o.offset + size; fi.Size() < need {
		if !o.create || o.readOnly {
			f.Close()
			return nil, errs.New(errs.KindRange, op, "%s holds %d bytes, need %d", path, fi.Size(), need)
		}
		if err := f.Truncate(need); err != nil {
			f.Close()
			return nil, errs.Wrap(errs.KindResource, op, err, "grow %s", path)
		}
	}

	if size == 0 {
		f.Close()
		s := newStorage(Shared, nil)
		s.readOnly = o.readOnly
		return newBuffer(t, 0, []byte{}, s), nil
	}
	mem, err := unix.Mmap(int(f.Fd()), o.offset, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errs.Wrap(errs.KindResource, op, err, "mmap %s", path)
	}

	readOnly := o.readOnly
	release := func() error {
		var first error
		if !readOnly {
			if err := unix.Msync(mem, unix.MS_SYNC); err != nil {
				first = errs.Wrap(errs.KindResource, "buffer.Release", err, "msync %s", path)
			}
		}
		if err := unix.Munmap(mem); err != nil && first == nil {
			first = errs.Wrap(errs.KindResource, "buffer.Release", err, "munmap %s", path)
		}
		if err := f.Close(); err != nil && first == nil {
			first = errs.Wrap(errs.KindResource, "buffer.Release", err, "close %s", path)
		}
		return first
	}
	s := newStorage(Shared, release)
	s.readOnly = readOnly
	return newBuffer(t, n, mem, s), nil
}
