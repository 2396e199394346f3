package buffer

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/alloc"
)

// Ownership describes who owns the memory behind a Buffer.
type Ownership uint8

const (
	// Exclusive memory lives on the Go heap and belongs to the buffer.
	Exclusive Ownership = iota
	// Shared memory is a file mapping, unmapped when the last reference
	// is released.
	Shared
	// Borrowed memory belongs to the caller and must outlive the buffer.
	Borrowed
)

func (o Ownership) String() string {
	switch o {
	case Exclusive:
		return "exclusive"
	case Shared:
		return "shared"
	case Borrowed:
		return "borrowed"
	}
	return fmt.Sprintf("Ownership(%d)", uint8(o))
}

// storage is the reference-counted backing shared by a buffer and every
// view spliced from it.
type storage struct {
	refs     atomic.Int64
	mode     Ownership
	readOnly bool
	release  func() error
}

func newStorage(mode Ownership, release func() error) *storage {
	s := &storage{mode: mode, release: release}
	s.refs.Store(1)
	return s
}

// retain adds a reference unless the storage has already been released.
func (s *storage) retain() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (s *storage) drop() error {
	if s.refs.Add(-1) != 0 {
		return nil
	}
	if s.release != nil {
		return s.release()
	}
	return nil
}

// Buffer is a type-erased run of elements of one ElementType.
//
// A Buffer is a handle: Retain, Slice and Splice return further handles onto
// the same memory, and the memory is released when the last handle calls
// Release. Writes through one handle are visible through all others; there
// is no implicit copy-on-write. Use Clone for an independent copy.
type Buffer struct {
	typ      ElementType
	n        int
	data     []byte
	store    *storage
	released atomic.Bool
}

func newBuffer(t ElementType, n int, data []byte, s *storage) *Buffer {
	return &Buffer{typ: t, n: n, data: data, store: s}
}

// Allocate creates an exclusive zeroed buffer of n elements on the heap.
func Allocate(t ElementType, n int) (*Buffer, error) {
	return (*Allocator)(nil).Allocate(t, n)
}

// Allocator accounts buffer memory against an optional byte limit. A nil
// *Allocator allocates without accounting.
type Allocator struct {
	a *alloc.Allocator
}

// AllocStats reports allocator usage.
type AllocStats = alloc.Stats

// NewAllocator returns an Allocator limited to limit bytes (0 = unlimited).
func NewAllocator(limit uint64) *Allocator {
	return &Allocator{a: alloc.New(limit)}
}

// Allocate creates an exclusive zeroed buffer of n elements.
func (al *Allocator) Allocate(t ElementType, n int) (*Buffer, error) {
	const op = "buffer.Allocate"
	if !t.Valid() {
		return nil, errs.New(errs.KindConversion, op, "unknown element type %d", t)
	}
	if n < 0 {
		return nil, errs.New(errs.KindRange, op, "negative length %d", n)
	}
	size := uint64(n) * uint64(t.Size())

	if al == nil || al.a == nil {
		mem, err := alloc.Aligned(size)
		if err != nil {
			return nil, errs.Wrap(errs.KindResource, op, err, "%d x %s", n, t)
		}
		return newBuffer(t, n, mem, newStorage(Exclusive, nil)), nil
	}

	mem, id, err := al.a.Alloc(size, t.String())
	if err != nil {
		return nil, errs.Wrap(errs.KindResource, op, err, "%d x %s", n, t)
	}
	a := al.a
	return newBuffer(t, n, mem, newStorage(Exclusive, func() error {
		a.Free(id)
		return nil
	})), nil
}

// Stats returns the usage of al.
func (al *Allocator) Stats() AllocStats {
	if al == nil || al.a == nil {
		return AllocStats{}
	}
	return al.a.Stats()
}

// Wrap creates a borrowed view of n elements over mem. release, if not nil,
// runs when the last handle is released. mem must be aligned to the
// component width of t.
func Wrap(mem []byte, t ElementType, n int, release func()) (*Buffer, error) {
	const op = "buffer.Wrap"
	if !t.Valid() {
		return nil, errs.New(errs.KindConversion, op, "unknown element type %d", t)
	}
	if n < 0 || len(mem) < n*t.Size() {
		return nil, errs.New(errs.KindRange, op, "%d bytes cannot hold %d x %s", len(mem), n, t)
	}
	if n > 0 {
		align := uintptr(ops[t.Info().Component].size)
		if uintptr(unsafe.Pointer(&mem[0]))%align != 0 {
			return nil, errs.New(errs.KindRange, op, "memory not aligned to %d bytes", align)
		}
	}
	var rel func() error
	if release != nil {
		rel = func() error {
			release()
			return nil
		}
	}
	return newBuffer(t, n, mem[:n*t.Size()], newStorage(Borrowed, rel)), nil
}

// FromSlice creates an exclusive buffer that takes over s.
func FromSlice[T Element](s []T) *Buffer {
	t := TypeOf[T]()
	var data []byte
	if len(s) > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*t.Size())
	} else {
		data = []byte{}
	}
	return newBuffer(t, len(s), data, newStorage(Exclusive, nil))
}

// View returns the elements of b as a []T sharing b's memory. T must match
// the buffer's element type.
func View[T Element](b *Buffer) ([]T, error) {
	if err := b.check("buffer.View"); err != nil {
		return nil, err
	}
	if t := TypeOf[T](); t != b.typ {
		return nil, errs.New(errs.KindConversion, "buffer.View", "buffer holds %s, not %s", b.typ, t)
	}
	if b.n == 0 {
		return []T{}, nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.data[0])), b.n), nil
}

// MustView is View for callers that already know the element type.
func MustView[T Element](b *Buffer) []T {
	v, err := View[T](b)
	if err != nil {
		panic(err)
	}
	return v
}

func (b *Buffer) check(op string) error {
	if b == nil {
		return errs.New(errs.KindValidity, op, "nil buffer")
	}
	if b.released.Load() {
		return errs.Coded(errs.ErrReleased, op, "buffer already released")
	}
	return nil
}

// writable is check for operations that store into b.
func (b *Buffer) writable(op string) error {
	if err := b.check(op); err != nil {
		return err
	}
	if b.store.readOnly {
		return errs.New(errs.KindResource, op, "buffer is mapped read-only")
	}
	return nil
}

// Type returns the element type.
func (b *Buffer) Type() ElementType { return b.typ }

// Len returns the number of elements.
func (b *Buffer) Len() int { return b.n }

// ByteLen returns the number of valid bytes.
func (b *Buffer) ByteLen() int { return b.n * b.typ.Size() }

// Bytes returns the raw memory of b. It aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Ownership returns how the backing memory is owned.
func (b *Buffer) Ownership() Ownership { return b.store.mode }

// Refs returns the number of live handles on the backing memory.
func (b *Buffer) Refs() int64 { return b.store.refs.Load() }

// Writable reports whether the backing memory accepts stores. Read-only
// mappings do not.
func (b *Buffer) Writable() bool { return !b.store.readOnly }

// Released reports whether Release was called on this handle.
func (b *Buffer) Released() bool { return b.released.Load() }

// Retain returns a new handle on the same memory.
func (b *Buffer) Retain() (*Buffer, error) {
	const op = "buffer.Retain"
	if err := b.check(op); err != nil {
		return nil, err
	}
	if !b.store.retain() {
		return nil, errs.Coded(errs.ErrReleased, op, "backing memory already released")
	}
	return newBuffer(b.typ, b.n, b.data, b.store), nil
}

// Release drops this handle. The backing memory is released with the last
// handle; for mapped buffers that flushes and unmaps the file.
func (b *Buffer) Release() error {
	if err := b.check("buffer.Release"); err != nil {
		return err
	}
	b.released.Store(true)
	b.data = nil
	return b.store.drop()
}

// Clone copies b into a new exclusive buffer.
func (b *Buffer) Clone() (*Buffer, error) {
	return b.CloneWith(nil)
}

// CloneWith copies b into a new buffer allocated from al.
func (b *Buffer) CloneWith(al *Allocator) (*Buffer, error) {
	if err := b.check("buffer.Clone"); err != nil {
		return nil, err
	}
	out, err := al.Allocate(b.typ, b.n)
	if err != nil {
		return nil, err
	}
	copy(out.data, b.data)
	return out, nil
}

// At returns element i. The result has the Go type of the element, e.g.
// uint8 or RGB24.
func (b *Buffer) At(i int) (any, error) {
	if err := b.check("buffer.At"); err != nil {
		return nil, err
	}
	if i < 0 || i >= b.n {
		return nil, errs.New(errs.KindRange, "buffer.At", "index %d out of range [0,%d)", i, b.n)
	}
	return decode(b.typ, b.data, i), nil
}

// Set stores v at element i. v must have the Go type of the element.
func (b *Buffer) Set(i int, v any) error {
	if err := b.writable("buffer.Set"); err != nil {
		return err
	}
	if i < 0 || i >= b.n {
		return errs.New(errs.KindRange, "buffer.Set", "index %d out of range [0,%d)", i, b.n)
	}
	if t := typeOfValue(v); t != b.typ {
		return errs.New(errs.KindConversion, "buffer.Set", "cannot store %T in %s buffer", v, b.typ)
	}
	encode(b.data, i, v)
	return nil
}

// Float64At returns component c of element i as float64.
func (b *Buffer) Float64At(i, c int) (float64, error) {
	if err := b.check("buffer.Float64At"); err != nil {
		return 0, err
	}
	info := b.typ.Info()
	if i < 0 || i >= b.n || c < 0 || c >= info.Components {
		return 0, errs.New(errs.KindRange, "buffer.Float64At", "element %d component %d out of range", i, c)
	}
	var out [8]byte
	comp := ops[info.Component]
	off := i*info.Size + c*comp.size
	comp.convert[Float64](out[:], b.data[off:off+comp.size], Identity)
	return *(*float64)(unsafe.Pointer(&out[0])), nil
}

func (b *Buffer) String() string {
	return fmt.Sprintf("%s[%d] (%s)", b.typ, b.n, b.store.mode)
}
