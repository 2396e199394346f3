package buffer

import (
	"bytes"

	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/alloc"
	"github.com/robert-malhotra/go-volume/internal/dtype"
)

// MinMax returns the smallest and largest element of b. Multi-component
// types are reduced per component, so the minimum of a color buffer holds
// the darkest value of each channel. NaN is ignored.
func (b *Buffer) MinMax() (lo, hi any, err error) {
	const op = "buffer.MinMax"
	if err := b.check(op); err != nil {
		return nil, nil, err
	}
	info := b.typ.Info()
	los, err := alloc.Aligned(uint64(info.Size))
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindResource, op, err, "scratch")
	}
	his, err := alloc.Aligned(uint64(info.Size))
	if err != nil {
		return nil, nil, errs.Wrap(errs.KindResource, op, err, "scratch")
	}
	if !ops[info.Component].lanes(b.data, info.Components, los, his) {
		return nil, nil, errs.New(errs.KindRange, op, "no comparable values in %d elements", b.n)
	}
	return decode(b.typ, los, 0), decode(b.typ, his, 0), nil
}

// Range returns the extremes over all components as float64.
func (b *Buffer) Range() (lo, hi float64, ok bool) {
	if b.check("buffer.Range") != nil {
		return 0, 0, false
	}
	return ops[b.typ.Info().Component].minmax(b.data)
}

// Slice returns a handle on length elements starting at off. The result
// shares storage with b and must be released on its own.
func (b *Buffer) Slice(off, length int) (*Buffer, error) {
	const op = "buffer.Slice"
	if err := b.check(op); err != nil {
		return nil, err
	}
	if off < 0 || length < 0 || off+length > b.n {
		return nil, errs.New(errs.KindRange, op, "[%d,%d) out of range [0,%d)", off, off+length, b.n)
	}
	size := b.typ.Size()
	b.store.retain()
	return newBuffer(b.typ, length, b.data[off*size:(off+length)*size], b.store), nil
}

// Splice cuts b into consecutive views of segment elements each. The last
// view is shorter when segment does not divide the length. All views share
// storage with b.
func (b *Buffer) Splice(segment int) ([]*Buffer, error) {
	const op = "buffer.Splice"
	if err := b.check(op); err != nil {
		return nil, err
	}
	if segment <= 0 {
		return nil, errs.New(errs.KindRange, op, "segment length %d", segment)
	}
	out := make([]*Buffer, 0, (b.n+segment-1)/segment)
	for off := 0; off < b.n; off += segment {
		v, err := b.Slice(off, min(segment, b.n-off))
		if err != nil {
			for _, o := range out {
				o.Release()
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// CopyRange copies elements start through end inclusive into dst at
// dstStart. Both buffers must have the same element type.
func (b *Buffer) CopyRange(start, end int, dst *Buffer, dstStart int) error {
	const op = "buffer.CopyRange"
	if err := dst.writable(op); err != nil {
		return err
	}
	src, d, err := b.ranges(op, start, end, dst, dstStart)
	if err != nil {
		return err
	}
	copy(d, src)
	return nil
}

// CompareRange counts the elements start through end inclusive that differ
// bitwise from other at otherStart.
func (b *Buffer) CompareRange(start, end int, other *Buffer, otherStart int) (int, error) {
	const op = "buffer.CompareRange"
	src, o, err := b.ranges(op, start, end, other, otherStart)
	if err != nil {
		return 0, err
	}
	size := b.typ.Size()
	if info := b.typ.Info(); info.Components == 1 && info.Class == ClassInteger {
		return ops[b.typ].differ(src, o), nil
	}
	diff := 0
	for i := 0; i < len(src); i += size {
		if !bytes.Equal(src[i:i+size], o[i:i+size]) {
			diff++
		}
	}
	return diff, nil
}

func (b *Buffer) ranges(op string, start, end int, other *Buffer, otherStart int) ([]byte, []byte, error) {
	if err := b.check(op); err != nil {
		return nil, nil, err
	}
	if err := other.check(op); err != nil {
		return nil, nil, err
	}
	if b.typ != other.typ {
		return nil, nil, errs.New(errs.KindConversion, op, "element types differ: %s and %s", b.typ, other.typ)
	}
	n := end - start + 1
	if start < 0 || n < 0 || end >= b.n {
		return nil, nil, errs.New(errs.KindRange, op, "range [%d,%d] out of [0,%d)", start, end, b.n)
	}
	if otherStart < 0 || otherStart+n > other.n {
		return nil, nil, errs.New(errs.KindRange, op, "%d elements at %d exceed length %d", n, otherStart, other.n)
	}
	size := b.typ.Size()
	return b.data[start*size : (start+n)*size], other.data[otherStart*size : (otherStart+n)*size], nil
}

// Equal reports whether a and b hold the same type and bit pattern.
func Equal(a, b *Buffer) bool {
	if a.check("buffer.Equal") != nil || b.check("buffer.Equal") != nil {
		return false
	}
	return a.typ == b.typ && a.n == b.n && bytes.Equal(a.data, b.data)
}

// SwapBytes reverses the byte order of every component in place.
func (b *Buffer) SwapBytes() error {
	if err := b.writable("buffer.SwapBytes"); err != nil {
		return err
	}
	dtype.SwapBytes(b.data, ops[b.typ.Info().Component].size)
	return nil
}
