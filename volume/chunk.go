package volume

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/layout"
	"github.com/robert-malhotra/go-volume/props"
)

// Chunk is a block of up to four dimensions together with its properties.
// The buffer holds exactly Geometry.Volume elements, rows fastest.
type Chunk struct {
	buf      *buffer.Buffer
	geom     Geometry
	props    *props.Set
	required []string
}

// NewChunk wraps buf. The chunk takes over the caller's reference on buf.
// A nil p starts with an empty property set.
func NewChunk(buf *buffer.Buffer, g Geometry, p *props.Set) (*Chunk, error) {
	const op = "volume.NewChunk"
	if buf == nil {
		return nil, errs.New(errs.KindRange, op, "nil buffer")
	}
	if !g.Valid() {
		return nil, errs.New(errs.KindRange, op, "invalid geometry %s", g)
	}
	if buf.Len() != g.Volume() {
		return nil, errs.Coded(errs.ErrSizeMismatch, op, "buffer holds %d elements, geometry %s needs %d", buf.Len(), g, g.Volume())
	}
	if p == nil {
		p = props.New()
	}
	return &Chunk{buf: buf, geom: g, props: p, required: DefaultRequirements().Chunk}, nil
}

// NewEmptyChunk allocates a zeroed chunk of type t.
func NewEmptyChunk(t buffer.ElementType, g Geometry) (*Chunk, error) {
	if !g.Valid() {
		return nil, errs.New(errs.KindRange, "volume.NewEmptyChunk", "invalid geometry %s", g)
	}
	buf, err := buffer.Allocate(t, g.Volume())
	if err != nil {
		return nil, err
	}
	return NewChunk(buf, g, nil)
}

// Buffer returns the sample buffer.
func (c *Chunk) Buffer() *buffer.Buffer { return c.buf }

// Geometry returns the extent of each axis.
func (c *Chunk) Geometry() Geometry { return c.geom }

// Props returns the property set. It is shared, not copied.
func (c *Chunk) Props() *props.Set { return c.props }

// Type returns the element type.
func (c *Chunk) Type() buffer.ElementType { return c.buf.Type() }

// RelevantDims returns the rank of the chunk, see Geometry.RelevantDims.
func (c *Chunk) RelevantDims() int { return c.geom.RelevantDims() }

// Release drops the chunk's reference on its buffer.
func (c *Chunk) Release() error { return c.buf.Release() }

// SetRequired replaces the property paths IsValid checks.
func (c *Chunk) SetRequired(paths ...string) {
	c.required = slices.Clone(paths)
}

// Required returns the property paths IsValid checks.
func (c *Chunk) Required() []string { return slices.Clone(c.required) }

// IsValid reports whether every required property holds a value.
func (c *Chunk) IsValid() bool { return c.props.IsSufficient(c.required) }

// Missing returns the required properties that are absent or empty.
func (c *Chunk) Missing() []string { return c.props.Missing(c.required) }

func (c *Chunk) checkValid(op string) error {
	if missing := c.Missing(); len(missing) > 0 {
		return errs.Coded(errs.ErrInsufficient, op, "missing %v", missing)
	}
	return nil
}

// CloneEmpty returns a zeroed chunk of the same type with geometry g and a
// copy of the properties.
func (c *Chunk) CloneEmpty(g Geometry) (*Chunk, error) {
	out, err := NewEmptyChunk(c.Type(), g)
	if err != nil {
		return nil, err
	}
	out.props = c.props.Clone()
	out.required = slices.Clone(c.required)
	return out, nil
}

// CloneToNew returns a deep copy that shares nothing with c.
func (c *Chunk) CloneToNew() (*Chunk, error) {
	buf, err := c.buf.Clone()
	if err != nil {
		return nil, err
	}
	return &Chunk{buf: buf, geom: c.geom, props: c.props.Clone(), required: slices.Clone(c.required)}, nil
}

// CopyByID returns a deep copy converted to element type t.
func (c *Chunk) CopyByID(t buffer.ElementType, opts ...buffer.ConvertOption) (*Chunk, error) {
	buf, err := c.buf.ConvertTo(t, opts...)
	if err != nil {
		return nil, err
	}
	return &Chunk{buf: buf, geom: c.geom, props: c.props.Clone(), required: slices.Clone(c.required)}, nil
}

// At returns the voxel at p.
func (c *Chunk) At(p Coord) (any, error) {
	if !c.geom.InRange(p) {
		return nil, errs.Coded(errs.ErrCoordinateOutOfRange, "volume.Chunk.At", "%s outside %s", p, c.geom)
	}
	return c.buf.At(c.geom.Linear(p))
}

// Set stores v at p.
func (c *Chunk) Set(p Coord, v any) error {
	if !c.geom.InRange(p) {
		return errs.Coded(errs.ErrCoordinateOutOfRange, "volume.Chunk.Set", "%s outside %s", p, c.geom)
	}
	return c.buf.Set(c.geom.Linear(p), v)
}

// MinMax returns the smallest and largest voxel, see buffer.Buffer.MinMax.
func (c *Chunk) MinMax() (lo, hi any, err error) {
	return c.buf.MinMax()
}

func (c *Chunk) linearRange(op string, start, end Coord) (int, int, error) {
	if !c.geom.InRange(start) || !c.geom.InRange(end) {
		return 0, 0, errs.Coded(errs.ErrCoordinateOutOfRange, op, "range %s..%s outside %s", start, end, c.geom)
	}
	return c.geom.Linear(start), c.geom.Linear(end), nil
}

// CopyRange copies the voxels from start through end inclusive, in linear
// order, into dst at dstStart.
func (c *Chunk) CopyRange(start, end Coord, dst *Chunk, dstStart Coord) error {
	const op = "volume.Chunk.CopyRange"
	from, to, err := c.linearRange(op, start, end)
	if err != nil {
		return err
	}
	if !dst.geom.InRange(dstStart) {
		return errs.Coded(errs.ErrCoordinateOutOfRange, op, "destination %s outside %s", dstStart, dst.geom)
	}
	return c.buf.CopyRange(from, to, dst.buf, dst.geom.Linear(dstStart))
}

// CompareRange counts the voxels from start through end inclusive that
// differ from other at otherStart.
func (c *Chunk) CompareRange(start, end Coord, other *Chunk, otherStart Coord) (int, error) {
	const op = "volume.Chunk.CompareRange"
	from, to, err := c.linearRange(op, start, end)
	if err != nil {
		return 0, err
	}
	if !other.geom.InRange(otherStart) {
		return 0, errs.Coded(errs.ErrCoordinateOutOfRange, op, "other %s outside %s", otherStart, other.geom)
	}
	return c.buf.CompareRange(from, to, other.buf, other.geom.Linear(otherStart))
}

// Compare counts the voxels that differ from other, which must have the
// same geometry.
func (c *Chunk) Compare(other *Chunk) (int, error) {
	if c.geom != other.geom {
		return 0, errs.Coded(errs.ErrSizeMismatch, "volume.Chunk.Compare", "%s vs %s", c.geom, other.geom)
	}
	return c.CompareRange(Coord{}, c.geom.Last(), other, Coord{})
}

// CopySlice copies the row by column plane at slice s and timestep t into
// dst at slice ds and timestep dt. Both chunks need the same plane size.
func (c *Chunk) CopySlice(s, t int, dst *Chunk, ds, dt int) error {
	if c.geom[RowDim] != dst.geom[RowDim] || c.geom[ColumnDim] != dst.geom[ColumnDim] {
		return errs.Coded(errs.ErrSizeMismatch, "volume.Chunk.CopySlice", "planes differ: %s vs %s", c.geom, dst.geom)
	}
	last := Coord{c.geom[RowDim] - 1, c.geom[ColumnDim] - 1, s, t}
	return c.CopyRange(Coord{0, 0, s, t}, last, dst, Coord{0, 0, ds, dt})
}

// CopyBlock copies the box of count voxels at start into dst at dstStart.
// Both chunks must have the same element type.
func (c *Chunk) CopyBlock(start Coord, count Geometry, dst *Chunk, dstStart Coord) error {
	const op = "volume.Chunk.CopyBlock"
	if c.Type() != dst.Type() {
		return errs.New(errs.KindConversion, op, "element types differ: %s and %s", c.Type(), dst.Type())
	}
	if c.buf.Released() || dst.buf.Released() {
		return errs.Coded(errs.ErrReleased, op, "chunk buffer released")
	}
	if !dst.buf.Writable() {
		return errs.New(errs.KindResource, op, "destination buffer is read-only")
	}
	err := layout.CopyBox(dst.buf.Bytes(), dst.geom[:], dstStart[:], c.buf.Bytes(), c.geom[:], start[:], count[:], c.Type().Size())
	if err != nil {
		return errs.Wrap(errs.KindRange, op, err, "copy %s at %s", count, start)
	}
	return nil
}

func (c *Chunk) String() string {
	return fmt.Sprintf("%s %s %s", c.geom.ShapeName(), c.Type(), c.geom)
}
