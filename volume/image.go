package volume

import (
	"fmt"
	"math"
	"slices"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/dtype"
	"github.com/robert-malhotra/go-volume/internal/layout"
	"github.com/robert-malhotra/go-volume/props"
)

// Image is a rectangular grid of equally shaped chunks addressed as one
// array. It is built by Assembler.ReIndex or NewImage.
type Image struct {
	geom     Geometry
	shape    Geometry // of every chunk
	grid     Geometry // chunks per axis
	chunks   []*Chunk // by grid.Linear
	props    *props.Set
	required []string
}

// NewImage wraps a single chunk as an image.
func NewImage(c *Chunk) *Image {
	return &Image{
		geom:     c.geom,
		shape:    c.geom,
		grid:     Geometry{1, 1, 1, 1},
		chunks:   []*Chunk{c},
		props:    c.props.Clone(),
		required: DefaultRequirements().Image,
	}
}

// Geometry returns the extent of the whole image.
func (img *Image) Geometry() Geometry { return img.geom }

// ChunkGeometry returns the extent of every chunk.
func (img *Image) ChunkGeometry() Geometry { return img.shape }

// Grid returns the number of chunks along each axis.
func (img *Image) Grid() Geometry { return img.grid }

// Props returns the properties shared by all chunks.
func (img *Image) Props() *props.Set { return img.props }

// Chunks returns the chunks in grid order.
func (img *Image) Chunks() []*Chunk { return slices.Clone(img.chunks) }

// Len returns the number of chunks.
func (img *Image) Len() int { return len(img.chunks) }

// Type returns the element type of the first chunk.
func (img *Image) Type() buffer.ElementType { return img.chunks[0].Type() }

// SetRequired replaces the property paths IsValid checks.
func (img *Image) SetRequired(paths ...string) { img.required = slices.Clone(paths) }

// IsValid reports whether every required property is present on the
// image or, failing that, on all of its chunks.
func (img *Image) IsValid() bool { return len(img.Missing()) == 0 }

// Missing returns the required properties neither the image nor every
// chunk has.
func (img *Image) Missing() []string {
	var out []string
	for _, p := range img.props.Missing(img.required) {
		for _, c := range img.chunks {
			if !c.props.IsSufficient([]string{p}) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (img *Image) checkValid(op string) error {
	if missing := img.Missing(); len(missing) > 0 {
		return errs.Coded(errs.ErrInsufficient, op, "image misses %v", missing)
	}
	return nil
}

// Locate returns the chunk holding voxel p and the position of p inside
// it. It fails for an image that is not valid.
func (img *Image) Locate(p Coord) (*Chunk, Coord, error) {
	if err := img.checkValid("volume.Image.Locate"); err != nil {
		return nil, Coord{}, err
	}
	if !img.geom.InRange(p) {
		return nil, Coord{}, errs.Coded(errs.ErrCoordinateOutOfRange, "volume.Image.Locate", "%s outside %s", p, img.geom)
	}
	var at, local Coord
	for d := range Rank {
		at[d], local[d] = p[d]/img.shape[d], p[d]%img.shape[d]
	}
	return img.chunks[img.grid.Linear(at)], local, nil
}

// ChunkAt returns the chunk holding voxel p.
func (img *Image) ChunkAt(p Coord) (*Chunk, error) {
	c, _, err := img.Locate(p)
	return c, err
}

// At returns voxel p.
func (img *Image) At(p Coord) (any, error) {
	c, local, err := img.Locate(p)
	if err != nil {
		return nil, err
	}
	return c.At(local)
}

// Range returns the smallest and largest component over all chunks.
func (img *Image) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range img.chunks {
		l, h, found := c.buf.Range()
		if !found {
			continue
		}
		lo, hi, ok = math.Min(lo, l), math.Max(hi, h), true
	}
	return lo, hi, ok
}

// ScalingTo returns the scaling that maps the range of the whole image into
// t, so that all chunks convert consistently.
func (img *Image) ScalingTo(t buffer.ElementType, mode buffer.Mode) (buffer.Scaling, error) {
	src := img.Type()
	if !buffer.CanConvert(src, t) {
		return buffer.Identity, errs.Coded(errs.ErrUnsupportedConversion, "volume.Image.ScalingTo", "%s to %s", src, t)
	}
	lo, hi, ok := img.Range()
	di := t.Info()
	if !ok || !di.Integer() {
		return buffer.Identity, nil
	}
	return dtype.ComputeScaling(dtype.Range{
		Min:        lo,
		Max:        hi,
		DomainMin:  di.Min,
		DomainMax:  di.Max,
		SrcInteger: src.Info().Integer(),
		DstInteger: true,
	}, mode), nil
}

// CopyTo gathers the image into one buffer of type t. Chunks of another
// type are converted with a scaling computed over the whole image unless
// opts carry an explicit one. The result comes from the allocator in opts.
// An image that is not valid is refused.
func (img *Image) CopyTo(t buffer.ElementType, mode buffer.Mode, opts ...buffer.ConvertOption) (*buffer.Buffer, error) {
	const op = "volume.Image.CopyTo"
	if err := img.checkValid(op); err != nil {
		return nil, err
	}
	s, err := img.ScalingTo(t, mode)
	if err != nil {
		return nil, err
	}
	out, err := buffer.AllocatorOf(opts...).Allocate(t, img.geom.Volume())
	if err != nil {
		return nil, err
	}
	convOpts := append([]buffer.ConvertOption{buffer.WithScaling(s)}, opts...)
	elem := t.Size()
	for i, c := range img.chunks {
		src := c.buf
		if src.Type() != t {
			if src, err = src.ConvertTo(t, convOpts...); err != nil {
				out.Release()
				return nil, err
			}
		}
		var origin Coord
		at := img.grid.CoordOf(i)
		for d := range Rank {
			origin[d] = at[d] * img.shape[d]
		}
		err := layout.CopyBox(out.Bytes(), img.geom[:], origin[:], src.Bytes(), img.shape[:], make([]int, Rank), img.shape[:], elem)
		if src != c.buf {
			src.Release()
		}
		if err != nil {
			out.Release()
			return nil, errs.Wrap(errs.KindRange, op, err, "chunk %d", i)
		}
	}
	return out, nil
}

// Identify returns a short name built from the sequence number and
// description, e.g. "S3_t1_mprage".
func (img *Image) Identify() string {
	get := func(path string) string {
		if v, ok := img.props.Get(path); ok {
			s, _ := v.AsString()
			return s
		}
		if v, ok := img.chunks[0].props.Get(path); ok {
			s, _ := v.AsString()
			return s
		}
		return ""
	}
	return "S" + get(PropSequenceNumber) + "_" + get(PropSequenceDescription)
}

// Release drops the references of all chunks.
func (img *Image) Release() error {
	var first error
	for _, c := range img.chunks {
		if err := c.Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (img *Image) String() string {
	return fmt.Sprintf("%s %s %s (%d chunks of %s)", img.geom.ShapeName(), img.Type(), img.geom, len(img.chunks), img.shape)
}
