package volume

import (
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/layout"
	"github.com/robert-malhotra/go-volume/props"
)

// Splice cuts c along dim into chunks that keep the sizes of the axes below
// dim and have size 1 from dim upwards. The pieces share storage with c and
// list properties with one item per piece are distributed over them.
func (c *Chunk) Splice(dim Dim) ([]*Chunk, error) {
	const op = "volume.Chunk.Splice"
	if dim < RowDim || dim > TimeDim {
		return nil, errs.New(errs.KindRange, op, "dimension %d out of range", dim)
	}
	var g Geometry
	for d := range g {
		g[d] = 1
		if Dim(d) < dim {
			g[d] = c.geom[d]
		}
	}
	bufs, err := c.buf.Splice(g.Volume())
	if err != nil {
		return nil, err
	}
	parts := c.props.Splice(len(bufs))
	out := make([]*Chunk, len(bufs))
	for i, b := range bufs {
		out[i] = &Chunk{buf: b, geom: g, props: parts[i], required: c.required}
	}
	return out, nil
}

// AutoSplice splits a chunk that stacks several slabs along its highest
// relevant axis into one chunk per slab. Unless they already arrive as one
// item per slab, indexOrigin advances by the axis direction times the slab
// distance and acquisitionNumber by stride for every slab.
func (c *Chunk) AutoSplice(stride uint32) ([]*Chunk, error) {
	if err := c.checkValid("volume.Chunk.AutoSplice"); err != nil {
		return nil, err
	}
	return c.autoSplice(stride)
}

func (c *Chunk) autoSplice(stride uint32) ([]*Chunk, error) {
	at := Dim(c.RelevantDims() - 1)
	pieces, err := c.Splice(at)
	if err != nil {
		return nil, err
	}
	n := len(pieces)
	if n < 2 {
		return pieces, nil
	}

	shift := c.slabShift(at)
	originWasList := listOf(c.props, PropIndexOrigin, n)
	acqWasList := listOf(c.props, PropAcquisitionNumber, n)

	for i := 1; i < n; i++ {
		p := pieces[i].props
		if !originWasList {
			if v, ok := p.Get(PropIndexOrigin); ok {
				if o, ok := v.AsVec3(); ok {
					for k := range o {
						o[k] += shift[k] * float64(i)
					}
					p.Set(PropIndexOrigin, props.Vec3(o))
				}
			}
		}
		if !acqWasList && stride != 0 {
			if v, ok := p.Get(PropAcquisitionNumber); ok {
				if a, ok := v.AsInt(); ok {
					p.Set(PropAcquisitionNumber, props.Int(a+int64(stride)*int64(i)))
				}
			}
		}
	}
	return pieces, nil
}

// slabShift returns the displacement between two neighbouring slabs along
// dim. Time has no spatial offset.
func (c *Chunk) slabShift(dim Dim) [3]float64 {
	var offset [3]float64
	switch dim {
	case RowDim:
		offset = vec3(c.props, PropRowVec)
	case ColumnDim:
		offset = vec3(c.props, PropColumnVec)
	case SliceDim:
		if c.props.Has(PropSliceVec) {
			offset = vec3(c.props, PropSliceVec)
		} else {
			offset = cross(vec3(c.props, PropRowVec), vec3(c.props, PropColumnVec))
		}
	default:
		return offset
	}
	size, gap := vec3(c.props, PropVoxelSize), vec3(c.props, PropVoxelGap)
	distance := size[dim] + gap[dim]
	for k := range offset {
		offset[k] *= distance
	}
	return offset
}

// SwapAlong reverses the voxel order along dim in place.
func (c *Chunk) SwapAlong(dim Dim) error {
	const op = "volume.Chunk.SwapAlong"
	if c.buf.Released() {
		return errs.Coded(errs.ErrReleased, op, "chunk buffer released")
	}
	if !c.buf.Writable() {
		return errs.New(errs.KindResource, op, "chunk buffer is read-only")
	}
	if err := layout.Reverse(c.buf.Bytes(), c.geom[:], int(dim), c.Type().Size()); err != nil {
		return errs.Wrap(errs.KindRange, op, err, "swap along %s", dim)
	}
	return nil
}

func listOf(s *props.Set, path string, n int) bool {
	v, ok := s.Get(path)
	return ok && v.Len() == n
}

func vec3(s *props.Set, path string) [3]float64 {
	v, ok := s.Get(path)
	if !ok {
		return [3]float64{}
	}
	out, _ := v.AsVec3()
	return out
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
