package volume

import (
	"math"
	"slices"
	"strconv"

	"github.com/google/btree"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/props"
)

// State is the lifecycle stage of an Assembler.
type State int

const (
	StateEmpty State = iota
	StateAccumulating
	StateIndexed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateIndexed:
		return "indexed"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

const btreeDegree = 8

type member struct {
	key   key
	chunk *Chunk
}

func memberLess(a, b *member) bool { return compareKeys(a.key, b.key) < 0 }

type group struct {
	key     key
	members *btree.BTreeG[*member]
}

func groupLess(a, b *group) bool { return compareKeys(a.key, b.key) < 0 }

// Assembler sorts chunks into groups of equal primary key, orders every
// group by secondary key and, once all chunks are in, indexes them into an
// Image.
//
// An Assembler is not safe for concurrent use.
type Assembler struct {
	opts    *options
	groups  *btree.BTreeG[*group]
	shape   Geometry
	typ     buffer.ElementType
	imgKey  key
	count   int
	state   State
	image   *Image
	dropped []*Chunk
}

// NewAssembler returns an empty Assembler.
func NewAssembler(opts ...Option) *Assembler {
	return &Assembler{
		opts:   buildOptions(opts),
		groups: btree.NewG(btreeDegree, groupLess),
	}
}

// State returns the lifecycle stage.
func (a *Assembler) State() State { return a.state }

// Len returns the number of chunks held.
func (a *Assembler) Len() int { return a.count }

// Groups returns the number of primary key groups.
func (a *Assembler) Groups() int { return a.groups.Len() }

// GroupSizes returns the number of chunks in each group, in key order.
func (a *Assembler) GroupSizes() []int {
	out := make([]int, 0, a.groups.Len())
	a.groups.Ascend(func(g *group) bool {
		out = append(out, g.members.Len())
		return true
	})
	return out
}

// IsRectangular reports whether all groups hold the same number of chunks.
func (a *Assembler) IsRectangular() bool {
	sizes := a.GroupSizes()
	for _, n := range sizes {
		if n != sizes[0] {
			return false
		}
	}
	return true
}

// Chunks returns the chunks in group order, each group by secondary key.
func (a *Assembler) Chunks() []*Chunk {
	out := make([]*Chunk, 0, a.count)
	a.groups.Ascend(func(g *group) bool {
		g.members.Ascend(func(m *member) bool {
			out = append(out, m.chunk)
			return true
		})
		return true
	})
	return out
}

// Dropped returns the chunks ReIndex trimmed to make the assembly
// rectangular.
func (a *Assembler) Dropped() []*Chunk { return a.dropped }

type placement struct {
	group  *group
	member *member
}

// Insert adds c. A chunk whose secondary key holds a list is split with
// AutoSplice first and its pieces are inserted together: either all of
// them go in or, on error, none does. Insert fails for invalid chunks,
// chunks whose geometry, element type or image key differs from the first
// chunk, duplicate keys and after ReIndex. A failed Insert leaves the Assembler unchanged.
func (a *Assembler) Insert(c *Chunk) (err error) {
	const op = "volume.Assembler.Insert"
	if a.state == StateIndexed {
		return errs.Coded(errs.ErrIndexed, op, "assembler already indexed")
	}
	if missing := c.props.Missing(a.opts.requirements.Chunk); len(missing) > 0 {
		return errs.Coded(errs.ErrInsufficient, op, "chunk misses %v", missing)
	}
	// c itself is normalized only once it is accepted
	norm := c.props.Clone()
	normalize(norm)

	batch, batchProps := []*Chunk{c}, []*props.Set{norm}
	if keyOf(norm, a.opts.secondaryKeys).hasList() {
		nc := &Chunk{buf: c.buf, geom: c.geom, props: norm, required: c.required}
		pieces, serr := nc.autoSplice(a.opts.stride)
		if serr != nil {
			return serr
		}
		batch, batchProps = pieces, make([]*props.Set, len(pieces))
		for i, p := range pieces {
			batchProps[i] = p.props
		}
		defer func() {
			if err != nil {
				for _, p := range pieces {
					p.Release()
				}
			}
		}()
	}

	shape, typ, imgKey := a.shape, a.typ, a.imgKey
	if a.state == StateEmpty {
		shape, typ = batch[0].geom, batch[0].Type()
		imgKey = keyOf(batchProps[0], a.opts.imageKeys)
	}
	pending := make([]placement, 0, len(batch))
	for i, p := range batch {
		pp := batchProps[i]
		if p.geom != shape {
			return errs.Coded(errs.ErrSizeMismatch, op, "chunk %s does not match %s", p.geom, shape)
		}
		if p.Type() != typ {
			return errs.Coded(errs.ErrForeignChunk, op, "chunk of %s among %s chunks", p.Type(), typ)
		}
		if k := keyOf(pp, a.opts.imageKeys); compareKeys(k, imgKey) != 0 {
			return errs.Coded(errs.ErrForeignChunk, op, "image key %s differs from %s", k, imgKey)
		}
		pk := keyOf(pp, a.opts.primaryKeys)
		m := &member{key: keyOf(pp, a.opts.secondaryKeys), chunk: p}
		g, ok := a.groups.Get(&group{key: pk})
		if ok && g.members.Has(m) {
			return errs.Coded(errs.ErrDuplicateChunk, op, "secondary key %s already in group %s", m.key, pk)
		}
		if !ok {
			g = &group{key: pk}
		}
		for _, q := range pending {
			if compareKeys(q.group.key, pk) == 0 && compareKeys(q.member.key, m.key) == 0 {
				return errs.Coded(errs.ErrDuplicateChunk, op, "secondary key %s repeated in %s", m.key, pk)
			}
		}
		pending = append(pending, placement{group: g, member: m})
	}

	for _, p := range pending {
		g, ok := a.groups.Get(p.group)
		if !ok {
			g = p.group
			g.members = btree.NewG(btreeDegree, memberLess)
			a.groups.ReplaceOrInsert(g)
		}
		g.members.ReplaceOrInsert(p.member)
	}
	if batch[0] == c {
		normalize(c.props)
	}
	a.shape, a.typ, a.imgKey = shape, typ, imgKey
	a.count += len(pending)
	a.state = StateAccumulating
	return nil
}

// normalize fills in what the keys and the geometry depend on: voxel sizes
// that are zero or not finite become 1 and a missing slice direction is
// the cross product of the row and column directions.
func normalize(s *props.Set) {
	if v, ok := s.Get(PropVoxelSize); ok {
		if size, ok := v.AsVec3(); ok {
			changed := false
			for i, x := range size {
				if x == 0 || math.IsInf(x, 0) || math.IsNaN(x) {
					size[i] = 1
					changed = true
				}
			}
			if changed {
				s.Set(PropVoxelSize, props.Vec3(size))
			}
		}
	}
	if !s.Has(PropSliceVec) && s.Has(PropRowVec) && s.Has(PropColumnVec) {
		s.Set(PropSliceVec, props.Vec3(cross(vec3(s, PropRowVec), vec3(s, PropColumnVec))))
	}
}

// ReIndex freezes the assembly and builds its Image. Group members are
// laid out along the first axis above the chunk shape and groups along the
// next one. If the groups differ in size, strict mode fails with
// NotRectangular; otherwise every group is cut to the smallest size and
// the removed chunks are reported by Dropped. Calling ReIndex again returns
// the same Image.
func (a *Assembler) ReIndex() (*Image, error) {
	const op = "volume.Assembler.ReIndex"
	switch a.state {
	case StateEmpty:
		return nil, errs.New(errs.KindStructural, op, "no chunks to index")
	case StateIndexed:
		return a.image, nil
	}

	sizes := a.GroupSizes()
	n := sizes[0]
	if !a.IsRectangular() {
		if a.opts.strict {
			return nil, errs.Coded(errs.ErrNotRectangular, op, "group sizes %v", sizes)
		}
		n = slices.Min(sizes)
	}

	d := a.shape.RelevantDims()
	outer := d
	grid := Geometry{1, 1, 1, 1}
	if n > 1 {
		if d >= Rank {
			return nil, errs.New(errs.KindStructural, op, "no axis left above %s for %d chunks", a.shape, n)
		}
		grid[d] = n
		outer = d + 1
	}
	groups := a.groups.Len()
	if groups > 1 {
		if outer >= Rank {
			return nil, errs.New(errs.KindStructural, op, "no axis left above %s for %d groups", a.shape, groups)
		}
		grid[outer] = groups
	}

	a.trim(n)

	img := &Image{
		shape:    a.shape,
		grid:     grid,
		chunks:   make([]*Chunk, grid.Volume()),
		required: append([]string(nil), a.opts.requirements.Image...),
	}
	for i := range Rank {
		img.geom[i] = a.shape[i] * grid[i]
	}
	j := 0
	a.groups.Ascend(func(g *group) bool {
		i := 0
		g.members.Ascend(func(m *member) bool {
			var at Coord
			if n > 1 {
				at[d] = i
			}
			if groups > 1 {
				at[outer] = j
			}
			img.chunks[grid.Linear(at)] = m.chunk
			i++
			return true
		})
		j++
		return true
	})
	img.props = commonProps(img.chunks)
	if missing := img.Missing(); len(missing) > 0 {
		a.opts.logger.WithField("missing", missing).Warn("image lacks required properties")
	}

	a.image = img
	a.state = StateIndexed
	return img, nil
}

func (a *Assembler) trim(n int) {
	a.groups.Ascend(func(g *group) bool {
		var cut []*Chunk
		for g.members.Len() > n {
			m, _ := g.members.DeleteMax()
			cut = append(cut, m.chunk)
		}
		if len(cut) > 0 {
			a.count -= len(cut)
			a.dropped = append(a.dropped, cut...)
			a.opts.logger.WithFields(logrus.Fields{
				"group":  g.key.String(),
				"chunks": len(cut),
				"kept":   n,
			}).Warn("trimmed group to make the assembly rectangular")
		}
		return true
	})
}

func commonProps(chunks []*Chunk) *props.Set {
	if len(chunks) == 0 {
		return props.New()
	}
	rest := make([]*props.Set, 0, len(chunks)-1)
	for _, c := range chunks[1:] {
		rest = append(rest, c.props)
	}
	return chunks[0].props.Common(rest...)
}

// Image returns the indexed Image, or nil before ReIndex.
func (a *Assembler) Image() *Image { return a.image }

// GetChunk returns the chunk holding voxel p of the indexed Image.
func (a *Assembler) GetChunk(p Coord) (*Chunk, error) {
	if a.state != StateIndexed {
		return nil, errs.New(errs.KindStructural, "volume.Assembler.GetChunk", "assembler is %s, not indexed", a.state)
	}
	return a.image.ChunkAt(p)
}
