package volume

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/props"
)

func sliceProps(acq, seq int64) *props.Set {
	return props.New().
		MustSet(PropIndexOrigin, props.Vec3([3]float64{0, 0, 0})).
		MustSet(PropAcquisitionNumber, props.Int(acq)).
		MustSet(PropVoxelSize, props.Vec3([3]float64{1, 1, 1})).
		MustSet(PropRowVec, props.Vec3([3]float64{1, 0, 0})).
		MustSet(PropColumnVec, props.Vec3([3]float64{0, 1, 0})).
		MustSet(PropSequenceNumber, props.Int(seq))
}

// newChunk returns a float32 chunk whose voxel i holds tag+i.
func newChunk(t *testing.T, g Geometry, tag float32, p *props.Set) *Chunk {
	t.Helper()
	data := make([]float32, g.Volume())
	for i := range data {
		data[i] = tag + float32(i)
	}
	c, err := NewChunk(buffer.FromSlice(data), g, p)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	return c
}

func tagOf(t *testing.T, c *Chunk) float32 {
	t.Helper()
	v, err := c.At(Coord{})
	if err != nil {
		t.Fatalf("At failed: %v", err)
	}
	return v.(float32)
}

func TestGeometry(t *testing.T) {
	g, err := NewGeometry(4, 3)
	if err != nil {
		t.Fatalf("NewGeometry failed: %v", err)
	}
	if g != (Geometry{4, 3, 1, 1}) || g.String() != "4x3x1x1" {
		t.Errorf("unexpected geometry %s", g)
	}
	if g.RelevantDims() != 2 || g.Volume() != 12 {
		t.Errorf("expected 2 relevant dims and 12 voxels, got %d and %d", g.RelevantDims(), g.Volume())
	}
	if MustGeometry(1, 1, 1, 1).RelevantDims() != 1 {
		t.Errorf("a single voxel has one relevant dim")
	}
	if MustGeometry(2, 1, 1, 3).RelevantDims() != 4 {
		t.Errorf("expected the time axis to count")
	}
	for i := range g.Volume() {
		if got := g.Linear(g.CoordOf(i)); got != i {
			t.Errorf("Linear(CoordOf(%d)) = %d", i, got)
		}
	}
	if g.Linear(Coord{1, 2, 0, 0}) != 9 {
		t.Errorf("rows must vary fastest")
	}
	if _, err := NewGeometry(4, 0); !errors.Is(err, errs.ErrRange) {
		t.Errorf("expected range error for zero size, got %v", err)
	}
	if _, err := NewGeometry(1, 2, 3, 4, 5); err == nil {
		t.Errorf("expected error for five sizes")
	}
}

func TestNewChunkSizeMismatch(t *testing.T) {
	_, err := NewChunk(buffer.FromSlice(make([]uint8, 10)), MustGeometry(4, 4), nil)
	if !errors.Is(err, errs.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	if !errors.Is(err, errs.ErrRange) {
		t.Errorf("size mismatch must be a range error")
	}
}

func TestChunkValidity(t *testing.T) {
	c := newChunk(t, MustGeometry(2, 2), 0, props.New())
	if c.IsValid() {
		t.Fatalf("chunk without properties must be invalid")
	}
	if got := c.Missing(); len(got) != len(DefaultRequirements().Chunk) {
		t.Errorf("expected all requirements missing, got %v", got)
	}
	if _, err := c.AutoSplice(0); !errors.Is(err, errs.ErrValidity) {
		t.Errorf("expected validity error, got %v", err)
	}
	c.SetRequired("echoTime")
	c.Props().MustSet("echoTime", props.Float(4.6))
	if !c.IsValid() {
		t.Errorf("expected chunk valid under custom requirements")
	}
}

func TestScenarioA(t *testing.T) {
	a := NewAssembler()
	byAcq := map[int64]*Chunk{}
	for _, acq := range []int64{2, 0, 1} {
		c := newChunk(t, MustGeometry(10, 10), float32(acq*1000), sliceProps(acq, 1))
		byAcq[acq] = c
		if err := a.Insert(c); err != nil {
			t.Fatalf("Insert(%d) failed: %v", acq, err)
		}
	}
	if !a.IsRectangular() {
		t.Fatalf("a single group is rectangular")
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	if img.Geometry() != (Geometry{10, 10, 3, 1}) {
		t.Errorf("unexpected image geometry %s", img.Geometry())
	}
	for acq := range int64(3) {
		c, err := a.GetChunk(Coord{0, 0, int(acq), 0})
		if err != nil {
			t.Fatalf("GetChunk failed: %v", err)
		}
		if c != byAcq[acq] {
			t.Errorf("position %d holds %s, want acquisition %d", acq, c.Props().String(), acq)
		}
	}
	if a.State() != StateIndexed {
		t.Errorf("expected indexed state, got %s", a.State())
	}
}

func TestScenarioC(t *testing.T) {
	orig := newChunk(t, MustGeometry(4, 4, 4, 1), 0, sliceProps(0, 1))
	pieces, err := orig.Splice(SliceDim)
	if err != nil {
		t.Fatalf("Splice failed: %v", err)
	}
	if len(pieces) != 4 {
		t.Fatalf("expected 4 pieces, got %d", len(pieces))
	}
	var joined []byte
	for _, p := range pieces {
		if p.Geometry() != (Geometry{4, 4, 1, 1}) {
			t.Errorf("unexpected piece geometry %s", p.Geometry())
		}
		joined = append(joined, p.Buffer().Bytes()...)
	}
	if !bytes.Equal(joined, orig.Buffer().Bytes()) {
		t.Errorf("recombined pieces differ from the original")
	}

	if err := pieces[1].Set(Coord{}, float32(-1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := orig.At(Coord{0, 0, 1, 0}); v.(float32) != -1 {
		t.Errorf("pieces must share storage with the parent, got %v", v)
	}
}

func TestSpliceAlongRows(t *testing.T) {
	orig := newChunk(t, MustGeometry(3, 2), 0, nil)
	pieces, err := orig.Splice(RowDim)
	if err != nil {
		t.Fatalf("Splice failed: %v", err)
	}
	if len(pieces) != 6 {
		t.Fatalf("expected one piece per voxel, got %d", len(pieces))
	}
	for i, p := range pieces {
		if got := tagOf(t, p); got != float32(i) {
			t.Errorf("piece %d holds %v", i, got)
		}
	}
}

func TestScenarioD(t *testing.T) {
	build := func(opts ...Option) *Assembler {
		a := NewAssembler(opts...)
		for seq, n := range []int{3, 3, 2, 3} {
			for acq := range n {
				c := newChunk(t, MustGeometry(4, 4), float32(seq*10+acq), sliceProps(int64(acq), int64(seq)))
				if err := a.Insert(c); err != nil {
					t.Fatalf("Insert failed: %v", err)
				}
			}
		}
		return a
	}

	a := build(WithStrict(true))
	if a.IsRectangular() {
		t.Fatalf("groups of sizes %v must not be rectangular", a.GroupSizes())
	}
	if _, err := a.ReIndex(); !errors.Is(err, errs.ErrNotRectangular) {
		t.Fatalf("expected NotRectangular, got %v", err)
	}
	if a.State() != StateAccumulating || a.Len() != 11 {
		t.Errorf("failed ReIndex must leave the assembler as it was, state %s, %d chunks", a.State(), a.Len())
	}

	logger, hook := test.NewNullLogger()
	a = build(WithLogger(logger))
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("best effort ReIndex failed: %v", err)
	}
	if img.Geometry() != (Geometry{4, 4, 2, 4}) {
		t.Errorf("unexpected geometry %s", img.Geometry())
	}
	if len(a.Dropped()) != 3 || a.Len() != 8 {
		t.Errorf("expected 3 dropped and 8 kept, got %d and %d", len(a.Dropped()), a.Len())
	}
	if len(hook.Entries) != 3 || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("expected one warning per trimmed group, got %d", len(hook.Entries))
	}
	c, _ := img.ChunkAt(Coord{0, 0, 1, 3})
	if got := tagOf(t, c); got != 31 {
		t.Errorf("expected chunk 31 at (0,0,1,3), got %v", got)
	}
}

func TestPermutationAssembly(t *testing.T) {
	const members, groups = 4, 3
	var grid [members][groups]*Chunk
	var all []*Chunk
	for i := range members {
		for j := range groups {
			c := newChunk(t, MustGeometry(3, 2), float32(100*j+i), sliceProps(int64(i), int64(j)))
			grid[i][j] = c
			all = append(all, c)
		}
	}

	for seed := range uint64(6) {
		r := rand.New(rand.NewPCG(seed, 42))
		a := NewAssembler(WithStrict(true))
		for _, k := range r.Perm(len(all)) {
			if err := a.Insert(all[k]); err != nil {
				t.Fatalf("seed %d: Insert failed: %v", seed, err)
			}
		}
		if !a.IsRectangular() {
			t.Fatalf("seed %d: expected rectangular assembly, sizes %v", seed, a.GroupSizes())
		}
		img, err := a.ReIndex()
		if err != nil {
			t.Fatalf("seed %d: ReIndex failed: %v", seed, err)
		}
		if img.Geometry() != (Geometry{3, 2, members, groups}) {
			t.Fatalf("seed %d: unexpected geometry %s", seed, img.Geometry())
		}
		for i := range members {
			for j := range groups {
				for _, p := range []Coord{{0, 0, i, j}, {2, 1, i, j}} {
					c, err := a.GetChunk(p)
					if err != nil {
						t.Fatalf("seed %d: GetChunk(%s) failed: %v", seed, p, err)
					}
					if c != grid[i][j] {
						t.Errorf("seed %d: %s holds chunk %v, want %v", seed, p, tagOf(t, c), 100*j+i)
					}
				}
			}
		}
	}
}

func TestDuplicateRejected(t *testing.T) {
	a := NewAssembler()
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, sliceProps(5, 1))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 1, sliceProps(6, 1))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	before := a.GroupSizes()

	err := a.Insert(newChunk(t, MustGeometry(2, 2), 2, sliceProps(5, 1)))
	if !errors.Is(err, errs.ErrDuplicateChunk) {
		t.Fatalf("expected DuplicateChunk, got %v", err)
	}
	if a.Len() != 2 || !slices.Equal(a.GroupSizes(), before) {
		t.Errorf("duplicate changed the assembler: %d chunks, sizes %v", a.Len(), a.GroupSizes())
	}

	// both slabs of this chunk carry the same acquisition number
	p := sliceProps(0, 2)
	p.MustSet(PropAcquisitionNumber, props.Int(9, 9))
	err = a.Insert(newChunk(t, MustGeometry(2, 2, 2), 0, p))
	if !errors.Is(err, errs.ErrDuplicateChunk) {
		t.Fatalf("expected DuplicateChunk inside a batch, got %v", err)
	}
	if a.Len() != 2 || a.Groups() != 1 {
		t.Errorf("failed batch must not insert anything: %d chunks in %d groups", a.Len(), a.Groups())
	}
}

func TestInsertRejects(t *testing.T) {
	a := NewAssembler()
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, props.New())); !errors.Is(err, errs.ErrInsufficient) {
		t.Errorf("expected insufficient properties, got %v", err)
	}
	if a.State() != StateEmpty {
		t.Errorf("rejected chunk changed the state to %s", a.State())
	}
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, sliceProps(0, 1))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := a.Insert(newChunk(t, MustGeometry(3, 2), 0, sliceProps(1, 1))); !errors.Is(err, errs.ErrSizeMismatch) {
		t.Errorf("expected size mismatch, got %v", err)
	}
	if _, err := a.GetChunk(Coord{}); !errors.Is(err, errs.ErrStructural) {
		t.Errorf("GetChunk before ReIndex must fail, got %v", err)
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	again, err := a.ReIndex()
	if err != nil || again != img {
		t.Errorf("second ReIndex must return the same image")
	}
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, sliceProps(1, 1))); !errors.Is(err, errs.ErrIndexed) {
		t.Errorf("expected insert after index to fail, got %v", err)
	}
	if _, err := a.GetChunk(Coord{2, 0, 0, 0}); !errors.Is(err, errs.ErrCoordinateOutOfRange) {
		t.Errorf("expected CoordinateOutOfRange, got %v", err)
	}
	if _, err := NewAssembler().ReIndex(); !errors.Is(err, errs.ErrStructural) {
		t.Errorf("empty assembler must not index, got %v", err)
	}
}

func TestForeignChunks(t *testing.T) {
	a := NewAssembler(WithImageKeys(PropSequenceNumber))
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, sliceProps(0, 1))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	other, err := NewChunk(buffer.FromSlice(make([]uint8, 4)), MustGeometry(2, 2), sliceProps(1, 1))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Insert(other); !errors.Is(err, errs.ErrForeignChunk) {
		t.Errorf("expected foreign chunk for another element type, got %v", err)
	}
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, sliceProps(1, 2))); !errors.Is(err, errs.ErrForeignChunk) {
		t.Errorf("expected foreign chunk for another sequence, got %v", err)
	}
	if a.Len() != 1 {
		t.Errorf("refused chunks must not be kept, have %d", a.Len())
	}

	chunks := []*Chunk{
		newChunk(t, MustGeometry(2, 2), 0, sliceProps(0, 1)),
		newChunk(t, MustGeometry(2, 2), 0, sliceProps(0, 2)),
		newChunk(t, MustGeometry(2, 2), 0, sliceProps(1, 1)),
		newChunk(t, MustGeometry(2, 2), 0, sliceProps(1, 2)),
	}
	images, rejected, err := BuildImages(chunks, WithImageKeys(PropSequenceNumber), WithStrict(true))
	if err != nil {
		t.Fatalf("BuildImages failed: %v", err)
	}
	if len(images) != 2 || len(rejected) != 0 {
		t.Fatalf("expected 2 images and no rejects, got %d and %d", len(images), len(rejected))
	}
	for _, img := range images {
		if img.Geometry() != (Geometry{2, 2, 2, 1}) {
			t.Errorf("expected 2x2x2x1, got %s", img.Geometry())
		}
	}
}

func TestAutoSpliceProgression(t *testing.T) {
	p := props.New().
		MustSet(PropIndexOrigin, props.Vec3([3]float64{10, 20, 30})).
		MustSet(PropAcquisitionNumber, props.Int(7)).
		MustSet(PropVoxelSize, props.Vec3([3]float64{1, 1, 2})).
		MustSet(PropVoxelGap, props.Vec3([3]float64{0, 0, 0.5})).
		MustSet(PropRowVec, props.Vec3([3]float64{1, 0, 0})).
		MustSet(PropColumnVec, props.Vec3([3]float64{0, 1, 0}))
	c := newChunk(t, MustGeometry(4, 4, 5), 0, p)

	pieces, err := c.AutoSplice(1)
	if err != nil {
		t.Fatalf("AutoSplice failed: %v", err)
	}
	if len(pieces) != 5 {
		t.Fatalf("expected 5 slabs, got %d", len(pieces))
	}
	for i, s := range pieces {
		o, _ := s.Props().Get(PropIndexOrigin)
		got, _ := o.AsVec3()
		want := [3]float64{10, 20, 30 + 2.5*float64(i)}
		if got != want {
			t.Errorf("slab %d: origin %v, want %v", i, got, want)
		}
		a, _ := s.Props().Get(PropAcquisitionNumber)
		if n, _ := a.AsInt(); n != int64(7+i) {
			t.Errorf("slab %d: acquisition %d, want %d", i, n, 7+i)
		}
		if got := tagOf(t, s); got != float32(16*i) {
			t.Errorf("slab %d starts with %v", i, got)
		}
	}
}

func TestAutoSpliceKeepsLists(t *testing.T) {
	origins := [][3]float64{{0, 0, 5}, {0, 0, 1}, {0, 0, 3}}
	p := sliceProps(0, 1)
	p.MustSet(PropIndexOrigin, props.Vec3(origins...))
	p.MustSet(PropAcquisitionNumber, props.Int(4, 2, 8))
	c := newChunk(t, MustGeometry(2, 2, 3), 0, p)

	pieces, err := c.AutoSplice(10)
	if err != nil {
		t.Fatalf("AutoSplice failed: %v", err)
	}
	for i, s := range pieces {
		o, _ := s.Props().Get(PropIndexOrigin)
		if got, _ := o.AsVec3(); got != origins[i] {
			t.Errorf("slab %d: origin %v, want %v", i, got, origins[i])
		}
		a, _ := s.Props().Get(PropAcquisitionNumber)
		if n, _ := a.AsInt(); n != []int64{4, 2, 8}[i] {
			t.Errorf("slab %d: acquisition %d must come from the list", i, n)
		}
	}
}

func TestInsertSplitsListKeys(t *testing.T) {
	p := sliceProps(0, 1)
	p.MustSet(PropAcquisitionNumber, props.Int(2, 0, 1))
	a := NewAssembler()
	if err := a.Insert(newChunk(t, MustGeometry(4, 4, 3), 0, p)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if a.Len() != 3 {
		t.Fatalf("expected 3 slabs, got %d", a.Len())
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	if img.Geometry() != (Geometry{4, 4, 3, 1}) {
		t.Errorf("unexpected geometry %s", img.Geometry())
	}
	// acquisition 0 was the second slab of the input
	c, _ := img.ChunkAt(Coord{0, 0, 0, 0})
	if got := tagOf(t, c); got != 16 {
		t.Errorf("expected the second slab first, got tag %v", got)
	}
}

func TestNormalize(t *testing.T) {
	p := sliceProps(0, 1)
	p.MustSet(PropVoxelSize, props.Vec3([3]float64{0.5, 0, 0}))
	a := NewAssembler()
	if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, p)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v, _ := p.Get(PropVoxelSize)
	if got, _ := v.AsVec3(); got != [3]float64{0.5, 1, 1} {
		t.Errorf("unexpected voxel size %v", got)
	}
	s, ok := p.Get(PropSliceVec)
	if !ok {
		t.Fatalf("slice direction not synthesised")
	}
	if got, _ := s.AsVec3(); got != [3]float64{0, 0, 1} {
		t.Errorf("unexpected slice direction %v", got)
	}

	rejected := sliceProps(1, 1)
	rejected.MustSet(PropVoxelSize, props.Vec3([3]float64{0, 0, 0}))
	if err := a.Insert(newChunk(t, MustGeometry(3, 2), 0, rejected)); !errors.Is(err, errs.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch, got %v", err)
	}
	v, _ = rejected.Get(PropVoxelSize)
	if got, _ := v.AsVec3(); got != [3]float64{} {
		t.Errorf("rejected chunk was normalized to voxel size %v", got)
	}
	if rejected.Has(PropSliceVec) {
		t.Errorf("rejected chunk gained a slice direction")
	}
}

func TestInvalidImage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	a := NewAssembler(WithLogger(logger))
	for acq := range 2 {
		p := sliceProps(int64(acq), 1)
		p.Remove(PropSequenceNumber)
		if err := a.Insert(newChunk(t, MustGeometry(2, 2), float32(acq), p)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	if img.IsValid() {
		t.Fatalf("image without %s must not be valid", PropSequenceNumber)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Errorf("expected a warning about the missing properties")
	}

	if _, _, err := img.Locate(Coord{}); !errors.Is(err, errs.ErrValidity) {
		t.Errorf("Locate: expected validity error, got %v", err)
	}
	if _, err := img.At(Coord{}); !errors.Is(err, errs.ErrInsufficient) {
		t.Errorf("At: expected insufficient properties, got %v", err)
	}
	if _, err := img.ChunkAt(Coord{}); !errors.Is(err, errs.ErrValidity) {
		t.Errorf("ChunkAt: expected validity error, got %v", err)
	}
	if _, err := img.CopyTo(buffer.Float32, buffer.NoScale); !errors.Is(err, errs.ErrValidity) {
		t.Errorf("CopyTo: expected validity error, got %v", err)
	}

	img.SetRequired(DefaultRequirements().Chunk...)
	if _, err := img.At(Coord{}); err != nil {
		t.Errorf("At after relaxing the requirements: %v", err)
	}
}

func TestSwapAlong(t *testing.T) {
	tests := []struct {
		dim  Dim
		want []float32
	}{
		{RowDim, []float32{2, 1, 0, 5, 4, 3}},
		{ColumnDim, []float32{3, 4, 5, 0, 1, 2}},
		{SliceDim, []float32{0, 1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.dim.String(), func(t *testing.T) {
			c := newChunk(t, MustGeometry(3, 2), 0, nil)
			if err := c.SwapAlong(tt.dim); err != nil {
				t.Fatalf("SwapAlong failed: %v", err)
			}
			if got := buffer.MustView[float32](c.Buffer()); !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCopyRangeAndBlock(t *testing.T) {
	src := newChunk(t, MustGeometry(3, 3), 0, nil)
	dst, err := src.CloneEmpty(MustGeometry(3, 3, 2))
	if err != nil {
		t.Fatalf("CloneEmpty failed: %v", err)
	}
	if err := src.CopySlice(0, 0, dst, 1, 0); err != nil {
		t.Fatalf("CopySlice failed: %v", err)
	}
	if v, _ := dst.At(Coord{2, 2, 1, 0}); v.(float32) != 8 {
		t.Errorf("expected 8 at the end of slice 1, got %v", v)
	}
	if n, err := src.CompareRange(Coord{}, Coord{2, 2, 0, 0}, dst, Coord{0, 0, 1, 0}); err != nil || n != 0 {
		t.Errorf("expected identical ranges, got %d differences (%v)", n, err)
	}

	block, _ := NewEmptyChunk(buffer.Float32, MustGeometry(2, 2))
	if err := src.CopyBlock(Coord{1, 1, 0, 0}, MustGeometry(2, 2), block, Coord{}); err != nil {
		t.Fatalf("CopyBlock failed: %v", err)
	}
	if got := buffer.MustView[float32](block.Buffer()); !slices.Equal(got, []float32{4, 5, 7, 8}) {
		t.Errorf("unexpected block %v", got)
	}
	if err := src.CopyRange(Coord{}, Coord{0, 0, 0, 1}, dst, Coord{}); !errors.Is(err, errs.ErrCoordinateOutOfRange) {
		t.Errorf("expected out of range, got %v", err)
	}

	clone, err := src.CloneToNew()
	if err != nil {
		t.Fatalf("CloneToNew failed: %v", err)
	}
	clone.Set(Coord{}, float32(99))
	if n, _ := src.Compare(clone); n != 1 {
		t.Errorf("clone must not share storage, %d differences", n)
	}
}

func TestImageCopyTo(t *testing.T) {
	a := NewAssembler()
	for i := range 2 {
		for j := range 2 {
			if err := a.Insert(newChunk(t, MustGeometry(2, 2), float32(100*j+10*i), sliceProps(int64(i), int64(j)))); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	out, err := img.CopyTo(buffer.Float32, buffer.NoScale)
	if err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}
	g := img.Geometry()
	if v, _ := out.At(g.Linear(Coord{1, 1, 1, 1})); v.(float32) != 113 {
		t.Errorf("expected 113, got %v", v)
	}
	if v, _ := img.At(Coord{1, 0, 0, 1}); v.(float32) != 101 {
		t.Errorf("expected 101, got %v", v)
	}

	u8, err := img.CopyTo(buffer.Uint8, buffer.AutoScale)
	if err != nil {
		t.Fatalf("CopyTo uint8 failed: %v", err)
	}
	lo, hi, err := u8.MinMax()
	if err != nil || lo.(uint8) != 0 || hi.(uint8) != 255 {
		t.Errorf("expected the whole image scaled to 0..255, got %v..%v (%v)", lo, hi, err)
	}
}

func TestImagePropsAndIdentify(t *testing.T) {
	a := NewAssembler()
	for acq := range int64(2) {
		p := sliceProps(acq, 3)
		p.MustSet(PropSequenceDescription, props.String("t1_mprage"))
		if err := a.Insert(newChunk(t, MustGeometry(2, 2), 0, p)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	img, err := a.ReIndex()
	if err != nil {
		t.Fatalf("ReIndex failed: %v", err)
	}
	if img.Props().Has(PropAcquisitionNumber) {
		t.Errorf("differing properties must not be common")
	}
	if !img.Props().Has(PropSequenceDescription) {
		t.Errorf("shared properties must be common")
	}
	if !img.IsValid() {
		t.Errorf("image must be valid, missing %v", img.Missing())
	}
	if got := img.Identify(); got != "S3_t1_mprage" {
		t.Errorf("unexpected identity %q", got)
	}
}

func TestBuildImages(t *testing.T) {
	var chunks []*Chunk
	for acq := range int64(3) {
		chunks = append(chunks, newChunk(t, MustGeometry(4, 4), 0, sliceProps(acq, 1)))
	}
	for acq := range int64(2) {
		chunks = append(chunks, newChunk(t, MustGeometry(8, 8), 0, sliceProps(acq, 2)))
	}
	chunks = append(chunks, newChunk(t, MustGeometry(4, 4), 0, props.New()))

	images, rejected, err := BuildImages(chunks)
	if err != nil {
		t.Fatalf("BuildImages failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if images[0].Geometry() != (Geometry{4, 4, 3, 1}) || images[1].Geometry() != (Geometry{8, 8, 2, 1}) {
		t.Errorf("unexpected geometries %s and %s", images[0].Geometry(), images[1].Geometry())
	}
	if len(rejected) != 1 {
		t.Errorf("expected the invalid chunk rejected, got %d", len(rejected))
	}

	if _, _, err := BuildImages(chunks, WithStrict(true)); !errors.Is(err, errs.ErrValidity) {
		t.Errorf("strict build must fail on the invalid chunk, got %v", err)
	}
}
