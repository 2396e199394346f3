// Package null generates synthetic images instead of reading files. Its
// writer does not write anything: it regenerates the image it is given
// and fails if the two differ, which makes it a round trip check for the
// assembler and for proxies.
package null

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/props"
	"github.com/robert-malhotra/go-volume/volume"
)

// DialectColor adds a color image to the generated set.
const DialectColor = "color"

// Sequence numbers of the generated images.
const (
	SeqNormal = iota
	SeqInterleaved
	SeqFloat
	SeqComplex
	SeqColor
)

var descriptions = map[int]string{
	SeqNormal:      "normal sequential image",
	SeqInterleaved: "interleaved image",
	SeqFloat:       "normal sequential float image",
	SeqComplex:     "sequential complex float image",
	SeqColor:       "sequential color image",
}

const (
	defaultBudget = 10 // MiB
	defaultSteps  = 20
)

// Format is the null descriptor.
type Format struct {
	size  int
	steps int
}

// Option configures a Format.
type Option func(*Format)

// WithSize fixes the edge length of the generated volumes. By default it
// is derived from the size budget given as dialect.
func WithSize(n int) Option {
	return func(f *Format) { f.size = n }
}

// WithTimesteps sets the number of volumes of the time series images.
func WithTimesteps(n int) Option {
	return func(f *Format) { f.steps = n }
}

// New returns the null descriptor.
func New(opts ...Option) *Format {
	f := &Format{steps: defaultSteps}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (*Format) Name() string { return "null" }

func (*Format) Suffixes(format.Mode) []string { return []string{"null"} }

// Dialects are size budgets in MiB, plus DialectColor.
func (*Format) Dialects(format.Stack) []string {
	return []string{"50", "500", "1000", "2000", DialectColor}
}

func (f *Format) edge(dialect string) int {
	if f.size > 0 {
		return f.size
	}
	budget := defaultBudget
	if n, err := strconv.Atoi(dialect); err == nil && n > 0 {
		budget = n
	}
	return max(2, int(math.Cbrt(float64(budget<<20)/float64(f.steps))))
}

// Load returns the chunks of the normal, interleaved, float and complex
// images, and of the color image with DialectColor.
func (f *Format) Load(ctx context.Context, _ format.Source, _ format.Stack, dialect string, p format.Progress) ([]*volume.Chunk, error) {
	p = format.OrNop(p)
	size := f.edge(dialect)
	seqs := []int{SeqNormal, SeqInterleaved, SeqFloat, SeqComplex}
	if dialect == DialectColor {
		seqs = append(seqs, SeqColor)
	}
	var out []*volume.Chunk
	for i, seq := range seqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.Progress(i, len(seqs), descriptions[seq])
		chunks, err := f.generate(seq, size, f.steps)
		if err != nil {
			return nil, err
		}
		out = append(out, chunks...)
	}
	return out, nil
}

// Write regenerates every image and compares it with the given one:
// orientation within a tolerance, properties other than those the
// assembler or the registry add, and all voxels.
func (f *Format) Write(ctx context.Context, images []*volume.Image, _ string, _ string, p format.Progress) error {
	p = format.OrNop(p)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Progress(i, len(images), img.Identify())
		if err := f.verify(img); err != nil {
			return fmt.Errorf("image %s: %w", img.Identify(), err)
		}
	}
	return nil
}

func (f *Format) verify(img *volume.Image) error {
	v, ok := img.Props().Get(volume.PropSequenceNumber)
	if !ok {
		return errors.New("unknown image")
	}
	seq, _ := v.AsInt()
	steps := img.Len()
	if seq == SeqInterleaved {
		steps = 1
	}
	want, err := f.generate(int(seq), img.ChunkGeometry()[volume.RowDim], steps)
	if err != nil {
		return err
	}
	got := img.Chunks()
	if len(want) != len(got) {
		return fmt.Errorf("amount of chunks differs: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if err := sameChunk(got[i], want[i]); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// ignored lists the properties set outside the generator.
var ignored = []string{volume.PropSource, volume.PropVoxelGap, volume.PropSliceVec, volume.PropRowVec, volume.PropColumnVec}

func sameChunk(got, want *volume.Chunk) error {
	for _, path := range []string{volume.PropRowVec, volume.PropColumnVec} {
		a, _ := got.Props().Get(path)
		b, _ := want.Props().Get(path)
		if a == nil || b == nil || !fuzzyEqual(a.Vec3s(), b.Vec3s()) {
			return fmt.Errorf("orientation is not equal")
		}
	}
	keep := func(path string) bool {
		for _, ig := range ignored {
			if props.FoldPath(ig) == props.FoldPath(path) {
				return false
			}
		}
		return true
	}
	if d := got.Props().Filter(keep).Diff(want.Props().Filter(keep)); len(d) > 0 {
		return fmt.Errorf("differences in the properties found: %v", slices.Sorted(maps.Keys(d)))
	}
	n, err := got.Compare(want)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d voxels do not fit", n)
	}
	return nil
}

func fuzzyEqual(a, b [][3]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		for k := range a[i] {
			if math.Abs(a[i][k]-b[i][k]) > 1e-6 {
				return false
			}
		}
	}
	return true
}

// generate returns the chunks of image seq ordered by acquisition number.
func (f *Format) generate(seq, size, steps int) ([]*volume.Chunk, error) {
	var chunks []*volume.Chunk
	var err error
	switch seq {
	case SeqNormal:
		chunks, err = series(seq, size, steps, func(level uint8, _, _ int) uint8 { return level })
	case SeqInterleaved:
		chunks, err = interleaved(size)
	case SeqFloat:
		chunks, err = series(seq, size, steps, func(level uint8, _, _ int) float32 { return float32(level) })
	case SeqComplex:
		chunks, err = series(seq, size, steps, func(level uint8, _, _ int) complex64 {
			return complex(float32(level), -float32(level))
		})
	case SeqColor:
		chunks, err = series(seq, size, steps, func(level uint8, x, _ int) buffer.RGB24 {
			if level == 0 {
				return buffer.RGB24{}
			}
			r, g, b := colorful.Hsv(360*float64(x)/float64(size), 1, float64(level)/255).RGB255()
			return buffer.RGB24{R: r, G: g, B: b}
		})
	default:
		return nil, fmt.Errorf("unknown image %d", seq)
	}
	if err != nil {
		return nil, err
	}
	slices.SortFunc(chunks, func(a, b *volume.Chunk) int {
		return cmp.Compare(acquisition(a), acquisition(b))
	})
	return chunks, nil
}

func acquisition(c *volume.Chunk) int64 {
	v, _ := c.Props().Get(volume.PropAcquisitionNumber)
	n, _ := v.AsInt()
	return n
}

// level is the test pattern: a bright square whose brightness falls with
// the slice and a time marker in the first voxel of every slice.
func level(size, x, y, s, t int) uint8 {
	if x == 0 && y == 0 {
		return uint8(t * 40)
	}
	lo, hi := size/8, size/2
	if x >= lo && x < hi && y >= lo && y < hi {
		return uint8(255 - s*10)
	}
	return 0
}

func baseProps(seq, size int) *props.Set {
	e := float64(size)
	return props.New().
		MustSet(volume.PropSequenceNumber, props.Int(int64(seq))).
		MustSet("performingPhysician", props.String("Dr. Jon Doe")).
		MustSet(volume.PropRowVec, props.Vec3([3]float64{math.Cos(math.Pi / 8), -math.Sin(math.Pi / 8), 0})).
		MustSet(volume.PropColumnVec, props.Vec3([3]float64{math.Sin(math.Pi / 8), math.Cos(math.Pi / 8), 0})).
		MustSet(volume.PropVoxelSize, props.Vec3([3]float64{150 / e, 150 / e, 100 / e})).
		MustSet("repetitionTime", props.Int(1234)).
		MustSet(volume.PropSequenceDescription, props.String(descriptions[seq]))
}

// series returns one size³ volume per timestep, numbered in time order.
func series[T buffer.Element](seq, size, steps int, conv func(level uint8, x, y int) T) ([]*volume.Chunk, error) {
	g, err := volume.NewGeometry(size, size, size)
	if err != nil {
		return nil, err
	}
	out := make([]*volume.Chunk, 0, steps)
	for t := range steps {
		data := make([]T, g.Volume())
		for i := range data {
			c := g.CoordOf(i)
			data[i] = conv(level(size, c[0], c[1], c[2], t), c[0], c[1])
		}
		p := baseProps(seq, size).
			MustSet(volume.PropIndexOrigin, props.Vec3([3]float64{0, -75, -50})).
			MustSet(volume.PropVoxelGap, props.Vec3([3]float64{0, 0, 10 / float64(size)})).
			MustSet(volume.PropAcquisitionNumber, props.Int(int64(t)))
		c, err := volume.NewChunk(buffer.FromSlice(data), g, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// interleaved returns size slices acquired even slices first.
func interleaved(size int) ([]*volume.Chunk, error) {
	g, err := volume.NewGeometry(size, size)
	if err != nil {
		return nil, err
	}
	even := (size + 1) / 2
	out := make([]*volume.Chunk, 0, size)
	for s := range size {
		data := make([]uint8, g.Volume())
		for i := range data {
			c := g.CoordOf(i)
			data[i] = level(size, c[0], c[1], s, 0)
		}
		acq := 2 * s
		if s >= even {
			acq = 2*(s-even) + 1
		}
		z := float64(s)*110/float64(size) - 50
		p := baseProps(SeqInterleaved, size).
			MustSet(volume.PropIndexOrigin, props.Vec3([3]float64{0, -75, z})).
			MustSet(volume.PropAcquisitionNumber, props.Int(int64(acq)))
		c, err := volume.NewChunk(buffer.FromSlice(data), g, p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
