package volume

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/internal/layout"
)

// Dim names one of the four axes.
type Dim int

const (
	RowDim Dim = iota
	ColumnDim
	SliceDim
	TimeDim
)

// Rank is the number of axes of every chunk and image.
const Rank = 4

var dimNames = [Rank]string{"row", "column", "slice", "time"}

func (d Dim) String() string {
	if d < RowDim || d > TimeDim {
		return "Dim(" + strconv.Itoa(int(d)) + ")"
	}
	return dimNames[d]
}

// Coord is a position as (row, column, slice, timestep).
type Coord [Rank]int

// Geometry holds the extent of each axis. Rows vary fastest, so the voxel at
// (r, c, s, t) has linear index r + c*R + s*R*C + t*R*C*S.
type Geometry [Rank]int

// NewGeometry builds a Geometry from up to four sizes. Missing trailing
// sizes are 1.
func NewGeometry(sizes ...int) (Geometry, error) {
	g := Geometry{1, 1, 1, 1}
	if len(sizes) > Rank {
		return g, errs.New(errs.KindRange, "volume.NewGeometry", "%d sizes given, at most %d allowed", len(sizes), Rank)
	}
	for i, s := range sizes {
		if s < 1 {
			return g, errs.New(errs.KindRange, "volume.NewGeometry", "%s size %d must be at least 1", Dim(i), s)
		}
		g[i] = s
	}
	return g, nil
}

// MustGeometry is NewGeometry for sizes known to be valid.
func MustGeometry(sizes ...int) Geometry {
	g, err := NewGeometry(sizes...)
	if err != nil {
		panic(err)
	}
	return g
}

// Valid reports whether every size is at least 1.
func (g Geometry) Valid() bool {
	for _, s := range g {
		if s < 1 {
			return false
		}
	}
	return true
}

// Volume returns the number of voxels.
func (g Geometry) Volume() int {
	return layout.Volume(g[:])
}

// Linear returns the linear index of c.
func (g Geometry) Linear(c Coord) int {
	return layout.Linear(g[:], c[:])
}

// CoordOf is the inverse of Linear.
func (g Geometry) CoordOf(i int) Coord {
	var c Coord
	copy(c[:], layout.Coords(g[:], i))
	return c
}

// InRange reports whether c lies inside g.
func (g Geometry) InRange(c Coord) bool {
	for d := range g {
		if c[d] < 0 || c[d] >= g[d] {
			return false
		}
	}
	return true
}

// RelevantDims returns the number of axes up to and including the last one
// with more than one voxel. It is at least 1.
func (g Geometry) RelevantDims() int {
	for d := Rank - 1; d > 0; d-- {
		if g[d] > 1 {
			return d + 1
		}
	}
	return 1
}

// Last returns the coordinate of the last voxel.
func (g Geometry) Last() Coord {
	return Coord{g[0] - 1, g[1] - 1, g[2] - 1, g[3] - 1}
}

// ShapeName describes g by its rank: "slice", "volume", "volset" or "chunk".
func (g Geometry) ShapeName() string {
	switch g.RelevantDims() {
	case 2:
		return "slice"
	case 3:
		return "volume"
	case 4:
		return "volset"
	}
	return "chunk"
}

func (g Geometry) String() string {
	parts := make([]string, Rank)
	for d, s := range g {
		parts[d] = strconv.Itoa(s)
	}
	return strings.Join(parts, "x")
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", c[0], c[1], c[2], c[3])
}
