// Package raster reads and writes single slices as common raster images
// (png, jpeg, tiff, bmp and gif). Gray images become uint8 chunks, all
// others color24 chunks. Image rows run top down while the column axis of
// a chunk runs bottom up, so rows are flipped on the way in and out.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/props"
	"github.com/robert-malhotra/go-volume/volume"
)

// DialectGray converts color input to uint8 luminance.
const DialectGray = "gray"

var suffixes = []string{"png", "jpeg", "jpg", "tiff", "tif", "bmp", "gif"}

// Format is the raster descriptor.
type Format struct{}

// New returns the raster descriptor.
func New() *Format { return &Format{} }

func (*Format) Name() string { return "raster" }

func (*Format) Suffixes(format.Mode) []string { return suffixes }

func (*Format) Dialects(format.Stack) []string { return []string{DialectGray} }

func isGray(img image.Image) bool {
	switch m := img.ColorModel().(type) {
	case color.Palette:
		for _, c := range m {
			r, g, b, _ := c.RGBA()
			if r != g || g != b {
				return false
			}
		}
		return true
	default:
		return m == color.GrayModel || m == color.Gray16Model
	}
}

// Load decodes src into one chunk.
func (*Format) Load(_ context.Context, src format.Source, _ format.Stack, dialect string, p format.Progress) ([]*volume.Chunk, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	decoded, err := imaging.Decode(rc)
	if err != nil {
		return nil, err
	}
	format.OrNop(p).Progress(0, 1, src.Name)

	flipped := imaging.FlipV(decoded)
	b := flipped.Bounds()
	g, err := volume.NewGeometry(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	var buf *buffer.Buffer
	if isGray(decoded) || dialect == DialectGray {
		gray := effect.Grayscale(flipped)
		data := make([]uint8, g.Volume())
		for i := range data {
			data[i] = gray.Pix[i*4]
		}
		buf = buffer.FromSlice(data)
	} else {
		data := make([]buffer.RGB24, g.Volume())
		for i := range data {
			px := flipped.Pix[i*4 : i*4+3]
			data[i] = buffer.RGB24{R: px[0], G: px[1], B: px[2]}
		}
		buf = buffer.FromSlice(data)
	}

	name := strings.TrimSuffix(filepath.Base(src.Name), filepath.Ext(src.Name))
	ps := props.New().
		MustSet(volume.PropIndexOrigin, props.Vec3([3]float64{0, 0, 0})).
		MustSet(volume.PropAcquisitionNumber, props.Int(0)).
		MustSet(volume.PropVoxelSize, props.Vec3([3]float64{1, 1, 1})).
		MustSet(volume.PropRowVec, props.Vec3([3]float64{1, 0, 0})).
		MustSet(volume.PropColumnVec, props.Vec3([3]float64{0, 1, 0})).
		MustSet(volume.PropSequenceNumber, props.Int(0)).
		MustSet(volume.PropSequenceDescription, props.String(name))
	c, err := volume.NewChunk(buf, g, ps)
	if err != nil {
		return nil, err
	}
	return []*volume.Chunk{c}, nil
}

// Write stores a single two dimensional image at dst. Types other than
// uint8 and color24 are scaled to uint8.
func (*Format) Write(_ context.Context, images []*volume.Image, dst string, _ string, p format.Progress) error {
	if len(images) != 1 {
		return fmt.Errorf("raster files hold one image, got %d", len(images))
	}
	img := images[0]
	g := img.Geometry()
	if g[volume.SliceDim] != 1 || g[volume.TimeDim] != 1 {
		return fmt.Errorf("raster files hold a single slice, image is %s", g)
	}
	f, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return err
	}
	format.OrNop(p).Progress(0, 1, dst)

	out, err := toImage(img)
	if err != nil {
		return err
	}
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, out, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func toImage(img *volume.Image) (image.Image, error) {
	g := img.Geometry()
	width, height := g[volume.RowDim], g[volume.ColumnDim]
	rect := image.Rect(0, 0, width, height)

	t := img.Type()
	if t == buffer.Color24 {
		buf, err := img.CopyTo(t, buffer.NoScale)
		if err != nil {
			return nil, err
		}
		defer buf.Release()
		data := buffer.MustView[buffer.RGB24](buf)
		out := image.NewNRGBA(rect)
		for y := range height {
			row := data[(height-1-y)*width:]
			for x := range width {
				c := row[x]
				out.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
			}
		}
		return out, nil
	}

	mode := buffer.AutoScale
	if t == buffer.Uint8 {
		mode = buffer.NoScale
	}
	buf, err := img.CopyTo(buffer.Uint8, mode)
	if err != nil {
		return nil, err
	}
	defer buf.Release()
	data := buffer.MustView[uint8](buf)
	out := image.NewGray(rect)
	for y := range height {
		copy(out.Pix[y*out.Stride:y*out.Stride+width], data[(height-1-y)*width:])
	}
	return out, nil
}
