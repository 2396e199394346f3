// Package vol implements the native container format. A file holds a
// sequence of chunk records, each with a CBOR header, a payload that may
// be compressed and an xxhash64 checksum.
//
// Layout, little-endian:
//
//	magic    [8]byte  "\x89VOL\r\n\x1a\n"
//	version  uint16
//	lenSize  uint8    width of length fields
//	reserved uint8
//	count    uint32   number of records
//	records:
//	    headerLen  length
//	    header     CBOR
//	    payloadLen length
//	    payload    filtered samples
//	    checksum   uint64, xxhash64 of the four fields above
package vol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/format"
	binpkg "github.com/robert-malhotra/go-volume/internal/binary"
	"github.com/robert-malhotra/go-volume/internal/filter"
	"github.com/robert-malhotra/go-volume/props"
	"github.com/robert-malhotra/go-volume/volume"
)

const (
	version    = 1
	lengthSize = 8

	// DialectDeflate shuffles and zlib-compresses payloads on write.
	DialectDeflate = "deflate"

	maxHeader = 64 << 20
)

var magic = [8]byte{0x89, 'V', 'O', 'L', '\r', '\n', 0x1a, '\n'}

type header struct {
	Type    string        `cbor:"type"`
	Sizes   [4]int        `cbor:"sizes"`
	Order   string        `cbor:"order"`
	Raw     int           `cbor:"raw"`
	Filters []filter.Spec `cbor:"filters,omitempty"`
	Props   []byte        `cbor:"props"`
}

// Format is the vol descriptor.
type Format struct{}

// New returns the vol descriptor.
func New() *Format { return &Format{} }

func (*Format) Name() string { return "vol" }

func (*Format) Suffixes(format.Mode) []string { return []string{"vol"} }

func (*Format) Dialects(format.Stack) []string { return []string{DialectDeflate} }

func hostOrder() string {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return "little"
	}
	return "big"
}

// Load reads every record of src.
func (*Format) Load(ctx context.Context, src format.Source, _ format.Stack, _ string, p format.Progress) ([]*volume.Chunk, error) {
	p = format.OrNop(p)
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	r := binpkg.NewReader(bufio.NewReader(rc), binpkg.DefaultConfig())

	var m [8]byte
	if err := r.ReadFull(m[:]); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if m != magic {
		return nil, fmt.Errorf("not a vol file")
	}
	v, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if v != version {
		return nil, fmt.Errorf("unsupported version %d", v)
	}
	ls, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if err := r.SetLengthSize(int(ls)); err != nil {
		return nil, err
	}
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	count, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading record count: %w", err)
	}

	// count is untrusted; chunks grows with the records actually read
	var chunks []*volume.Chunk
	release := func() {
		for _, c := range chunks {
			c.Release()
		}
	}
	for i := range int(count) {
		if err := ctx.Err(); err != nil {
			release()
			return nil, err
		}
		p.Progress(i, int(count), src.Name)
		c, err := readRecord(r)
		if err != nil {
			release()
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func readRecord(r *binpkg.Reader) (*volume.Chunk, error) {
	r.ResetSum()
	n, err := r.ReadLength()
	if err != nil {
		return nil, err
	}
	if n > maxHeader {
		return nil, fmt.Errorf("header of %d bytes", n)
	}
	var raw bytes.Buffer
	if err := r.ReadInto(&raw, int64(n)); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	var h header
	if err := cbor.Unmarshal(raw.Bytes(), &h); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	t, ok := buffer.ParseType(h.Type)
	if !ok {
		return nil, fmt.Errorf("unknown element type %q", h.Type)
	}
	g, err := volume.NewGeometry(h.Sizes[:]...)
	if err != nil {
		return nil, err
	}
	want, ok := payloadSize(g, t)
	if !ok {
		return nil, fmt.Errorf("%s %s exceeds the addressable size", t, g)
	}
	if h.Raw != want {
		return nil, fmt.Errorf("payload of %d bytes, %s %s needs %d", h.Raw, t, g, want)
	}

	n, err = r.ReadLength()
	if err != nil {
		return nil, err
	}
	if len(h.Filters) == 0 && n != uint64(h.Raw) {
		return nil, fmt.Errorf("unfiltered payload of %d bytes for %d raw bytes", n, h.Raw)
	}
	if n > uint64(h.Raw)*2+1024 {
		return nil, fmt.Errorf("stored payload of %d bytes for %d raw bytes", n, h.Raw)
	}
	var stored bytes.Buffer
	if err := r.ReadInto(&stored, int64(n)); err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	sum := r.Sum()
	check, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if sum != check {
		return nil, fmt.Errorf("checksum mismatch (stored=0x%016x, computed=0x%016x)", check, sum)
	}

	pipeline, err := filter.NewPipeline(h.Filters)
	if err != nil {
		return nil, err
	}
	data, err := pipeline.Decode(stored.Bytes())
	if err != nil {
		return nil, err
	}
	if len(data) != h.Raw {
		return nil, fmt.Errorf("decoded %d bytes, expected %d", len(data), h.Raw)
	}

	buf, err := buffer.Allocate(t, g.Volume())
	if err != nil {
		return nil, err
	}
	copy(buf.Bytes(), data)
	if h.Order != "" && h.Order != hostOrder() {
		if err := buf.SwapBytes(); err != nil {
			buf.Release()
			return nil, err
		}
	}
	ps := props.New()
	if len(h.Props) > 0 {
		if err := ps.UnmarshalJSON(h.Props); err != nil {
			buf.Release()
			return nil, err
		}
	}
	return volume.NewChunk(buf, g, ps)
}

// payloadSize returns the byte size of g voxels of t, or false when it
// overflows int.
func payloadSize(g volume.Geometry, t buffer.ElementType) (int, bool) {
	n := t.Size()
	for _, s := range g {
		if s > math.MaxInt/n {
			return 0, false
		}
		n *= s
	}
	return n, true
}

// Write stores the chunks of all images at dst. With DialectDeflate the
// payloads are shuffled and compressed.
func (*Format) Write(ctx context.Context, images []*volume.Image, dst string, dialect string, p format.Progress) error {
	var chunks []*volume.Chunk
	for _, img := range images {
		if missing := img.Missing(); len(missing) > 0 {
			return errs.Coded(errs.ErrInsufficient, "vol.Write", "image %s misses %v", img.Identify(), missing)
		}
		chunks = append(chunks, img.Chunks()...)
	}

	p = format.OrNop(p)
	var out bytes.Buffer
	w := binpkg.NewWriter(&out, binpkg.DefaultConfig())
	w.WriteBytes(magic[:])
	w.WriteUint16(version)
	w.WriteUint8(lengthSize)
	w.WriteUint8(0)
	w.WriteUint32(uint32(len(chunks)))
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Progress(i, len(chunks), dst)
		if err := writeRecord(w, c, dialect); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return os.WriteFile(dst, out.Bytes(), 0o644)
}

func writeRecord(w *binpkg.Writer, c *volume.Chunk, dialect string) error {
	t := c.Type()
	var specs []filter.Spec
	if dialect == DialectDeflate {
		specs = []filter.Spec{{Name: "shuffle", Param: t.Info().Size / t.Info().Components}, {Name: "deflate", Param: 6}}
	}
	pipeline, err := filter.NewPipeline(specs)
	if err != nil {
		return err
	}
	stored, err := pipeline.Encode(c.Buffer().Bytes())
	if err != nil {
		return err
	}
	pj, err := c.Props().MarshalJSON()
	if err != nil {
		return err
	}
	g := c.Geometry()
	raw, err := cbor.Marshal(header{
		Type:    t.String(),
		Sizes:   [4]int(g),
		Order:   hostOrder(),
		Raw:     c.Buffer().ByteLen(),
		Filters: specs,
		Props:   pj,
	})
	if err != nil {
		return err
	}

	w.ResetSum()
	w.WriteLength(uint64(len(raw)))
	w.WriteBytes(raw)
	w.WriteLength(uint64(len(stored)))
	w.WriteBytes(stored)
	return w.WriteUint64(w.Sum())
}
