package format

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/robert-malhotra/go-volume/buffer"
	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/props"
	"github.com/robert-malhotra/go-volume/volume"
)

type fakeDesc struct {
	name     string
	read     []string
	write    []string
	dialects []string
	load     func(src Source, stack Stack) ([]*volume.Chunk, error)
	written  []string
	loaded   []string
}

func (f *fakeDesc) Name() string { return f.name }

func (f *fakeDesc) Suffixes(mode Mode) []string {
	if mode == ModeWrite {
		return f.write
	}
	return f.read
}

func (f *fakeDesc) Dialects(Stack) []string { return f.dialects }

func (f *fakeDesc) Load(_ context.Context, src Source, stack Stack, _ string, _ Progress) ([]*volume.Chunk, error) {
	f.loaded = append(f.loaded, stack.String())
	if f.load == nil {
		return nil, errors.New(f.name + " cannot read")
	}
	return f.load(src, stack)
}

func (f *fakeDesc) Write(_ context.Context, _ []*volume.Image, dst string, _ string, _ Progress) error {
	f.written = append(f.written, dst)
	return nil
}

func names(ds []Descriptor) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.Name())
	}
	return out
}

func testChunk(acq int64) *volume.Chunk {
	p := props.New().
		MustSet(volume.PropIndexOrigin, props.Vec3([3]float64{0, 0, 0})).
		MustSet(volume.PropAcquisitionNumber, props.Int(acq)).
		MustSet(volume.PropVoxelSize, props.Vec3([3]float64{1, 1, 1})).
		MustSet(volume.PropRowVec, props.Vec3([3]float64{1, 0, 0})).
		MustSet(volume.PropColumnVec, props.Vec3([3]float64{0, 1, 0})).
		MustSet(volume.PropSequenceNumber, props.Int(1))
	c, err := volume.NewChunk(buffer.FromSlice(make([]uint8, 4)), volume.MustGeometry(2, 2), p)
	if err != nil {
		panic(err)
	}
	return c
}

func oneChunk(Source, Stack) ([]*volume.Chunk, error) {
	return []*volume.Chunk{testChunk(0)}, nil
}

func TestStackOf(t *testing.T) {
	tests := []struct {
		path string
		want Stack
	}{
		{"Brain.NII.GZ", Stack{"nii", "gz"}},
		{"/data/run.d/scan", Stack{}},
		{"a.tar.gz", Stack{"tar", "gz"}},
		{"noext", Stack{}},
	}
	for _, tt := range tests {
		if got := StackOf(tt.path); !got.Equal(tt.want) {
			t.Errorf("StackOf(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	s := ParseStack(".tar.gz")
	if got := s.Candidates(); !slices.Equal(got, []string{"tar.gz", "gz"}) {
		t.Errorf("unexpected candidates %v", got)
	}
	if got := s.Pop(); !got.Equal(Stack{"tar"}) || s.Last() != "gz" {
		t.Errorf("unexpected pop %v", got)
	}
}

func TestFormatList(t *testing.T) {
	gz := &fakeDesc{name: "gz", read: []string{"gz"}}
	tgz := &fakeDesc{name: "tgz", read: []string{"tar.gz", "tgz"}, dialects: []string{"strict"}}
	tar := &fakeDesc{name: "tar", read: []string{"TAR"}}
	r := NewRegistry()
	r.Register(gz, tgz, tar)

	if got := names(r.FormatList(StackOf("x.tar.gz"), ModeRead, "")); !slices.Equal(got, []string{"tgz", "gz"}) {
		t.Errorf("expected longest suffix first, got %v", got)
	}
	if got := names(r.FormatList(StackOf("x.tar.gz"), ModeRead, "strict")); !slices.Equal(got, []string{"tgz"}) {
		t.Errorf("expected dialect filter, got %v", got)
	}
	if got := names(r.FormatList(StackOf("x.Tar"), ModeRead, "")); !slices.Equal(got, []string{"tar"}) {
		t.Errorf("expected case-insensitive match, got %v", got)
	}
	if got := r.FormatList(StackOf("x.tar"), ModeWrite, ""); len(got) != 0 {
		t.Errorf("no writer registered, got %v", names(got))
	}
	if d, ok := r.Lookup("tar"); !ok || d != tar {
		t.Errorf("Lookup failed")
	}
}

func TestLoadChunks(t *testing.T) {
	bad := &fakeDesc{name: "bad", read: []string{"img"}}
	good := &fakeDesc{name: "good", read: []string{"img"}, load: oneChunk}
	r := NewRegistry()
	r.Register(bad, good)

	src := BytesSource("scan.img", nil)
	chunks, err := r.LoadChunks(context.Background(), src, StackOf(src.Name), "", nil)
	if err != nil {
		t.Fatalf("LoadChunks failed: %v", err)
	}
	if len(chunks) != 1 || len(bad.loaded) != 1 {
		t.Fatalf("expected both readers tried and one chunk, got %d chunks", len(chunks))
	}
	v, ok := chunks[0].Props().Get(volume.PropSource)
	if s, _ := v.AsString(); !ok || s != "scan.img" {
		t.Errorf("source not recorded: %v", v)
	}

	r = NewRegistry()
	r.Register(good, bad)
	good.load = func(Source, Stack) ([]*volume.Chunk, error) { return nil, nil }
	_, err = r.LoadChunks(context.Background(), src, StackOf(src.Name), "", nil)
	if !errors.Is(err, errs.ErrIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
	if errs.FormatOf(err) != "bad" {
		t.Errorf("expected the last reader in the error, got %q", errs.FormatOf(err))
	}

	if _, err := r.LoadChunks(context.Background(), src, Stack{"xyz"}, "", nil); !errors.Is(err, errs.ErrNoFormat) {
		t.Errorf("expected NoFormat, got %v", err)
	}
}

func TestLoadChunksKeepsSource(t *testing.T) {
	d := &fakeDesc{name: "d", read: []string{"img"}, load: func(Source, Stack) ([]*volume.Chunk, error) {
		c := testChunk(0)
		c.Props().MustSet(volume.PropSource, props.String("inner.img"))
		return []*volume.Chunk{c}, nil
	}}
	r := NewRegistry()
	r.Register(d)
	chunks, err := r.LoadChunks(context.Background(), BytesSource("outer.img", nil), Stack{"img"}, "", nil)
	if err != nil {
		t.Fatalf("LoadChunks failed: %v", err)
	}
	v, _ := chunks[0].Props().Get(volume.PropSource)
	if s, _ := v.AsString(); s != "inner.img" {
		t.Errorf("existing source overwritten with %q", s)
	}
}

func TestDelegateFallsBackOnce(t *testing.T) {
	png := &fakeDesc{name: "png", read: []string{"png"}, load: oneChunk}
	r := NewRegistry()
	r.Register(png)

	src := BytesSource("slice.png", nil)
	chunks, err := r.Delegate(context.Background(), src, Stack{"nii"}, "", nil)
	if err != nil || len(chunks) != 1 {
		t.Fatalf("expected fallback to the file name stack, got %v", err)
	}
	if !slices.Equal(png.loaded, []string{"png"}) {
		t.Errorf("unexpected attempts %v", png.loaded)
	}

	_, err = r.Delegate(context.Background(), BytesSource("slice.raw", nil), Stack{"nii"}, "", nil)
	if !errors.Is(err, errs.ErrNoFormat) || !strings.Contains(err.Error(), "nii") {
		t.Errorf("expected the first failure, got %v", err)
	}

	if got, err := r.ResolveStack(Stack{"nii"}, "slice.png", ""); err != nil || !got.Equal(Stack{"png"}) {
		t.Errorf("ResolveStack = %v, %v", got, err)
	}
	if _, err := r.ResolveStack(Stack{"nii"}, "slice.nii", ""); !errors.Is(err, errs.ErrNoFormat) {
		t.Errorf("expected NoFormat, got %v", err)
	}
}

func TestWrite(t *testing.T) {
	png := &fakeDesc{name: "png", write: []string{"png"}}
	vol := &fakeDesc{name: "vol", write: []string{"vol"}}
	r := NewRegistry()
	r.Register(png, vol)

	if err := r.Write(context.Background(), nil, "out.png", "", "", nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := r.Write(context.Background(), nil, "out.png", "vol", "", nil); err != nil {
		t.Fatalf("Write with suffix override failed: %v", err)
	}
	if !slices.Equal(png.written, []string{"out.png"}) || !slices.Equal(vol.written, []string{"out.png"}) {
		t.Errorf("unexpected writes %v %v", png.written, vol.written)
	}
	if err := r.Write(context.Background(), nil, "out.bmp", "", "", nil); !errors.Is(err, errs.ErrNoFormat) {
		t.Errorf("expected NoFormat, got %v", err)
	}
}

func TestLoadImages(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"a.num": "0", "b.num": "1", "bad.num": "x", "readme.txt": ""} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	num := &fakeDesc{name: "num", read: []string{"num"}, load: func(src Source, _ Stack) ([]*volume.Chunk, error) {
		data, err := src.ReadAll()
		if err != nil {
			return nil, err
		}
		acq, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, err
		}
		return []*volume.Chunk{testChunk(acq)}, nil
	}}
	r := NewRegistry()
	r.Register(num)

	var steps int
	images, rejected, err := r.LoadImages(context.Background(), []string{dir}, "", ProgressFunc(func(int, int, string) { steps++ }))
	if err != nil {
		t.Fatalf("LoadImages failed: %v", err)
	}
	if len(images) != 1 || images[0].Len() != 2 {
		t.Fatalf("expected one image of two chunks, got %d images", len(images))
	}
	slices.Sort(rejected)
	want := []string{filepath.Join(dir, "bad.num"), filepath.Join(dir, "readme.txt")}
	if !slices.Equal(rejected, want) {
		t.Errorf("expected rejected %v, got %v", want, rejected)
	}
	if steps != 5 {
		t.Errorf("expected 5 progress reports, got %d", steps)
	}
}
