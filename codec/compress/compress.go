// Package compress is a proxy format for compressed files. It decompresses
// its input and hands the content back to the registry with its own suffix
// removed, so "brain.nii.gz" is read by whatever reads "nii".
package compress

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/internal/filter"
	"github.com/robert-malhotra/go-volume/volume"
)

// tarAliases maps the single-suffix names of compressed tar archives to
// the stream they are compressed with.
var tarAliases = map[string]string{
	"tgz": "gz",
	"tbz": "bz2",
	"taz": "z",
}

// Format is the compression proxy.
type Format struct {
	reg *format.Registry
}

// New returns a proxy delegating to reg.
func New(reg *format.Registry) *Format { return &Format{reg: reg} }

func (*Format) Name() string { return "compress" }

// Suffixes lists the stream suffixes, longest first.
func (*Format) Suffixes(mode format.Mode) []string {
	var out []string
	for _, s := range filter.Streams() {
		if mode&format.ModeWrite != 0 && s.NewWriter == nil {
			continue
		}
		out = append(out, s.Suffix)
	}
	if mode&format.ModeWrite == 0 {
		out = append(out, "tgz", "tbz", "taz")
	}
	slices.SortStableFunc(out, func(a, b string) int { return len(b) - len(a) })
	return out
}

// Dialects of the proxy are those of the formats it delegates to; it does
// not filter on them itself.
func (f *Format) Dialects(stack format.Stack) []string {
	var out []string
	inner := f.inner(stack)
	for _, d := range f.reg.FormatList(inner, format.ModeRead, "") {
		out = append(out, d.Dialects(inner)...)
	}
	return out
}

// inner returns the stack of the decompressed content.
func (*Format) inner(stack format.Stack) format.Stack {
	if _, ok := tarAliases[stack.Last()]; ok {
		return append(stack.Pop(), "tar")
	}
	return stack.Pop()
}

func streamFor(suffix string) (filter.Stream, error) {
	if s, ok := tarAliases[suffix]; ok {
		suffix = s
	}
	s, ok := filter.StreamFor(suffix)
	if !ok {
		return filter.Stream{}, fmt.Errorf("cannot determine the compression of %q", suffix)
	}
	return s, nil
}

// innerName strips the outermost suffix of name, turning tar aliases into
// ".tar".
func innerName(name, suffix string) string {
	ext := filepath.Ext(name)
	if !strings.EqualFold(strings.TrimPrefix(ext, "."), suffix) {
		return name
	}
	base := strings.TrimSuffix(name, ext)
	if _, ok := tarAliases[suffix]; ok {
		return base + ".tar"
	}
	return base
}

// Load decompresses src and loads the content with the remaining stack.
func (f *Format) Load(ctx context.Context, src format.Source, stack format.Stack, dialect string, p format.Progress) ([]*volume.Chunk, error) {
	suffix := stack.Last()
	s, err := streamFor(suffix)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	zr, err := s.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("opening %s stream: %w", suffix, err)
	}
	defer zr.Close()

	format.OrNop(p).Progress(0, 1, "decompressing "+src.Name)
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}

	name := innerName(src.Name, suffix)
	f.reg.Logger().WithFields(logrus.Fields{"path": src.Name, "stream": s.Suffix, "inner": name}).Debug("decompressed")
	chunks, err := f.reg.Delegate(ctx, format.BytesSource(name, data), f.inner(stack), dialect, p)
	if err != nil {
		return nil, err
	}
	format.Relabel(chunks, name, src.Name)
	return chunks, nil
}

// Write has the registry write images to a temporary file named after the
// inner stack and compresses it to dst.
func (f *Format) Write(ctx context.Context, images []*volume.Image, dst string, dialect string, p format.Progress) error {
	stack := format.StackOf(dst)
	s, err := streamFor(stack.Last())
	if err != nil {
		return err
	}
	if s.NewWriter == nil {
		return fmt.Errorf("%s is read-only", s.Suffix)
	}
	inner := stack.Pop()
	if len(inner) == 0 {
		return fmt.Errorf("cannot determine the uncompressed format of %q", dst)
	}

	tmp, err := os.CreateTemp("", "volume-*."+inner.String())
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	if err := f.reg.Write(ctx, images, tmpName, inner.String(), dialect, p); err != nil {
		return err
	}
	return compressFile(tmpName, dst, s)
}

func compressFile(src, dst string, s filter.Stream) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	zw, err := s.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
