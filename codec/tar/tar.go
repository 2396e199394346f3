// Package tar is a read-only proxy for tar archives. Every regular file in
// the archive is loaded through the registry.
package tar

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/volume"
)

// Format is the tar proxy.
type Format struct {
	reg *format.Registry
}

// New returns a proxy delegating to reg.
func New(reg *format.Registry) *Format { return &Format{reg: reg} }

func (*Format) Name() string { return "tar" }

func (*Format) Suffixes(mode format.Mode) []string {
	if mode&format.ModeRead == 0 {
		return nil
	}
	return []string{"tar"}
}

func (*Format) Dialects(format.Stack) []string { return nil }

// Load reads the entries of the archive. The stack left after removing
// "tar" selects the reader for every entry; if no reader handles it the
// stack of the entry name is used instead. Entries that cannot be read
// are logged and skipped.
func (f *Format) Load(ctx context.Context, src format.Source, stack format.Stack, dialect string, p format.Progress) ([]*volume.Chunk, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	p = format.OrNop(p)
	inner := stack.Pop()

	var out []*volume.Chunk
	tr := tar.NewReader(rc)
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if len(out) > 0 {
				f.reg.Logger().WithField("path", src.Name).WithError(err).Warn("truncated archive")
				break
			}
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		log := f.reg.Logger().WithFields(logrus.Fields{"path": src.Name, "entry": hdr.Name})
		if hdr.Typeflag != tar.TypeReg || hdr.Size == 0 {
			log.WithField("type", string(hdr.Typeflag)).Debug("skipping entry that is no regular file")
			continue
		}
		entryStack, err := f.reg.ResolveStack(inner, hdr.Name, dialect)
		if err != nil {
			log.Info("skipping entry no reader was found for")
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		p.Progress(n, 0, hdr.Name)
		name := src.Name + "/" + hdr.Name
		chunks, err := f.reg.LoadChunks(ctx, format.BytesSource(name, data), entryStack, dialect, p)
		if err != nil {
			log.WithError(err).Warn("failed to load entry")
			continue
		}
		out = append(out, chunks...)
	}
	return out, nil
}

// Write is not supported.
func (*Format) Write(context.Context, []*volume.Image, string, string, format.Progress) error {
	return errors.New("writing tar archives is not supported")
}
