// Package flist is a read-only proxy for file lists: text files naming one
// file per line. Every named file is loaded through the registry.
package flist

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/format"
	"github.com/robert-malhotra/go-volume/volume"
)

// Format is the file list proxy.
type Format struct {
	reg *format.Registry
}

// New returns a proxy delegating to reg.
func New(reg *format.Registry) *Format { return &Format{reg: reg} }

func (*Format) Name() string { return "flist" }

func (*Format) Suffixes(mode format.Mode) []string {
	if mode&format.ModeRead == 0 {
		return nil
	}
	return []string{"flist"}
}

func (*Format) Dialects(format.Stack) []string { return nil }

// Load reads the names in src and loads each file with the stack left
// after removing "flist", falling back to the stack of the file name.
// Blank lines are ignored; files that fail to load are logged and
// skipped.
func (f *Format) Load(ctx context.Context, src format.Source, stack format.Stack, dialect string, p format.Progress) ([]*volume.Chunk, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var names []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		f.reg.Logger().WithField("path", src.Name).Warn("no file names in list")
		return nil, nil
	}

	p = format.OrNop(p)
	inner := stack.Pop()
	var out []*volume.Chunk
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.Progress(i, len(names), name)
		log := f.reg.Logger().WithFields(logrus.Fields{"list": src.Name, "path": name, "index": i + 1})
		log.Info("loading")
		chunks, err := f.reg.Delegate(ctx, format.FileSource(name), inner, dialect, p)
		if err != nil {
			log.WithError(err).Error("failed to load listed file")
			continue
		}
		out = append(out, chunks...)
	}
	return out, nil
}

// Write is not supported.
func (*Format) Write(context.Context, []*volume.Image, string, string, format.Progress) error {
	return errors.New("writing file lists is not supported")
}
