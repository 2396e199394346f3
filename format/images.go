package format

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/volume"
)

// LoadImages loads every file named in paths, descending into directories,
// and assembles the chunks into images. Files no reader accepts and the
// sources of chunks that did not fit any image are returned in rejected.
func (r *Registry) LoadImages(ctx context.Context, paths []string, dialect string, p Progress, opts ...volume.Option) (images []*volume.Image, rejected []string, err error) {
	files, err := expand(paths)
	if err != nil {
		return nil, nil, err
	}
	p = OrNop(p)

	var chunks []*volume.Chunk
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		p.Progress(i, len(files), f)
		c, err := r.Delegate(ctx, FileSource(f), StackOf(f), dialect, p)
		if err != nil {
			r.logger.WithFields(logrus.Fields{"path": f}).WithError(err).Warn("cannot load file")
			rejected = append(rejected, f)
			continue
		}
		chunks = append(chunks, c...)
	}
	p.Progress(len(files), len(files), "assembling")

	opts = append([]volume.Option{volume.WithLogger(r.logger)}, opts...)
	images, dropped, err := volume.BuildImages(chunks, opts...)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range dropped {
		name := ""
		if v, ok := c.Props().Get(volume.PropSource); ok {
			name, _ = v.AsString()
		}
		if !slices.Contains(rejected, name) {
			rejected = append(rejected, name)
		}
	}
	return images, rejected, nil
}

// expand replaces directories in paths by the regular files below them.
func expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
