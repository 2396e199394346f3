package format

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/errs"
	"github.com/robert-malhotra/go-volume/props"
	"github.com/robert-malhotra/go-volume/volume"
)

// Registry dispatches loading and writing to the registered Descriptors.
// It is safe for concurrent use once all descriptors are registered.
type Registry struct {
	descs  []Descriptor
	logger logrus.FieldLogger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for failed attempts and loaded files.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry returns a Registry without descriptors.
func NewRegistry(opts ...Option) *Registry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	r := &Registry{logger: l}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends descriptors. Earlier registrations win when several
// descriptors claim the same suffix.
func (r *Registry) Register(d ...Descriptor) {
	r.descs = append(r.descs, d...)
}

// Descriptors returns the registered descriptors.
func (r *Registry) Descriptors() []Descriptor { return slices.Clone(r.descs) }

// Logger returns the registry's logger for use by descriptors.
func (r *Registry) Logger() logrus.FieldLogger { return r.logger }

// Lookup returns the descriptor called name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, d := range r.descs {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// FormatList returns the descriptors for stack in the order they should be
// tried. The joined tails of the stack are matched longest first, so a
// "tar.gz" handler comes before a "gz" handler. A non-empty dialect keeps
// only descriptors that understand it.
func (r *Registry) FormatList(stack Stack, mode Mode, dialect string) []Descriptor {
	var out []Descriptor
	for _, suffix := range stack.Candidates() {
		for _, d := range r.descs {
			if slices.Contains(out, d) || !handles(d, mode, suffix) {
				continue
			}
			if dialect != "" && !slices.Contains(d.Dialects(stack), dialect) {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}

func handles(d Descriptor, mode Mode, suffix string) bool {
	for _, s := range d.Suffixes(mode) {
		if foldSuffix(s) == suffix {
			return true
		}
	}
	return false
}

// ResolveStack returns stack if any reader handles it and otherwise the
// stack derived from literal, if that one is handled. It never tries more
// than these two.
func (r *Registry) ResolveStack(stack Stack, literal string, dialect string) (Stack, error) {
	if len(r.FormatList(stack, ModeRead, dialect)) > 0 {
		return stack, nil
	}
	alt := StackOf(literal)
	if !alt.Equal(stack) && len(r.FormatList(alt, ModeRead, dialect)) > 0 {
		return alt, nil
	}
	return nil, errs.Coded(errs.ErrNoFormat, "format.ResolveStack", "no reader for %q (%s)", stack, literal)
}

// LoadChunks tries every reader for stack in turn and returns the chunks
// of the first one that succeeds. Chunks without a source property get
// src.Name. If every reader fails the last failure is returned as an IO
// error naming that reader.
func (r *Registry) LoadChunks(ctx context.Context, src Source, stack Stack, dialect string, p Progress) ([]*volume.Chunk, error) {
	const op = "format.LoadChunks"
	list := r.FormatList(stack, ModeRead, dialect)
	if len(list) == 0 {
		return nil, errs.Coded(errs.ErrNoFormat, op, "no reader for %q", stack.String())
	}
	p = OrNop(p)
	var last error
	for _, d := range list {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log := r.logger.WithFields(logrus.Fields{"format": d.Name(), "path": src.Name, "dialect": dialect})
		chunks, err := d.Load(ctx, src, stack, dialect, p)
		if err == nil && len(chunks) == 0 {
			err = errors.New("no chunks found")
		}
		if err != nil {
			log.WithError(err).Debug("reader failed")
			last = errs.IO(op, d.Name(), err)
			continue
		}
		size := 0
		for _, c := range chunks {
			if !c.Props().Has(volume.PropSource) {
				c.Props().Set(volume.PropSource, props.String(src.Name))
			}
			size += c.Buffer().ByteLen()
		}
		log.WithFields(logrus.Fields{"chunks": len(chunks), "bytes": humanize.Bytes(uint64(size))}).Info("loaded")
		return chunks, nil
	}
	return nil, last
}

// Delegate loads src for a container format that has popped its own
// suffix off stack. When stack yields nothing it retries once with the
// stack derived from src.Name and, if that fails too, returns the first
// failure.
func (r *Registry) Delegate(ctx context.Context, src Source, stack Stack, dialect string, p Progress) ([]*volume.Chunk, error) {
	chunks, err := r.LoadChunks(ctx, src, stack, dialect, p)
	if err == nil {
		return chunks, nil
	}
	alt := StackOf(src.Name)
	if alt.Equal(stack) || len(alt) == 0 || ctx.Err() != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"path": src.Name, "stack": stack.String(), "fallback": alt.String()}).
		Debug("retrying with the stack of the file name")
	if chunks, ferr := r.LoadChunks(ctx, src, alt, dialect, p); ferr == nil {
		return chunks, nil
	}
	return nil, err
}

// Write stores images at dst with the first writer that succeeds. suffixes
// replaces the stack derived from dst when not empty.
func (r *Registry) Write(ctx context.Context, images []*volume.Image, dst, suffixes, dialect string, p Progress) error {
	const op = "format.Write"
	stack := StackOf(dst)
	if suffixes != "" {
		stack = ParseStack(suffixes)
	}
	list := r.FormatList(stack, ModeWrite, dialect)
	if len(list) == 0 {
		return errs.Coded(errs.ErrNoFormat, op, "no writer for %q", stack.String())
	}
	p = OrNop(p)
	var last error
	for _, d := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.Write(ctx, images, dst, dialect, p)
		if err == nil {
			r.logger.WithFields(logrus.Fields{"format": d.Name(), "path": dst, "images": len(images)}).Info("written")
			return nil
		}
		r.logger.WithFields(logrus.Fields{"format": d.Name(), "path": dst}).WithError(err).Debug("writer failed")
		last = errs.IO(op, d.Name(), err)
	}
	return last
}

// Relabel replaces the prefix from of the source property of chunks by to.
// Container formats use it to name the file the chunks really came from.
func Relabel(chunks []*volume.Chunk, from, to string) {
	for _, c := range chunks {
		v, ok := c.Props().Get(volume.PropSource)
		if !ok {
			c.Props().Set(volume.PropSource, props.String(to))
			continue
		}
		s, _ := v.AsString()
		if rest, ok := strings.CutPrefix(s, from); ok {
			c.Props().Set(volume.PropSource, props.String(to+rest))
		}
	}
}
