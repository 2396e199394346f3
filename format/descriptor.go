package format

import (
	"context"

	"github.com/robert-malhotra/go-volume/volume"
)

// Mode selects reading or writing suffixes.
type Mode int

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeBoth = ModeRead | ModeWrite
)

// Descriptor is one file format.
type Descriptor interface {
	// Name identifies the format in logs and errors.
	Name() string

	// Suffixes lists the suffixes handled in mode, longest first.
	Suffixes(mode Mode) []string

	// Dialects lists the dialects understood for stack.
	Dialects(stack Stack) []string

	// Load reads the chunks of src. stack is what is left of the
	// formatstack once container formats have popped their suffixes.
	Load(ctx context.Context, src Source, stack Stack, dialect string, p Progress) ([]*volume.Chunk, error)

	// Write stores images at dst. It must fail rather than truncate when
	// the images lack what the format needs.
	Write(ctx context.Context, images []*volume.Image, dst string, dialect string, p Progress) error
}

// Progress receives synchronous progress reports.
type Progress interface {
	Progress(done, total int, msg string)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(done, total int, msg string)

// Progress calls f.
func (f ProgressFunc) Progress(done, total int, msg string) { f(done, total, msg) }

type noProgress struct{}

func (noProgress) Progress(int, int, string) {}

// OrNop returns p, or a Progress that ignores reports when p is nil.
func OrNop(p Progress) Progress {
	if p == nil {
		return noProgress{}
	}
	return p
}
