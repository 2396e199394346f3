package filter

import (
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"
	"slices"
	"strings"
)

// Stream compresses or decompresses whole files.
type Stream struct {
	// Suffix is the file suffix, without the dot.
	Suffix string

	// NewReader wraps compressed input.
	NewReader func(r io.Reader) (io.ReadCloser, error)

	// NewWriter wraps compressed output. It is nil for read-only codecs.
	NewWriter func(w io.Writer) (io.WriteCloser, error)
}

var streams = []Stream{
	{
		Suffix: "gz",
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
		NewWriter: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
	},
	{
		Suffix: "bz2",
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(bzip2.NewReader(r)), nil
		},
	},
	{
		Suffix: "z",
		NewReader: func(r io.Reader) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		},
		NewWriter: func(w io.Writer) (io.WriteCloser, error) {
			return zlib.NewWriter(w), nil
		},
	},
}

// Streams returns the stream codecs.
func Streams() []Stream {
	return slices.Clone(streams)
}

// StreamFor returns the codec for suffix, ignoring case.
func StreamFor(suffix string) (Stream, bool) {
	for _, s := range streams {
		if strings.EqualFold(s.Suffix, suffix) {
			return s, true
		}
	}
	return Stream{}, false
}
