//go:build !unix

package buffer

import "github.com/robert-malhotra/go-volume/errs"

// MapOption configures Map.
type MapOption func(*mapOptions)

type mapOptions struct{}

// WithOffset is accepted for API compatibility.
func WithOffset(int64) MapOption { return func(*mapOptions) {} }

// ReadOnly is accepted for API compatibility.
func ReadOnly() MapOption { return func(*mapOptions) {} }

// Create is accepted for API compatibility.
func Create() MapOption { return func(*mapOptions) {} }

// Map is not available on this platform.
func Map(path string, t ElementType, n int, opts ...MapOption) (*Buffer, error) {
	return nil, errs.New(errs.KindResource, "buffer.Map", "file mapping is not supported on this platform")
}
