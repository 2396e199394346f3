// Package codec wires the built-in formats into a registry.
package codec

import (
	"github.com/robert-malhotra/go-volume/codec/compress"
	"github.com/robert-malhotra/go-volume/codec/flist"
	"github.com/robert-malhotra/go-volume/codec/null"
	"github.com/robert-malhotra/go-volume/codec/raster"
	"github.com/robert-malhotra/go-volume/codec/tar"
	"github.com/robert-malhotra/go-volume/codec/vol"
	"github.com/robert-malhotra/go-volume/format"
)

// RegisterAll adds the built-in formats to reg, plain formats first.
func RegisterAll(reg *format.Registry) {
	reg.Register(
		vol.New(),
		raster.New(),
		null.New(),
		compress.New(reg),
		tar.New(reg),
		flist.New(reg),
	)
}

// NewRegistry returns a registry holding the built-in formats.
func NewRegistry(opts ...format.Option) *format.Registry {
	reg := format.NewRegistry(opts...)
	RegisterAll(reg)
	return reg
}
