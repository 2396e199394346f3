package filter

import "fmt"

// Filter is a reversible transform of a payload.
type Filter interface {
	// Name returns the filter name used in Spec.
	Name() string

	// Encode transforms raw data to its stored form.
	Encode(input []byte) ([]byte, error)

	// Decode transforms stored data back to raw form.
	Decode(input []byte) ([]byte, error)
}

// Spec names a filter and its parameter, as recorded next to the data.
type Spec struct {
	Name  string `cbor:"name"`
	Param int    `cbor:"param,omitempty"`
}

// registry maps filter names to constructors.
var registry = map[string]func(param int) Filter{
	"deflate": func(p int) Filter { return NewDeflate(p) },
	"shuffle": func(p int) Filter { return NewShuffle(p) },
}

// New creates the filter described by s.
func New(s Spec) (Filter, error) {
	constructor, ok := registry[s.Name]
	if !ok {
		return nil, fmt.Errorf("unsupported filter %q", s.Name)
	}
	return constructor(s.Param), nil
}
