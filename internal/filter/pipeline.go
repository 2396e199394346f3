package filter

import "fmt"

// Pipeline is an ordered chain of filters.
type Pipeline struct {
	filters []Filter
}

// NewPipeline creates a pipeline from specs, first applied first on
// encode.
func NewPipeline(specs []Spec) (*Pipeline, error) {
	p := &Pipeline{filters: make([]Filter, 0, len(specs))}
	for _, s := range specs {
		f, err := New(s)
		if err != nil {
			return nil, fmt.Errorf("creating filter %s: %w", s.Name, err)
		}
		p.filters = append(p.filters, f)
	}
	return p, nil
}

// Encode applies the filters in order.
func (p *Pipeline) Encode(input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		var err error
		data, err = f.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s encode: %w", f.Name(), err)
		}
	}
	return data, nil
}

// Decode applies the filters in reverse order (last filter first).
func (p *Pipeline) Decode(input []byte) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		var err error
		data, err = p.filters[i].Decode(data)
		if err != nil {
			return nil, fmt.Errorf("filter %s decode: %w", p.filters[i].Name(), err)
		}
	}
	return data, nil
}
