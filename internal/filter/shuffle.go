package filter

// Shuffle implements the byte shuffle filter.
// Stored form is [all byte 0s][all byte 1s]...[all byte N-1s].
type Shuffle struct {
	elemSize int
}

// NewShuffle creates a shuffle filter for elements of elemSize bytes.
func NewShuffle(elemSize int) *Shuffle {
	if elemSize < 1 {
		elemSize = 1
	}
	return &Shuffle{elemSize: elemSize}
}

func (f *Shuffle) Name() string {
	return "shuffle"
}

// Encode groups the bytes of every element by position.
func (f *Shuffle) Encode(input []byte) ([]byte, error) {
	return f.permute(input, true), nil
}

// Decode reverses Encode.
func (f *Shuffle) Decode(input []byte) ([]byte, error) {
	return f.permute(input, false), nil
}

// permute moves the bytes of whole elements; a trailing partial element is
// copied unchanged.
func (f *Shuffle) permute(input []byte, encode bool) []byte {
	numElems := len(input) / f.elemSize
	if f.elemSize <= 1 || numElems == 0 {
		return input
	}

	output := make([]byte, len(input))
	for i := 0; i < numElems; i++ {
		for j := 0; j < f.elemSize; j++ {
			if encode {
				output[j*numElems+i] = input[i*f.elemSize+j]
			} else {
				output[i*f.elemSize+j] = input[j*numElems+i]
			}
		}
	}
	tail := numElems * f.elemSize
	copy(output[tail:], input[tail:])
	return output
}
