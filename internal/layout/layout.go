package layout

import "fmt"

// Strides returns the byte stride of each dimension for elements of elem
// bytes.
func Strides(dims []int, elem int) []int {
	strides := make([]int, len(dims))
	s := elem
	for d := range dims {
		strides[d] = s
		s *= dims[d]
	}
	return strides
}

// Volume returns the number of elements in dims.
func Volume(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// Linear returns the linear element index of coords in dims. Coordinates
// are not bounds-checked.
func Linear(dims, coords []int) int {
	idx, step := 0, 1
	for d := range dims {
		idx += coords[d] * step
		step *= dims[d]
	}
	return idx
}

// Coords is the inverse of Linear.
func Coords(dims []int, idx int) []int {
	out := make([]int, len(dims))
	for d := range dims {
		out[d] = idx % dims[d]
		idx /= dims[d]
	}
	return out
}

// checkBox validates that count elements starting at start fit into dims.
func checkBox(what string, dims, start, count []int) error {
	if len(start) != len(dims) || len(count) != len(dims) {
		return fmt.Errorf("%s: rank mismatch: dims %v, start %v, count %v", what, dims, start, count)
	}
	for d := range dims {
		if start[d] < 0 || count[d] < 0 || start[d]+count[d] > dims[d] {
			return fmt.Errorf("%s: dimension %d: [%d,%d) exceeds size %d", what, d, start[d], start[d]+count[d], dims[d])
		}
	}
	return nil
}

// CopyBox copies count elements per dimension from src at srcStart into dst
// at dstStart. Both arrays must have the same rank.
func CopyBox(dst []byte, dstDims, dstStart []int, src []byte, srcDims, srcStart []int, count []int, elem int) error {
	if err := checkBox("source", srcDims, srcStart, count); err != nil {
		return err
	}
	if err := checkBox("destination", dstDims, dstStart, count); err != nil {
		return err
	}
	if len(src) < Volume(srcDims)*elem || len(dst) < Volume(dstDims)*elem {
		return fmt.Errorf("buffer shorter than its dimensions")
	}
	if len(count) == 0 || Volume(count) == 0 {
		return nil
	}

	srcStrides := Strides(srcDims, elem)
	dstStrides := Strides(dstDims, elem)
	srcOff, dstOff := 0, 0
	for d := range count {
		srcOff += srcStart[d] * srcStrides[d]
		dstOff += dstStart[d] * dstStrides[d]
	}
	copyBoxRecursive(dst, src, count, srcStrides, dstStrides, srcOff, dstOff, len(count)-1, elem)
	return nil
}

func copyBoxRecursive(dst, src []byte, count, srcStrides, dstStrides []int, srcOff, dstOff, dim, elem int) {
	if dim == 0 {
		// contiguous run
		n := count[0] * elem
		copy(dst[dstOff:dstOff+n], src[srcOff:srcOff+n])
		return
	}
	for i := 0; i < count[dim]; i++ {
		copyBoxRecursive(dst, src, count, srcStrides, dstStrides,
			srcOff+i*srcStrides[dim], dstOff+i*dstStrides[dim], dim-1, elem)
	}
}

// Reverse reverses the order of elements along dimension axis in place.
func Reverse(data []byte, dims []int, axis, elem int) error {
	if axis < 0 || axis >= len(dims) {
		return fmt.Errorf("axis %d out of range for rank %d", axis, len(dims))
	}
	if len(data) < Volume(dims)*elem {
		return fmt.Errorf("buffer shorter than its dimensions")
	}
	strides := Strides(dims, elem)
	n := dims[axis]
	if n < 2 {
		return nil
	}
	// inner is the contiguous block below axis, outer the repeats above it
	inner := strides[axis]
	outer := Volume(dims[axis+1:])
	tmp := make([]byte, inner)
	for o := 0; o < outer; o++ {
		base := o * n * inner
		for lo, hi := 0, n-1; lo < hi; lo, hi = lo+1, hi-1 {
			a := data[base+lo*inner : base+(lo+1)*inner]
			b := data[base+hi*inner : base+(hi+1)*inner]
			copy(tmp, a)
			copy(a, b)
			copy(b, tmp)
		}
	}
	return nil
}
