package buffer

import "github.com/robert-malhotra/go-volume/internal/dtype"

// kernel converts the components in src into dst and returns the number of
// clamped values.
type kernel func(dst, src []byte, s Scaling) int

// scalarOps is the per-component dispatch entry.
type scalarOps struct {
	convert [lastScalar + 1]kernel
	minmax  func(data []byte) (lo, hi float64, ok bool)
	lanes   func(data []byte, lanes int, lo, hi []byte) bool
	differ  func(a, b []byte) int
	domain  [2]float64
	integer bool
	size    int
}

var ops = [lastScalar + 1]scalarOps{
	Int8:    opsFor[int8](),
	Uint8:   opsFor[uint8](),
	Int16:   opsFor[int16](),
	Uint16:  opsFor[uint16](),
	Int32:   opsFor[int32](),
	Uint32:  opsFor[uint32](),
	Int64:   opsFor[int64](),
	Uint64:  opsFor[uint64](),
	Float32: opsFor[float32](),
	Float64: opsFor[float64](),
}

func opsFor[T dtype.Scalar]() scalarOps {
	lo, hi := dtype.Domain[T]()
	return scalarOps{
		convert: kernelRow[T](),
		minmax: func(data []byte) (float64, float64, bool) {
			l, h, ok := dtype.MinMax(dtype.Cast[T](data))
			return float64(l), float64(h), ok
		},
		lanes:   laneMinMax[T],
		differ:  func(a, b []byte) int { return dtype.Differ(dtype.Cast[T](a), dtype.Cast[T](b)) },
		domain:  [2]float64{lo, hi},
		integer: dtype.IsInteger[T](),
		size:    dtype.SizeOf[T](),
	}
}

func kernelFor[S, D dtype.Scalar]() kernel {
	return func(dst, src []byte, s Scaling) int {
		return dtype.Convert(dtype.Cast[D](dst), dtype.Cast[S](src), s)
	}
}

func kernelRow[S dtype.Scalar]() [lastScalar + 1]kernel {
	return [lastScalar + 1]kernel{
		Int8:    kernelFor[S, int8](),
		Uint8:   kernelFor[S, uint8](),
		Int16:   kernelFor[S, int16](),
		Uint16:  kernelFor[S, uint16](),
		Int32:   kernelFor[S, int32](),
		Uint32:  kernelFor[S, uint32](),
		Int64:   kernelFor[S, int64](),
		Uint64:  kernelFor[S, uint64](),
		Float32: kernelFor[S, float32](),
		Float64: kernelFor[S, float64](),
	}
}

// laneMinMax computes the per-lane extremes of interleaved components and
// writes them to lo and hi, each holding one element of lanes components.
func laneMinMax[T dtype.Scalar](data []byte, lanes int, lo, hi []byte) bool {
	vals := dtype.Cast[T](data)
	los, his := dtype.Cast[T](lo), dtype.Cast[T](hi)
	found := false
	for l := 0; l < lanes; l++ {
		seen := false
		for i := l; i < len(vals); i += lanes {
			v := vals[i]
			if v != v {
				continue
			}
			if !seen {
				los[l], his[l], seen = v, v, true
				continue
			}
			if v < los[l] {
				los[l] = v
			}
			if v > his[l] {
				his[l] = v
			}
		}
		found = found || seen
	}
	return found
}
