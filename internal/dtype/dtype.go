package dtype

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Scalar is the set of component types a sample buffer is built from.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// Cast reinterprets b as a slice of T. Trailing bytes that do not form a
// whole T are ignored.
func Cast[T Scalar](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	n := len(b) / size
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), n)
}

// Bytes reinterprets s as its underlying bytes.
func Bytes[T Scalar](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// SizeOf returns the byte width of T.
func SizeOf[T Scalar]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// IsInteger reports whether T is an integer type.
func IsInteger[T Scalar]() bool {
	switch any(*new(T)).(type) {
	case float32, float64:
		return false
	}
	return true
}

// Limits returns the lowest and highest finite value of T.
func Limits[T Scalar]() (lo, hi T) {
	var v any
	var w any
	switch any(*new(T)).(type) {
	case int8:
		v, w = int8(math.MinInt8), int8(math.MaxInt8)
	case uint8:
		v, w = uint8(0), uint8(math.MaxUint8)
	case int16:
		v, w = int16(math.MinInt16), int16(math.MaxInt16)
	case uint16:
		v, w = uint16(0), uint16(math.MaxUint16)
	case int32:
		v, w = int32(math.MinInt32), int32(math.MaxInt32)
	case uint32:
		v, w = uint32(0), uint32(math.MaxUint32)
	case int64:
		v, w = int64(math.MinInt64), int64(math.MaxInt64)
	case uint64:
		v, w = uint64(0), uint64(math.MaxUint64)
	case int:
		v, w = int(math.MinInt), int(math.MaxInt)
	case uint:
		v, w = uint(0), uint(math.MaxUint)
	case uintptr:
		v, w = uintptr(0), ^uintptr(0)
	case float32:
		v, w = float32(-math.MaxFloat32), float32(math.MaxFloat32)
	case float64:
		v, w = -math.MaxFloat64, math.MaxFloat64
	default:
		return lo, hi
	}
	return v.(T), w.(T)
}

// Domain returns the limits of T as float64.
func Domain[T Scalar]() (lo, hi float64) {
	l, h := Limits[T]()
	return float64(l), float64(h)
}

// SwapBytes reverses the byte order of every width-byte component in b.
func SwapBytes(b []byte, width int) {
	if width <= 1 {
		return
	}
	for off := 0; off+width <= len(b); off += width {
		c := b[off : off+width]
		for i, j := 0, width-1; i < j; i, j = i+1, j-1 {
			c[i], c[j] = c[j], c[i]
		}
	}
}
