package dtype

import "math"

// Convert writes s applied to src into dst and returns the number of values
// that had to be clamped into the destination domain. Only
// min(len(dst), len(src)) values are converted.
func Convert[S, D Scalar](dst []D, src []S, s Scaling) (clamped int) {
	n := min(len(dst), len(src))
	lo, hi := Limits[D]()
	flo, fhi := float64(lo), float64(hi)

	if IsInteger[D]() {
		identity := s.IsIdentity()
		if identity && IsInteger[S]() {
			return convertIntegers(dst[:n], src[:n])
		}
		for i := 0; i < n; i++ {
			v := float64(src[i])
			if !identity {
				v = v*s.Scale + s.Offset
			}
			r := math.Round(v)
			switch {
			case math.IsNaN(r):
				dst[i] = 0
				clamped++
			case r < flo:
				dst[i] = lo
				clamped++
			case r > fhi:
				dst[i] = hi
				clamped++
			case r == fhi:
				// float64(hi) rounds up for 64-bit types
				dst[i] = hi
			case r == flo:
				dst[i] = lo
			default:
				dst[i] = D(r)
			}
		}
		return clamped
	}

	for i := 0; i < n; i++ {
		v := float64(src[i])*s.Scale + s.Offset
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			dst[i] = D(v)
		case v < flo:
			dst[i] = lo
			clamped++
		case v > fhi:
			dst[i] = hi
			clamped++
		default:
			dst[i] = D(v)
		}
	}
	return clamped
}

// MinMax returns the smallest and largest value of s. NaN values are
// skipped; ok is false if s holds no comparable value.
func MinMax[T Scalar](s []T) (lo, hi T, ok bool) {
	for _, v := range s {
		if v != v {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

// convertIntegers casts between integer types without a float round trip,
// which would lose precision above 2^53.
func convertIntegers[S, D Scalar](dst []D, src []S) (clamped int) {
	lo, hi := Limits[D]()
	srcSigned := IsSigned[S]()
	for i, v := range src {
		if srcSigned && int64(v) < 0 {
			if lo == 0 || int64(v) < int64(lo) {
				dst[i] = lo
				clamped++
				continue
			}
			dst[i] = D(v)
			continue
		}
		if uint64(v) > uint64(hi) {
			dst[i] = hi
			clamped++
			continue
		}
		dst[i] = D(v)
	}
	return clamped
}

// IsSigned reports whether T can hold negative values.
func IsSigned[T Scalar]() bool {
	lo, _ := Limits[T]()
	return lo < 0
}

// Differ counts the positions at which a and b differ over their common length.
func Differ[T Scalar](a, b []T) int {
	n := min(len(a), len(b))
	diff := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff
}
