// Package dtype provides the numeric kernels behind typed sample buffers.
//
// Sample buffers store raw bytes and hand this package typed views of them.
// Everything here works on the ten scalar component types (signed and
// unsigned integers of 8, 16, 32 and 64 bits plus float32 and float64);
// aggregate element types such as complex numbers, color triples and small
// vectors are expressed by their callers as runs of components.
//
// # Views
//
// [Cast] reinterprets a byte slice as a slice of a scalar type without
// copying. The byte slice must be aligned to the component width, which
// holds for every buffer allocated or mapped by this module.
//
// # Scaling
//
// [ComputeScaling] derives the linear transform used when a value range is
// narrowed into an integer domain:
//
//	dst = clamp(round(src*Scale + Offset))
//
// Rounding is half away from zero. Scaling only happens for integer
// destinations; float destinations are plain casts. The offset moves the
// source range towards zero when it lies entirely on one side, or when the
// destination has no negative (or no positive) half. The scale is the
// smaller of the two factors that fit the shifted range into the positive
// and negative halves of the destination.
//
//	Mode       | Behaviour
//	-----------|------------------------------------------------------
//	NoScale    | plain cast with clamping
//	AutoScale  | scale up or down; integer sources never scale up
//	NoUpscale  | scale down only
//
// # Conversion
//
// [Convert] applies a [Scaling] element by element and reports how many
// values were clamped (overflow, lost sign, NaN into an integer). Callers
// decide whether clamping is a warning or an error.
//
// # Key Functions
//
//   - [Cast]: Reinterpret bytes as a scalar slice
//   - [Limits]: Representable range of a scalar type
//   - [ComputeScaling]: Derive scale and offset for a value range
//   - [Convert]: Scale, round and clamp one slice into another
//   - [MinMax]: Smallest and largest value of a slice
//   - [SwapBytes]: Reverse byte order of fixed-width components in place
package dtype
