// Package buffer provides typed, reference-counted sample buffers.
//
// A [Buffer] holds a run of elements of one [ElementType]: 8 to 64-bit
// integers, float32/float64, complex64/complex128, 8 and 16-bit color
// triples and small fixed float vectors. The element type is carried at
// runtime; each scalar kind has an entry in a dispatch table holding its
// conversion kernels, min/max and width, so adding a kind means adding one
// row there.
//
// # Ownership
//
// Buffers are handles onto shared storage:
//
//   - [Exclusive]: heap memory from [Allocate] or an [Allocator] with a
//     byte budget.
//   - [Shared]: a file mapping from [Map]. Writes go straight to the file,
//     and the last [Buffer.Release] syncs and unmaps it.
//   - [Borrowed]: caller memory from [Wrap]. The optional release callback
//     runs with the last reference.
//
// [Buffer.Slice], [Buffer.Splice] and [Buffer.Retain] return new handles
// onto the same storage. Nothing is copied implicitly; call [Buffer.Clone]
// before mutating data that other handles still read.
//
// # Conversion
//
// [Buffer.ConvertTo] maps elements onto another type. Integer destinations
// are fitted with a linear [Scaling] derived from the source range and the
// destination domain, according to the [Mode]:
//
//	u8, err := f32.ConvertTo(buffer.Uint8)                       // stretch to 0..255
//	raw, err := f32.ConvertTo(buffer.Int16, buffer.WithMode(buffer.NoScale))
//
// Values are rounded half away from zero and clamped. Clamping is logged as
// a warning, or reported as an error with [WithStrict].
package buffer
