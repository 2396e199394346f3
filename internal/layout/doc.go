// Package layout copies rectangular regions between N-dimensional sample
// arrays.
//
// Arrays are stored with the first dimension varying fastest: in a volume of
// dims (rows, columns, slices, timesteps) the element at (r, c, s, t) sits at
// linear index r + c*rows + s*rows*columns + t*rows*columns*slices. Every
// function takes the element width in bytes and works on raw memory, so it
// applies to any sample type.
//
// # Box Copying
//
// [CopyBox] moves a box of count elements per dimension from one array to
// another. It walks the dimensions from the slowest inwards:
//
//  1. For each position in the current dimension, advance the source and
//     destination offsets by that dimension's stride
//  2. Recurse to the next faster dimension
//  3. At dimension 0, copy one contiguous run of count[0] elements
//
// Runs along dimension 0 are contiguous in both arrays, so a full-width box
// degenerates into a single copy per row of the next dimension.
//
// # Key Functions
//
//   - [Strides]: byte stride of each dimension
//   - [Linear]: linear element index of a coordinate
//   - [CopyBox]: box copy between two arrays
//   - [Reverse]: in-place reversal along one dimension
package layout
