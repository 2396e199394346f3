// Package props implements hierarchical property sets.
//
// A [Set] maps slash-delimited, case-insensitive paths such as
// "dicom/sequenceNumber" to a [Value] of zero or more typed items, or to a
// nested Set. Chunks and images carry their metadata in a Set, and the
// assembler groups chunks by comparing values at configured paths.
//
//	s := props.New()
//	s.Set("voxelSize", props.Vec3([3]float64{1, 1, 3}))
//	s.Set("acquisitionNumber", props.Int(4))
//	if !s.IsSufficient([]string{"voxelSize", "indexOrigin"}) {
//		// not enough metadata to place the chunk
//	}
//
// A path holding a Value with no items is present but empty: Has reports
// true, IsSufficient does not accept it.
package props
