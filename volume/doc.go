// Package volume assembles chunks, blocks of up to four dimensions with
// attached properties, into images.
//
// A Chunk pairs a buffer.Buffer with a Geometry (rows, columns, slices,
// timesteps; rows vary fastest) and a props.Set. Chunks can be spliced
// into lower rank pieces that share storage, reversed along an axis and
// copied block-wise.
//
// An Assembler groups chunks by a tuple of primary key properties and
// orders each group by secondary key properties. ReIndex then lays the
// group members out along the first axis above the chunk shape and the
// groups along the next axis:
//
//	a := volume.NewAssembler(volume.WithStrict(true))
//	for _, c := range chunks {
//		if err := a.Insert(c); err != nil {
//			return err
//		}
//	}
//	img, err := a.ReIndex()
//
// BuildImages does the same for a mixed list of chunks and returns every
// image that can be formed.
package volume
