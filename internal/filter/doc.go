// Package filter implements the byte transforms used when storing samples.
//
// Two families live here. Block filters ([Filter]) transform a whole
// payload in memory and are chained in a [Pipeline]:
//
//   - deflate: zlib compression via [Deflate], using compress/zlib.
//
//   - shuffle: byte shuffling via [Shuffle]. Groups byte 0 of every
//     element, then byte 1 and so on, which makes multi-byte samples
//     compress better.
//
// A pipeline encodes in order and decodes in reverse order, so a payload
// written with [shuffle, deflate] is inflated first and unshuffled second:
//
//	p, err := filter.NewPipeline([]filter.Spec{{Name: "shuffle", Param: 4}, {Name: "deflate", Param: 6}})
//	packed, err := p.Encode(raw)
//	raw, err = p.Decode(packed)
//
// Stream codecs ([Stream]) wrap readers and writers for whole compressed
// files and are looked up by file suffix with [StreamFor]: gz (gzip), bz2
// (bzip2, read only) and z (zlib).
package filter
