// Package format connects files to volume chunks.
//
// A Registry holds Descriptors, one per file format. Each descriptor
// announces the filename suffixes it reads and writes and the dialects it
// understands. The Registry picks candidates from the formatstack of a
// filename, the list of its suffixes, and tries them in order:
//
//	reg := format.NewRegistry(format.WithLogger(log))
//	reg.Register(raster.New())
//	chunks, err := reg.LoadChunks(ctx, format.FileSource("scan.png"), format.StackOf("scan.png"), "", nil)
//
// Container formats (compression, archives, file lists) pop their own
// suffix and hand the rest of the stack back to the Registry through
// Delegate, which retries once with the stack derived from the literal
// file name.
package format
