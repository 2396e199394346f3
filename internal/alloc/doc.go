// Package alloc provides accounted heap allocation for sample buffers.
//
// Sample buffers can be large, and a failed allocation must surface as an
// error rather than bring the process down. The [Allocator] enforces an
// optional byte limit and records every live allocation so a caller can
// report memory use or check for leaks.
//
// # Allocator
//
// The [Allocator] type is safe for concurrent use:
//
//   - Limited allocation: a request that would push the bytes in use past
//     the limit fails with [ErrLimitExceeded]. A limit of 0 means unlimited.
//   - Aligned memory: every block starts on an 8-byte boundary, so it can be
//     viewed as any scalar type up to 64 bits.
//   - Allocation tracking: live blocks are recorded with an optional tag for
//     debugging and validation.
//
// # Usage
//
//	a := alloc.New(512 << 20) // 512 MiB budget
//	mem, id, err := a.Alloc(4096, "chunk")
//	...
//	a.Free(id)
package alloc
