package alloc

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"unsafe"
)

// ErrLimitExceeded is returned when an allocation would exceed the limit.
var ErrLimitExceeded = errors.New("alloc: memory limit exceeded")

// Allocator hands out aligned zeroed memory within an optional byte limit.
type Allocator struct {
	mu sync.Mutex

	// limit is the maximum number of bytes in use; 0 means unlimited
	limit uint64

	// inUse is the number of bytes currently allocated
	inUse uint64

	nextID uint64

	// live tracks all allocations not yet freed
	live map[uint64]Allocation

	stats Stats
}

// Allocation represents a single live allocation.
type Allocation struct {
	ID   uint64
	Size uint64
	Tag  string // Optional tag for debugging
}

// Stats contains allocation statistics.
type Stats struct {
	TotalAllocations uint64 // Number of allocations made
	TotalBytesAlloc  uint64 // Total bytes allocated
	TotalBytesFree   uint64 // Total bytes freed
	LargestAlloc     uint64 // Largest single allocation
	InUse            uint64 // Bytes currently allocated
	Peak             uint64 // Highest InUse seen
	Rejected         uint64 // Allocations refused by the limit
}

// New creates an Allocator with the given byte limit (0 = unlimited).
func New(limit uint64) *Allocator {
	return &Allocator{
		limit: limit,
		live:  make(map[uint64]Allocation),
	}
}

// Alloc allocates size zeroed bytes aligned to 8 bytes and returns them with
// the id to pass to Free.
func (a *Allocator) Alloc(size uint64, tag string) ([]byte, uint64, error) {
	a.mu.Lock()
	if a.limit > 0 && a.inUse+size > a.limit {
		a.stats.Rejected++
		inUse := a.inUse
		a.mu.Unlock()
		return nil, 0, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrLimitExceeded, size, inUse, a.limit)
	}
	a.inUse += size
	a.mu.Unlock()

	mem, err := Aligned(size)
	if err != nil {
		a.mu.Lock()
		a.inUse -= size
		a.stats.Rejected++
		a.mu.Unlock()
		return nil, 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.live[id] = Allocation{ID: id, Size: size, Tag: tag}

	a.stats.TotalAllocations++
	a.stats.TotalBytesAlloc += size
	if size > a.stats.LargestAlloc {
		a.stats.LargestAlloc = size
	}
	a.stats.InUse = a.inUse
	if a.inUse > a.stats.Peak {
		a.stats.Peak = a.inUse
	}
	return mem, id, nil
}

// Free returns the allocation with the given id to the budget. Unknown ids
// are ignored.
func (a *Allocator) Free(id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	al, ok := a.live[id]
	if !ok {
		return
	}
	delete(a.live, id)
	a.inUse -= al.Size
	a.stats.TotalBytesFree += al.Size
	a.stats.InUse = a.inUse
}

// Stats returns a copy of the allocation statistics.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Allocations returns the live allocations (for debugging).
func (a *Allocator) Allocations() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := make([]Allocation, 0, len(a.live))
	for _, al := range a.live {
		result = append(result, al)
	}
	return result
}

// Validate checks the bookkeeping: the bytes in use must equal the sum of
// live allocations and stay within the limit.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var sum uint64
	for _, al := range a.live {
		sum += al.Size
	}
	if sum != a.inUse {
		return fmt.Errorf("live allocations sum to %d bytes, %d recorded in use", sum, a.inUse)
	}
	if a.limit > 0 && a.inUse > a.limit {
		return fmt.Errorf("%d bytes in use exceed limit %d", a.inUse, a.limit)
	}
	return nil
}

// Aligned returns size zeroed bytes starting on an 8-byte boundary.
func Aligned(size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size > math.MaxInt-7 {
		return nil, fmt.Errorf("alloc: size %d not addressable", size)
	}
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size), nil
}
