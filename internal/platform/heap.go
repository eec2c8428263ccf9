package platform

// HeapAllocator backs linear memory with plain Go-heap byte slices. It is
// the reference allocator used whenever no platform-specific allocator
// (QNX, VxWorks, Zephyr, Tock, mmap) is plugged in, and is what tests and
// non-memory-constrained hosts use by default.
type HeapAllocator struct{}

// NewHeapAllocator creates a HeapAllocator.
func NewHeapAllocator() *HeapAllocator { return &HeapAllocator{} }

func (h *HeapAllocator) Allocate(initialPages, maxPages uint32) ([]byte, error) {
	if err := validatePages(initialPages, maxPages); err != nil {
		return nil, err
	}
	return make([]byte, pagesToBytes(initialPages)), nil
}

// Grow returns a new, larger slice with the old contents copied in. The
// heap allocator has no in-place growth, so old==new aliasing is never
// guaranteed — callers must always use the returned slice.
func (h *HeapAllocator) Grow(current []byte, oldPages, additionalPages uint32) ([]byte, error) {
	newPages := oldPages + additionalPages
	next := make([]byte, pagesToBytes(newPages))
	copy(next, current)
	return next, nil
}

// Deallocate is a no-op for the heap allocator; the garbage collector
// reclaims the slice once unreferenced.
func (h *HeapAllocator) Deallocate(region []byte) error { return nil }
