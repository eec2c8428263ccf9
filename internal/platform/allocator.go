// Package platform defines the page allocator plug-in contract linear
// memory is built on, plus two reference implementations: a heap-backed
// allocator usable on any platform, and an mmap-backed allocator for
// Linux/Darwin. Platform-specific allocators (QNX, VxWorks, Zephyr, Tock)
// are out of scope — they implement the same Allocator interface.
package platform

import "github.com/wrt-go/wrt/internal/infra/errors"

// PageSize is the WebAssembly linear-memory page size: 64 KiB.
const PageSize = 64 * 1024

// Allocator is the page-grant/page-release contract a platform plugs in
// beneath linear memory (spec.md §6 "Page allocator contract").
type Allocator interface {
	// Allocate reserves initialPages*PageSize bytes, growable up to
	// maxPages*PageSize, and returns the backing byte slice.
	Allocate(initialPages, maxPages uint32) ([]byte, error)
	// Grow extends a previously allocated region from oldPages to
	// oldPages+additionalPages, returning the new backing slice (which
	// may or may not alias the old one, depending on the allocator).
	Grow(current []byte, oldPages, additionalPages uint32) ([]byte, error)
	// Deallocate releases a previously allocated region.
	Deallocate(region []byte) error
}

// Name identifies an allocator implementation for logging/metrics.
type Name string

const (
	NameHeap Name = "heap"
	NameMmap Name = "mmap"
)

func validatePages(initialPages, maxPages uint32) error {
	if maxPages != 0 && initialPages > maxPages {
		return errors.ValidationError("initial_pages exceeds max_pages")
	}
	return nil
}

func pagesToBytes(pages uint32) int64 {
	return int64(pages) * PageSize
}

// allocationFailed wraps an allocation failure as a RuntimeError.
func allocationFailed(reason string) error {
	return errors.New(errors.CodeResourceLimit, "page allocation failed").WithDetail(reason)
}
