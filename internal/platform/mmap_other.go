//go:build !linux && !darwin

package platform

import "github.com/wrt-go/wrt/internal/infra/errors"

// MmapAllocator is unavailable on this platform; HeapAllocator is the
// portable default everywhere mmap isn't wired up.
type MmapAllocator struct{}

func NewMmapAllocator() *MmapAllocator { return &MmapAllocator{} }

func (m *MmapAllocator) Allocate(initialPages, maxPages uint32) ([]byte, error) {
	return nil, errors.New(errors.CodeValidationError, "mmap allocator unsupported on this platform")
}

func (m *MmapAllocator) Grow(current []byte, oldPages, additionalPages uint32) ([]byte, error) {
	return nil, errors.New(errors.CodeValidationError, "mmap allocator unsupported on this platform")
}

func (m *MmapAllocator) Deallocate(region []byte) error {
	return errors.New(errors.CodeValidationError, "mmap allocator unsupported on this platform")
}
