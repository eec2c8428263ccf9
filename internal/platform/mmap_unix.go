//go:build linux || darwin

package platform

import (
	"golang.org/x/sys/unix"
)

// MmapAllocator backs linear memory with anonymous mmap regions on
// Linux/Darwin. It exists to exercise a real platform allocator beneath
// the page-grant/page-release contract, not to be the production default —
// HeapAllocator remains the default for portability.
type MmapAllocator struct{}

// NewMmapAllocator creates an MmapAllocator.
func NewMmapAllocator() *MmapAllocator { return &MmapAllocator{} }

func (m *MmapAllocator) Allocate(initialPages, maxPages uint32) ([]byte, error) {
	if err := validatePages(initialPages, maxPages); err != nil {
		return nil, err
	}
	size := pagesToBytes(initialPages)
	if size == 0 {
		return []byte{}, nil
	}
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, allocationFailed(err.Error())
	}
	return region, nil
}

// Grow mmaps a fresh, larger region, copies the old contents in, and
// unmaps the old region. True in-place mremap is Linux-only and not
// portable to Darwin, so this allocator always grows via copy.
func (m *MmapAllocator) Grow(current []byte, oldPages, additionalPages uint32) ([]byte, error) {
	newPages := oldPages + additionalPages
	next, err := m.Allocate(newPages, 0)
	if err != nil {
		return nil, err
	}
	copy(next, current)
	if len(current) > 0 {
		_ = unix.Munmap(current)
	}
	return next, nil
}

func (m *MmapAllocator) Deallocate(region []byte) error {
	if len(region) == 0 {
		return nil
	}
	if err := unix.Munmap(region); err != nil {
		return allocationFailed(err.Error())
	}
	return nil
}
