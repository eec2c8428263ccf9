// Package memory implements the WebAssembly linear-memory contract on top
// of a platform page allocator (internal/platform): bounds-checked
// read/write/copy, page-granular growth, and the shared-memory variant
// whose atomic operations route through internal/atomicmem.
package memory

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/platform"
	"github.com/wrt-go/wrt/internal/provider"
)

// Memory is a WebAssembly linear memory: a sequence of 64 KiB pages backed
// by a platform.Allocator, with a current and maximum page count.
type Memory struct {
	allocator platform.Allocator
	provider  *provider.Provider

	data         []byte
	currentPages uint32
	maxPages     uint32
	level        provider.VerificationLevel

	shared bool
	atomic AtomicModel // nil unless Shared(); see atomicmem.Model for the real implementation
}

// AtomicModel is the seam internal/atomicmem's Model implements. Memory
// only needs to know how to route atomic operations to it, not its
// internals — this avoids an import cycle (atomicmem needs to read/write
// Memory's bytes, Memory needs to dispatch into atomicmem).
type AtomicModel interface {
	Attach(mem *Memory)
}

// New allocates a Memory with initialPages*64KiB backed by allocator,
// growable up to maxPages, reserving capacity from p for budget-accounting
// purposes (the actual bytes live in the allocator's region, not p's arena
// — p.Reserve tracks the crate's accounting of this allocation).
func New(allocator platform.Allocator, p *provider.Provider, initialPages, maxPages uint32, level provider.VerificationLevel) (*Memory, error) {
	region, err := allocator.Allocate(initialPages, maxPages)
	if err != nil {
		return nil, err
	}
	if p != nil {
		if err := p.Reserve(int64(len(region))); err != nil {
			_ = allocator.Deallocate(region)
			return nil, err
		}
	}
	return &Memory{
		allocator:    allocator,
		provider:     p,
		data:         region,
		currentPages: initialPages,
		maxPages:     maxPages,
		level:        level,
	}, nil
}

// MakeShared marks this memory as shared and attaches an atomic model.
func (m *Memory) MakeShared(model AtomicModel) {
	m.shared = true
	m.atomic = model
	if model != nil {
		model.Attach(m)
	}
}

// IsShared reports whether this memory carries an atomic model.
func (m *Memory) IsShared() bool { return m.shared }

// CurrentPages returns the current page count.
func (m *Memory) CurrentPages() uint32 { return m.currentPages }

// MaxPages returns the maximum page count (0 means unbounded within
// WebAssembly's own 4 GiB address-space limit).
func (m *Memory) MaxPages() uint32 { return m.maxPages }

// SizeBytes returns the current memory size in bytes.
func (m *Memory) SizeBytes() int { return len(m.data) }

// Grow attempts to grow by delta pages. On success it returns the pre-grow
// page count; on failure (would exceed max, or allocator failure) it
// returns -1. It never partially grows: either the whole delta applies or
// none of it does.
func (m *Memory) Grow(delta uint32) int64 {
	if delta == 0 {
		return int64(m.currentPages)
	}
	newPages := m.currentPages + delta
	if m.maxPages != 0 && newPages > m.maxPages {
		return -1
	}
	grown, err := m.allocator.Grow(m.data, m.currentPages, delta)
	if err != nil {
		return -1
	}
	if m.provider != nil {
		if err := m.provider.Reserve(int64(len(grown) - len(m.data))); err != nil {
			return -1
		}
	}
	old := m.currentPages
	m.data = grown
	m.currentPages = newPages
	return int64(old)
}

func (m *Memory) checkBounds(offset, length uint64) error {
	size := uint64(len(m.data))
	if offset > size || length > size-offset {
		return errors.MemoryOutOfBounds(offset, length, size)
	}
	return nil
}

// Read returns a bounds-checked copy of length bytes starting at offset.
func (m *Memory) Read(offset, length uint64) ([]byte, error) {
	if err := m.checkBounds(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.data[offset:offset+length])
	return out, nil
}

// View returns a bounds-checked slice directly into the memory's backing
// bytes, for callers (the interpreter, the atomic model) that need to
// mutate in place without a copy round-trip. Callers must not retain the
// slice across a Grow, which may reallocate the backing array.
func (m *Memory) View(offset, length uint64) ([]byte, error) {
	if err := m.checkBounds(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

// Write bounds-checks and copies bytes into memory starting at offset.
func (m *Memory) Write(offset uint64, bytes []byte) error {
	if err := m.checkBounds(offset, uint64(len(bytes))); err != nil {
		return err
	}
	copy(m.data[offset:], bytes)
	return nil
}

// CopyWithin copies length bytes from src to dst, bounds-checking both
// ranges. Overlapping ranges are handled correctly (memmove semantics).
func (m *Memory) CopyWithin(dst, src, length uint64) error {
	if err := m.checkBounds(src, length); err != nil {
		return err
	}
	if err := m.checkBounds(dst, length); err != nil {
		return err
	}
	copy(m.data[dst:dst+length], m.data[src:src+length])
	return nil
}

// EnsureUsedUpTo grows memory just enough to cover offset, or fails if that
// would exceed max pages.
func (m *Memory) EnsureUsedUpTo(offset uint64) error {
	size := uint64(len(m.data))
	if offset < size {
		return nil
	}
	neededPages := uint32((offset - size + platform.PageSize) / platform.PageSize)
	if m.Grow(neededPages) == -1 {
		return errors.MemoryOutOfBounds(offset, 0, size)
	}
	return nil
}

// VerificationLevel returns the memory's configured checksum verification
// level (inherited from its provider grant).
func (m *Memory) VerificationLevel() provider.VerificationLevel { return m.level }

// Close releases the memory's backing region via its allocator.
func (m *Memory) Close() error {
	return m.allocator.Deallocate(m.data)
}
