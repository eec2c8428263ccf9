package memory

import (
	"testing"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/platform"
	"github.com/wrt-go/wrt/internal/provider"
)

func newTestMemory(t *testing.T, initial, max uint32) *Memory {
	t.Helper()
	p := provider.New(1, "runtime", int64(initial+max+2)*platform.PageSize, "tok")
	m, err := New(platform.NewHeapAllocator(), p, initial, max, provider.VerificationStandard)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestNewAllocatesInitialPages(t *testing.T) {
	m := newTestMemory(t, 2, 4)
	if m.CurrentPages() != 2 {
		t.Errorf("CurrentPages() = %d, want 2", m.CurrentPages())
	}
	if m.SizeBytes() != 2*platform.PageSize {
		t.Errorf("SizeBytes() = %d, want %d", m.SizeBytes(), 2*platform.PageSize)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := newTestMemory(t, 1, 1)
	data := []byte("hello wasm")
	if err := m.Write(10, data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := m.Read(10, uint64(len(data)))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Read() = %q, want %q", got, data)
	}
}

func TestReadOutOfBoundsFails(t *testing.T) {
	m := newTestMemory(t, 1, 1)
	if _, err := m.Read(uint64(platform.PageSize)-1, 10); !errors.Is(err, errors.CodeMemoryOutOfBounds) {
		t.Fatalf("Read() out of bounds error = %v, want CodeMemoryOutOfBounds", err)
	}
}

func TestGrowSucceedsWithinMax(t *testing.T) {
	m := newTestMemory(t, 1, 3)
	old := m.Grow(2)
	if old != 1 {
		t.Fatalf("Grow(2) = %d, want 1", old)
	}
	if m.CurrentPages() != 3 {
		t.Errorf("CurrentPages() = %d, want 3", m.CurrentPages())
	}
}

func TestGrowBeyondMaxFails(t *testing.T) {
	m := newTestMemory(t, 1, 1)
	if got := m.Grow(1); got != -1 {
		t.Fatalf("Grow(1) = %d, want -1", got)
	}
	if m.CurrentPages() != 1 {
		t.Errorf("CurrentPages() should be unchanged after failed grow, got %d", m.CurrentPages())
	}
}

func TestGrowPreservesData(t *testing.T) {
	m := newTestMemory(t, 1, 2)
	_ = m.Write(0, []byte("preserved"))
	m.Grow(1)
	got, err := m.Read(0, 9)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "preserved" {
		t.Errorf("Read() after Grow = %q, want %q", got, "preserved")
	}
}

func TestCopyWithinOverlapping(t *testing.T) {
	m := newTestMemory(t, 1, 1)
	_ = m.Write(0, []byte("ABCDEFGH"))
	if err := m.CopyWithin(2, 0, 6); err != nil {
		t.Fatalf("CopyWithin() error = %v", err)
	}
	got, _ := m.Read(0, 8)
	if string(got) != "ABABCDEF" {
		t.Errorf("CopyWithin() result = %q, want %q", got, "ABABCDEF")
	}
}

func TestEnsureUsedUpToGrows(t *testing.T) {
	m := newTestMemory(t, 1, 4)
	if err := m.EnsureUsedUpTo(uint64(platform.PageSize) + 100); err != nil {
		t.Fatalf("EnsureUsedUpTo() error = %v", err)
	}
	if m.CurrentPages() < 2 {
		t.Errorf("CurrentPages() = %d, want >= 2", m.CurrentPages())
	}
}

func TestEnsureUsedUpToNoOpWhenAlreadyCovered(t *testing.T) {
	m := newTestMemory(t, 2, 2)
	if err := m.EnsureUsedUpTo(10); err != nil {
		t.Fatalf("EnsureUsedUpTo() error = %v", err)
	}
	if m.CurrentPages() != 2 {
		t.Errorf("CurrentPages() = %d, want unchanged 2", m.CurrentPages())
	}
}
