package resource

import (
	"testing"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/types"
	"github.com/wrt-go/wrt/internal/valuestore"
)

func TestCreateAndGet(t *testing.T) {
	m := New(4)
	h, err := m.Create(valuestore.NewU32(42), types.TypeRef(1), 1, 10, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	v, typeRef, err := m.Get(h)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v.AsS32() != 42 || int32(typeRef) != 1 {
		t.Fatalf("Get() = %v, %v", v, typeRef)
	}
}

func TestCreateFailsWhenCapacityExceeded(t *testing.T) {
	m := New(1)
	if _, err := m.Create(valuestore.NewU32(1), 0, 1, 1, nil); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	_, err := m.Create(valuestore.NewU32(2), 0, 1, 1, nil)
	if !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Fatalf("err = %v, want CAPACITY_EXCEEDED", err)
	}
}

func TestDropRunsDestructorAtZeroRefcount(t *testing.T) {
	m := New(4)
	ran := false
	h, err := m.Create(valuestore.NewU32(7), 0, 1, 1, func(valuestore.ComponentValue) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Drop(h); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if !ran {
		t.Fatal("destructor did not run")
	}
}

func TestAcquireDefersDestructionUntilLastRelease(t *testing.T) {
	m := New(4)
	ran := false
	h, _ := m.Create(valuestore.NewU32(7), 0, 1, 1, func(valuestore.ComponentValue) error {
		ran = true
		return nil
	})
	guard, err := m.Acquire(h)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := m.Drop(h); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if ran {
		t.Fatal("destructor ran while a Guard was still outstanding")
	}
	if err := guard.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !ran {
		t.Fatal("destructor did not run after last release")
	}
}

func TestStaleHandleAfterDropIsRejected(t *testing.T) {
	m := New(4)
	h, _ := m.Create(valuestore.NewU32(1), 0, 1, 1, nil)
	if err := m.Drop(h); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if _, _, err := m.Get(h); !errors.Is(err, errors.CodeResourceNotFound) {
		t.Fatalf("err = %v, want RESOURCE_NOT_FOUND", err)
	}
}

func TestReusedSlotGetsFreshGeneration(t *testing.T) {
	m := New(1)
	h1, _ := m.Create(valuestore.NewU32(1), 0, 1, 1, nil)
	if err := m.Drop(h1); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	h2, err := m.Create(valuestore.NewU32(2), 0, 1, 1, nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if h2.Index != h1.Index {
		t.Fatalf("expected slot reuse, got index %d want %d", h2.Index, h1.Index)
	}
	if h2.Generation == h1.Generation {
		t.Fatal("reused slot kept the same generation")
	}
	if _, _, err := m.Get(h1); !errors.Is(err, errors.CodeResourceNotFound) {
		t.Fatalf("stale handle err = %v, want RESOURCE_NOT_FOUND", err)
	}
}

func TestTransferRequiresCurrentOwner(t *testing.T) {
	m := New(4)
	h, _ := m.Create(valuestore.NewU32(1), 0, 1, 1, nil)
	if err := m.Transfer(h, 2, 3); !errors.Is(err, errors.CodeValidationError) {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
	if err := m.Transfer(h, 1, 3); err != nil {
		t.Fatalf("Transfer() by owner error = %v", err)
	}
}

func TestListCreatedByReturnsOnlyMatchingLiveHandles(t *testing.T) {
	m := New(4)
	h1, _ := m.Create(valuestore.NewU32(1), 0, 1, 100, nil)
	_, _ = m.Create(valuestore.NewU32(2), 0, 1, 200, nil)
	h3, _ := m.Create(valuestore.NewU32(3), 0, 1, 100, nil)

	got := m.ListCreatedBy(100)
	if len(got) != 2 {
		t.Fatalf("ListCreatedBy() = %v, want 2 handles", got)
	}
	seen := map[Handle]bool{h1: true, h3: true}
	for _, h := range got {
		if !seen[h] {
			t.Errorf("unexpected handle %v in result", h)
		}
	}

	if err := m.Drop(h1); err != nil {
		t.Fatalf("Drop() error = %v", err)
	}
	if got := m.ListCreatedBy(100); len(got) != 1 {
		t.Fatalf("after drop, ListCreatedBy() = %v, want 1 handle", got)
	}
}
