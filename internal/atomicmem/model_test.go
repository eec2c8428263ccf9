package atomicmem

import (
	"testing"
	"time"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/runtime"
	"github.com/wrt-go/wrt/internal/memory"
	"github.com/wrt-go/wrt/internal/platform"
	"github.com/wrt-go/wrt/internal/provider"
)

func testSharedMemory(t *testing.T, policy Policy) (*memory.Memory, *Model) {
	t.Helper()
	p := provider.New(1, "atomicmem-test", 1<<20, "tok")
	mem, err := memory.New(platform.NewHeapAllocator(), p, 1, 1, provider.VerificationStandard)
	if err != nil {
		t.Fatalf("memory.New() error = %v", err)
	}
	model := New(policy)
	mem.MakeShared(model)
	return mem, model
}

func TestAttachViaMakeShared(t *testing.T) {
	mem, model := testSharedMemory(t, PolicyRelaxed)
	if !mem.IsShared() {
		t.Fatal("IsShared() = false, want true")
	}
	if model.mem != mem {
		t.Fatal("Attach did not record the memory")
	}
}

func TestStoreThenLoadRoundTrips32(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	if err := model.AtomicStore32(0, 42); err != nil {
		t.Fatalf("AtomicStore32() error = %v", err)
	}
	got, err := model.AtomicLoad32(0)
	if err != nil {
		t.Fatalf("AtomicLoad32() error = %v", err)
	}
	if got != 42 {
		t.Errorf("AtomicLoad32() = %d, want 42", got)
	}
}

func TestAtomicRMWAddReturnsOldValue(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	if err := model.AtomicStore32(0, 10); err != nil {
		t.Fatalf("AtomicStore32() error = %v", err)
	}
	old, err := model.AtomicRMWAdd32(0, 5)
	if err != nil {
		t.Fatalf("AtomicRMWAdd32() error = %v", err)
	}
	if old != 10 {
		t.Errorf("old = %d, want 10", old)
	}
	got, _ := model.AtomicLoad32(0)
	if got != 15 {
		t.Errorf("AtomicLoad32() after add = %d, want 15", got)
	}
}

func TestCmpxchgSucceedsOnMatch(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	_ = model.AtomicStore32(0, 7)
	old, err := model.AtomicCmpxchg32(0, 7, 99)
	if err != nil {
		t.Fatalf("AtomicCmpxchg32() error = %v", err)
	}
	if old != 7 {
		t.Errorf("old = %d, want 7", old)
	}
	got, _ := model.AtomicLoad32(0)
	if got != 99 {
		t.Errorf("post-cmpxchg value = %d, want 99", got)
	}
}

func TestCmpxchgFailsOnMismatch(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	_ = model.AtomicStore32(0, 7)
	old, err := model.AtomicCmpxchg32(0, 6, 99)
	if err != nil {
		t.Fatalf("AtomicCmpxchg32() error = %v", err)
	}
	if old != 7 {
		t.Errorf("old = %d, want 7", old)
	}
	got, _ := model.AtomicLoad32(0)
	if got != 7 {
		t.Errorf("value should be unchanged, got %d", got)
	}
}

func TestMisalignedAccessTraps(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	_, err := model.AtomicLoad32(3)
	if !errors.Is(err, errors.CodeTrap) {
		t.Fatalf("err = %v, want TRAP", err)
	}
}

func TestWaitOnNonSharedMemoryIsValidationError(t *testing.T) {
	p := provider.New(2, "atomicmem-test", 1<<20, "tok")
	mem, err := memory.New(platform.NewHeapAllocator(), p, 1, 1, provider.VerificationStandard)
	if err != nil {
		t.Fatalf("memory.New() error = %v", err)
	}
	model := New(PolicyRelaxed)
	model.Attach(mem) // attached but never MakeShared

	_, err = model.AtomicWait32(0, 0, 1_000_000)
	if !errors.Is(err, errors.CodeValidationError) {
		t.Fatalf("err = %v, want VALIDATION_ERROR", err)
	}
}

func TestWaitReturnsMismatchWhenValueAlreadyDiffers(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	_ = model.AtomicStore32(0, 5)
	result, err := model.AtomicWait32(0, 99, int64(time.Second))
	if err != nil {
		t.Fatalf("AtomicWait32() error = %v", err)
	}
	if result != WaitMismatch {
		t.Errorf("result = %d, want WaitMismatch", result)
	}
}

func TestNotifyWakesWaiter(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	_ = model.AtomicStore32(0, 5)

	done := make(chan int32, 1)
	go func() {
		result, err := model.AtomicWait32(0, 5, int64(5*time.Second))
		if err != nil {
			done <- -1
			return
		}
		done <- result
	}()

	// Give the waiter time to register before notifying.
	time.Sleep(20 * time.Millisecond)
	n, err := model.AtomicNotify(0, 1)
	if err != nil {
		t.Fatalf("AtomicNotify() error = %v", err)
	}
	if n != 1 {
		t.Errorf("notified = %d, want 1", n)
	}

	select {
	case result := <-done:
		if result != WaitOK {
			t.Errorf("wait result = %d, want WaitOK", result)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was never woken")
	}
}

func TestWaitTimesOutUnderStrictDeterminism(t *testing.T) {
	t.Setenv("WRT_DETERMINISTIC", "1")
	runtime.ResetStrictDeterminismModeCache()
	t.Cleanup(runtime.ResetStrictDeterminismModeCache)

	_, model := testSharedMemory(t, PolicyRelaxed)
	_ = model.AtomicStore32(0, 5)
	result, err := model.AtomicWait32(0, 5, int64(time.Hour))
	if err != nil {
		t.Fatalf("AtomicWait32() error = %v", err)
	}
	if result != WaitTimedOut {
		t.Errorf("result = %d, want WaitTimedOut (strict determinism never blocks)", result)
	}
}

func TestStrictSequentialPolicyUpgradesOrdering(t *testing.T) {
	_, model := testSharedMemory(t, PolicyStrictSequential)
	_ = model.AtomicStore32(0, 1)
	if got := model.effectiveOrdering(0, OrderingRelaxed); got != OrderingSeqCst {
		t.Errorf("effectiveOrdering() = %v, want SeqCst under strict-sequential policy", got)
	}
}

func TestValidateMemoryConsistencyFlagsUnorderedConcurrentWrites(t *testing.T) {
	_, model := testSharedMemory(t, PolicyRelaxed)
	model.record(0, true, OrderingRelaxed)
	model.record(0, true, OrderingRelaxed)
	if err := model.ValidateMemoryConsistency(); !errors.Is(err, errors.CodeIntegrityViolation) {
		t.Fatalf("err = %v, want INTEGRITY_VIOLATION", err)
	}
}
