// Package atomicmem implements spec.md §4.7's atomic memory model: atomic
// load/store, read-modify-write, compare-exchange, wait/notify, and fences
// over a shared internal/memory.Memory, under a configurable ordering
// policy. Grounded on the teacher's channel-and-mutex concurrency idiom
// (infrastructure/middleware/timeout.go's context-timeout-via-select
// pattern, infrastructure/datafeed/client.go's mutex-guarded shared state)
// — this module has no precedent for lock-free hardware atomics in the
// example pack, so every operation serializes through one mutex per
// Model rather than per-word compare-and-swap.
package atomicmem

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/infra/runtime"
	"github.com/wrt-go/wrt/internal/memory"
)

// Ordering is the WebAssembly atomic memory ordering discipline
// (spec.md §4.3 "Atomic Cell").
type Ordering int

const (
	OrderingRelaxed Ordering = iota
	OrderingAcquire
	OrderingRelease
	OrderingAcqRel
	OrderingSeqCst
)

// Policy selects how an Ordering request is actually honored
// (spec.md §4.7 "Memory ordering policies").
type Policy int

const (
	// PolicyStrictSequential upgrades every atomic to SeqCst regardless of
	// its encoded ordering. Required at ASIL-C/D.
	PolicyStrictSequential Policy = iota
	// PolicyRelaxed honors the encoded ordering as given.
	PolicyRelaxed
	// PolicyAdaptive uses SeqCst for cross-executor-visible addresses
	// (those that have been waited/notified on) and honors the encoded
	// ordering elsewhere.
	PolicyAdaptive
)

func (p Policy) String() string {
	switch p {
	case PolicyStrictSequential:
		return "strict_sequential"
	case PolicyRelaxed:
		return "relaxed"
	case PolicyAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// accessRecord is one entry in the per-address access ledger that
// validate_memory_consistency replays to check for undiscovered races.
type accessRecord struct {
	write bool
	order Ordering
}

// Model is the atomic memory model attached to exactly one shared
// memory.Memory (spec.md §4.3 "Shared-memory additions"). It implements
// memory.AtomicModel (the Attach seam) and interpreter.AtomicHandler (the
// twelve atomic dispatch methods) without either package needing to
// import the other's concrete type.
type Model struct {
	policy Policy

	mu      sync.Mutex
	mem     *memory.Memory
	waiters map[uint32][]chan struct{}
	ledger  map[uint32][]accessRecord
	crossed map[uint32]bool // addresses ever waited/notified, for PolicyAdaptive

	metrics *metrics.Metrics
}

// WithMetrics attaches a metrics sink; atomic wait/notify outcomes are
// recorded from that point on. Optional — a Model with no metrics attached
// behaves identically, just unobserved.
func (m *Model) WithMetrics(ms *metrics.Metrics) *Model {
	m.metrics = ms
	return m
}

// New constructs a Model under the given ordering policy. Call Attach (or
// memory.Memory.MakeShared, which calls it) before issuing any atomic
// operation.
func New(policy Policy) *Model {
	return &Model{
		policy:  policy,
		waiters: make(map[uint32][]chan struct{}),
		ledger:  make(map[uint32][]accessRecord),
		crossed: make(map[uint32]bool),
	}
}

// Attach implements memory.AtomicModel.
func (m *Model) Attach(mem *memory.Memory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem = mem
}

func (m *Model) effectiveOrdering(addr uint32, requested Ordering) Ordering {
	switch m.policy {
	case PolicyStrictSequential:
		return OrderingSeqCst
	case PolicyAdaptive:
		if m.crossed[addr] {
			return OrderingSeqCst
		}
		return requested
	default:
		return requested
	}
}

func (m *Model) record(addr uint32, write bool, order Ordering) {
	const maxLedgerPerAddr = 64
	entries := m.ledger[addr]
	if len(entries) >= maxLedgerPerAddr {
		entries = entries[1:]
	}
	m.ledger[addr] = append(entries, accessRecord{write: write, order: order})
}

func (m *Model) view(addr uint32, size uint64) ([]byte, error) {
	if m.mem == nil {
		return nil, errors.ValidationError("atomic operation on unattached memory model")
	}
	if uint64(addr)%size != 0 {
		return nil, errors.Trap("misaligned atomic access")
	}
	return m.mem.View(uint64(addr), size)
}

// AtomicLoad32 and AtomicLoad64 implement interpreter.AtomicHandler.
func (m *Model) AtomicLoad32(addr uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 4)
	if err != nil {
		return 0, err
	}
	m.record(addr, false, m.effectiveOrdering(addr, OrderingAcquire))
	return binary.LittleEndian.Uint32(buf), nil
}

func (m *Model) AtomicLoad64(addr uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 8)
	if err != nil {
		return 0, err
	}
	m.record(addr, false, m.effectiveOrdering(addr, OrderingAcquire))
	return binary.LittleEndian.Uint64(buf), nil
}

func (m *Model) AtomicStore32(addr uint32, val uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf, val)
	m.record(addr, true, m.effectiveOrdering(addr, OrderingRelease))
	return nil
}

func (m *Model) AtomicStore64(addr uint32, val uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf, val)
	m.record(addr, true, m.effectiveOrdering(addr, OrderingRelease))
	return nil
}

func (m *Model) AtomicRMWAdd32(addr uint32, val uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 4)
	if err != nil {
		return 0, err
	}
	old := binary.LittleEndian.Uint32(buf)
	binary.LittleEndian.PutUint32(buf, old+val)
	m.record(addr, true, m.effectiveOrdering(addr, OrderingSeqCst))
	return old, nil
}

func (m *Model) AtomicRMWAdd64(addr uint32, val uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 8)
	if err != nil {
		return 0, err
	}
	old := binary.LittleEndian.Uint64(buf)
	binary.LittleEndian.PutUint64(buf, old+val)
	m.record(addr, true, m.effectiveOrdering(addr, OrderingSeqCst))
	return old, nil
}

func (m *Model) AtomicCmpxchg32(addr uint32, expected, replacement uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 4)
	if err != nil {
		return 0, err
	}
	old := binary.LittleEndian.Uint32(buf)
	if old == expected {
		binary.LittleEndian.PutUint32(buf, replacement)
	}
	m.record(addr, old == expected, m.effectiveOrdering(addr, OrderingSeqCst))
	return old, nil
}

func (m *Model) AtomicCmpxchg64(addr uint32, expected, replacement uint64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf, err := m.view(addr, 8)
	if err != nil {
		return 0, err
	}
	old := binary.LittleEndian.Uint64(buf)
	if old == expected {
		binary.LittleEndian.PutUint64(buf, replacement)
	}
	m.record(addr, old == expected, m.effectiveOrdering(addr, OrderingSeqCst))
	return old, nil
}

// Wait-result codes, matching the WebAssembly threads proposal:
// 0 = woken by a matching notify, 1 = expected value did not match at
// call time, 2 = timed out.
const (
	WaitOK        int32 = 0
	WaitMismatch  int32 = 1
	WaitTimedOut  int32 = 2
)

func (m *Model) wait(addr uint32, load func() (uint64, error), expected uint64, timeoutNS int64) (int32, error) {
	m.mu.Lock()
	if m.mem == nil {
		m.mu.Unlock()
		return 0, errors.ValidationError("wait on unattached memory model")
	}
	if !m.mem.IsShared() {
		m.mu.Unlock()
		return 0, errors.ValidationError("wait on non-shared memory")
	}
	cur, err := load()
	if err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if cur != expected {
		m.mu.Unlock()
		m.recordWait("mismatch")
		return WaitMismatch, nil
	}
	m.crossed[addr] = true
	ch := make(chan struct{})
	m.waiters[addr] = append(m.waiters[addr], ch)
	m.mu.Unlock()

	// Strict-determinism builds never block on wall-clock time (ASIL's
	// determinism requirement): a wait that isn't immediately satisfied by
	// a notify already in flight times out rather than sleeping. No
	// fuel-quantum-based timeout accounting is done for a wait, here or in
	// internal/fuel/executor.
	if runtime.StrictDeterminismMode() {
		select {
		case <-ch:
			m.recordWait("ok")
			return WaitOK, nil
		default:
			m.recordWait("timed_out")
			return WaitTimedOut, nil
		}
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeoutNS >= 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutNS))
		defer cancel()
	}
	select {
	case <-ch:
		m.recordWait("ok")
		return WaitOK, nil
	case <-ctx.Done():
		m.recordWait("timed_out")
		return WaitTimedOut, nil
	}
}

func (m *Model) recordWait(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordAtomicWait(outcome)
	}
}

// AtomicWait32 and AtomicWait64 read the current value through view, not
// AtomicLoad32/64: wait calls load with m.mu already held.
func (m *Model) AtomicWait32(addr uint32, expected uint32, timeoutNS int64) (int32, error) {
	return m.wait(addr, func() (uint64, error) {
		buf, err := m.view(addr, 4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	}, uint64(expected), timeoutNS)
}

func (m *Model) AtomicWait64(addr uint32, expected uint64, timeoutNS int64) (int32, error) {
	return m.wait(addr, func() (uint64, error) {
		buf, err := m.view(addr, 8)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(buf), nil
	}, expected, timeoutNS)
}

// AtomicNotify wakes up to count waiters blocked on addr, returning the
// number actually woken.
func (m *Model) AtomicNotify(addr uint32, count uint32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crossed[addr] = true
	waiters := m.waiters[addr]
	n := uint32(0)
	for len(waiters) > 0 && n < count {
		close(waiters[0])
		waiters = waiters[1:]
		n++
	}
	m.waiters[addr] = waiters
	if m.metrics != nil && n > 0 {
		m.metrics.RecordAtomicNotify(fmt.Sprintf("%d", addr), int(n))
	}
	return n, nil
}

// AtomicFence is a no-op under this mutex-serialized model: every atomic
// operation already happens under a single Model-wide critical section,
// so there is no weaker-than-SeqCst state for a fence to flush.
func (m *Model) AtomicFence() {}

// ValidateMemoryConsistency replays the access ledger looking for a
// write observed with no ordering strong enough to establish a
// happens-before edge with a concurrent write to the same address
// (spec.md §4.7 "Consistency validation"). It is an offline/test-mode
// check, not called from the hot path.
func (m *Model) ValidateMemoryConsistency() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for addr, entries := range m.ledger {
		writes := 0
		for _, e := range entries {
			if e.write && e.order == OrderingRelaxed {
				writes++
			}
		}
		if writes > 1 {
			return errors.IntegrityViolation("unordered concurrent writes at address").
				WithDetail(fmt.Sprintf("addr=%d", addr))
		}
	}
	return nil
}
