// Package preempt decides when a running task must yield to a
// higher-priority task or because its fuel quantum has expired, and
// checkpoints its resumable state (spec.md §4.9 "Preemption"). Grounded
// on original_source/wrt-component/src/async_/fuel_preemption_support.rs's
// FuelPreemptionManager/PreemptionState/PreemptionReason, reshaped from
// atomics-guarded fields (AtomicU32/AtomicU64/AtomicBool) into a single
// mutex-guarded map — this module has no lock-free-atomics precedent
// anywhere in the example pack (see internal/atomicmem's identical
// reasoning), so one mutex per Manager replaces the per-field atomics.
package preempt

import (
	"context"
	"sync"

	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
)

// Reason is why a task was preempted.
type Reason int

const (
	ReasonPriority Reason = iota
	ReasonDeadline
	ReasonFuelQuantum
	ReasonSystem
	ReasonVoluntary
)

func (r Reason) String() string {
	switch r {
	case ReasonPriority:
		return "priority"
	case ReasonDeadline:
		return "deadline"
	case ReasonFuelQuantum:
		return "fuel_quantum"
	case ReasonSystem:
		return "system"
	case ReasonVoluntary:
		return "voluntary"
	default:
		return "unknown"
	}
}

// Checkpoint is the minimal resumable state saved at a preemption point
// (spec.md §4.9: "checkpointed (stack pointer, program counter, fuel
// remaining) at the nearest safe point").
type Checkpoint struct {
	StackPointer   uint32
	ProgramCounter uint32
	FuelRemaining  int64
}

type taskState struct {
	preemptible     bool
	quantum         int64
	fuelSinceCheck  int64
	preemptionCount uint32
	checkpoint      Checkpoint
	hasCheckpoint   bool
}

// Manager tracks per-task preemptibility and quanta, and decides whether
// a running task must yield.
type Manager struct {
	mu      sync.Mutex
	enabled bool
	tasks   map[uint64]*taskState

	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New constructs a preemption Manager. enabled mirrors
// PreemptionPolicy != Disabled in the original crate; when false,
// ShouldPreempt always reports false regardless of quantum/priority.
func New(enabled bool, logger *logging.Logger, m *metrics.Metrics) *Manager {
	return &Manager{enabled: enabled, tasks: make(map[uint64]*taskState), logger: logger, metrics: m}
}

// RegisterTask begins tracking a task's preemption quantum.
func (m *Manager) RegisterTask(taskID uint64, quantum int64, preemptible bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[taskID] = &taskState{preemptible: preemptible, quantum: quantum}
}

// Unregister stops tracking a task (it reached a terminal state).
func (m *Manager) Unregister(taskID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
}

// AccountFuel records fuel spent by taskID since its last preemption
// check, for the quantum-expiry test in ShouldPreempt.
func (m *Manager) AccountFuel(taskID uint64, consumed int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[taskID]; ok {
		t.fuelSinceCheck += consumed
	}
}

// ShouldPreempt reports whether taskID must yield now, and why.
// higherPriorityReady is supplied by the caller (the scheduler already
// knows whether a higher-priority task is waiting) rather than computed
// here, since the preemption manager does not itself hold the ready set.
func (m *Manager) ShouldPreempt(taskID uint64, higherPriorityReady bool) (bool, Reason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.enabled {
		return false, ReasonSystem
	}
	t, ok := m.tasks[taskID]
	if !ok || !t.preemptible {
		return false, ReasonSystem
	}
	if higherPriorityReady {
		return true, ReasonPriority
	}
	if t.quantum > 0 && t.fuelSinceCheck >= t.quantum {
		return true, ReasonFuelQuantum
	}
	return false, ReasonSystem
}

// Checkpoint saves a task's resumable state at a safe preemption point
// and marks the preemption as having occurred (resetting the quantum
// counter so the next ShouldPreempt call measures a fresh quantum).
func (m *Manager) Checkpoint(ctx context.Context, taskID uint64, cp Checkpoint, reason Reason) {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if ok {
		t.checkpoint = cp
		t.hasCheckpoint = true
		t.fuelSinceCheck = 0
		t.preemptionCount++
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordPreemption(reason.String())
	}
	if m.logger != nil {
		m.logger.LogPreemption(ctx, taskID, reason.String())
	}
}

// Resume returns the checkpoint saved for taskID, if any, and clears it
// — a checkpoint is consumed exactly once on resumption.
func (m *Manager) Resume(taskID uint64) (Checkpoint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || !t.hasCheckpoint {
		return Checkpoint{}, false
	}
	cp := t.checkpoint
	t.hasCheckpoint = false
	return cp, true
}

// PreemptionCount reports how many times taskID has been preempted.
func (m *Manager) PreemptionCount(taskID uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[taskID]; ok {
		return t.preemptionCount
	}
	return 0
}
