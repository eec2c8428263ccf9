// Package scheduler orders a fuel executor's ready set (spec.md §4.9
// "Scheduling policies"). Grounded on
// original_source/wrt-component/src/async_/fuel_preemption_support.rs's
// PreemptionRequest ordering (priority then FIFO timestamp) and
// fuel_async_scheduler's SchedulingPolicy enum, reshaped from a Rust
// Ord-based BinaryHeap into a Go slice sorted on demand — this module has
// no precedent for a custom heap type, and the ready sets involved are
// small enough that a stable sort per poll is the idiomatic Go answer.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Policy selects how the ready set is ordered each poll (spec.md §4.9's
// policy table).
type Policy int

const (
	// PolicyCooperative runs ready tasks FIFO, ignoring priority and
	// deadline. Default / QM profile.
	PolicyCooperative Policy = iota
	// PolicyPriorityBased runs the highest-priority task first, FIFO
	// within a priority tier. ASIL-A profile.
	PolicyPriorityBased
	// PolicyDeadlineDriven runs the task with the earliest deadline
	// first. Real-time profile.
	PolicyDeadlineDriven
	// PolicyHybrid orders by deadline, then priority. ASIL-C/D profile.
	PolicyHybrid
)

func (p Policy) String() string {
	switch p {
	case PolicyCooperative:
		return "cooperative"
	case PolicyPriorityBased:
		return "priority_based"
	case PolicyDeadlineDriven:
		return "deadline_driven"
	case PolicyHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// ParsePolicy maps an ASIL-profile-to-policy name (as found in
// budgets.yaml's scheduler_policy field) to a Policy, mirroring
// internal/capability.ParseCrateId's name-to-enum shape. ok is false for an
// unrecognized name; callers should fall back to PolicyCooperative.
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "cooperative":
		return PolicyCooperative, true
	case "priority_based":
		return PolicyPriorityBased, true
	case "deadline_driven":
		return PolicyDeadlineDriven, true
	case "hybrid":
		return PolicyHybrid, true
	default:
		return PolicyCooperative, false
	}
}

// Priority is a task's scheduling priority; higher values run first under
// PolicyPriorityBased and PolicyHybrid.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Entry is one task in the ready set.
type Entry struct {
	TaskID   uint64
	Priority Priority
	Deadline time.Time // zero value means "no deadline"

	seq uint64 // assigned by the scheduler, breaks ties in arrival order
}

func (e Entry) deadlineOrMax() time.Time {
	if e.Deadline.IsZero() {
		return time.Unix(1<<62, 0)
	}
	return e.Deadline
}

// Scheduler holds the ready set for one executor and orders it on demand.
type Scheduler struct {
	mu     sync.Mutex
	policy Policy
	ready  map[uint64]Entry
	seq    uint64
}

// New constructs a Scheduler under the given policy.
func New(policy Policy) *Scheduler {
	return &Scheduler{policy: policy, ready: make(map[uint64]Entry)}
}

// Add puts a task into the ready set, or updates it if already present.
func (s *Scheduler) Add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	e.seq = s.seq
	s.ready[e.TaskID] = e
}

// Remove takes a task out of the ready set (it completed, failed, is
// waiting, or was preempted).
func (s *Scheduler) Remove(taskID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ready, taskID)
}

// Len reports the current ready-set size.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}

// Order returns the ready set sorted per the configured policy, the order
// an executor should poll tasks in this pass.
func (s *Scheduler) Order() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.ready))
	for _, e := range s.ready {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return s.less(out[i], out[j]) })
	return out
}

func (s *Scheduler) less(a, b Entry) bool {
	switch s.policy {
	case PolicyPriorityBased:
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
	case PolicyDeadlineDriven:
		ad, bd := a.deadlineOrMax(), b.deadlineOrMax()
		if !ad.Equal(bd) {
			return ad.Before(bd)
		}
	case PolicyHybrid:
		ad, bd := a.deadlineOrMax(), b.deadlineOrMax()
		if !ad.Equal(bd) {
			return ad.Before(bd)
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
	case PolicyCooperative:
		// falls through to the FIFO tiebreak below
	}
	return a.seq < b.seq
}

// Statistics summarizes the current ready set, mirroring the original
// crate's get_statistics reporting without the per-policy counters it
// never populated beyond the struct literal.
type Statistics struct {
	Policy     Policy
	ReadyCount int
}

// Stats reports current scheduler statistics.
func (s *Scheduler) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Statistics{Policy: s.policy, ReadyCount: len(s.ready)}
}
