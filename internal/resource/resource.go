// Package resource implements spec.md §4.8's typed resource handles:
// refcounted slots with deterministic destruction and cross-component
// transfer. Grounded on the teacher's provider/ledger shape
// (internal/provider.Provider's id+capacity+released bookkeeping, and
// internal/capability.Context's crateLedger map) generalized from "budget
// accounting for bytes" to "lifecycle accounting for handles."
package resource

import (
	"sync"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/types"
	"github.com/wrt-go/wrt/internal/valuestore"
)

// InstanceID identifies the component instance that owns a resource.
type InstanceID uint32

// TaskID identifies the task that created a resource (spec.md §4.2's Task).
type TaskID uint64

// Handle is a dense arena index plus a generation counter, so a stale
// handle into a reused slot is detected rather than silently
// dereferencing the wrong resource (spec.md's "Cyclic ownership" guidance
// for the arena+index+generation idiom).
type Handle struct {
	Index      uint32
	Generation uint32
}

// Destructor runs exactly once, when a resource's reference count drops
// to zero.
type Destructor func(payload valuestore.ComponentValue) error

type slot struct {
	inUse      bool
	generation uint32
	payload    valuestore.ComponentValue
	typeRef    types.TypeRef
	refCount   int32
	owner      InstanceID
	creator    TaskID
	destructor Destructor
}

// Manager is a fixed-capacity resource arena. Capacity is checked
// directly rather than carved from a provider.Provider via bounded.Vec,
// since a slot's Destructor is an in-process closure — not a value any
// bounded.Codec could serialize to bytes — so this arena cannot be built
// on the byte-budgeted bounded collections the rest of this module uses.
// The capacity ceiling still bounds worst-case memory the same way;
// callers that want byte-level accounting for a resource's own payload
// allocate that payload through the capability/provider system before
// calling Create.
type Manager struct {
	mu       sync.Mutex
	slots    []slot
	freeList []uint32
	capacity int
}

// New constructs a Manager that can hold at most capacity live resources
// at once.
func New(capacity int) *Manager {
	return &Manager{capacity: capacity}
}

// Create allocates a new resource, setting its reference count to 1.
func (m *Manager) Create(payload valuestore.ComponentValue, typeRef types.TypeRef, owner InstanceID, creator TaskID, destructor Destructor) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.freeList) > 0 {
		idx := m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
		s := &m.slots[idx]
		s.inUse = true
		s.payload = payload
		s.typeRef = typeRef
		s.refCount = 1
		s.owner = owner
		s.creator = creator
		s.destructor = destructor
		return Handle{Index: idx, Generation: s.generation}, nil
	}

	if len(m.slots) >= m.capacity {
		return Handle{}, errors.CapacityExceeded("resource arena", m.capacity)
	}
	m.slots = append(m.slots, slot{
		inUse: true, payload: payload, typeRef: typeRef,
		refCount: 1, owner: owner, creator: creator, destructor: destructor,
	})
	return Handle{Index: uint32(len(m.slots) - 1), Generation: 0}, nil
}

func (m *Manager) lookup(h Handle) (*slot, error) {
	if int(h.Index) >= len(m.slots) {
		return nil, errors.ResourceNotFound(h.Index)
	}
	s := &m.slots[h.Index]
	if !s.inUse || s.generation != h.Generation {
		return nil, errors.ResourceNotFound(h.Index)
	}
	return s, nil
}

// Guard represents one acquired reference; call Release exactly once to
// give it back.
type Guard struct {
	mgr    *Manager
	handle Handle
}

// Release drops the reference this Guard holds.
func (g Guard) Release() error {
	return g.mgr.Drop(g.handle)
}

// Acquire increments h's reference count and returns a Guard that
// decrements it on Release.
func (m *Manager) Acquire(h Handle) (Guard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(h)
	if err != nil {
		return Guard{}, err
	}
	s.refCount++
	return Guard{mgr: m, handle: h}, nil
}

// Transfer changes h's owning component. requester must be the current
// owner, per spec.md's "only the current owner may call."
func (m *Manager) Transfer(h Handle, requester, newOwner InstanceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(h)
	if err != nil {
		return err
	}
	if s.owner != requester {
		return errors.ValidationError("transfer requested by non-owner")
	}
	s.owner = newOwner
	return nil
}

// Drop decrements h's reference count. At zero, the destructor runs and
// the slot becomes reusable (its generation increments so any
// surviving stale Handle is rejected by lookup).
func (m *Manager) Drop(h Handle) error {
	m.mu.Lock()
	s, err := m.lookup(h)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	s.refCount--
	if s.refCount > 0 {
		m.mu.Unlock()
		return nil
	}

	payload := s.payload
	destructor := s.destructor
	s.inUse = false
	s.generation++
	s.payload = valuestore.ComponentValue{}
	s.destructor = nil
	m.freeList = append(m.freeList, h.Index)
	m.mu.Unlock()

	if destructor == nil {
		return nil
	}
	return destructor(payload)
}

// Get returns h's payload and type without changing its reference count.
func (m *Manager) Get(h Handle) (valuestore.ComponentValue, types.TypeRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(h)
	if err != nil {
		return valuestore.ComponentValue{}, 0, err
	}
	return s.payload, s.typeRef, nil
}

// ListCreatedBy returns every live handle whose creator is taskID, for
// the cleanup registry to drop on task termination (spec.md §4.8's "Task
// integration"). Order is arena order, not priority — priority ordering
// among cleanup actions is the cleanup registry's responsibility
// (internal/fuel/cleanup), not the resource arena's.
func (m *Manager) ListCreatedBy(taskID TaskID) []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Handle
	for i, s := range m.slots {
		if s.inUse && s.creator == taskID {
			out = append(out, Handle{Index: uint32(i), Generation: s.generation})
		}
	}
	return out
}
