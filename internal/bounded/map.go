package bounded

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// MapCodec describes how a Map serializes keys/values for checksum
// contribution and provides the hash function driving linear probing.
type MapCodec[K comparable, V any] struct {
	Hash       func(K) uint64
	EncodeKey  func(K) []byte
	EncodeVal  func(V) []byte
}

// Map is an open-addressed, fixed-capacity key→value table using linear
// probing over a slot array. Insert on a full map (with no matching key)
// fails; insert on an existing key updates in place and returns the old
// value.
type Map[K comparable, V any] struct {
	provider *provider.Provider
	codec    MapCodec[K, V]
	arena    []byte

	keys     []K
	vals     []V
	used     []bool
	count    int
	capacity int
	level    provider.VerificationLevel
	sum      checksum
}

// NewMap creates a Map with the given capacity, reserving
// capacity*slotSize bytes from p.
func NewMap[K comparable, V any](p *provider.Provider, capacity, slotSize int, codec MapCodec[K, V]) (*Map[K, V], error) {
	arena, err := p.Allocate(int64(capacity) * int64(slotSize))
	if err != nil {
		return nil, err
	}
	m := &Map[K, V]{
		provider: p,
		codec:    codec,
		arena:    arena,
		keys:     make([]K, capacity),
		vals:     make([]V, capacity),
		used:     make([]bool, capacity),
		capacity: capacity,
		level:    p.VerificationLevel(),
	}
	m.touch()
	return m, nil
}

func (m *Map[K, V]) Len() int      { return m.count }
func (m *Map[K, V]) Capacity() int { return m.capacity }

// slot finds the occupied slot index for key, or the first empty slot
// probed if key is absent. ok reports whether key was found.
func (m *Map[K, V]) slot(key K) (idx int, ok bool) {
	start := int(m.codec.Hash(key) % uint64(m.capacity))
	for i := 0; i < m.capacity; i++ {
		probe := (start + i) % m.capacity
		if !m.used[probe] {
			return probe, false
		}
		if m.keys[probe] == key {
			return probe, true
		}
	}
	return -1, false
}

// Insert inserts or updates key→val. If key already existed, returns its
// old value with had=true. Fails with CapacityExceeded if the map is full
// and key is new.
func (m *Map[K, V]) Insert(key K, val V) (old V, had bool, err error) {
	idx, found := m.slot(key)
	if idx == -1 {
		return old, false, errors.CapacityExceeded("map", m.capacity)
	}
	if found {
		old = m.vals[idx]
		m.vals[idx] = val
		m.touch()
		return old, true, nil
	}
	m.keys[idx] = key
	m.vals[idx] = val
	m.used[idx] = true
	m.count++
	m.touch()
	return old, false, nil
}

// Get returns the value for key, or ok=false if absent.
func (m *Map[K, V]) Get(key K) (val V, ok bool) {
	idx, found := m.slot(key)
	if idx == -1 || !found {
		return val, false
	}
	return m.vals[idx], true
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Remove deletes key, returning its value with ok=true if it was present.
// Clears idx and rehashes the contiguous run of occupied slots that follow
// it, since any of those may have probed past idx and would otherwise
// become unreachable once idx is empty.
func (m *Map[K, V]) Remove(key K) (val V, ok bool) {
	idx, found := m.slot(key)
	if idx == -1 || !found {
		return val, false
	}
	val = m.vals[idx]
	m.used[idx] = false
	m.count--

	type entry struct {
		k K
		v V
	}
	var rehash []entry
	j := (idx + 1) % m.capacity
	for m.used[j] {
		rehash = append(rehash, entry{m.keys[j], m.vals[j]})
		m.used[j] = false
		m.count--
		j = (j + 1) % m.capacity
	}
	for _, e := range rehash {
		_, _, _ = m.Insert(e.k, e.v)
	}
	m.touch()
	return val, true
}

// Clear empties the map without releasing its backing reservation.
func (m *Map[K, V]) Clear() {
	for i := range m.used {
		m.used[i] = false
	}
	m.count = 0
	m.touch()
}

// VerifyChecksum reports whether the current contents match the last
// recorded checksum.
func (m *Map[K, V]) VerifyChecksum() bool {
	return m.sum.verify(m.contributions())
}

func (m *Map[K, V]) contributions() [][]byte {
	out := make([][]byte, 0, m.count)
	for i, used := range m.used {
		if !used {
			continue
		}
		kb := m.codec.EncodeKey(m.keys[i])
		vb := m.codec.EncodeVal(m.vals[i])
		out = append(out, append(append([]byte{}, kb...), vb...))
	}
	return out
}

func (m *Map[K, V]) touch() {
	if m.level == provider.VerificationNone {
		return
	}
	m.sum.update(m.contributions())
}
