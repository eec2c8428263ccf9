package bounded

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// Vec is a fixed-capacity, checksum-verifiable vector. Its backing storage
// is carved once from a provider.Provider at construction (capacity ×
// elementSize bytes) — pushes never grow past that reservation.
type Vec[T any] struct {
	provider *provider.Provider
	codec    Codec[T]
	arena    []byte // provenance only: proves the byte budget was reserved

	data     []T
	capacity int
	level    provider.VerificationLevel
	sum      checksum
}

// NewVec creates a Vec with the given capacity, reserving
// capacity*elementSize bytes from p.
func NewVec[T any](p *provider.Provider, capacity, elementSize int, codec Codec[T]) (*Vec[T], error) {
	arena, err := p.Allocate(int64(capacity) * int64(elementSize))
	if err != nil {
		return nil, err
	}
	v := &Vec[T]{
		provider: p,
		codec:    codec,
		arena:    arena,
		data:     make([]T, 0, capacity),
		capacity: capacity,
		level:    p.VerificationLevel(),
	}
	v.sum.update(nil)
	return v, nil
}

// Len returns the number of live elements.
func (v *Vec[T]) Len() int { return len(v.data) }

// Capacity returns the fixed maximum element count.
func (v *Vec[T]) Capacity() int { return v.capacity }

// Push appends val, failing with CapacityExceeded once Len() == Capacity().
func (v *Vec[T]) Push(val T) error {
	if len(v.data) >= v.capacity {
		return errors.CapacityExceeded("vec", v.capacity)
	}
	v.data = append(v.data, val)
	v.touch()
	return nil
}

// Pop removes and returns the last element, or ok=false if empty.
func (v *Vec[T]) Pop() (val T, ok bool) {
	if len(v.data) == 0 {
		return val, false
	}
	last := len(v.data) - 1
	val = v.data[last]
	v.data = v.data[:last]
	v.touch()
	return val, true
}

// Get returns the element at index, or ok=false if out of range.
func (v *Vec[T]) Get(index int) (val T, ok bool) {
	if index < 0 || index >= len(v.data) {
		return val, false
	}
	return v.data[index], true
}

// Set overwrites the element at index, failing if out of range.
func (v *Vec[T]) Set(index int, val T) error {
	if index < 0 || index >= len(v.data) {
		return errors.New(errors.CodeResourceNotFound, "vec index out of range")
	}
	v.data[index] = val
	v.touch()
	return nil
}

// Clear empties the vector without releasing its backing reservation.
func (v *Vec[T]) Clear() {
	v.data = v.data[:0]
	v.touch()
}

// Iter returns a copy of the live elements in order.
func (v *Vec[T]) Iter() []T {
	out := make([]T, len(v.data))
	copy(out, v.data)
	return out
}

// VerifyChecksum reports whether the current contents match the last
// recorded checksum.
func (v *Vec[T]) VerifyChecksum() bool {
	return v.sum.verify(v.contributions())
}

func (v *Vec[T]) contributions() [][]byte {
	out := make([][]byte, len(v.data))
	for i, e := range v.data {
		out[i] = v.codec.Encode(e)
	}
	return out
}

func (v *Vec[T]) touch() {
	if v.level == provider.VerificationNone {
		return
	}
	v.sum.update(v.contributions())
}
