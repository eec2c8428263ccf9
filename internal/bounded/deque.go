package bounded

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// Deque is a fixed-capacity circular buffer with explicit head/tail
// wraparound. push_front and push_back fail identically when full; pop_*
// return ok=false when empty.
type Deque[T any] struct {
	provider *provider.Provider
	codec    Codec[T]
	arena    []byte

	buf        []T
	head, tail int
	count      int
	capacity   int
	level      provider.VerificationLevel
	sum        checksum
}

// NewDeque creates a Deque with the given capacity, reserving
// capacity*elementSize bytes from p.
func NewDeque[T any](p *provider.Provider, capacity, elementSize int, codec Codec[T]) (*Deque[T], error) {
	arena, err := p.Allocate(int64(capacity) * int64(elementSize))
	if err != nil {
		return nil, err
	}
	d := &Deque[T]{
		provider: p,
		codec:    codec,
		arena:    arena,
		buf:      make([]T, capacity),
		capacity: capacity,
		level:    p.VerificationLevel(),
	}
	d.sum.update(nil)
	return d, nil
}

func (d *Deque[T]) Len() int      { return d.count }
func (d *Deque[T]) Capacity() int { return d.capacity }

// PushBack appends val at the tail.
func (d *Deque[T]) PushBack(val T) error {
	if d.count == d.capacity {
		return errors.CapacityExceeded("deque", d.capacity)
	}
	d.buf[d.tail] = val
	d.tail = (d.tail + 1) % d.capacity
	d.count++
	d.touch()
	return nil
}

// PushFront prepends val at the head.
func (d *Deque[T]) PushFront(val T) error {
	if d.count == d.capacity {
		return errors.CapacityExceeded("deque", d.capacity)
	}
	d.head = (d.head - 1 + d.capacity) % d.capacity
	d.buf[d.head] = val
	d.count++
	d.touch()
	return nil
}

// PopFront removes and returns the head element.
func (d *Deque[T]) PopFront() (val T, ok bool) {
	if d.count == 0 {
		return val, false
	}
	val = d.buf[d.head]
	d.head = (d.head + 1) % d.capacity
	d.count--
	d.touch()
	return val, true
}

// PopBack removes and returns the tail element.
func (d *Deque[T]) PopBack() (val T, ok bool) {
	if d.count == 0 {
		return val, false
	}
	d.tail = (d.tail - 1 + d.capacity) % d.capacity
	val = d.buf[d.tail]
	d.count--
	d.touch()
	return val, true
}

// Iter returns the live elements in head-to-tail order.
func (d *Deque[T]) Iter() []T {
	out := make([]T, 0, d.count)
	for i := 0; i < d.count; i++ {
		out = append(out, d.buf[(d.head+i)%d.capacity])
	}
	return out
}

// VerifyChecksum reports whether the current contents match the last
// recorded checksum.
func (d *Deque[T]) VerifyChecksum() bool {
	return d.sum.verify(d.contributions())
}

func (d *Deque[T]) contributions() [][]byte {
	items := d.Iter()
	out := make([][]byte, len(items))
	for i, e := range items {
		out[i] = d.codec.Encode(e)
	}
	return out
}

func (d *Deque[T]) touch() {
	if d.level == provider.VerificationNone {
		return
	}
	d.sum.update(d.contributions())
}
