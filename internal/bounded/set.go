package bounded

import "github.com/wrt-go/wrt/internal/provider"

// SetCodec describes how a Set hashes and serializes its elements.
type SetCodec[T comparable] struct {
	Hash   func(T) uint64
	Encode func(T) []byte
}

// Set is a fixed-capacity set built on the same open-addressed layout as
// Map, storing only keys.
type Set[T comparable] struct {
	m *Map[T, struct{}]
}

// NewSet creates a Set with the given capacity, reserving capacity*slotSize
// bytes from p.
func NewSet[T comparable](p *provider.Provider, capacity, slotSize int, codec SetCodec[T]) (*Set[T], error) {
	m, err := NewMap[T, struct{}](p, capacity, slotSize, MapCodec[T, struct{}]{
		Hash:      codec.Hash,
		EncodeKey: codec.Encode,
		EncodeVal: func(struct{}) []byte { return nil },
	})
	if err != nil {
		return nil, err
	}
	return &Set[T]{m: m}, nil
}

func (s *Set[T]) Len() int      { return s.m.Len() }
func (s *Set[T]) Capacity() int { return s.m.Capacity() }

// Insert adds val, returning had=true if it was already present.
func (s *Set[T]) Insert(val T) (had bool, err error) {
	_, had, err = s.m.Insert(val, struct{}{})
	return had, err
}

// Contains reports whether val is present.
func (s *Set[T]) Contains(val T) bool { return s.m.Contains(val) }

// Remove deletes val, returning ok=true if it was present.
func (s *Set[T]) Remove(val T) bool {
	_, ok := s.m.Remove(val)
	return ok
}

// Clear empties the set without releasing its backing reservation.
func (s *Set[T]) Clear() { s.m.Clear() }

// VerifyChecksum reports whether the current contents match the last
// recorded checksum.
func (s *Set[T]) VerifyChecksum() bool { return s.m.VerifyChecksum() }
