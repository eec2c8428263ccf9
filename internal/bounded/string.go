package bounded

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// String is a fixed-capacity, checksum-verifiable byte string (UTF-8
// assumed but not enforced — WebAssembly names are arbitrary byte
// sequences validated separately by the decoder).
type String struct {
	provider *provider.Provider
	arena    []byte

	buf      []byte
	length   int
	capacity int
	level    provider.VerificationLevel
	sum      checksum
}

// NewString creates a String with the given byte capacity, reserving that
// many bytes from p.
func NewString(p *provider.Provider, capacity int) (*String, error) {
	arena, err := p.Allocate(int64(capacity))
	if err != nil {
		return nil, err
	}
	s := &String{
		provider: p,
		arena:    arena,
		buf:      make([]byte, capacity),
		capacity: capacity,
		level:    p.VerificationLevel(),
	}
	s.touch()
	return s, nil
}

// Len returns the current byte length.
func (s *String) Len() int { return s.length }

// Capacity returns the fixed maximum byte length.
func (s *String) Capacity() int { return s.capacity }

// Set overwrites the string's contents with data, failing with
// CapacityExceeded if len(data) > Capacity().
func (s *String) Set(data []byte) error {
	if len(data) > s.capacity {
		return errors.CapacityExceeded("string", s.capacity)
	}
	copy(s.buf, data)
	s.length = len(data)
	s.touch()
	return nil
}

// Append appends data to the string, failing with CapacityExceeded if it
// would exceed Capacity().
func (s *String) Append(data []byte) error {
	if s.length+len(data) > s.capacity {
		return errors.CapacityExceeded("string", s.capacity)
	}
	copy(s.buf[s.length:], data)
	s.length += len(data)
	s.touch()
	return nil
}

// Bytes returns a copy of the string's current contents.
func (s *String) Bytes() []byte {
	out := make([]byte, s.length)
	copy(out, s.buf[:s.length])
	return out
}

// String implements fmt.Stringer.
func (s *String) String() string { return string(s.buf[:s.length]) }

// Clear empties the string without releasing its backing reservation.
func (s *String) Clear() {
	s.length = 0
	s.touch()
}

// VerifyChecksum reports whether the current contents match the last
// recorded checksum.
func (s *String) VerifyChecksum() bool {
	return s.sum.verify([][]byte{s.buf[:s.length]})
}

func (s *String) touch() {
	if s.level == provider.VerificationNone {
		return
	}
	s.sum.update([][]byte{s.buf[:s.length]})
}
