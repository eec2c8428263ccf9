package bounded

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// BitSet is a packed bit array over a fixed N bits. set/clear/toggle return
// the prior bit value; set_all/clear_all run in O(N/word).
type BitSet struct {
	provider *provider.Provider
	arena    []byte

	words []uint64
	nbits int
	level provider.VerificationLevel
	sum   checksum
}

// NewBitSet creates a BitSet over nbits bits, reserving the packed word
// storage from p.
func NewBitSet(p *provider.Provider, nbits int) (*BitSet, error) {
	nwords := (nbits + 63) / 64
	arena, err := p.Allocate(int64(nwords) * 8)
	if err != nil {
		return nil, err
	}
	b := &BitSet{
		provider: p,
		arena:    arena,
		words:    make([]uint64, nwords),
		nbits:    nbits,
		level:    p.VerificationLevel(),
	}
	b.touch()
	return b, nil
}

// Len returns the fixed number of bits.
func (b *BitSet) Len() int { return b.nbits }

func (b *BitSet) checkRange(i int) error {
	if i < 0 || i >= b.nbits {
		return errors.New(errors.CodeResourceNotFound, "bitset index out of range")
	}
	return nil
}

// Set sets bit i to 1, returning its prior value.
func (b *BitSet) Set(i int) (prior bool, err error) {
	if err := b.checkRange(i); err != nil {
		return false, err
	}
	word, mask := i/64, uint64(1)<<uint(i%64)
	prior = b.words[word]&mask != 0
	b.words[word] |= mask
	b.touch()
	return prior, nil
}

// Clear sets bit i to 0, returning its prior value.
func (b *BitSet) Clear(i int) (prior bool, err error) {
	if err := b.checkRange(i); err != nil {
		return false, err
	}
	word, mask := i/64, uint64(1)<<uint(i%64)
	prior = b.words[word]&mask != 0
	b.words[word] &^= mask
	b.touch()
	return prior, nil
}

// Toggle flips bit i, returning its prior value.
func (b *BitSet) Toggle(i int) (prior bool, err error) {
	if err := b.checkRange(i); err != nil {
		return false, err
	}
	word, mask := i/64, uint64(1)<<uint(i%64)
	prior = b.words[word]&mask != 0
	b.words[word] ^= mask
	b.touch()
	return prior, nil
}

// Get returns the value of bit i.
func (b *BitSet) Get(i int) (bool, error) {
	if err := b.checkRange(i); err != nil {
		return false, err
	}
	word, mask := i/64, uint64(1)<<uint(i%64)
	return b.words[word]&mask != 0, nil
}

// SetAll sets every bit to 1.
func (b *BitSet) SetAll() {
	for i := range b.words {
		b.words[i] = ^uint64(0)
	}
	b.maskTrailingBits()
	b.touch()
}

// ClearAll sets every bit to 0.
func (b *BitSet) ClearAll() {
	for i := range b.words {
		b.words[i] = 0
	}
	b.touch()
}

// maskTrailingBits zeroes any bits beyond nbits in the final word so
// popcount-style consumers don't see phantom set bits.
func (b *BitSet) maskTrailingBits() {
	if len(b.words) == 0 {
		return
	}
	rem := b.nbits % 64
	if rem == 0 {
		return
	}
	last := len(b.words) - 1
	b.words[last] &= (uint64(1) << uint(rem)) - 1
}

// VerifyChecksum reports whether the current word contents match the last
// recorded checksum.
func (b *BitSet) VerifyChecksum() bool {
	return b.sum.verify(b.contributions())
}

func (b *BitSet) contributions() [][]byte {
	out := make([][]byte, len(b.words))
	for i, w := range b.words {
		buf := make([]byte, 8)
		for j := 0; j < 8; j++ {
			buf[j] = byte(w >> (8 * j))
		}
		out[i] = buf
	}
	return out
}

func (b *BitSet) touch() {
	if b.level == provider.VerificationNone {
		return
	}
	b.sum.update(b.contributions())
}
