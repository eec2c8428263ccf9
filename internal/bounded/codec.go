// Package bounded implements the fixed-capacity, checksum-verifiable
// collection primitives the interpreter and decoder build on: Vec, Deque,
// BitSet, Map, Set, and String. Every collection here has a capacity fixed
// at construction time; insertion past capacity returns CapacityExceeded
// rather than growing, and every mutation keeps a checksum current so
// verification levels above None can detect byte-level corruption.
package bounded

// Codec describes how a collection serializes and deserializes its element
// type for the to_bytes/from_bytes round-trip spec.md §4.2 requires of
// every bounded-collection element, and for checksum contribution.
type Codec[T any] struct {
	Encode func(T) []byte
	Decode func([]byte) (T, error)
}
