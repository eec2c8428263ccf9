package bounded

import (
	"encoding/binary"
	"testing"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

func testProvider(t *testing.T, capacity int64) *provider.Provider {
	t.Helper()
	return provider.New(1, "foundation", capacity, "tok")
}

func int32Codec() Codec[int32] {
	return Codec[int32]{
		Encode: func(v int32) []byte {
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(v))
			return b
		},
		Decode: func(b []byte) (int32, error) {
			return int32(binary.LittleEndian.Uint32(b)), nil
		},
	}
}

func TestVecPushPopCapacity(t *testing.T) {
	p := testProvider(t, 4096)
	v, err := NewVec[int32](p, 4, 4, int32Codec())
	if err != nil {
		t.Fatalf("NewVec() error = %v", err)
	}

	for i := int32(0); i < 4; i++ {
		if err := v.Push(i); err != nil {
			t.Fatalf("Push(%d) error = %v", i, err)
		}
	}
	if err := v.Push(99); !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Fatalf("Push on full vec error = %v, want CodeCapacityExceeded", err)
	}
	if !v.VerifyChecksum() {
		t.Error("VerifyChecksum() = false after only valid mutations")
	}

	val, ok := v.Pop()
	if !ok || val != 3 {
		t.Errorf("Pop() = (%d, %v), want (3, true)", val, ok)
	}
	if v.Len() != 3 {
		t.Errorf("Len() = %d, want 3", v.Len())
	}
}

func TestVecIterIgnoresUnusedSlots(t *testing.T) {
	p := testProvider(t, 4096)
	v, _ := NewVec[int32](p, 8, 4, int32Codec())
	for i := int32(0); i < 3; i++ {
		_ = v.Push(i)
	}
	if got := len(v.Iter()); got != v.Len() {
		t.Errorf("Iter() len = %d, want Len() = %d", got, v.Len())
	}
}

func TestDequeWraparound(t *testing.T) {
	p := testProvider(t, 4096)
	d, err := NewDeque[int32](p, 3, 4, int32Codec())
	if err != nil {
		t.Fatalf("NewDeque() error = %v", err)
	}

	_ = d.PushBack(1)
	_ = d.PushBack(2)
	_ = d.PushBack(3)
	if err := d.PushBack(4); !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Fatalf("PushBack on full deque error = %v, want CodeCapacityExceeded", err)
	}

	v, ok := d.PopFront()
	if !ok || v != 1 {
		t.Fatalf("PopFront() = (%d, %v), want (1, true)", v, ok)
	}
	if err := d.PushBack(4); err != nil {
		t.Fatalf("PushBack(4) after PopFront error = %v", err)
	}

	got := d.Iter()
	want := []int32{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Iter() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iter() = %v, want %v", got, want)
		}
	}
}

func TestDequeEmptyPop(t *testing.T) {
	p := testProvider(t, 4096)
	d, _ := NewDeque[int32](p, 2, 4, int32Codec())
	if _, ok := d.PopFront(); ok {
		t.Error("PopFront() on empty deque should report ok=false")
	}
	if _, ok := d.PopBack(); ok {
		t.Error("PopBack() on empty deque should report ok=false")
	}
}

func TestBitSetOperations(t *testing.T) {
	p := testProvider(t, 4096)
	b, err := NewBitSet(p, 70)
	if err != nil {
		t.Fatalf("NewBitSet() error = %v", err)
	}
	if b.Len() != 70 {
		t.Errorf("Len() = %d, want 70", b.Len())
	}

	prior, err := b.Set(65)
	if err != nil || prior {
		t.Fatalf("Set(65) = (%v, %v), want (false, nil)", prior, err)
	}
	got, _ := b.Get(65)
	if !got {
		t.Error("Get(65) = false after Set(65)")
	}

	prior, _ = b.Toggle(65)
	if !prior {
		t.Error("Toggle(65) prior should be true")
	}
	got, _ = b.Get(65)
	if got {
		t.Error("Get(65) = true after Toggle off")
	}

	if _, err := b.Set(70); err == nil {
		t.Error("Set(70) out of range should fail")
	}

	b.SetAll()
	for i := 0; i < 70; i++ {
		v, _ := b.Get(i)
		if !v {
			t.Fatalf("bit %d not set after SetAll", i)
		}
	}
	if !b.VerifyChecksum() {
		t.Error("VerifyChecksum() = false after valid mutations")
	}

	b.ClearAll()
	for i := 0; i < 70; i++ {
		v, _ := b.Get(i)
		if v {
			t.Fatalf("bit %d still set after ClearAll", i)
		}
	}
}

func stringHash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func TestMapInsertGetRemove(t *testing.T) {
	p := testProvider(t, 4096)
	m, err := NewMap[string, int32](p, 8, 32, MapCodec[string, int32]{
		Hash:      stringHash,
		EncodeKey: func(s string) []byte { return []byte(s) },
		EncodeVal: int32Codec().Encode,
	})
	if err != nil {
		t.Fatalf("NewMap() error = %v", err)
	}

	if _, had, err := m.Insert("a", 1); had || err != nil {
		t.Fatalf("Insert(a,1) = (had=%v, err=%v)", had, err)
	}
	old, had, err := m.Insert("a", 2)
	if !had || old != 1 || err != nil {
		t.Fatalf("Insert(a,2) = (old=%d, had=%v, err=%v), want (1, true, nil)", old, had, err)
	}

	val, ok := m.Get("a")
	if !ok || val != 2 {
		t.Fatalf("Get(a) = (%d, %v), want (2, true)", val, ok)
	}

	removed, ok := m.Remove("a")
	if !ok || removed != 2 {
		t.Fatalf("Remove(a) = (%d, %v), want (2, true)", removed, ok)
	}
	if m.Contains("a") {
		t.Error("Contains(a) should be false after Remove")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestMapFullInsertFails(t *testing.T) {
	p := testProvider(t, 4096)
	m, _ := NewMap[string, int32](p, 2, 32, MapCodec[string, int32]{
		Hash:      stringHash,
		EncodeKey: func(s string) []byte { return []byte(s) },
		EncodeVal: int32Codec().Encode,
	})
	_, _, _ = m.Insert("a", 1)
	_, _, _ = m.Insert("b", 2)
	if _, _, err := m.Insert("c", 3); !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Fatalf("Insert on full map error = %v, want CodeCapacityExceeded", err)
	}
}

func TestMapRemovePreservesProbeChain(t *testing.T) {
	p := testProvider(t, 4096)
	m, _ := NewMap[string, int32](p, 4, 32, MapCodec[string, int32]{
		Hash:      func(string) uint64 { return 0 }, // force every key into the same slot
		EncodeKey: func(s string) []byte { return []byte(s) },
		EncodeVal: int32Codec().Encode,
	})
	_, _, _ = m.Insert("a", 1)
	_, _, _ = m.Insert("b", 2)
	_, _, _ = m.Insert("c", 3)

	m.Remove("a")

	if val, ok := m.Get("b"); !ok || val != 2 {
		t.Errorf("Get(b) = (%d, %v), want (2, true) after removing a collided predecessor", val, ok)
	}
	if val, ok := m.Get("c"); !ok || val != 3 {
		t.Errorf("Get(c) = (%d, %v), want (3, true) after removing a collided predecessor", val, ok)
	}
}

func TestSetInsertContainsRemove(t *testing.T) {
	p := testProvider(t, 4096)
	s, err := NewSet[string](p, 4, 32, SetCodec[string]{
		Hash:   stringHash,
		Encode: func(v string) []byte { return []byte(v) },
	})
	if err != nil {
		t.Fatalf("NewSet() error = %v", err)
	}

	if had, err := s.Insert("x"); had || err != nil {
		t.Fatalf("Insert(x) = (had=%v, err=%v)", had, err)
	}
	if !s.Contains("x") {
		t.Error("Contains(x) should be true")
	}
	if !s.Remove("x") {
		t.Error("Remove(x) should report true")
	}
	if s.Contains("x") {
		t.Error("Contains(x) should be false after Remove")
	}
}

func TestStringSetAppendCapacity(t *testing.T) {
	p := testProvider(t, 4096)
	s, err := NewString(p, 8)
	if err != nil {
		t.Fatalf("NewString() error = %v", err)
	}

	if err := s.Set([]byte("hello")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if s.String() != "hello" {
		t.Errorf("String() = %q, want %q", s.String(), "hello")
	}

	if err := s.Append([]byte("!!")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if s.String() != "hello!!" {
		t.Errorf("String() = %q, want %q", s.String(), "hello!!")
	}

	if err := s.Append([]byte("xx")); !errors.Is(err, errors.CodeCapacityExceeded) {
		t.Fatalf("Append over capacity error = %v, want CodeCapacityExceeded", err)
	}
	if !s.VerifyChecksum() {
		t.Error("VerifyChecksum() = false after valid mutations")
	}
}
