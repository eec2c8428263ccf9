package valuestore

import (
	"testing"

	"github.com/wrt-go/wrt/internal/provider"
)

func testStore(t *testing.T, maxValues, maxTypes int) *Store {
	t.Helper()
	p := provider.New(1, "component", int64(maxValues*estimatedValueSize+maxTypes*estimatedTypeSize), "tok")
	s, err := New(p, maxValues, maxTypes)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestAddValueAndResolve(t *testing.T) {
	s := testStore(t, 8, 8)
	ref, err := s.AddValue(NewS32(42))
	if err != nil {
		t.Fatalf("AddValue() error = %v", err)
	}
	v, ok := s.ResolveValue(ref)
	if !ok {
		t.Fatal("ResolveValue() ok = false")
	}
	if v.AsS32() != 42 {
		t.Errorf("AsS32() = %d, want 42", v.AsS32())
	}
}

func TestAddStringAndGetString(t *testing.T) {
	s := testStore(t, 8, 8)
	ref, err := s.AddValue(NewString("hello"))
	if err != nil {
		t.Fatalf("AddValue() error = %v", err)
	}
	got, err := s.GetString(ref)
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("GetString() = %q, want %q", got, "hello")
	}
}

func TestGetStringWrongKindFails(t *testing.T) {
	s := testStore(t, 8, 8)
	ref, _ := s.AddValue(NewS32(1))
	if _, err := s.GetString(ref); err == nil {
		t.Fatal("GetString() on non-string value should fail")
	}
}

func TestValuesFullFails(t *testing.T) {
	s := testStore(t, 2, 8)
	if _, err := s.AddValue(NewBool(true)); err != nil {
		t.Fatalf("AddValue() 1 error = %v", err)
	}
	if _, err := s.AddValue(NewBool(false)); err != nil {
		t.Fatalf("AddValue() 2 error = %v", err)
	}
	if _, err := s.AddValue(NewBool(true)); err == nil {
		t.Fatal("AddValue() past capacity should fail with CapacityExceeded")
	}
}

func TestInternTypeDedupsByStructuralEquality(t *testing.T) {
	s := testStore(t, 8, 8)
	ty := ValType{Kind: KindRecord, Fields: []Field{{Name: "x", Type: 0}, {Name: "y", Type: 0}}}

	ref1, err := s.InternType(ty)
	if err != nil {
		t.Fatalf("InternType() error = %v", err)
	}
	ref2, err := s.InternType(ty)
	if err != nil {
		t.Fatalf("InternType() second call error = %v", err)
	}
	if ref1 != ref2 {
		t.Errorf("InternType() returned different refs for equal types: %d != %d", ref1, ref2)
	}
	if _, _, usedTypes, _ := s.MemoryUsage(); usedTypes != 1 {
		t.Errorf("type store size = %d, want 1 (deduped)", usedTypes)
	}
}

func TestInternTypeDistinguishesDifferentTypes(t *testing.T) {
	s := testStore(t, 8, 8)
	a := ValType{Kind: KindS32}
	b := ValType{Kind: KindU32}

	refA, _ := s.InternType(a)
	refB, _ := s.InternType(b)
	if refA == refB {
		t.Error("InternType() collapsed structurally distinct types")
	}
}

func TestResolveTypeOutOfRange(t *testing.T) {
	s := testStore(t, 8, 8)
	if _, ok := s.ResolveType(ValTypeRef(99)); ok {
		t.Error("ResolveType() should fail for an unregistered ref")
	}
}

func TestAddRecordAndTupleHoldFieldRefs(t *testing.T) {
	s := testStore(t, 8, 8)
	xRef, _ := s.AddValue(NewS32(1))
	yRef, _ := s.AddValue(NewS32(2))

	recRef, err := s.AddRecord([]ValueRef{xRef, yRef})
	if err != nil {
		t.Fatalf("AddRecord() error = %v", err)
	}
	rec, ok := s.ResolveValue(recRef)
	if !ok || len(rec.Fields) != 2 {
		t.Fatalf("AddRecord() result = %+v, ok=%v", rec, ok)
	}
	first, _ := s.ResolveValue(rec.Fields[0])
	if first.AsS32() != 1 {
		t.Errorf("record field 0 = %d, want 1", first.AsS32())
	}
}

func TestAddVariantAndOptionAndResult(t *testing.T) {
	s := testStore(t, 8, 8)
	payload, _ := s.AddValue(NewU32(7))

	vref, err := s.AddVariant("some-case", payload, true)
	if err != nil {
		t.Fatalf("AddVariant() error = %v", err)
	}
	v, _ := s.ResolveValue(vref)
	if v.CaseName != "some-case" || !v.HasPayload {
		t.Errorf("AddVariant() result = %+v", v)
	}

	oref, err := s.AddOption(true, payload)
	if err != nil {
		t.Fatalf("AddOption() error = %v", err)
	}
	opt, _ := s.ResolveValue(oref)
	if !opt.OptionPresent {
		t.Error("AddOption() OptionPresent = false, want true")
	}

	rref, err := s.AddResult(true, true, payload)
	if err != nil {
		t.Fatalf("AddResult() error = %v", err)
	}
	res, _ := s.ResolveValue(rref)
	if !res.ResultIsOk {
		t.Error("AddResult() ResultIsOk = false, want true")
	}
}

func TestAddFlagsLengthMismatchFails(t *testing.T) {
	s := testStore(t, 8, 8)
	if _, err := s.AddFlags([]string{"a", "b"}, []bool{true}); err == nil {
		t.Fatal("AddFlags() with mismatched lengths should fail")
	}
}

func TestValTypeEncodeDecodeRoundTrips(t *testing.T) {
	ty := ValType{
		Kind:   KindVariant,
		Cases:  []Case{{Name: "ok", Type: 1, HasPayload: true}, {Name: "err", Type: 2, HasPayload: false}},
		HasOk:  true,
		Ok:     1,
		HasErr: true,
		Err:    2,
	}
	encoded := encodeValType(ty)
	decoded, err := decodeValType(encoded)
	if err != nil {
		t.Fatalf("decodeValType() error = %v", err)
	}
	if !decoded.Equal(ty) {
		t.Errorf("decodeValType() = %+v, want %+v", decoded, ty)
	}
}

func TestComponentValueEncodeDecodeRoundTrips(t *testing.T) {
	v := ComponentValue{
		Kind:      KindFlags,
		FlagNames: []string{"read", "write"},
		FlagBits:  []bool{true, false},
	}
	encoded := encodeComponentValue(v)
	decoded, err := decodeComponentValue(encoded)
	if err != nil {
		t.Fatalf("decodeComponentValue() error = %v", err)
	}
	if len(decoded.FlagNames) != 2 || decoded.FlagNames[0] != "read" || decoded.FlagBits[1] != false {
		t.Errorf("decodeComponentValue() = %+v", decoded)
	}
}
