package valuestore

import (
	"github.com/wrt-go/wrt/internal/bounded"
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// ValueRef is an opaque index into a Store's value vector.
type ValueRef uint32

// ValTypeRef is an opaque index into a Store's type vector.
type ValTypeRef uint32

// Default capacities, carried from the original implementation's
// MAX_STORE_VALUES / MAX_STORE_TYPES.
const (
	DefaultMaxValues = 1024
	DefaultMaxTypes  = 256

	estimatedValueSize = 96
	estimatedTypeSize  = 64
)

// Store holds a component instance's interned types and values: a pair of
// append-only, bounded vectors addressed by ValTypeRef and ValueRef.
// Compound values reference their elements by index into the same store,
// so nested values never require a separate allocation.
type Store struct {
	types  *bounded.Vec[ValType]
	values *bounded.Vec[ComponentValue]
}

// New creates an empty Store, reserving maxValues*estimatedValueSize and
// maxTypes*estimatedTypeSize bytes from p.
func New(p *provider.Provider, maxValues, maxTypes int) (*Store, error) {
	valueCodec := bounded.Codec[ComponentValue]{Encode: encodeComponentValue, Decode: decodeComponentValue}
	typeCodec := bounded.Codec[ValType]{Encode: encodeValType, Decode: decodeValType}

	values, err := bounded.NewVec(p, maxValues, estimatedValueSize, valueCodec)
	if err != nil {
		return nil, err
	}
	types, err := bounded.NewVec(p, maxTypes, estimatedTypeSize, typeCodec)
	if err != nil {
		return nil, err
	}
	return &Store{types: types, values: values}, nil
}

// AddValue appends value to the store and returns a stable ValueRef.
func (s *Store) AddValue(value ComponentValue) (ValueRef, error) {
	index := s.values.Len()
	if err := s.values.Push(value); err != nil {
		return 0, err
	}
	return ValueRef(index), nil
}

// ResolveValue returns the ComponentValue a ValueRef addresses, or
// ok=false if the reference is out of range.
func (s *Store) ResolveValue(ref ValueRef) (ComponentValue, bool) {
	return s.values.Get(int(ref))
}

// GetString resolves ref and requires it to hold a String value.
func (s *Store) GetString(ref ValueRef) (string, error) {
	v, ok := s.ResolveValue(ref)
	if !ok {
		return "", errors.New(errors.CodeResourceNotFound, "value ref not found")
	}
	if v.Kind != KindString {
		return "", errors.ValidationError("value ref does not hold a string")
	}
	return v.Str, nil
}

// InternType interns ty, returning its existing ValTypeRef if a
// structurally equal type was already registered, or a fresh one
// otherwise. This realizes spec.md §4.5's "register is idempotent on
// structural equality" at the value-store level (the full Type Registry
// in internal/types layers tiering and promotion on top of the same
// contract).
func (s *Store) InternType(ty ValType) (ValTypeRef, error) {
	for i := 0; i < s.types.Len(); i++ {
		existing, ok := s.types.Get(i)
		if ok && existing.Equal(ty) {
			return ValTypeRef(i), nil
		}
	}
	index := s.types.Len()
	if err := s.types.Push(ty); err != nil {
		return 0, err
	}
	return ValTypeRef(index), nil
}

// ResolveType returns the ValType a ValTypeRef addresses, or ok=false if
// the reference is out of range.
func (s *Store) ResolveType(ref ValTypeRef) (ValType, bool) {
	return s.types.Get(int(ref))
}

// AddList appends a List value whose elements are the given ValueRefs,
// which the caller must already have added via AddValue.
func (s *Store) AddList(elemType ValTypeRef, items []ValueRef) (ValueRef, error) {
	return s.AddValue(ComponentValue{Kind: KindList, Items: append([]ValueRef(nil), items...)})
}

// AddTuple appends a Tuple value over the given element ValueRefs.
func (s *Store) AddTuple(items []ValueRef) (ValueRef, error) {
	return s.AddValue(ComponentValue{Kind: KindTuple, Items: append([]ValueRef(nil), items...)})
}

// AddRecord appends a Record value. fields must be in the same order as
// the owning ValType's Fields.
func (s *Store) AddRecord(fields []ValueRef) (ValueRef, error) {
	return s.AddValue(ComponentValue{Kind: KindRecord, Fields: append([]ValueRef(nil), fields...)})
}

// AddVariant appends a Variant value selecting caseName, with payload (if
// any) already added via AddValue.
func (s *Store) AddVariant(caseName string, payload ValueRef, hasPayload bool) (ValueRef, error) {
	return s.AddValue(ComponentValue{
		Kind:        KindVariant,
		CaseName:    caseName,
		HasPayload:  hasPayload,
		CasePayload: payload,
	})
}

// AddEnum appends an Enum value selecting case.
func (s *Store) AddEnum(caseName string) (ValueRef, error) {
	return s.AddValue(ComponentValue{Kind: KindEnum, CaseName: caseName})
}

// AddFlags appends a Flags value; names and bits must be the same length.
func (s *Store) AddFlags(names []string, bits []bool) (ValueRef, error) {
	if len(names) != len(bits) {
		return 0, errors.ValidationError("flags names/bits length mismatch")
	}
	return s.AddValue(ComponentValue{
		Kind:      KindFlags,
		FlagNames: append([]string(nil), names...),
		FlagBits:  append([]bool(nil), bits...),
	})
}

// AddOption appends an Option value. present=false encodes none.
func (s *Store) AddOption(present bool, value ValueRef) (ValueRef, error) {
	return s.AddValue(ComponentValue{Kind: KindOption, OptionPresent: present, OptionValue: value})
}

// AddResult appends a Result value. isOk selects the ok/err arm; hasValue
// is false for a Result<_, _> arm whose payload type is unit.
func (s *Store) AddResult(isOk, hasValue bool, value ValueRef) (ValueRef, error) {
	return s.AddValue(ComponentValue{
		Kind:           KindResult,
		ResultIsOk:     isOk,
		ResultHasValue: hasValue,
		ResultValue:    value,
	})
}

// MemoryUsage reports the store's live element counts against its fixed
// capacities, for budget-observation purposes.
func (s *Store) MemoryUsage() (usedValues, budgetValues, usedTypes, budgetTypes int) {
	return s.values.Len(), s.values.Capacity(), s.types.Len(), s.types.Capacity()
}
