// Package types implements the Component Model Type Registry: a three-tier
// (hot/warm/cold) canonicalizing store for interned types, with constant-
// time lookup for hot/warm entries and promotion-on-access for cold ones.
package types

import (
	"encoding/binary"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/valuestore"
)

// Kind classifies a registered ComponentType at the granularity the
// decoder's component-registration path needs: primitive/function/record/
// variant/list/resource/component/instance/module (spec.md §4.4).
type Kind uint8

const (
	// KindValue wraps a valuestore.ValType — covers primitive scalars,
	// records, variants, lists, tuples, enums, options, results, flags,
	// and resource handle types (own/borrow).
	KindValue Kind = iota
	KindFunction
	KindResource
	KindComponent
	KindInstance
	KindModule
)

// Tier is a type's storage class within the registry.
type Tier uint8

const (
	TierHot Tier = iota
	TierWarm
	TierCold
)

func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return "unknown"
	}
}

// Import is a named, typed import slot of a component or module signature.
type Import struct {
	Name string
	Type TypeRef
}

// Export is a named, typed export slot of a component, instance, or module
// signature.
type Export struct {
	Name string
	Type TypeRef
}

// FunctionType is a function signature: parameter and result types by
// TypeRef (each resolving to a KindValue entry).
type FunctionType struct {
	Params  []TypeRef
	Results []TypeRef
}

// Signature is the shared shape of component, instance, and module type
// definitions: a set of named imports and exports.
type Signature struct {
	Imports []Import
	Exports []Export
}

// ResourceType describes a resource's handle representation. Full
// lifecycle (create/acquire/transfer/drop) lives in internal/resource;
// this is just the type-level declaration the registry interns.
type ResourceType struct {
	HasDestructor bool
}

// ComponentType is a single interned Component Model type. Exactly the
// fields relevant to Kind are populated; the rest are zero values.
type ComponentType struct {
	Kind     Kind
	Value    valuestore.ValType
	Function FunctionType
	Sig      Signature
	Resource ResourceType
}

// Equal reports structural equality, the dedup key Registry.Register uses.
func (t ComponentType) Equal(o ComponentType) bool {
	return string(encodeComponentType(t)) == string(encodeComponentType(o))
}

// classify assigns a storage tier following spec.md §4.5's policy: hot for
// primitives/function signatures/records, warm for variants/lists/enums
// (and the other compound value kinds: tuples/options/results/flags),
// cold for components/instances/modules/resources.
func classify(t ComponentType) Tier {
	switch t.Kind {
	case KindFunction:
		return TierHot
	case KindResource, KindComponent, KindInstance, KindModule:
		return TierCold
	case KindValue:
		switch t.Value.Kind {
		case valuestore.KindRecord:
			return TierHot
		case valuestore.KindVariant, valuestore.KindList, valuestore.KindEnum,
			valuestore.KindTuple, valuestore.KindOption, valuestore.KindResult, valuestore.KindFlags:
			return TierWarm
		default:
			return TierHot // scalars: bool, sN/uN, fN, char, string, own, borrow
		}
	default:
		return TierWarm
	}
}

func appendBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 4 {
		return "", nil, errShortBuffer
	}
	n := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return "", nil, errShortBuffer
	}
	return string(buf[:n]), buf[n:], nil
}

var errShortBuffer = errors.ValidationError("truncated type-registry encoding")

func appendImports(buf []byte, imports []Import) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(imports)))
	for _, im := range imports {
		buf = appendString(buf, im.Name)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(im.Type))
	}
	return buf
}

func readImports(buf []byte) ([]Import, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, errShortBuffer
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	out := make([]Import, count)
	for i := range out {
		name, rest, err := readString(buf)
		if err != nil {
			return nil, nil, err
		}
		buf = rest
		out[i] = Import{Name: name, Type: TypeRef(binary.LittleEndian.Uint32(buf))}
		buf = buf[4:]
	}
	return out, buf, nil
}

func appendExports(buf []byte, exports []Export) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(exports)))
	for _, ex := range exports {
		buf = appendString(buf, ex.Name)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ex.Type))
	}
	return buf
}

func readExports(buf []byte) ([]Export, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, errShortBuffer
	}
	count := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	out := make([]Export, count)
	for i := range out {
		name, rest, err := readString(buf)
		if err != nil {
			return nil, nil, err
		}
		buf = rest
		out[i] = Export{Name: name, Type: TypeRef(binary.LittleEndian.Uint32(buf))}
		buf = buf[4:]
	}
	return out, buf, nil
}

// encodeComponentType is ComponentType's to_bytes half, used for both
// structural-equality dedup and cold-tier serialization.
func encodeComponentType(t ComponentType) []byte {
	buf := make([]byte, 0, 48)
	buf = append(buf, byte(t.Kind))
	buf = valuestoreEncodeValType(buf, t.Value)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Function.Params)))
	for _, r := range t.Function.Params {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Function.Results)))
	for _, r := range t.Function.Results {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}

	buf = appendImports(buf, t.Sig.Imports)
	buf = appendExports(buf, t.Sig.Exports)
	buf = appendBool(buf, t.Resource.HasDestructor)
	return buf
}

// decodeComponentType is ComponentType's from_bytes half.
func decodeComponentType(buf []byte) (ComponentType, error) {
	var t ComponentType
	if len(buf) < 1 {
		return t, errShortBuffer
	}
	t.Kind = Kind(buf[0])
	buf = buf[1:]

	val, rest, err := valuestoreDecodeValType(buf)
	if err != nil {
		return ComponentType{}, err
	}
	t.Value = val
	buf = rest

	if len(buf) < 4 {
		return ComponentType{}, errShortBuffer
	}
	paramCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Function.Params = make([]TypeRef, paramCount)
	for i := range t.Function.Params {
		t.Function.Params[i] = TypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}
	resultCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Function.Results = make([]TypeRef, resultCount)
	for i := range t.Function.Results {
		t.Function.Results[i] = TypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}

	imports, rest, err := readImports(buf)
	if err != nil {
		return ComponentType{}, err
	}
	t.Sig.Imports = imports
	buf = rest

	exports, rest, err := readExports(buf)
	if err != nil {
		return ComponentType{}, err
	}
	t.Sig.Exports = exports
	buf = rest

	if len(buf) < 1 {
		return ComponentType{}, errShortBuffer
	}
	t.Resource.HasDestructor = buf[0] == 1
	return t, nil
}

// valuestoreEncodeValType appends a ValType's own to_bytes encoding to buf.
// valuestore.ValType's fields are all exported, so the registry encodes it
// directly rather than importing a private helper from that package.
func valuestoreEncodeValType(buf []byte, t valuestore.ValType) []byte {
	buf = append(buf, byte(t.Kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Elem))
	buf = appendBool(buf, t.HasOk)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Ok))
	buf = appendBool(buf, t.HasErr)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Err))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Items)))
	for _, ref := range t.Items {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ref))
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Fields)))
	for _, f := range t.Fields {
		buf = appendString(buf, f.Name)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Type))
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Cases)))
	for _, c := range t.Cases {
		buf = appendString(buf, c.Name)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Type))
		buf = appendBool(buf, c.HasPayload)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t.Names)))
	for _, n := range t.Names {
		buf = appendString(buf, n)
	}
	return buf
}

func valuestoreDecodeValType(buf []byte) (valuestore.ValType, []byte, error) {
	var t valuestore.ValType
	if len(buf) < 14 {
		return t, nil, errShortBuffer
	}
	t.Kind = valuestore.Kind(buf[0])
	buf = buf[1:]
	t.Elem = valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	t.HasOk = buf[0] == 1
	buf = buf[1:]
	t.Ok = valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	t.HasErr = buf[0] == 1
	buf = buf[1:]
	t.Err = valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	itemCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Items = make([]valuestore.ValTypeRef, itemCount)
	for i := range t.Items {
		t.Items[i] = valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}

	fieldCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Fields = make([]valuestore.Field, fieldCount)
	for i := range t.Fields {
		name, rest, err := readString(buf)
		if err != nil {
			return valuestore.ValType{}, nil, err
		}
		buf = rest
		t.Fields[i] = valuestore.Field{Name: name, Type: valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))}
		buf = buf[4:]
	}

	caseCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Cases = make([]valuestore.Case, caseCount)
	for i := range t.Cases {
		name, rest, err := readString(buf)
		if err != nil {
			return valuestore.ValType{}, nil, err
		}
		buf = rest
		typeRef := valuestore.ValTypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		t.Cases[i] = valuestore.Case{Name: name, Type: typeRef, HasPayload: buf[0] == 1}
		buf = buf[1:]
	}

	nameCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Names = make([]string, nameCount)
	for i := range t.Names {
		name, rest, err := readString(buf)
		if err != nil {
			return valuestore.ValType{}, nil, err
		}
		buf = rest
		t.Names[i] = name
	}
	return t, buf, nil
}
