// Package valuestore implements the Component Value Store: a pair of
// append-only, bounded vectors — one of interned ValTypes, one of
// ComponentValues — addressed by ValTypeRef and ValueRef indices.
// Compound values (lists, records, variants, tuples) hold indices into
// the store rather than embedded payloads, so arbitrarily nested component
// values live in a fixed-capacity arena without allocation cycles.
package valuestore

import (
	"encoding/binary"

	"github.com/wrt-go/wrt/internal/infra/errors"
)

var errShortBuffer = errors.ValidationError("truncated valuestore encoding")

// Kind classifies a ValType. Primitive kinds carry no auxiliary data;
// compound kinds reference other interned types by ValTypeRef.
type Kind uint8

const (
	KindBool Kind = iota
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindChar
	KindString
	KindList
	KindRecord
	KindTuple
	KindVariant
	KindEnum
	KindOption
	KindResult
	KindFlags
	KindOwn
	KindBorrow
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindS8:
		return "s8"
	case KindU8:
		return "u8"
	case KindS16:
		return "s16"
	case KindU16:
		return "u16"
	case KindS32:
		return "s32"
	case KindU32:
		return "u32"
	case KindS64:
		return "s64"
	case KindU64:
		return "u64"
	case KindF32:
		return "f32"
	case KindF64:
		return "f64"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindTuple:
		return "tuple"
	case KindVariant:
		return "variant"
	case KindEnum:
		return "enum"
	case KindOption:
		return "option"
	case KindResult:
		return "result"
	case KindFlags:
		return "flags"
	case KindOwn:
		return "own"
	case KindBorrow:
		return "borrow"
	default:
		return "unknown"
	}
}

// Field is a named record field, referencing its type by ValTypeRef.
type Field struct {
	Name string
	Type ValTypeRef
}

// Case is a named variant case with an optional payload type. HasPayload
// is false for a case with no associated value (e.g. an enum-like case).
type Case struct {
	Name       string
	Type       ValTypeRef
	HasPayload bool
}

// ValType is an interned Component Model type. Primitive kinds use none of
// the compound fields; compound kinds use exactly the fields relevant to
// their Kind (Elem for List/Option/Own/Borrow, Fields for Record, Items for
// Tuple, Cases for Variant, Names for Enum/Flags, Ok/Err for Result).
type ValType struct {
	Kind   Kind
	Elem   ValTypeRef
	Fields []Field
	Items  []ValTypeRef
	Cases  []Case
	Names  []string
	Ok     ValTypeRef
	HasOk  bool
	Err    ValTypeRef
	HasErr bool
}

// Equal reports structural equality, the dedup key Store.InternType uses.
func (t ValType) Equal(o ValType) bool {
	if t.Kind != o.Kind || t.Elem != o.Elem || t.Ok != o.Ok || t.HasOk != o.HasOk ||
		t.Err != o.Err || t.HasErr != o.HasErr {
		return false
	}
	if len(t.Items) != len(o.Items) {
		return false
	}
	for i := range t.Items {
		if t.Items[i] != o.Items[i] {
			return false
		}
	}
	if len(t.Fields) != len(o.Fields) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i] != o.Fields[i] {
			return false
		}
	}
	if len(t.Cases) != len(o.Cases) {
		return false
	}
	for i := range t.Cases {
		if t.Cases[i] != o.Cases[i] {
			return false
		}
	}
	if len(t.Names) != len(o.Names) {
		return false
	}
	for i := range t.Names {
		if t.Names[i] != o.Names[i] {
			return false
		}
	}
	return true
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

// encodeValType is the to_bytes half of ValType's round-trip contract,
// used to feed the store's bounded.Vec checksum. (internal/types writes
// its cold-tier entries with its own copy of this encoding.)
func encodeValType(t ValType) []byte {
	buf := make([]byte, 0, 32)
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

// decodeValType is the from_bytes half of ValType's round-trip contract.
func decodeValType(buf []byte) (ValType, error) {
	var t ValType
	if len(buf) < 14 {
		return t, errShortBuffer
	}
	t.Kind = Kind(buf[0])
	buf = buf[1:]
	t.Elem = ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	t.HasOk = buf[0] == 1
	buf = buf[1:]
	t.Ok = ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	t.HasErr = buf[0] == 1
	buf = buf[1:]
	t.Err = ValTypeRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	itemCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Items = make([]ValTypeRef, itemCount)
	for i := range t.Items {
		t.Items[i] = ValTypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}

	fieldCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Fields = make([]Field, fieldCount)
	for i := range t.Fields {
		name, rest, err := readString(buf)
		if err != nil {
			return ValType{}, err
		}
		buf = rest
		t.Fields[i] = Field{Name: name, Type: ValTypeRef(binary.LittleEndian.Uint32(buf))}
		buf = buf[4:]
	}

	caseCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Cases = make([]Case, caseCount)
	for i := range t.Cases {
		name, rest, err := readString(buf)
		if err != nil {
			return ValType{}, err
		}
		buf = rest
		typeRef := ValTypeRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		t.Cases[i] = Case{Name: name, Type: typeRef, HasPayload: buf[0] == 1}
		buf = buf[1:]
	}

	nameCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	t.Names = make([]string, nameCount)
	for i := range t.Names {
		name, rest, err := readString(buf)
		if err != nil {
			return ValType{}, err
		}
		buf = rest
		t.Names[i] = name
	}
	return t, nil
}
