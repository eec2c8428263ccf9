package valuestore

import (
	"encoding/binary"
	"math"
)

// ComponentValue is an instance of an interned ValType. Scalar payloads are
// stored as their canonical bit pattern (Bool/U8/U16/U32/U64) and
// reinterpreted through the As* accessors according to Kind — this keeps
// encode/decode unambiguous instead of carrying redundant signed/float
// fields that could fall out of sync with the canonical bits. Compound
// values (List, Tuple, Record, Variant's payload, Option's payload,
// Result's payload) hold ValueRef indices into the owning Store rather
// than embedded payloads.
type ComponentValue struct {
	Kind Kind

	Bool bool
	U8   uint8
	U16  uint16
	U32  uint32
	U64  uint64
	Str  string

	// List, Tuple
	Items []ValueRef

	// Record: index-aligned with the owning ValType's Fields
	Fields []ValueRef

	// Variant, Enum
	CaseName    string
	HasPayload  bool
	CasePayload ValueRef

	// Flags
	FlagNames []string
	FlagBits  []bool

	// Option
	OptionPresent bool
	OptionValue   ValueRef

	// Result
	ResultIsOk     bool
	ResultHasValue bool
	ResultValue    ValueRef

	// Own, Borrow
	Handle uint32
}

// NewS32 builds a ComponentValue of kind S32.
func NewS32(n int32) ComponentValue { return ComponentValue{Kind: KindS32, U32: uint32(n)} }

// NewU32 builds a ComponentValue of kind U32.
func NewU32(n uint32) ComponentValue { return ComponentValue{Kind: KindU32, U32: n} }

// NewS64 builds a ComponentValue of kind S64.
func NewS64(n int64) ComponentValue { return ComponentValue{Kind: KindS64, U64: uint64(n)} }

// NewU64 builds a ComponentValue of kind U64.
func NewU64(n uint64) ComponentValue { return ComponentValue{Kind: KindU64, U64: n} }

// NewF32 builds a ComponentValue of kind F32.
func NewF32(f float32) ComponentValue { return ComponentValue{Kind: KindF32, U32: math.Float32bits(f)} }

// NewF64 builds a ComponentValue of kind F64.
func NewF64(f float64) ComponentValue { return ComponentValue{Kind: KindF64, U64: math.Float64bits(f)} }

// NewBool builds a ComponentValue of kind Bool.
func NewBool(b bool) ComponentValue { return ComponentValue{Kind: KindBool, Bool: b} }

// NewChar builds a ComponentValue of kind Char.
func NewChar(r rune) ComponentValue { return ComponentValue{Kind: KindChar, U32: uint32(r)} }

// NewString builds a ComponentValue of kind String.
func NewString(s string) ComponentValue { return ComponentValue{Kind: KindString, Str: s} }

// AsS32 reinterprets the stored bits as a signed 32-bit integer.
func (v ComponentValue) AsS32() int32 { return int32(v.U32) }

// AsS64 reinterprets the stored bits as a signed 64-bit integer.
func (v ComponentValue) AsS64() int64 { return int64(v.U64) }

// AsF32 reinterprets the stored bits as an IEEE-754 single.
func (v ComponentValue) AsF32() float32 { return math.Float32frombits(v.U32) }

// AsF64 reinterprets the stored bits as an IEEE-754 double.
func (v ComponentValue) AsF64() float64 { return math.Float64frombits(v.U64) }

// AsChar reinterprets the stored bits as a Unicode scalar value.
func (v ComponentValue) AsChar() rune { return rune(v.U32) }

// encodeComponentValue is the to_bytes half of ComponentValue's round-trip
// contract, used to feed the store's bounded.Vec checksum.
func encodeComponentValue(v ComponentValue) []byte {
	buf := make([]byte, 0, 24)
	buf = append(buf, byte(v.Kind))
	buf = appendBool(buf, v.Bool)
	buf = append(buf, v.U8)
	buf = binary.LittleEndian.AppendUint16(buf, v.U16)
	buf = binary.LittleEndian.AppendUint32(buf, v.U32)
	buf = binary.LittleEndian.AppendUint64(buf, v.U64)
	buf = appendString(buf, v.Str)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.Items)))
	for _, r := range v.Items {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.Fields)))
	for _, r := range v.Fields {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(r))
	}

	buf = appendString(buf, v.CaseName)
	buf = appendBool(buf, v.HasPayload)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(v.CasePayload))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(v.FlagNames)))
	for i, n := range v.FlagNames {
		buf = appendString(buf, n)
		buf = appendBool(buf, v.FlagBits[i])
	}

	buf = appendBool(buf, v.OptionPresent)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(v.OptionValue))

	buf = appendBool(buf, v.ResultIsOk)
	buf = appendBool(buf, v.ResultHasValue)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(v.ResultValue))

	buf = binary.LittleEndian.AppendUint32(buf, v.Handle)
	return buf
}

// decodeComponentValue is the from_bytes half of ComponentValue's
// round-trip contract.
func decodeComponentValue(buf []byte) (ComponentValue, error) {
	var v ComponentValue
	if len(buf) < 16 {
		return v, errShortBuffer
	}
	v.Kind = Kind(buf[0])
	buf = buf[1:]
	v.Bool = buf[0] == 1
	buf = buf[1:]
	v.U8 = buf[0]
	buf = buf[1:]
	v.U16 = binary.LittleEndian.Uint16(buf)
	buf = buf[2:]
	v.U32 = binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	v.U64 = binary.LittleEndian.Uint64(buf)
	buf = buf[8:]

	str, rest, err := readString(buf)
	if err != nil {
		return ComponentValue{}, err
	}
	v.Str = str
	buf = rest

	itemCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	v.Items = make([]ValueRef, itemCount)
	for i := range v.Items {
		v.Items[i] = ValueRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}

	fieldCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	v.Fields = make([]ValueRef, fieldCount)
	for i := range v.Fields {
		v.Fields[i] = ValueRef(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
	}

	caseName, rest, err := readString(buf)
	if err != nil {
		return ComponentValue{}, err
	}
	v.CaseName = caseName
	buf = rest
	v.HasPayload = buf[0] == 1
	buf = buf[1:]
	v.CasePayload = ValueRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	flagCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]
	v.FlagNames = make([]string, flagCount)
	v.FlagBits = make([]bool, flagCount)
	for i := range v.FlagNames {
		name, rest, err := readString(buf)
		if err != nil {
			return ComponentValue{}, err
		}
		buf = rest
		v.FlagNames[i] = name
		v.FlagBits[i] = buf[0] == 1
		buf = buf[1:]
	}

	v.OptionPresent = buf[0] == 1
	buf = buf[1:]
	v.OptionValue = ValueRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	v.ResultIsOk = buf[0] == 1
	buf = buf[1:]
	v.ResultHasValue = buf[0] == 1
	buf = buf[1:]
	v.ResultValue = ValueRef(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]

	v.Handle = binary.LittleEndian.Uint32(buf)
	return v, nil
}
