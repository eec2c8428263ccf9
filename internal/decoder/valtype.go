package decoder

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/valuestore"
)

// Core WebAssembly value-type encoding bytes (WebAssembly 1.0 §5.3.1).
const (
	coreValI32 = 0x7F
	coreValI64 = 0x7E
	coreValF32 = 0x7D
	coreValF64 = 0x7C
)

const funcTypeForm = 0x60

// coreValTypeToComponentKind maps a core numeric value type to the
// component-level scalar valuestore.Kind used to represent it once
// interned — a deliberate, documented simplification: core wasm has no
// signedness distinction in its value types, so i32/i64 are interned as
// the signed component kinds (s32/s64) rather than split into s/u variants.
func coreValTypeToComponentKind(b byte) (valuestore.Kind, error) {
	switch b {
	case coreValI32:
		return valuestore.KindS32, nil
	case coreValI64:
		return valuestore.KindS64, nil
	case coreValF32:
		return valuestore.KindF32, nil
	case coreValF64:
		return valuestore.KindF64, nil
	default:
		return 0, errors.ParseError(0, "unsupported core value type")
	}
}

// decodeValTypeVec reads a ULEB32 count followed by that many single-byte
// core value types, returning their component-level Kinds.
func decodeValTypeVec(data []byte, offset int) ([]valuestore.Kind, int, error) {
	count, n, err := readULEB32(data, offset)
	if err != nil {
		return nil, 0, err
	}
	pos := offset + n
	kinds := make([]valuestore.Kind, count)
	for i := range kinds {
		if pos >= len(data) {
			return nil, 0, errors.ParseError(int64(pos), "truncated value type vector")
		}
		kind, err := coreValTypeToComponentKind(data[pos])
		if err != nil {
			return nil, 0, errors.ParseError(int64(pos), "unsupported value type byte")
		}
		kinds[i] = kind
		pos++
	}
	return kinds, pos - offset, nil
}

// funcTypeEntry is one decoded entry of a core module's Type section.
type funcTypeEntry struct {
	Params  []valuestore.Kind
	Results []valuestore.Kind
}

// decodeFuncType reads a single `0x60 vec(valtype) vec(valtype)` function
// type starting at offset.
func decodeFuncType(data []byte, offset int) (funcTypeEntry, int, error) {
	if offset >= len(data) {
		return funcTypeEntry{}, 0, errors.ParseError(int64(offset), "truncated function type")
	}
	if data[offset] != funcTypeForm {
		return funcTypeEntry{}, 0, errors.ParseError(int64(offset), "expected function type form 0x60")
	}
	pos := offset + 1

	params, n, err := decodeValTypeVec(data, pos)
	if err != nil {
		return funcTypeEntry{}, 0, err
	}
	pos += n

	results, n, err := decodeValTypeVec(data, pos)
	if err != nil {
		return funcTypeEntry{}, 0, err
	}
	pos += n

	return funcTypeEntry{Params: params, Results: results}, pos - offset, nil
}

// decodeTypeSection reads a whole Type section body: a ULEB32 count
// followed by that many function type entries.
func decodeTypeSection(data []byte) ([]funcTypeEntry, error) {
	count, n, err := readULEB32(data, 0)
	if err != nil {
		return nil, err
	}
	pos := n
	entries := make([]funcTypeEntry, count)
	for i := range entries {
		entry, consumed, err := decodeFuncType(data, pos)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
		pos += consumed
	}
	return entries, nil
}
