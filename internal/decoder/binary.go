package decoder

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
)

// BinaryKind is the detected WebAssembly binary flavor, read from the
// 8-byte header magic (spec.md §6 "Module format"/"Component format").
type BinaryKind uint8

const (
	BinaryUnknown BinaryKind = iota
	BinaryCoreModule
	BinaryComponent
)

func (k BinaryKind) String() string {
	switch k {
	case BinaryCoreModule:
		return "core-module"
	case BinaryComponent:
		return "component"
	default:
		return "unknown"
	}
}

var (
	coreMagic      = [4]byte{0x00, 0x61, 0x73, 0x6D} // \0asm
	componentMagic = [4]byte{0x00, 0x63, 0x6D, 0x70}  // \0cmp
	version1       = [4]byte{0x01, 0x00, 0x00, 0x00}
)

// DetectBinaryKind inspects the first 8 bytes of data and classifies it as
// a core module or a Component Model component.
func DetectBinaryKind(data []byte) (BinaryKind, error) {
	if len(data) < 8 {
		return BinaryUnknown, errors.ParseError(0, "binary shorter than 8-byte header")
	}
	switch {
	case matches4(data[0:4], coreMagic) && matches4(data[4:8], version1):
		return BinaryCoreModule, nil
	case matches4(data[0:4], componentMagic) && matches4(data[4:8], version1):
		return BinaryComponent, nil
	case matches4(data[0:4], coreMagic):
		return BinaryUnknown, errors.ParseError(4, "unsupported core module version")
	case matches4(data[0:4], componentMagic):
		return BinaryUnknown, errors.ParseError(4, "unsupported component version")
	default:
		return BinaryUnknown, errors.ParseError(0, "unrecognized magic number")
	}
}

func matches4(got []byte, want [4]byte) bool {
	return got[0] == want[0] && got[1] == want[1] && got[2] == want[2] && got[3] == want[3]
}

// readULEB32 decodes an unsigned LEB128 u32 starting at offset, returning
// the value and the number of bytes consumed.
func readULEB32(data []byte, offset int) (value uint32, n int, err error) {
	var shift uint
	pos := offset
	for {
		if pos >= len(data) {
			return 0, 0, errors.ParseError(int64(offset), "truncated LEB128 u32")
		}
		b := data[pos]
		pos++
		if shift >= 32 {
			return 0, 0, errors.ParseError(int64(offset), "LEB128 u32 overflow")
		}
		value |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, pos - offset, nil
		}
		shift += 7
	}
}

// readName decodes a length-prefixed UTF-8 string (core wasm "name"
// production: ULEB32 byte length, then that many bytes).
func readName(data []byte, offset int) (string, int, error) {
	length, n, err := readULEB32(data, offset)
	if err != nil {
		return "", 0, err
	}
	start := offset + n
	end := start + int(length)
	if end > len(data) {
		return "", 0, errors.ParseError(int64(offset), "truncated name")
	}
	return string(data[start:end]), end - offset, nil
}
