package interpreter

import (
	"github.com/wrt-go/wrt/internal/infra/errors"
)

// Decode parses a function body's bytecode into a flat Instruction slice,
// resolving structured branch targets so Run's interpretation loop never
// has to re-scan for a matching End. Grounded on
// original_source/wrt-runtime/src/instruction_parser.rs's opcode table —
// same byte values, same instruction shapes — generalized with explicit
// branch-target resolution the original leaves to its caller.
func Decode(bytecode []byte) ([]Instruction, error) {
	var out []Instruction
	offset := 0
	for offset < len(bytecode) {
		inst, consumed, err := decodeOne(bytecode, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
		offset += consumed
	}
	if err := resolveBranches(out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeOne(data []byte, offset int) (Instruction, int, error) {
	if offset >= len(data) {
		return Instruction{}, 0, errors.ParseError(int64(offset), "unexpected end of bytecode")
	}
	opcode := data[offset]
	consumed := 1

	switch opcode {
	case 0x00:
		return Instruction{Op: OpUnreachable}, consumed, nil
	case 0x01:
		return Instruction{Op: OpNop}, consumed, nil
	case 0x02, 0x03, 0x04:
		blockType, n, err := decodeBlockType(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		consumed += n
		op := map[byte]Opcode{0x02: OpBlock, 0x03: OpLoop, 0x04: OpIf}[opcode]
		return Instruction{Op: op, BlockTypeIdx: blockType, ElseIndex: -1}, consumed, nil
	case 0x05:
		return Instruction{Op: OpElse}, consumed, nil
	case 0x0B:
		return Instruction{Op: OpEnd}, consumed, nil
	case 0x0C, 0x0D:
		idx, n, err := readULEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		op := OpBr
		if opcode == 0x0D {
			op = OpBrIf
		}
		return Instruction{Op: op, Idx: idx}, consumed + n, nil
	case 0x0E:
		count, n, err := readULEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		consumed += n
		targets := make([]uint32, count)
		for i := range targets {
			t, n, err := readULEB32(data, offset+consumed)
			if err != nil {
				return Instruction{}, 0, err
			}
			targets[i] = t
			consumed += n
		}
		def, n, err := readULEB32(data, offset+consumed)
		if err != nil {
			return Instruction{}, 0, err
		}
		consumed += n
		return Instruction{Op: OpBrTable, BrTableTargets: targets, BrTableDefault: def}, consumed, nil
	case 0x0F:
		return Instruction{Op: OpReturn}, consumed, nil
	case 0x10:
		idx, n, err := readULEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: OpCall, Idx: idx}, consumed + n, nil
	case 0x11:
		idx, n, err := readULEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		consumed += n + 1 // table index byte, always 0 in the MVP
		return Instruction{Op: OpCallIndirect, Idx: idx}, consumed, nil

	case 0x1A:
		return Instruction{Op: OpDrop}, consumed, nil
	case 0x1B:
		return Instruction{Op: OpSelect}, consumed, nil

	case 0x20, 0x21, 0x22, 0x23, 0x24:
		idx, n, err := readULEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		op := map[byte]Opcode{0x20: OpLocalGet, 0x21: OpLocalSet, 0x22: OpLocalTee, 0x23: OpGlobalGet, 0x24: OpGlobalSet}[opcode]
		return Instruction{Op: op, Idx: idx}, consumed + n, nil

	case 0x28, 0x29, 0x2A, 0x2B, 0x36, 0x37, 0x38, 0x39:
		memArg, n, err := decodeMemArg(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		op := map[byte]Opcode{
			0x28: OpI32Load, 0x29: OpI64Load, 0x2A: OpF32Load, 0x2B: OpF64Load,
			0x36: OpI32Store, 0x37: OpI64Store, 0x38: OpF32Store, 0x39: OpF64Store,
		}[opcode]
		return Instruction{Op: op, MemArg: memArg}, consumed + n, nil

	case 0x3F, 0x40:
		if offset+2 > len(data) {
			return Instruction{}, 0, errors.ParseError(int64(offset), "truncated memory.size/grow")
		}
		op := OpMemorySize
		if opcode == 0x40 {
			op = OpMemoryGrow
		}
		return Instruction{Op: op}, consumed + 1, nil

	case 0x41:
		v, n, err := readSLEB32(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: OpI32Const, I32: v}, consumed + n, nil
	case 0x42:
		v, n, err := readSLEB64(data, offset+1)
		if err != nil {
			return Instruction{}, 0, err
		}
		return Instruction{Op: OpI64Const, I64: v}, consumed + n, nil
	case 0x43:
		if offset+5 > len(data) {
			return Instruction{}, 0, errors.ParseError(int64(offset), "truncated f32.const")
		}
		bits := leU32(data[offset+1 : offset+5])
		return Instruction{Op: OpF32Const, F32: bits}, consumed + 4, nil
	case 0x44:
		if offset+9 > len(data) {
			return Instruction{}, 0, errors.ParseError(int64(offset), "truncated f64.const")
		}
		bits := leU64(data[offset+1 : offset+9])
		return Instruction{Op: OpF64Const, F64: bits}, consumed + 8, nil

	case 0xFE:
		return decodeAtomic(data, offset)

	default:
		if op, ok := simpleOpcodes[opcode]; ok {
			return Instruction{Op: op}, consumed, nil
		}
		return Instruction{}, 0, errors.ParseError(int64(offset), "unknown instruction opcode")
	}
}

// simpleOpcodes covers every instruction with no immediate operand:
// comparisons, arithmetic, bitwise ops, and conversions.
var simpleOpcodes = map[byte]Opcode{
	0x45: OpI32Eqz, 0x46: OpI32Eq, 0x47: OpI32Ne,
	0x48: OpI32LtS, 0x49: OpI32LtU, 0x4A: OpI32GtS, 0x4B: OpI32GtU,
	0x4C: OpI32LeS, 0x4D: OpI32LeU, 0x4E: OpI32GeS, 0x4F: OpI32GeU,

	0x6A: OpI32Add, 0x6B: OpI32Sub, 0x6C: OpI32Mul,
	0x6D: OpI32DivS, 0x6E: OpI32DivU, 0x6F: OpI32RemS, 0x70: OpI32RemU,
	0x71: OpI32And, 0x72: OpI32Or, 0x73: OpI32Xor,
	0x74: OpI32Shl, 0x75: OpI32ShrS, 0x76: OpI32ShrU, 0x77: OpI32Rotl, 0x78: OpI32Rotr,

	0x7C: OpI64Add, 0x7D: OpI64Sub, 0x7E: OpI64Mul,
	0x7F: OpI64DivS, 0x80: OpI64DivU, 0x81: OpI64RemS, 0x82: OpI64RemU,
	0x83: OpI64And, 0x84: OpI64Or, 0x85: OpI64Xor,
	0x86: OpI64Shl, 0x87: OpI64ShrS, 0x88: OpI64ShrU, 0x89: OpI64Rotl, 0x8A: OpI64Rotr,

	0x92: OpF32Add, 0x93: OpF32Sub, 0x94: OpF32Mul, 0x95: OpF32Div,
	0x96: OpF32Min, 0x97: OpF32Max, 0x98: OpF32Copysign,

	0xA0: OpF64Add, 0xA1: OpF64Sub, 0xA2: OpF64Mul, 0xA3: OpF64Div,
	0xA4: OpF64Min, 0xA5: OpF64Max, 0xA6: OpF64Copysign,

	0xA7: OpI32WrapI64,
	0xAC: OpI64ExtendI32S, 0xAD: OpI64ExtendI32U,
	0xB2: OpF32ConvertI32S,
	0xB7: OpF64ConvertI32S,
}

// atomicSubopcodes maps the byte following a 0xFE prefix to the atomic
// Opcode it selects, in the order instruction.go declares them. This is a
// local, compact sub-opcode numbering (not the WebAssembly threads
// proposal's official byte values), since nothing in this module needs
// to interoperate with wasm binaries emitted by an external toolchain.
var atomicSubopcodes = []Opcode{
	OpI32AtomicLoad, OpI64AtomicLoad, OpI32AtomicStore, OpI64AtomicStore,
	OpI32AtomicRmwAdd, OpI32AtomicRmwCmpxchg, OpI64AtomicRmwAdd, OpI64AtomicRmwCmpxchg,
	OpMemoryAtomicWait32, OpMemoryAtomicWait64, OpMemoryAtomicNotify, OpAtomicFence,
}

func decodeAtomic(data []byte, offset int) (Instruction, int, error) {
	if offset+1 >= len(data) {
		return Instruction{}, 0, errors.ParseError(int64(offset), "truncated atomic instruction")
	}
	sub := data[offset+1]
	if int(sub) >= len(atomicSubopcodes) {
		return Instruction{}, 0, errors.ParseError(int64(offset), "unknown atomic sub-opcode")
	}
	op := atomicSubopcodes[sub]
	consumed := 2
	if op == OpAtomicFence {
		if offset+consumed >= len(data) {
			return Instruction{}, 0, errors.ParseError(int64(offset), "truncated atomic.fence")
		}
		return Instruction{Op: op}, consumed + 1, nil // reserved byte
	}
	memArg, n, err := decodeMemArg(data, offset+consumed)
	if err != nil {
		return Instruction{}, 0, err
	}
	return Instruction{Op: op, MemArg: memArg}, consumed + n, nil
}

func decodeBlockType(data []byte, offset int) (uint32, int, error) {
	if offset >= len(data) {
		return 0, 0, errors.ParseError(int64(offset), "truncated block type")
	}
	// 0x40 (empty) and the value-type bytes all fit in one byte; a type
	// index (any other non-negative LEB128 value) is not modeled here
	// since this interpreter does not yet resolve multi-value block
	// signatures against the type registry — documented scope limit.
	return uint32(data[offset]), 1, nil
}

func decodeMemArg(data []byte, offset int) (MemArg, int, error) {
	align, n1, err := readULEB32(data, offset)
	if err != nil {
		return MemArg{}, 0, err
	}
	off, n2, err := readULEB32(data, offset+n1)
	if err != nil {
		return MemArg{}, 0, err
	}
	return MemArg{AlignExponent: align, Offset: off}, n1 + n2, nil
}

func readULEB32(data []byte, offset int) (uint32, int, error) {
	var result uint32
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
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, pos - offset, nil
		}
		shift += 7
	}
}

func readSLEB32(data []byte, offset int) (int32, int, error) {
	var result int32
	var shift uint
	pos := offset
	var b byte
	for {
		if pos >= len(data) {
			return 0, 0, errors.ParseError(int64(offset), "truncated LEB128 i32")
		}
		b = data[pos]
		pos++
		result |= int32(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, pos - offset, nil
}

func readSLEB64(data []byte, offset int) (int64, int, error) {
	var result int64
	var shift uint
	pos := offset
	var b byte
	for {
		if pos >= len(data) {
			return 0, 0, errors.ParseError(int64(offset), "truncated LEB128 i64")
		}
		b = data[pos]
		pos++
		result |= int64(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, pos - offset, nil
}

func leU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// resolveBranches walks the flat instruction stream once, matching each
// Block/Loop/If with its structured End (and each If with its optional
// Else), so Run's branch handling is an O(1) index jump rather than a
// re-scan.
func resolveBranches(instrs []Instruction) error {
	type open struct {
		index     int
		elseIndex int
	}
	var stack []open
	for i, inst := range instrs {
		switch inst.Op {
		case OpBlock, OpLoop, OpIf:
			stack = append(stack, open{index: i, elseIndex: -1})
		case OpElse:
			if len(stack) == 0 {
				return errors.ParseError(0, "else without matching if")
			}
			stack[len(stack)-1].elseIndex = i
		case OpEnd:
			if len(stack) == 0 {
				continue // function-level End with no enclosing block
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if instrs[top.index].Op == OpLoop {
				instrs[top.index].Continuation = top.index
			} else {
				instrs[top.index].Continuation = i
			}
			instrs[top.index].ElseIndex = top.elseIndex
			if top.elseIndex != -1 {
				instrs[top.elseIndex].Continuation = i
			}
		}
	}
	if len(stack) != 0 {
		return errors.ParseError(0, "unclosed block/loop/if")
	}
	return nil
}
