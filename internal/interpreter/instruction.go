package interpreter

// Opcode identifies a decoded instruction. Unlike the raw WebAssembly
// byte encoding, each Opcode maps 1:1 onto a fuelcost.Table mnemonic key.
type Opcode uint16

const (
	OpUnreachable Opcode = iota
	OpNop
	OpBlock
	OpLoop
	OpIf
	OpElse
	OpEnd
	OpBr
	OpBrIf
	OpBrTable
	OpReturn
	OpCall
	OpCallIndirect
	OpDrop
	OpSelect
	OpLocalGet
	OpLocalSet
	OpLocalTee
	OpGlobalGet
	OpGlobalSet
	OpI32Load
	OpI64Load
	OpF32Load
	OpF64Load
	OpI32Store
	OpI64Store
	OpF32Store
	OpF64Store
	OpMemorySize
	OpMemoryGrow
	OpI32Const
	OpI64Const
	OpF32Const
	OpF64Const
	OpI32Eqz
	OpI32Eq
	OpI32Ne
	OpI32LtS
	OpI32LtU
	OpI32GtS
	OpI32GtU
	OpI32LeS
	OpI32LeU
	OpI32GeS
	OpI32GeU
	OpI32Add
	OpI32Sub
	OpI32Mul
	OpI32DivS
	OpI32DivU
	OpI32RemS
	OpI32RemU
	OpI32And
	OpI32Or
	OpI32Xor
	OpI32Shl
	OpI32ShrS
	OpI32ShrU
	OpI32Rotl
	OpI32Rotr
	OpI64Add
	OpI64Sub
	OpI64Mul
	OpI64DivS
	OpI64DivU
	OpI64RemS
	OpI64RemU
	OpI64And
	OpI64Or
	OpI64Xor
	OpI64Shl
	OpI64ShrS
	OpI64ShrU
	OpI64Rotl
	OpI64Rotr
	OpF32Add
	OpF32Sub
	OpF32Mul
	OpF32Div
	OpF32Min
	OpF32Max
	OpF32Copysign
	OpF64Add
	OpF64Sub
	OpF64Mul
	OpF64Div
	OpF64Min
	OpF64Max
	OpF64Copysign
	OpI32WrapI64
	OpI64ExtendI32S
	OpI64ExtendI32U
	OpF32ConvertI32S
	OpF64ConvertI32S
	// Atomic instructions (spec.md §4.7 "Atomic instruction set").
	OpI32AtomicLoad
	OpI64AtomicLoad
	OpI32AtomicStore
	OpI64AtomicStore
	OpI32AtomicRmwAdd
	OpI32AtomicRmwCmpxchg
	OpI64AtomicRmwAdd
	OpI64AtomicRmwCmpxchg
	OpMemoryAtomicWait32
	OpMemoryAtomicWait64
	OpMemoryAtomicNotify
	OpAtomicFence
)

// mnemonics maps each Opcode to the fuelcost.Table key naming its cost.
var mnemonics = map[Opcode]string{
	OpUnreachable:         "unreachable",
	OpNop:                 "nop",
	OpBlock:                "block",
	OpLoop:                "loop",
	OpIf:                  "if",
	OpElse:                "else",
	OpEnd:                 "end",
	OpBr:                  "br",
	OpBrIf:                "br_if",
	OpBrTable:             "br_table",
	OpReturn:              "return",
	OpCall:                "call",
	OpCallIndirect:        "call_indirect",
	OpDrop:                "drop",
	OpSelect:              "select",
	OpLocalGet:            "local.get",
	OpLocalSet:            "local.set",
	OpLocalTee:            "local.tee",
	OpGlobalGet:           "global.get",
	OpGlobalSet:           "global.set",
	OpI32Load:             "i32.load",
	OpI64Load:             "i64.load",
	OpF32Load:             "f32.load",
	OpF64Load:             "f64.load",
	OpI32Store:            "i32.store",
	OpI64Store:            "i64.store",
	OpF32Store:            "f32.store",
	OpF64Store:            "f64.store",
	OpMemorySize:          "memory.size",
	OpMemoryGrow:          "memory.grow",
	OpI32Const:            "i32.const",
	OpI64Const:            "i64.const",
	OpF32Const:            "f32.const",
	OpF64Const:            "f64.const",
	OpI32Eqz:              "i32.eqz",
	OpI32Eq:               "i32.eq",
	OpI32Ne:               "i32.ne",
	OpI32LtS:              "i32.lt_s",
	OpI32LtU:              "i32.lt_u",
	OpI32GtS:              "i32.gt_s",
	OpI32GtU:              "i32.gt_u",
	OpI32LeS:              "i32.le_s",
	OpI32LeU:              "i32.le_u",
	OpI32GeS:              "i32.ge_s",
	OpI32GeU:              "i32.ge_u",
	OpI32Add:              "i32.add",
	OpI32Sub:              "i32.sub",
	OpI32Mul:              "i32.mul",
	OpI32DivS:             "i32.div_s",
	OpI32DivU:             "i32.div_u",
	OpI32RemS:             "i32.rem_s",
	OpI32RemU:             "i32.rem_u",
	OpI32And:              "i32.and",
	OpI32Or:               "i32.or",
	OpI32Xor:              "i32.xor",
	OpI32Shl:              "i32.shl",
	OpI32ShrS:             "i32.shr_s",
	OpI32ShrU:             "i32.shr_u",
	OpI32Rotl:             "i32.rotl",
	OpI32Rotr:             "i32.rotr",
	OpI64Add:              "i64.add",
	OpI64Sub:              "i64.sub",
	OpI64Mul:              "i64.mul",
	OpI64DivS:             "i64.div_s",
	OpI64DivU:             "i64.div_u",
	OpI64RemS:             "i64.rem_s",
	OpI64RemU:             "i64.rem_u",
	OpI64And:              "i64.and",
	OpI64Or:               "i64.or",
	OpI64Xor:              "i64.xor",
	OpI64Shl:              "i64.shl",
	OpI64ShrS:             "i64.shr_s",
	OpI64ShrU:             "i64.shr_u",
	OpI64Rotl:             "i64.rotl",
	OpI64Rotr:             "i64.rotr",
	OpF32Add:              "f32.add",
	OpF32Sub:              "f32.sub",
	OpF32Mul:              "f32.mul",
	OpF32Div:              "f32.div",
	OpF32Min:              "f32.min",
	OpF32Max:              "f32.max",
	OpF32Copysign:         "f32.copysign",
	OpF64Add:              "f64.add",
	OpF64Sub:              "f64.sub",
	OpF64Mul:              "f64.mul",
	OpF64Div:              "f64.div",
	OpF64Min:              "f64.min",
	OpF64Max:              "f64.max",
	OpF64Copysign:         "f64.copysign",
	OpI32WrapI64:          "i32.wrap_i64",
	OpI64ExtendI32S:       "i64.extend_i32_s",
	OpI64ExtendI32U:       "i64.extend_i32_u",
	OpF32ConvertI32S:      "f32.convert_i32_s",
	OpF64ConvertI32S:      "f64.convert_i32_s",
	OpI32AtomicLoad:       "i32.atomic.load",
	OpI64AtomicLoad:       "i64.atomic.load",
	OpI32AtomicStore:      "i32.atomic.store",
	OpI64AtomicStore:      "i64.atomic.store",
	OpI32AtomicRmwAdd:     "i32.atomic.rmw.add",
	OpI32AtomicRmwCmpxchg: "i32.atomic.rmw.cmpxchg",
	OpI64AtomicRmwAdd:     "i64.atomic.rmw.add",
	OpI64AtomicRmwCmpxchg: "i64.atomic.rmw.cmpxchg",
	OpMemoryAtomicWait32:  "memory.atomic.wait32",
	OpMemoryAtomicWait64:  "memory.atomic.wait64",
	OpMemoryAtomicNotify:  "memory.atomic.notify",
	OpAtomicFence:         "atomic.fence",
}

func (op Opcode) isAtomic() bool {
	return op >= OpI32AtomicLoad && op <= OpAtomicFence
}

// MemArg is the alignment/offset pair a load or store instruction
// carries (spec.md §6 "Module format").
type MemArg struct {
	AlignExponent uint32
	Offset        uint32
}

// Instruction is one decoded instruction. Kept as a single struct with
// unused fields zero, the same canonical-bits-over-tagged-union idiom
// used by valuestore.ComponentValue and decoder.Payload.
type Instruction struct {
	Op Opcode

	I32 int32
	I64 int64
	F32 uint32 // bit pattern
	F64 uint64 // bit pattern

	Idx    uint32 // local/global/function/type index
	MemArg MemArg

	BlockTypeIdx   uint32
	BrTableTargets []uint32
	BrTableDefault uint32

	// Continuation is the instruction index a structured branch out of
	// this Block/Loop/If/Else jumps to, resolved once by
	// resolveBranches after decoding (Block/If: matching End's index;
	// Loop: the Loop instruction's own index, since branching out of a
	// loop re-enters it).
	Continuation int
	// ElseIndex is the matching Else instruction's index for an If, or
	// -1 if the If has no Else clause.
	ElseIndex int
}

// Mnemonic returns the fuelcost.Table key for op's fuel charge.
func (op Opcode) Mnemonic() string { return mnemonics[op] }
