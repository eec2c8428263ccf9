// Package interpreter executes decoded WebAssembly function bodies under a
// fuel budget, per spec.md §4.6 ("Fuel-metered cooperative async executor")
// and §4.7 ("Atomic instruction set"). It is a straightforward
// stack-machine loop, grounded on
// original_source/wrt-runtime/src/instruction_parser.rs's decode-then-
// dispatch shape, generalized with explicit fuel accounting the original
// leaves to a separate fuel module.
package interpreter

import (
	"context"
	"math"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/interpreter/fuelcost"
	"github.com/wrt-go/wrt/internal/memory"
	"github.com/wrt-go/wrt/internal/provider"
)

// Interpreter runs decoded function bodies against a shared Memory,
// charging every instruction against a caller-supplied fuel budget.
type Interpreter struct {
	mem       *memory.Memory
	atomics   AtomicHandler
	functions FunctionTable
	costs     *fuelcost.Table
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// New constructs an Interpreter. atomics may be nil if mem is not shared;
// functions may be nil if the function body contains no call/call_indirect.
func New(mem *memory.Memory, atomics AtomicHandler, functions FunctionTable, costs *fuelcost.Table, logger *logging.Logger, m *metrics.Metrics) *Interpreter {
	return &Interpreter{mem: mem, atomics: atomics, functions: functions, costs: costs, logger: logger, metrics: m}
}

// Result is the outcome of running a function body to completion.
type Result struct {
	Values       []uint64
	FuelConsumed int64
}

const operandStackCapacity = 1024

// Run executes instrs with the given locals (args followed by declared
// local slots, all pre-sized by the caller) and globals, stopping when the
// outermost End is reached, a trap occurs, or fuel is exhausted. taskID
// identifies the caller for logging/metrics only.
func (in *Interpreter) Run(ctx context.Context, p *provider.Provider, taskID uint64, instrs []Instruction, locals []uint64, globals []uint64, fuelBudget int64) (Result, error) {
	stack, err := newOperandStack(p, operandStackCapacity)
	if err != nil {
		return Result{}, err
	}
	labels := &labelStack{}
	remaining := fuelBudget
	var consumed int64

	pc := 0
	for pc < len(instrs) {
		select {
		case <-ctx.Done():
			return Result{}, errors.Cancelled(taskID)
		default:
		}

		inst := instrs[pc]
		cost := in.costs.Cost(inst.Mnemonic())
		if remaining < cost {
			if in.logger != nil {
				in.logger.LogFuelExhaustion(ctx, taskID, consumed, fuelBudget)
			}
			return Result{FuelConsumed: consumed}, errors.FuelExhausted(taskID, remaining)
		}
		remaining -= cost
		consumed += cost
		if in.metrics != nil {
			in.metrics.RecordFuelConsumed("interpreter", cost)
		}

		next, err := in.step(ctx, inst, pc, stack, labels, locals, globals, taskID)
		if err != nil {
			if errors.Is(err, errors.CodeTrap) && in.logger != nil {
				in.logger.LogTrap(ctx, taskID, err.(*errors.RuntimeError).Detail)
			}
			if errors.Is(err, errors.CodeTrap) && in.metrics != nil {
				in.metrics.RecordTrap(err.(*errors.RuntimeError).Detail)
			}
			return Result{FuelConsumed: consumed}, err
		}
		if next == -1 {
			break // outermost End
		}
		pc = next
	}

	values := make([]uint64, stack.len())
	for i := range values {
		v, _ := stack.vec.Get(i)
		values[i] = v
	}
	return Result{Values: values, FuelConsumed: consumed}, nil
}

// step executes one instruction and returns the next program counter, or
// -1 if execution should stop (function-level End with an empty label
// stack).
func (in *Interpreter) step(ctx context.Context, inst Instruction, pc int, stack *operandStack, labels *labelStack, locals, globals []uint64, taskID uint64) (int, error) {
	switch inst.Op {
	case OpUnreachable:
		return 0, errors.Trap("unreachable instruction executed")
	case OpNop:
		return pc + 1, nil

	case OpBlock:
		labels.push(label{instrIndex: pc, continuation: inst.Continuation, stackHeight: stack.len(), isLoop: false})
		return pc + 1, nil
	case OpLoop:
		labels.push(label{instrIndex: pc, continuation: inst.Continuation, stackHeight: stack.len(), isLoop: true})
		return pc + 1, nil
	case OpIf:
		cond, err := stack.popI32()
		if err != nil {
			return 0, err
		}
		labels.push(label{instrIndex: pc, continuation: inst.Continuation, stackHeight: stack.len(), isLoop: false})
		if cond != 0 {
			return pc + 1, nil
		}
		if inst.ElseIndex != -1 {
			return inst.ElseIndex + 1, nil
		}
		return inst.Continuation + 1, nil
	case OpElse:
		// Reached by falling through a taken "then" arm: skip past the
		// else clause to the matching End, since only one arm ever runs.
		if _, ok := labels.pop(); !ok {
			return 0, errors.Trap("else without matching if")
		}
		return inst.Continuation + 1, nil
	case OpEnd:
		if f, ok := labels.pop(); ok {
			_ = f
			return pc + 1, nil
		}
		return -1, nil

	case OpBr:
		return in.branch(stack, labels, inst.Idx)
	case OpBrIf:
		cond, err := stack.popI32()
		if err != nil {
			return 0, err
		}
		if cond == 0 {
			return pc + 1, nil
		}
		return in.branch(stack, labels, inst.Idx)
	case OpBrTable:
		idx, err := stack.popI32()
		if err != nil {
			return 0, err
		}
		target := inst.BrTableDefault
		if idx >= 0 && int(idx) < len(inst.BrTableTargets) {
			target = inst.BrTableTargets[idx]
		}
		return in.branch(stack, labels, target)
	case OpReturn:
		return -1, nil

	case OpCall:
		return pc + 1, in.call(ctx, stack, inst.Idx, taskID)
	case OpCallIndirect:
		return pc + 1, in.callIndirect(ctx, stack, inst.Idx, taskID)

	case OpDrop:
		_, err := stack.pop()
		return pc + 1, err
	case OpSelect:
		cond, err := stack.popI32()
		if err != nil {
			return 0, err
		}
		b, err := stack.pop()
		if err != nil {
			return 0, err
		}
		a, err := stack.pop()
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return pc + 1, stack.vec.Push(a)
		}
		return pc + 1, stack.vec.Push(b)

	case OpLocalGet:
		if int(inst.Idx) >= len(locals) {
			return 0, errors.Trap("local index out of range")
		}
		return pc + 1, stack.vec.Push(locals[inst.Idx])
	case OpLocalSet:
		v, err := stack.pop()
		if err != nil {
			return 0, err
		}
		if int(inst.Idx) >= len(locals) {
			return 0, errors.Trap("local index out of range")
		}
		locals[inst.Idx] = v
		return pc + 1, nil
	case OpLocalTee:
		v, err := stack.pop()
		if err != nil {
			return 0, err
		}
		if int(inst.Idx) >= len(locals) {
			return 0, errors.Trap("local index out of range")
		}
		locals[inst.Idx] = v
		return pc + 1, stack.vec.Push(v)
	case OpGlobalGet:
		if int(inst.Idx) >= len(globals) {
			return 0, errors.Trap("global index out of range")
		}
		return pc + 1, stack.vec.Push(globals[inst.Idx])
	case OpGlobalSet:
		v, err := stack.pop()
		if err != nil {
			return 0, err
		}
		if int(inst.Idx) >= len(globals) {
			return 0, errors.Trap("global index out of range")
		}
		globals[inst.Idx] = v
		return pc + 1, nil

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load:
		return pc + 1, in.load(stack, inst)
	case OpI32Store, OpI64Store, OpF32Store, OpF64Store:
		return pc + 1, in.store(stack, inst)
	case OpMemorySize:
		return pc + 1, stack.pushI32(int32(in.mem.CurrentPages()))
	case OpMemoryGrow:
		delta, err := stack.popI32()
		if err != nil {
			return 0, err
		}
		return pc + 1, stack.pushI32(int32(in.mem.Grow(uint32(delta))))

	case OpI32Const:
		return pc + 1, stack.pushI32(inst.I32)
	case OpI64Const:
		return pc + 1, stack.pushI64(inst.I64)
	case OpF32Const:
		return pc + 1, stack.pushF32(inst.F32)
	case OpF64Const:
		return pc + 1, stack.pushF64(inst.F64)

	default:
		if inst.Op.isAtomic() {
			return pc + 1, in.atomic(stack, inst)
		}
		return pc + 1, in.arithmetic(stack, inst)
	}
}

func (in *Interpreter) branch(stack *operandStack, labels *labelStack, depth uint32) (int, error) {
	f, err := labels.branch(depth)
	if err != nil {
		return 0, err
	}
	if f.isLoop {
		// Branching to a loop label re-enters the loop body; the frame is
		// still active, so push it back.
		labels.push(f)
		return f.instrIndex + 1, nil
	}
	return f.continuation + 1, nil
}

func (in *Interpreter) call(ctx context.Context, stack *operandStack, funcIndex uint32, taskID uint64) error {
	if in.functions == nil {
		return errors.Trap("call with no linked function table")
	}
	bytecode, localCount, err := in.functions.Resolve(funcIndex)
	if err != nil {
		return err
	}
	return in.invoke(ctx, stack, bytecode, localCount, taskID)
}

func (in *Interpreter) callIndirect(ctx context.Context, stack *operandStack, typeIndex uint32, taskID uint64) error {
	if in.functions == nil {
		return errors.Trap("call_indirect with no linked function table")
	}
	elemIndex, err := stack.popI32()
	if err != nil {
		return err
	}
	bytecode, localCount, err := in.functions.ResolveIndirect(0, uint32(elemIndex), typeIndex)
	if err != nil {
		return err
	}
	return in.invoke(ctx, stack, bytecode, localCount, taskID)
}

// invoke decodes and runs a called function body to completion as a
// nested Run on the caller's provider and task, with a fuel budget of
// math.MaxInt32. The callee's instructions are not charged against the
// caller's budget and are not counted in the caller's FuelConsumed.
func (in *Interpreter) invoke(ctx context.Context, stack *operandStack, bytecode []byte, localCount uint32, taskID uint64) error {
	instrs, err := Decode(bytecode)
	if err != nil {
		return err
	}
	locals := make([]uint64, localCount)
	result, err := in.Run(ctx, stack.p, taskID, instrs, locals, nil, math.MaxInt32)
	if err != nil {
		return err
	}
	for _, v := range result.Values {
		if err := stack.vec.Push(v); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) load(stack *operandStack, inst Instruction) error {
	base, err := stack.popI32()
	if err != nil {
		return err
	}
	addr := uint64(uint32(base)) + uint64(inst.MemArg.Offset)
	size := uint64(4)
	if inst.Op == OpI64Load || inst.Op == OpF64Load {
		size = 8
	}
	bytes, err := in.mem.Read(addr, size)
	if err != nil {
		return err
	}
	switch inst.Op {
	case OpI32Load:
		return stack.pushI32(int32(leU32(bytes)))
	case OpF32Load:
		return stack.pushF32(leU32(bytes))
	case OpI64Load:
		return stack.pushI64(int64(leU64(bytes)))
	default:
		return stack.pushF64(leU64(bytes))
	}
}

func (in *Interpreter) store(stack *operandStack, inst Instruction) error {
	var raw uint64
	var size int
	var err error
	switch inst.Op {
	case OpI32Store, OpF32Store:
		size = 4
		raw, err = stack.pop()
	default:
		size = 8
		raw, err = stack.pop()
	}
	if err != nil {
		return err
	}
	base, err := stack.popI32()
	if err != nil {
		return err
	}
	addr := uint64(uint32(base)) + uint64(inst.MemArg.Offset)
	buf := make([]byte, size)
	for i := 0; i < size; i++ {
		buf[i] = byte(raw >> (8 * i))
	}
	return in.mem.Write(addr, buf)
}

func (in *Interpreter) atomic(stack *operandStack, inst Instruction) error {
	if in.atomics == nil {
		return errors.Trap("atomic instruction on non-shared memory")
	}
	switch inst.Op {
	case OpI32AtomicLoad:
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		v, err := in.atomics.AtomicLoad32(uint32(addr))
		if err != nil {
			return err
		}
		return stack.pushI32(int32(v))
	case OpI64AtomicLoad:
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		v, err := in.atomics.AtomicLoad64(uint32(addr))
		if err != nil {
			return err
		}
		return stack.pushI64(int64(v))
	case OpI32AtomicStore:
		val, err := stack.popI32()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		return in.atomics.AtomicStore32(uint32(addr), uint32(val))
	case OpI64AtomicStore:
		val, err := stack.popI64()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		return in.atomics.AtomicStore64(uint32(addr), uint64(val))
	case OpI32AtomicRmwAdd:
		val, err := stack.popI32()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		old, err := in.atomics.AtomicRMWAdd32(uint32(addr), uint32(val))
		if err != nil {
			return err
		}
		return stack.pushI32(int32(old))
	case OpI64AtomicRmwAdd:
		val, err := stack.popI64()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		old, err := in.atomics.AtomicRMWAdd64(uint32(addr), uint64(val))
		if err != nil {
			return err
		}
		return stack.pushI64(int64(old))
	case OpI32AtomicRmwCmpxchg:
		replacement, err := stack.popI32()
		if err != nil {
			return err
		}
		expected, err := stack.popI32()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		old, err := in.atomics.AtomicCmpxchg32(uint32(addr), uint32(expected), uint32(replacement))
		if err != nil {
			return err
		}
		return stack.pushI32(int32(old))
	case OpI64AtomicRmwCmpxchg:
		replacement, err := stack.popI64()
		if err != nil {
			return err
		}
		expected, err := stack.popI64()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		old, err := in.atomics.AtomicCmpxchg64(uint32(addr), uint64(expected), uint64(replacement))
		if err != nil {
			return err
		}
		return stack.pushI64(int64(old))
	case OpMemoryAtomicWait32:
		timeout, err := stack.popI64()
		if err != nil {
			return err
		}
		expected, err := stack.popI32()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		result, err := in.atomics.AtomicWait32(uint32(addr), uint32(expected), timeout)
		if err != nil {
			return err
		}
		return stack.pushI32(result)
	case OpMemoryAtomicWait64:
		timeout, err := stack.popI64()
		if err != nil {
			return err
		}
		expected, err := stack.popI64()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		result, err := in.atomics.AtomicWait64(uint32(addr), uint64(expected), timeout)
		if err != nil {
			return err
		}
		return stack.pushI32(result)
	case OpMemoryAtomicNotify:
		count, err := stack.popI32()
		if err != nil {
			return err
		}
		addr, err := stack.popI32()
		if err != nil {
			return err
		}
		notified, err := in.atomics.AtomicNotify(uint32(addr), uint32(count))
		if err != nil {
			return err
		}
		return stack.pushI32(int32(notified))
	case OpAtomicFence:
		in.atomics.AtomicFence()
		return nil
	default:
		return errors.Trap("unsupported atomic instruction")
	}
}

func (in *Interpreter) arithmetic(stack *operandStack, inst Instruction) error {
	switch inst.Op {
	case OpI32Eqz:
		a, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushI32(boolI32(a == 0))
	case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU, OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU:
		b, err := stack.popI32()
		if err != nil {
			return err
		}
		a, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushI32(compareI32(inst.Op, a, b))
	case OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU,
		OpI32And, OpI32Or, OpI32Xor, OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr:
		b, err := stack.popI32()
		if err != nil {
			return err
		}
		a, err := stack.popI32()
		if err != nil {
			return err
		}
		result, err := binaryI32(inst.Op, a, b)
		if err != nil {
			return err
		}
		return stack.pushI32(result)
	case OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU,
		OpI64And, OpI64Or, OpI64Xor, OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr:
		b, err := stack.popI64()
		if err != nil {
			return err
		}
		a, err := stack.popI64()
		if err != nil {
			return err
		}
		result, err := binaryI64(inst.Op, a, b)
		if err != nil {
			return err
		}
		return stack.pushI64(result)
	case OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign:
		b, err := stack.popF32()
		if err != nil {
			return err
		}
		a, err := stack.popF32()
		if err != nil {
			return err
		}
		return stack.pushF32(binaryF32(inst.Op, a, b))
	case OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign:
		b, err := stack.popF64()
		if err != nil {
			return err
		}
		a, err := stack.popF64()
		if err != nil {
			return err
		}
		return stack.pushF64(binaryF64(inst.Op, a, b))
	case OpI32WrapI64:
		v, err := stack.popI64()
		if err != nil {
			return err
		}
		return stack.pushI32(int32(uint32(v)))
	case OpI64ExtendI32S:
		v, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushI64(int64(v))
	case OpI64ExtendI32U:
		v, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushI64(int64(uint32(v)))
	case OpF32ConvertI32S:
		v, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushF32(math.Float32bits(float32(v)))
	case OpF64ConvertI32S:
		v, err := stack.popI32()
		if err != nil {
			return err
		}
		return stack.pushF64(math.Float64bits(float64(v)))
	default:
		return errors.Trap("unimplemented instruction")
	}
}

func boolI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func compareI32(op Opcode, a, b int32) int32 {
	ua, ub := uint32(a), uint32(b)
	switch op {
	case OpI32Eq:
		return boolI32(a == b)
	case OpI32Ne:
		return boolI32(a != b)
	case OpI32LtS:
		return boolI32(a < b)
	case OpI32LtU:
		return boolI32(ua < ub)
	case OpI32GtS:
		return boolI32(a > b)
	case OpI32GtU:
		return boolI32(ua > ub)
	case OpI32LeS:
		return boolI32(a <= b)
	case OpI32LeU:
		return boolI32(ua <= ub)
	case OpI32GeS:
		return boolI32(a >= b)
	default: // OpI32GeU
		return boolI32(ua >= ub)
	}
}

func binaryI32(op Opcode, a, b int32) (int32, error) {
	ua, ub := uint32(a), uint32(b)
	switch op {
	case OpI32Add:
		return a + b, nil
	case OpI32Sub:
		return a - b, nil
	case OpI32Mul:
		return a * b, nil
	case OpI32DivS:
		if b == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		if a == math.MinInt32 && b == -1 {
			return 0, errors.Trap("integer overflow")
		}
		return a / b, nil
	case OpI32DivU:
		if ub == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		return int32(ua / ub), nil
	case OpI32RemS:
		if b == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		if a == math.MinInt32 && b == -1 {
			return 0, nil
		}
		return a % b, nil
	case OpI32RemU:
		if ub == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		return int32(ua % ub), nil
	case OpI32And:
		return a & b, nil
	case OpI32Or:
		return a | b, nil
	case OpI32Xor:
		return a ^ b, nil
	case OpI32Shl:
		return int32(ua << (ub & 31)), nil
	case OpI32ShrS:
		return a >> (ub & 31), nil
	case OpI32ShrU:
		return int32(ua >> (ub & 31)), nil
	case OpI32Rotl:
		n := ub & 31
		return int32(ua<<n | ua>>(32-n)), nil
	default: // OpI32Rotr
		n := ub & 31
		return int32(ua>>n | ua<<(32-n)), nil
	}
}

func binaryI64(op Opcode, a, b int64) (int64, error) {
	ua, ub := uint64(a), uint64(b)
	switch op {
	case OpI64Add:
		return a + b, nil
	case OpI64Sub:
		return a - b, nil
	case OpI64Mul:
		return a * b, nil
	case OpI64DivS:
		if b == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return 0, errors.Trap("integer overflow")
		}
		return a / b, nil
	case OpI64DivU:
		if ub == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		return int64(ua / ub), nil
	case OpI64RemS:
		if b == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return 0, nil
		}
		return a % b, nil
	case OpI64RemU:
		if ub == 0 {
			return 0, errors.Trap("integer division by zero")
		}
		return int64(ua % ub), nil
	case OpI64And:
		return a & b, nil
	case OpI64Or:
		return a | b, nil
	case OpI64Xor:
		return a ^ b, nil
	case OpI64Shl:
		return int64(ua << (ub & 63)), nil
	case OpI64ShrS:
		return a >> (ub & 63), nil
	case OpI64ShrU:
		return int64(ua >> (ub & 63)), nil
	case OpI64Rotl:
		n := ub & 63
		return int64(ua<<n | ua>>(64-n)), nil
	default: // OpI64Rotr
		n := ub & 63
		return int64(ua>>n | ua<<(64-n)), nil
	}
}

func binaryF32(op Opcode, a, b uint32) uint32 {
	fa, fb := math.Float32frombits(a), math.Float32frombits(b)
	switch op {
	case OpF32Add:
		return math.Float32bits(fa + fb)
	case OpF32Sub:
		return math.Float32bits(fa - fb)
	case OpF32Mul:
		return math.Float32bits(fa * fb)
	case OpF32Div:
		return math.Float32bits(fa / fb)
	case OpF32Min:
		return math.Float32bits(float32(math.Min(float64(fa), float64(fb))))
	case OpF32Max:
		return math.Float32bits(float32(math.Max(float64(fa), float64(fb))))
	default: // OpF32Copysign
		return math.Float32bits(float32(math.Copysign(float64(fa), float64(fb))))
	}
}

func binaryF64(op Opcode, a, b uint64) uint64 {
	fa, fb := math.Float64frombits(a), math.Float64frombits(b)
	switch op {
	case OpF64Add:
		return math.Float64bits(fa + fb)
	case OpF64Sub:
		return math.Float64bits(fa - fb)
	case OpF64Mul:
		return math.Float64bits(fa * fb)
	case OpF64Div:
		return math.Float64bits(fa / fb)
	case OpF64Min:
		return math.Float64bits(math.Min(fa, fb))
	case OpF64Max:
		return math.Float64bits(math.Max(fa, fb))
	default: // OpF64Copysign
		return math.Float64bits(math.Copysign(fa, fb))
	}
}
