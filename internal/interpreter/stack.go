package interpreter

import (
	"github.com/wrt-go/wrt/internal/bounded"
	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/provider"
)

// valueCodec encodes a stack value as its raw 8-byte bit pattern, matching
// the canonical-bits idiom used throughout this module (valuestore,
// decoder.Payload, Instruction).
var valueCodec = bounded.Codec[uint64]{
	Encode: func(v uint64) []byte {
		buf := make([]byte, 8)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		return buf
	},
	Decode: func(buf []byte) (uint64, error) {
		var v uint64
		for i := 0; i < 8 && i < len(buf); i++ {
			v |= uint64(buf[i]) << (8 * i)
		}
		return v, nil
	},
}

// operandStack is the interpreter's value stack, a bounded.Vec so its
// growth is charged against the task's memory capability the same way
// every other collection in this runtime is (spec.md §4.1 "Capability-
// based bounded memory").
type operandStack struct {
	vec *bounded.Vec[uint64]
	p   *provider.Provider
}

func newOperandStack(p *provider.Provider, capacity int) (*operandStack, error) {
	vec, err := bounded.NewVec(p, capacity, 8, valueCodec)
	if err != nil {
		return nil, err
	}
	return &operandStack{vec: vec, p: p}, nil
}

func (s *operandStack) pushI32(v int32) error { return s.vec.Push(uint64(uint32(v))) }
func (s *operandStack) pushI64(v int64) error { return s.vec.Push(uint64(v)) }
func (s *operandStack) pushF32(bits uint32) error { return s.vec.Push(uint64(bits)) }
func (s *operandStack) pushF64(bits uint64) error { return s.vec.Push(bits) }

func (s *operandStack) pop() (uint64, error) {
	v, ok := s.vec.Pop()
	if !ok {
		return 0, errors.Trap("operand stack underflow")
	}
	return v, nil
}

func (s *operandStack) popI32() (int32, error) {
	v, err := s.pop()
	if err != nil {
		return 0, err
	}
	return int32(uint32(v)), nil
}

func (s *operandStack) popI64() (int64, error) {
	v, err := s.pop()
	return int64(v), err
}

func (s *operandStack) popF32() (uint32, error) {
	v, err := s.pop()
	return uint32(v), err
}

func (s *operandStack) popF64() (uint64, error) {
	return s.pop()
}

func (s *operandStack) len() int { return s.vec.Len() }

// label is a structured control-flow frame: a block, loop, or if/else the
// interpreter has entered. Branching to depth N unwinds the label stack
// to its Nth entry (from the top) and jumps to that label's target.
type label struct {
	// instrIndex is the Block/Loop/If instruction index that opened this
	// frame.
	instrIndex int
	// continuation is the instruction index branching out of this frame
	// jumps to (copied from the opening instruction's resolved
	// Continuation): the matching End for a Block/If, or back to the
	// loop's own start for a Loop (handled specially in branch()).
	continuation int
	// stackHeight is the operand stack depth when this frame was
	// entered. branch() does not read it, so a branch leaves the operand
	// stack as it is.
	stackHeight int
	isLoop      bool
}

// labelStack tracks nested control-flow frames. Unlike operandStack this
// is not capability-bounded: nesting depth is bounded by the function
// body's own structured-control-flow validity, already enforced by
// resolveBranches at decode time.
type labelStack struct {
	frames []label
}

func (l *labelStack) push(f label) { l.frames = append(l.frames, f) }

func (l *labelStack) pop() (label, bool) {
	if len(l.frames) == 0 {
		return label{}, false
	}
	f := l.frames[len(l.frames)-1]
	l.frames = l.frames[:len(l.frames)-1]
	return f, true
}

// branch returns the label depth frames up from the top (0 = innermost)
// and pops it together with every frame above it; for a loop target the
// caller pushes the label back.
func (l *labelStack) branch(depth uint32) (label, error) {
	idx := len(l.frames) - 1 - int(depth)
	if idx < 0 {
		return label{}, errors.Trap("branch depth exceeds label stack")
	}
	target := l.frames[idx]
	l.frames = l.frames[:idx]
	return target, nil
}

func (l *labelStack) len() int { return len(l.frames) }
