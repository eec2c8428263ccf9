package interpreter

import (
	"context"
	"testing"

	"github.com/wrt-go/wrt/internal/infra/errors"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/interpreter/fuelcost"
	"github.com/wrt-go/wrt/internal/memory"
	"github.com/wrt-go/wrt/internal/platform"
	"github.com/wrt-go/wrt/internal/provider"
)

func testMemory(t *testing.T) *memory.Memory {
	t.Helper()
	p := provider.New(1, "interpreter-test", 1<<20, "tok")
	m, err := memory.New(platform.NewHeapAllocator(), p, 1, 1, provider.VerificationStandard)
	if err != nil {
		t.Fatalf("memory.New() error = %v", err)
	}
	return m
}

func testInterpreter(t *testing.T) (*Interpreter, *provider.Provider) {
	t.Helper()
	costs, err := fuelcost.Load()
	if err != nil {
		t.Fatalf("fuelcost.Load() error = %v", err)
	}
	p := provider.New(2, "interpreter-test", 1<<20, "tok")
	logger := logging.New("interpreter", "error", "text")
	in := New(testMemory(t), nil, nil, costs, logger, metrics.New("interpreter-test"))
	return in, p
}

// runBody decodes and runs bytecode with no locals/globals and the given
// fuel budget, returning the final operand stack.
func runBody(t *testing.T, in *Interpreter, p *provider.Provider, bytecode []byte, fuel int64) (Result, error) {
	t.Helper()
	instrs, err := Decode(bytecode)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return in.Run(context.Background(), p, 1, instrs, nil, nil, fuel)
}

func TestRunAddsTwoConstants(t *testing.T) {
	in, p := testInterpreter(t)
	// i32.const 2; i32.const 3; i32.add; end
	bytecode := []byte{0x41, 0x02, 0x41, 0x03, 0x6A, 0x0B}
	result, err := runBody(t, in, p, bytecode, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Values) != 1 || int32(result.Values[0]) != 5 {
		t.Fatalf("Values = %v, want [5]", result.Values)
	}
}

func TestRunFailsWhenFuelExhausted(t *testing.T) {
	in, p := testInterpreter(t)
	bytecode := []byte{0x41, 0x02, 0x41, 0x03, 0x6A, 0x0B}
	_, err := runBody(t, in, p, bytecode, 1)
	if !errors.Is(err, errors.CodeFuelExhausted) {
		t.Fatalf("err = %v, want FUEL_EXHAUSTED", err)
	}
}

func TestRunTrapsOnDivisionByZero(t *testing.T) {
	in, p := testInterpreter(t)
	// i32.const 1; i32.const 0; i32.div_s; end
	bytecode := []byte{0x41, 0x01, 0x41, 0x00, 0x6D, 0x0B}
	_, err := runBody(t, in, p, bytecode, 100)
	if !errors.Is(err, errors.CodeTrap) {
		t.Fatalf("err = %v, want TRAP", err)
	}
}

func TestRunBranchIfSkipsWhenFalse(t *testing.T) {
	in, p := testInterpreter(t)
	// block
	//   i32.const 0
	//   br_if 0
	//   i32.const 9
	// end
	// end (function)
	bytecode := []byte{
		0x02, 0x40, // block (void)
		0x41, 0x00, // i32.const 0
		0x0D, 0x00, // br_if 0
		0x41, 0x09, // i32.const 9
		0x0B, // end (block)
		0x0B, // end (function)
	}
	result, err := runBody(t, in, p, bytecode, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Values) != 1 || int32(result.Values[0]) != 9 {
		t.Fatalf("Values = %v, want [9]", result.Values)
	}
}

func TestRunBranchIfExitsBlockWhenTrue(t *testing.T) {
	in, p := testInterpreter(t)
	bytecode := []byte{
		0x02, 0x40, // block (void)
		0x41, 0x01, // i32.const 1
		0x0D, 0x00, // br_if 0
		0x41, 0x09, // i32.const 9 (skipped)
		0x0B, // end (block)
		0x0B, // end (function)
	}
	result, err := runBody(t, in, p, bytecode, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Values) != 0 {
		t.Fatalf("Values = %v, want []", result.Values)
	}
}

func TestRunLocalsRoundTrip(t *testing.T) {
	in, p := testInterpreter(t)
	instrs, err := Decode([]byte{
		0x20, 0x00, // local.get 0
		0x41, 0x05, // i32.const 5
		0x6A, // i32.add
		0x21, 0x01, // local.set 1
		0x20, 0x01, // local.get 1
		0x0B, // end
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	locals := []uint64{uint64(uint32(10)), 0}
	result, err := in.Run(context.Background(), p, 1, instrs, locals, nil, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Values) != 1 || int32(result.Values[0]) != 15 {
		t.Fatalf("Values = %v, want [15]", result.Values)
	}
}

type fakeAtomics struct {
	store map[uint32]uint64
}

func (f *fakeAtomics) AtomicLoad32(addr uint32) (uint32, error) { return uint32(f.store[addr]), nil }
func (f *fakeAtomics) AtomicLoad64(addr uint32) (uint64, error) { return f.store[addr], nil }
func (f *fakeAtomics) AtomicStore32(addr uint32, val uint32) error {
	f.store[addr] = uint64(val)
	return nil
}
func (f *fakeAtomics) AtomicStore64(addr uint32, val uint64) error {
	f.store[addr] = val
	return nil
}
func (f *fakeAtomics) AtomicRMWAdd32(addr uint32, val uint32) (uint32, error) {
	old := uint32(f.store[addr])
	f.store[addr] = uint64(old + val)
	return old, nil
}
func (f *fakeAtomics) AtomicRMWAdd64(addr uint32, val uint64) (uint64, error) {
	old := f.store[addr]
	f.store[addr] = old + val
	return old, nil
}
func (f *fakeAtomics) AtomicCmpxchg32(addr uint32, expected, replacement uint32) (uint32, error) {
	old := uint32(f.store[addr])
	if old == expected {
		f.store[addr] = uint64(replacement)
	}
	return old, nil
}
func (f *fakeAtomics) AtomicCmpxchg64(addr uint32, expected, replacement uint64) (uint64, error) {
	old := f.store[addr]
	if old == expected {
		f.store[addr] = replacement
	}
	return old, nil
}
func (f *fakeAtomics) AtomicWait32(addr uint32, expected uint32, timeoutNS int64) (int32, error) {
	return 0, nil
}
func (f *fakeAtomics) AtomicWait64(addr uint32, expected uint64, timeoutNS int64) (int32, error) {
	return 0, nil
}
func (f *fakeAtomics) AtomicNotify(addr uint32, count uint32) (uint32, error) { return 0, nil }
func (f *fakeAtomics) AtomicFence()                                          {}

func TestRunDispatchesAtomicRMWAdd(t *testing.T) {
	costs, err := fuelcost.Load()
	if err != nil {
		t.Fatalf("fuelcost.Load() error = %v", err)
	}
	atomics := &fakeAtomics{store: map[uint32]uint64{0: 7}}
	in := New(testMemory(t), atomics, nil, costs, nil, nil)
	p := provider.New(3, "interpreter-test", 1<<20, "tok")

	// i32.const 0 (addr); i32.const 3 (val); i32.atomic.rmw.add align=2 offset=0; end
	bytecode := []byte{0x41, 0x00, 0x41, 0x03, 0xFE, 0x04, 0x02, 0x00, 0x0B}
	result, err := runBody(t, in, p, bytecode, 100)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Values) != 1 || int32(result.Values[0]) != 7 {
		t.Fatalf("Values = %v, want [7] (old value)", result.Values)
	}
	if atomics.store[0] != 10 {
		t.Errorf("store[0] = %d, want 10", atomics.store[0])
	}
}
