package interpreter

// AtomicHandler is the seam internal/atomicmem's ordering model implements.
// The interpreter dispatches every atomic opcode through it instead of
// importing internal/atomicmem directly, the same import-cycle-avoidance
// pattern internal/memory.AtomicModel already uses (atomicmem needs to
// read/write Memory's bytes; the interpreter needs to dispatch into
// atomicmem; neither package may import the other).
type AtomicHandler interface {
	AtomicLoad32(addr uint32) (uint32, error)
	AtomicLoad64(addr uint32) (uint64, error)
	AtomicStore32(addr uint32, val uint32) error
	AtomicStore64(addr uint32, val uint64) error
	AtomicRMWAdd32(addr uint32, val uint32) (uint32, error)
	AtomicRMWAdd64(addr uint32, val uint64) (uint64, error)
	AtomicCmpxchg32(addr uint32, expected, replacement uint32) (uint32, error)
	AtomicCmpxchg64(addr uint32, expected, replacement uint64) (uint64, error)
	AtomicWait32(addr uint32, expected uint32, timeoutNS int64) (int32, error)
	AtomicWait64(addr uint32, expected uint64, timeoutNS int64) (int32, error)
	AtomicNotify(addr uint32, count uint32) (uint32, error)
	AtomicFence()
}

// FunctionTable is the seam a module-linking component provides so Call
// and CallIndirect can resolve a function index to executable bytecode
// without this package modeling module instantiation or linking itself —
// that machinery (spec.md's component-instantiation graph) is out of
// scope for this interpreter, which executes a single function body at a
// time on behalf of a caller that has already resolved the call target.
type FunctionTable interface {
	// Resolve returns the bytecode and declared local count for funcIndex,
	// or an error if the index is out of range or not yet linked.
	Resolve(funcIndex uint32) (bytecode []byte, localCount uint32, err error)
	// ResolveIndirect resolves an indirect call through a table, checking
	// the call-site type index against the table entry's actual type.
	ResolveIndirect(tableIndex, elemIndex, typeIndex uint32) (bytecode []byte, localCount uint32, err error)
}
