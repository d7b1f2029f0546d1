package interp

import (
	"testing"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/isa"
	"github.com/dmitryduka/cellvm/stack"
)

func newVM(prog isa.Program) *Interpreter {
	return New(prog, heap.New(1024), stack.New(64))
}

func run(t *testing.T, vm *Interpreter) []string {
	t.Helper()
	var out []string
	for s, err := range vm.Run {
		if err != nil {
			t.Fatalf("run failed at pc=%d: %v", vm.PC(), err)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runExpectErr(t *testing.T, vm *Interpreter) *PanicError {
	t.Helper()
	var last error
	for _, err := range vm.Run {
		if err != nil {
			last = err
		}
	}
	pe, ok := last.(*PanicError)
	if !ok {
		t.Fatalf("expected *PanicError, got %v (%T)", last, last)
	}
	return pe
}

// lookupSeq builds the compiler's inline linear-search sequence for a
// symbol reference: PUSHCAR/PUSHCAR/EQSI/RJNZ on miss walks CDR to the
// outer frame and loops; on match it cleans up and leaves the bound
// value in the "current position" slot that LOADENV first pushed.
func lookupSeq(name string) []isa.Instruction {
	return []isa.Instruction{
		{Op: isa.LOADENV},
		{Op: isa.PUSHCAR},
		{Op: isa.PUSHCAR},
		{Op: isa.EQSI, StrArg: name},
		{Op: isa.RJNZ, IntArg: 6},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.CDR},
		{Op: isa.RJMP, IntArg: -8},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.CDR},
		{Op: isa.SWAP, IntArg: 1},
		{Op: isa.POP},
	}
}

func defSeq(name string) []isa.Instruction {
	return []isa.Instruction{
		{Op: isa.PUSHS, StrArg: name},
		{Op: isa.CONS},
		{Op: isa.DEF},
		{Op: isa.POP},
	}
}

func prog(parts ...[]isa.Instruction) isa.Program {
	var p isa.Program
	for _, part := range parts {
		p = append(p, part...)
	}
	return p
}

func single(ops ...isa.Instruction) []isa.Instruction { return ops }

// 1. Constant fold: (+ 8 (- 10 3)) -> Int 15, per spec §8's scenario 1
// (bytecode as given there, before the peephole optimizer runs).
func TestConstantFold(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: 8},
		{Op: isa.PUSHCI, IntArg: 10},
		{Op: isa.PUSHCI, IntArg: 3},
		{Op: isa.SUB},
		{Op: isa.ADD},
		{Op: isa.FIN},
	}
	vm := newVM(p)
	run(t, vm)
	top, ok := vm.Top()
	if !ok {
		t.Fatal("expected a value on top of stack")
	}
	if top.Tag() != cell.Int || top.Int() != 15 {
		t.Fatalf("top = %s, want Int 15", top.Pp())
	}
}

// 2. Define and use: (define k 10) (+ 3 (+ k 2)) -> 15, with the
// binding found by walking the inline symbol-lookup sequence.
func TestDefineAndUse(t *testing.T) {
	p := prog(
		single(isa.Instruction{Op: isa.PUSHCI, IntArg: 10}),
		defSeq("k"),
		single(isa.Instruction{Op: isa.PUSHCI, IntArg: 3}),
		lookupSeq("k"),
		single(isa.Instruction{Op: isa.PUSHCI, IntArg: 2}),
		single(isa.Instruction{Op: isa.ADD}),
		single(isa.Instruction{Op: isa.ADD}),
		single(isa.Instruction{Op: isa.FIN}),
	)
	vm := newVM(p)
	run(t, vm)
	top, ok := vm.Top()
	if !ok {
		t.Fatal("expected a value on top of stack")
	}
	if top.Tag() != cell.Int || top.Int() != 15 {
		t.Fatalf("top = %s, want Int 15", top.Pp())
	}
}

// Mutual top-level recursion depends on DEF mutating heap[env_ptr] in
// place rather than relocating it, so a lambda captured before a later
// DEF still observes it at call time (see DESIGN.md).
func TestDefMutatesEnvInPlaceAcrossMultipleBindings(t *testing.T) {
	p := prog(
		single(isa.Instruction{Op: isa.PUSHCI, IntArg: 1}),
		defSeq("a"),
		single(isa.Instruction{Op: isa.PUSHCI, IntArg: 2}),
		defSeq("b"),
		lookupSeq("a"),
		lookupSeq("b"),
		single(isa.Instruction{Op: isa.ADD}),
		single(isa.Instruction{Op: isa.FIN}),
	)
	vm := newVM(p)
	run(t, vm)
	top, _ := vm.Top()
	if top.Int() != 3 {
		t.Fatalf("top = %s, want Int 3", top.Pp())
	}
}

func TestPrnFormatsIntStringAndNil(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: -42},
		{Op: isa.PRN},
		{Op: isa.PUSHS, StrArg: "hi"},
		{Op: isa.PRN},
		{Op: isa.PUSHNIL},
		{Op: isa.PRN},
		{Op: isa.PRNL},
		{Op: isa.FIN},
	}
	out := run(t, newVM(p))
	got := ""
	for _, s := range out {
		got += s
	}
	if got != "-42hiNil\n\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestDivisionByZeroPanics(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: 5},
		{Op: isa.PUSHCI, IntArg: 0},
		{Op: isa.DIV},
		{Op: isa.FIN},
	}
	pe := runExpectErr(t, newVM(p))
	if pe.Kind != BadOperand {
		t.Fatalf("kind = %v, want BadOperand", pe.Kind)
	}
}

func TestArithTypeMismatch(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHS, StrArg: "x"},
		{Op: isa.PUSHCI, IntArg: 1},
		{Op: isa.ADD},
		{Op: isa.FIN},
	}
	pe := runExpectErr(t, newVM(p))
	if pe.Kind != TypeMismatch {
		t.Fatalf("kind = %v, want TypeMismatch", pe.Kind)
	}
}

func TestStackUnderflowPanics(t *testing.T) {
	p := isa.Program{
		{Op: isa.POP},
		{Op: isa.FIN},
	}
	pe := runExpectErr(t, newVM(p))
	if pe.Kind != UnderflowedStack {
		t.Fatalf("kind = %v, want UnderflowedStack", pe.Kind)
	}
}

func TestCarCdrOfNilRaisesUnboundSymbol(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHNIL},
		{Op: isa.CAR},
		{Op: isa.FIN},
	}
	pe := runExpectErr(t, newVM(p))
	if pe.Kind != UnboundSymbol {
		t.Fatalf("kind = %v, want UnboundSymbol", pe.Kind)
	}
}

func TestUnknownOpcodeInStrictModePanics(t *testing.T) {
	// A raw Instruction built with an Op value past the known table; the
	// parser itself rejects unknown mnemonics (isa.ErrUnknownOpcode), but
	// the dispatch loop enforces the same strict-mode policy defensively
	// for any instruction stream assembled programmatically (e.g. by the
	// optimizer). See spec §9's recommendation to make strict mode the
	// default rather than silently treating unknowns as no-ops.
	p := isa.Program{
		{Op: isa.Op(255)},
	}
	pe := runExpectErr(t, newVM(p))
	if pe.Kind != UnknownOpcode {
		t.Fatalf("kind = %v, want UnknownOpcode", pe.Kind)
	}
}

// GC survival: allocate more than half the heap in throwaway pairs
// inside a loop, then finish with a single integer. Mirrors spec §8's
// scenario 5.
func TestGCSurvivalUnderAllocationPressure(t *testing.T) {
	h := heap.New(64) // 128 total cells, 64 per semispace
	st := stack.New(64)
	var p isa.Program
	for i := 0; i < 100; i++ {
		p = append(p,
			isa.Instruction{Op: isa.PUSHCI, IntArg: int64(i)},
			isa.Instruction{Op: isa.PUSHNIL},
			isa.Instruction{Op: isa.CONS},
			isa.Instruction{Op: isa.POP},
		)
	}
	p = append(p, isa.Instruction{Op: isa.PUSHCI, IntArg: 99}, isa.Instruction{Op: isa.FIN})

	vm := New(p, h, st)
	run(t, vm)

	top, ok := vm.Top()
	if !ok || top.Tag() != cell.Int || top.Int() != 99 {
		t.Fatalf("top = %v, ok=%v, want Int 99", top, ok)
	}
	if vm.Stats().GCCount == 0 {
		t.Fatal("expected at least one GC cycle under this allocation pressure")
	}
}

// Closure capture and CALL/RET: a hand-built one-argument lambda blob
// that returns its argument unchanged, exercising CALL's frame push and
// RET's frame pop/arg-drop together, per spec §4.3.
func TestCallAndReturnIdentityLambda(t *testing.T) {
	// main:
	//   0: PUSHCI 7          ; argument
	//   1: PUSHL 4           ; identity lambda, entry at absolute pc 4
	//   2: CALL
	//   3: FIN               ; CALL's return address (pc+1)
	// lambda body (identity): reads its one argument back via PUSHFS and
	// returns it, rotated below the frame per the epilogue formula
	// (SWAP chain n+2 down to 1, then RET n) with n=1.
	lambdaAddr := 4
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: 7},                 // 0
		{Op: isa.PUSHL, IntArg: int64(lambdaAddr)}, // 1
		{Op: isa.CALL},                              // 2
		{Op: isa.FIN},                                // 3
	}
	// Lambda body at pc=4: stack on entry is [..., arg(7), ip, env].
	// PUSHFS 2 copies the argument (2 slots below top) to the top, then
	// the epilogue rotates it down through the call window with a
	// descending SWAP chain (n+2 down to 1, n=1 here) before RET 1 drops
	// the now-garbage original argument slot (see DESIGN.md item 2b).
	lambda := []isa.Instruction{
		{Op: isa.PUSHFS, IntArg: 2}, // 4: push copy of arg
		{Op: isa.SWAP, IntArg: 3},   // 5
		{Op: isa.SWAP, IntArg: 2},   // 6
		{Op: isa.SWAP, IntArg: 1},   // 7
		{Op: isa.RET, IntArg: 1},    // 8: drop the one leftover arg slot
	}
	p = p[:4]
	p = append(p, lambda...)
	p = append(p, isa.Instruction{Op: isa.FIN})

	vm := newVM(p)
	run(t, vm)
	top, ok := vm.Top()
	if !ok || top.Tag() != cell.Int || top.Int() != 7 {
		t.Fatalf("top = %v, ok=%v, want Int 7", top, ok)
	}
}

func TestEqtComparesTagsOnly(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: 1},
		{Op: isa.PUSHCI, IntArg: 2},
		{Op: isa.EQT},
		{Op: isa.FIN},
	}
	vm := newVM(p)
	run(t, vm)
	top, _ := vm.Top()
	if top.Int() != 1 {
		t.Fatalf("EQT of two Ints = %v, want 1", top)
	}
	if vm.st.Len() != 3 {
		t.Fatalf("EQT should keep both operands: stack len = %d, want 3", vm.st.Len())
	}
}

func TestConsAndCarCdr(t *testing.T) {
	p := isa.Program{
		{Op: isa.PUSHCI, IntArg: 2}, // will become cdr
		{Op: isa.PUSHCI, IntArg: 1}, // will become car
		{Op: isa.CONS},
		{Op: isa.PUSHCAR},
		{Op: isa.POP}, // drop the copy of car we just pushed
		{Op: isa.CDR},
		{Op: isa.FIN},
	}
	vm := newVM(p)
	run(t, vm)
	top, _ := vm.Top()
	if top.Int() != 2 {
		t.Fatalf("cdr of (1 . 2) = %v, want 2", top)
	}
}
