package interp

import (
	"errors"
	"strconv"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/isa"
)

// step executes one instruction, returning any PRN/PRNL text produced and
// nil, or ("", err) on a panic condition. err is always a *PanicError.
func (vm *Interpreter) step(in isa.Instruction) (string, error) {
	if in.Op.Allocates() {
		vm.maybeCollect()
	}

	switch in.Op {
	case isa.NOP:
		// no-op

	case isa.PUSHCI:
		return "", vm.push(in.Op, cell.MakeInt(in.IntArg))

	case isa.PUSHS:
		return "", vm.push(in.Op, cell.MakeString(in.StrArg))

	case isa.PUSHNIL:
		return "", vm.push(in.Op, cell.MakeNil())

	case isa.PUSHL:
		if in.IntArg < 0 {
			return "", vm.push(in.Op, cell.MakeSentinelLambda())
		}
		return "", vm.push(in.Op, cell.MakeLambda(uint32(in.IntArg), vm.envPtr))

	case isa.PUSHFS:
		c, err := vm.st.Peek(int(in.IntArg))
		if err != nil {
			return "", vm.underflow(in.Op)
		}
		return "", vm.push(in.Op, c)

	case isa.PUSHFP:
		// Frame-pointer relative read, introduced by the argument-binding
		// elision peephole (spec §4.7): same mechanics as PUSHFS, just
		// addressed from the optimizer's own bookkeeping rather than the
		// unoptimized prologue's literal offset.
		c, err := vm.st.Peek(int(in.IntArg))
		if err != nil {
			return "", vm.underflow(in.Op)
		}
		return "", vm.push(in.Op, c)

	case isa.ADD, isa.SUB, isa.MUL, isa.DIV, isa.MOD:
		return "", vm.arith(in)

	case isa.LT:
		return "", vm.compareLT(in)

	case isa.EQ:
		return "", vm.equalOp(in)

	case isa.EQT:
		return "", vm.eqTag(in)

	case isa.EQSI:
		return "", vm.eqSymbolImmediate(in)

	case isa.CONS:
		return "", vm.cons(in)

	case isa.CAR:
		return "", vm.carCdr(in, false, false)
	case isa.CDR:
		return "", vm.carCdr(in, true, false)
	case isa.PUSHCAR:
		return "", vm.carCdr(in, false, true)
	case isa.PUSHCDR:
		return "", vm.carCdr(in, true, true)

	case isa.DEF:
		return "", vm.def(in)

	case isa.LOADENV:
		// Pushes the current environment Pair cell itself (same tag it
		// already carries on the heap), not an Environment-tagged wrapper
		// — that tag is reserved for CALL's saved-frame cell so RET can
		// distinguish it from an ordinary value. LOADENV's result feeds
		// straight into PUSHCAR/CDR in the symbol-lookup sequence and the
		// lambda prologue's LOADENV/STOREENV pair, both of which operate
		// on it as a Pair.
		return "", vm.push(in.Op, vm.h.Get(vm.envPtr))

	case isa.STOREENV:
		return "", vm.storeenv(in)

	case isa.RJMP:
		vm.pc += int(in.IntArg)
		vm.jumped = true
		return "", nil

	case isa.RJZ:
		return "", vm.condJump(in, false)
	case isa.RJNZ:
		return "", vm.condJump(in, true)

	case isa.CALL:
		return "", vm.call(in)

	case isa.RET:
		return "", vm.ret(in)

	case isa.PRN:
		return vm.prn(in)

	case isa.PRNL:
		return "\n", nil

	case isa.GC:
		vm.envPtr = vm.h.Collect(vm.envPtr, vm.st.Slice())
		vm.stats.GCCount = vm.h.GCCount()
		vm.stats.GCCollected = vm.h.GCCollected()
		return "", nil

	case isa.FIN:
		return "", nil

	case isa.POP:
		if _, err := vm.st.Pop(); err != nil {
			return "", vm.underflow(in.Op)
		}
		return "", nil

	case isa.SWAP:
		if err := vm.st.Swap(int(in.IntArg)); err != nil {
			return "", vm.underflow(in.Op)
		}
		return "", nil

	default:
		return "", newPanic(in.Op, UnknownOpcode, "unrecognized opcode")
	}
	return "", nil
}

func (vm *Interpreter) maybeCollect() {
	if !vm.h.ShouldCollect() {
		return
	}
	vm.envPtr = vm.h.Collect(vm.envPtr, vm.st.Slice())
	vm.stats.GCCount = vm.h.GCCount()
	vm.stats.GCCollected = vm.h.GCCollected()
}

func (vm *Interpreter) underflow(op isa.Op) *PanicError {
	return newPanic(op, UnderflowedStack, "not enough elements on stack")
}

func (vm *Interpreter) push(op isa.Op, c cell.Cell) error {
	if err := vm.st.Push(c); err != nil {
		return vm.underflow(op)
	}
	return nil
}

func (vm *Interpreter) pop(op isa.Op) (cell.Cell, error) {
	c, err := vm.st.Pop()
	if err != nil {
		return cell.Cell(0), vm.underflow(op)
	}
	return c, nil
}

func (vm *Interpreter) alloc(op isa.Op, c cell.Cell) (uint32, error) {
	idx, err := vm.h.Alloc(c)
	if err != nil {
		if errors.Is(err, heap.ErrExhausted) {
			return 0, newPanic(op, HeapExhausted, "heap exhausted")
		}
		return 0, newPanic(op, HeapExhausted, "%v", err)
	}
	return idx, nil
}

func boolCell(b bool) cell.Cell {
	if b {
		return cell.MakeInt(1)
	}
	return cell.MakeInt(0)
}

// arith pops x then y and pushes y OP x, per spec §4.5's "a,b → a⊕b" with
// the traced source's stack order (TOS is the second operand).
func (vm *Interpreter) arith(in isa.Instruction) error {
	x, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	y, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if x.Tag() != cell.Int || y.Tag() != cell.Int {
		return newPanic(in.Op, TypeMismatch, "operands must be Int")
	}
	a, b := y.Int(), x.Int()
	var r int64
	switch in.Op {
	case isa.ADD:
		r = a + b
	case isa.SUB:
		r = a - b
	case isa.MUL:
		r = a * b
	case isa.DIV:
		if b == 0 {
			return newPanic(in.Op, BadOperand, "division by zero")
		}
		r = a / b
	case isa.MOD:
		if b == 0 {
			return newPanic(in.Op, BadOperand, "modulo by zero")
		}
		r = a % b
	}
	return vm.push(in.Op, cell.MakeInt(r))
}

func (vm *Interpreter) compareLT(in isa.Instruction) error {
	x, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	y, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if x.Tag() != cell.Int || y.Tag() != cell.Int {
		return newPanic(in.Op, TypeMismatch, "operands must be Int")
	}
	return vm.push(in.Op, boolCell(y.Int() < x.Int()))
}

func (vm *Interpreter) equalOp(in isa.Instruction) error {
	x, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	y, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	eq, ok := cell.Equal(x, y)
	if !ok {
		return newPanic(in.Op, TypeMismatch, "operands not comparable")
	}
	return vm.push(in.Op, boolCell(eq))
}

// eqTag compares the tags of the top two cells without consuming them,
// per spec §4.5: "a,b → a,b,0/1".
func (vm *Interpreter) eqTag(in isa.Instruction) error {
	x, err := vm.st.Peek(0)
	if err != nil {
		return vm.underflow(in.Op)
	}
	y, err := vm.st.Peek(1)
	if err != nil {
		return vm.underflow(in.Op)
	}
	return vm.push(in.Op, boolCell(x.Tag() == y.Tag()))
}

// eqSymbolImmediate compares top-of-stack (kept) against a literal symbol.
func (vm *Interpreter) eqSymbolImmediate(in isa.Instruction) error {
	x, err := vm.st.Peek(0)
	if err != nil {
		return vm.underflow(in.Op)
	}
	if x.Tag() != cell.String {
		return newPanic(in.Op, TypeMismatch, "EQSI operand must be String")
	}
	return vm.push(in.Op, boolCell(x.String() == in.StrArg))
}

// cons pops x=TOS then y=second, allocates two heap cells holding them in
// that order, and pushes pair(idxOfX, idxOfY) — the compiler emits
// argument subtrees right-to-left for cons, so x is the car and y the cdr.
func (vm *Interpreter) cons(in isa.Instruction) error {
	x, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	y, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	xi, err := vm.alloc(in.Op, x)
	if err != nil {
		return err
	}
	yi, err := vm.alloc(in.Op, y)
	if err != nil {
		return err
	}
	return vm.push(in.Op, cell.MakePair(xi, yi))
}

// carCdr implements CAR/CDR/PUSHCAR/PUSHCDR. cdr selects right over left;
// keepPair additionally leaves the original pair below the extracted
// child, matching PUSHCAR/PUSHCDR's stack effect.
func (vm *Interpreter) carCdr(in isa.Instruction, cdr, keepPair bool) error {
	top, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if top.Tag() == cell.Nil {
		return newPanic(in.Op, UnboundSymbol, "car/cdr of Nil")
	}
	if top.Tag() != cell.Pair {
		return newPanic(in.Op, TypeMismatch, "operand must be Pair")
	}
	var idx uint32
	if cdr {
		idx = top.Right()
	} else {
		idx = top.Left()
	}
	child := vm.h.Get(idx)
	if keepPair {
		if err := vm.push(in.Op, top); err != nil {
			return err
		}
	}
	return vm.push(in.Op, child)
}

// def consumes a (name . value) pair and prepends a new binding pair to
// the current environment, mutating heap[env_ptr] in place (not
// relocating it) so existing closures over the same env slot observe
// later top-level defines — see the DEF/STOREENV/LOADENV derivation in
// DESIGN.md.
func (vm *Interpreter) def(in isa.Instruction) error {
	pairCell, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if pairCell.Tag() != cell.Pair {
		return newPanic(in.Op, TypeMismatch, "DEF operand must be (name . value)")
	}
	nameIdx := pairCell.Left()
	nameCell := vm.h.Get(nameIdx)

	oldEnv := vm.h.Get(vm.envPtr)
	oldEnvCopyIdx, err := vm.alloc(in.Op, oldEnv)
	if err != nil {
		return err
	}
	newHeadIdx, err := vm.alloc(in.Op, pairCell)
	if err != nil {
		return err
	}
	vm.h.Set(vm.envPtr, cell.MakePair(newHeadIdx, oldEnvCopyIdx))
	return vm.push(in.Op, nameCell)
}

// storeenv relocates env_ptr to a brand-new heap slot holding whatever is
// on top of the stack, used by lambda prologues to install a fresh local
// scope derived from the captured environment.
func (vm *Interpreter) storeenv(in isa.Instruction) error {
	top, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	idx, err := vm.alloc(in.Op, top)
	if err != nil {
		return err
	}
	vm.envPtr = idx
	return nil
}

// condJump implements RJZ/RJNZ. Neither auto-pops its condition operand —
// the compiler's emitted code is responsible for popping it on every path
// (see the symbol-lookup derivation in DESIGN.md).
func (vm *Interpreter) condJump(in isa.Instruction, jumpOnNonZero bool) error {
	c, err := vm.st.Peek(0)
	if err != nil {
		return vm.underflow(in.Op)
	}
	if c.Tag() != cell.Int {
		return newPanic(in.Op, TypeMismatch, "branch condition must be Int")
	}
	nonZero := c.Int() != 0
	if nonZero == jumpOnNonZero {
		vm.pc += int(in.IntArg)
		vm.jumped = true
	}
	return nil
}

// call pops a Lambda, pushes the saved return address and caller env as
// tagged cells, installs the callee's captured env, and jumps to its
// entry address.
func (vm *Interpreter) call(in isa.Instruction) error {
	fn, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if fn.Tag() != cell.Lambda || fn.IsSentinelLambda() {
		return newPanic(in.Op, TypeMismatch, "CALL operand must be a Lambda")
	}
	if err := vm.push(in.Op, cell.MakeInstructionPointer(vm.pc+1)); err != nil {
		return err
	}
	if err := vm.push(in.Op, cell.MakeEnvironment(vm.envPtr)); err != nil {
		return err
	}
	vm.envPtr = fn.LambdaEnv()
	vm.pc = int(fn.LambdaAddr())
	vm.jumped = true
	return nil
}

// ret pops the saved Environment then InstructionPointer (in that order,
// per the frame CALL built), restores env_ptr and pc, and drops n
// leftover argument slots. Correctness depends on the compiler's lambda
// epilogue having already rotated the result below those n slots.
func (vm *Interpreter) ret(in isa.Instruction) error {
	envCell, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if envCell.Tag() != cell.Environment {
		return newPanic(in.Op, TypeMismatch, "RET expected a saved Environment frame")
	}
	ipCell, err := vm.pop(in.Op)
	if err != nil {
		return err
	}
	if ipCell.Tag() != cell.InstructionPointer {
		return newPanic(in.Op, TypeMismatch, "RET expected a saved InstructionPointer frame")
	}
	if in.IntArg > 0 {
		if err := vm.st.Drop(int(in.IntArg)); err != nil {
			return vm.underflow(in.Op)
		}
	}
	vm.envPtr = envCell.EnvironmentValue()
	vm.pc = ipCell.InstructionPointerValue()
	vm.jumped = true
	return nil
}

// prn pops TOS and formats it per vm_print_cell's exact behavior: decimal
// for Int, raw characters for String, "Nil\n" for Nil, nothing for any
// other tag — an intentional print-only quirk, not a bug.
func (vm *Interpreter) prn(in isa.Instruction) (string, error) {
	c, err := vm.pop(in.Op)
	if err != nil {
		return "", err
	}
	switch c.Tag() {
	case cell.Int:
		return strconv.FormatInt(c.Int(), 10), nil
	case cell.String:
		return c.String(), nil
	case cell.Nil:
		return "Nil\n", nil
	default:
		return "", nil
	}
}
