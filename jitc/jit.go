package jitc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/interp"
	"github.com/dmitryduka/cellvm/isa"
)

// Compile lowers prog into one thunk per instruction, each closing over its
// own isa.Instruction so a tick is a direct call rather than a fetch,
// decode, and switch — the closure-threaded dispatch described in
// engine.go's package doc. Semantics are adapted line-for-line from
// interp/ops.go's step; the two must stay in lockstep for a program to
// produce identical results whichever engine runs it.
func Compile(prog isa.Program) ([]thunk, []bool, error) {
	ops := make([]thunk, len(prog))
	fin := make([]bool, len(prog))
	for i, in := range prog {
		t, err := compileOne(in)
		if err != nil {
			return nil, nil, err
		}
		ops[i] = t
		fin[i] = in.Op == isa.FIN
	}
	return ops, fin, nil
}

func compileOne(in isa.Instruction) (thunk, error) {
	op := in.Op
	allocates := op.Allocates()

	var body thunk
	switch op {
	case isa.NOP:
		body = func(e *Engine) (string, error) { return "", nil }

	case isa.PUSHCI:
		v := cell.MakeInt(in.IntArg)
		body = func(e *Engine) (string, error) { return "", e.push(op, v) }

	case isa.PUSHS:
		v := cell.MakeString(in.StrArg)
		body = func(e *Engine) (string, error) { return "", e.push(op, v) }

	case isa.PUSHNIL:
		v := cell.MakeNil()
		body = func(e *Engine) (string, error) { return "", e.push(op, v) }

	case isa.PUSHL:
		idx := in.IntArg
		if idx < 0 {
			v := cell.MakeSentinelLambda()
			body = func(e *Engine) (string, error) { return "", e.push(op, v) }
		} else {
			addr := uint32(idx)
			body = func(e *Engine) (string, error) {
				return "", e.push(op, cell.MakeLambda(addr, e.envPtr))
			}
		}

	case isa.PUSHFS, isa.PUSHFP:
		k := int(in.IntArg)
		body = func(e *Engine) (string, error) {
			c, err := e.st.Peek(k)
			if err != nil {
				return "", e.underflow(op)
			}
			return "", e.push(op, c)
		}

	case isa.ADD, isa.SUB, isa.MUL, isa.DIV, isa.MOD:
		body = func(e *Engine) (string, error) { return "", e.arith(op) }

	case isa.LT:
		body = func(e *Engine) (string, error) { return "", e.compareLT(op) }

	case isa.EQ:
		body = func(e *Engine) (string, error) { return "", e.equalOp(op) }

	case isa.EQT:
		body = func(e *Engine) (string, error) { return "", e.eqTag(op) }

	case isa.EQSI:
		name := in.StrArg
		body = func(e *Engine) (string, error) { return "", e.eqSymbolImmediate(op, name) }

	case isa.CONS:
		body = func(e *Engine) (string, error) { return "", e.cons(op) }

	case isa.CAR:
		body = func(e *Engine) (string, error) { return "", e.carCdr(op, false, false) }
	case isa.CDR:
		body = func(e *Engine) (string, error) { return "", e.carCdr(op, true, false) }
	case isa.PUSHCAR:
		body = func(e *Engine) (string, error) { return "", e.carCdr(op, false, true) }
	case isa.PUSHCDR:
		body = func(e *Engine) (string, error) { return "", e.carCdr(op, true, true) }

	case isa.DEF:
		body = func(e *Engine) (string, error) { return "", e.def(op) }

	case isa.LOADENV:
		body = func(e *Engine) (string, error) { return "", e.push(op, e.h.Get(e.envPtr)) }

	case isa.STOREENV:
		body = func(e *Engine) (string, error) { return "", e.storeenv(op) }

	case isa.RJMP:
		delta := int(in.IntArg)
		body = func(e *Engine) (string, error) {
			e.pc += delta
			e.jumped = true
			return "", nil
		}

	case isa.RJZ:
		delta := int(in.IntArg)
		body = func(e *Engine) (string, error) { return "", e.condJump(op, false, delta) }
	case isa.RJNZ:
		delta := int(in.IntArg)
		body = func(e *Engine) (string, error) { return "", e.condJump(op, true, delta) }

	case isa.CALL:
		body = func(e *Engine) (string, error) { return "", e.call(op) }

	case isa.RET:
		n := int(in.IntArg)
		body = func(e *Engine) (string, error) { return "", e.ret(op, n) }

	case isa.PRN:
		body = func(e *Engine) (string, error) { return e.prn(op) }

	case isa.PRNL:
		body = func(e *Engine) (string, error) { return "\n", nil }

	case isa.GC:
		body = func(e *Engine) (string, error) {
			e.envPtr = e.h.Collect(e.envPtr, e.st.Slice())
			e.stats.GCCount = e.h.GCCount()
			e.stats.GCCollected = e.h.GCCollected()
			return "", nil
		}

	case isa.FIN:
		body = func(e *Engine) (string, error) { return "", nil }

	case isa.POP:
		body = func(e *Engine) (string, error) {
			if _, err := e.st.Pop(); err != nil {
				return "", e.underflow(op)
			}
			return "", nil
		}

	case isa.SWAP:
		k := int(in.IntArg)
		body = func(e *Engine) (string, error) {
			if err := e.st.Swap(k); err != nil {
				return "", e.underflow(op)
			}
			return "", nil
		}

	default:
		return nil, &interp.PanicError{Op: op.String(), Kind: interp.UnknownOpcode, Message: "unrecognized opcode"}
	}

	if !allocates {
		return body, nil
	}
	return func(e *Engine) (string, error) {
		e.maybeCollect()
		return body(e)
	}, nil
}

func (e *Engine) maybeCollect() {
	if !e.h.ShouldCollect() {
		return
	}
	e.envPtr = e.h.Collect(e.envPtr, e.st.Slice())
	e.stats.GCCount = e.h.GCCount()
	e.stats.GCCollected = e.h.GCCollected()
}

func (e *Engine) underflow(op isa.Op) *interp.PanicError {
	return &interp.PanicError{Op: op.String(), Kind: interp.UnderflowedStack, Message: "not enough elements on stack"}
}

func panicf(op isa.Op, kind interp.Kind, format string, args ...any) *interp.PanicError {
	return &interp.PanicError{Op: op.String(), Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Engine) push(op isa.Op, c cell.Cell) error {
	if err := e.st.Push(c); err != nil {
		return e.underflow(op)
	}
	return nil
}

func (e *Engine) pop(op isa.Op) (cell.Cell, error) {
	c, err := e.st.Pop()
	if err != nil {
		return cell.Cell(0), e.underflow(op)
	}
	return c, nil
}

func (e *Engine) alloc(op isa.Op, c cell.Cell) (uint32, error) {
	idx, err := e.h.Alloc(c)
	if err != nil {
		if errors.Is(err, heap.ErrExhausted) {
			return 0, panicf(op, interp.HeapExhausted, "heap exhausted")
		}
		return 0, panicf(op, interp.HeapExhausted, "%v", err)
	}
	return idx, nil
}

func boolCell(b bool) cell.Cell {
	if b {
		return cell.MakeInt(1)
	}
	return cell.MakeInt(0)
}

func (e *Engine) arith(op isa.Op) error {
	x, err := e.pop(op)
	if err != nil {
		return err
	}
	y, err := e.pop(op)
	if err != nil {
		return err
	}
	if x.Tag() != cell.Int || y.Tag() != cell.Int {
		return panicf(op, interp.TypeMismatch, "operands must be Int")
	}
	a, b := y.Int(), x.Int()
	var r int64
	switch op {
	case isa.ADD:
		r = a + b
	case isa.SUB:
		r = a - b
	case isa.MUL:
		r = a * b
	case isa.DIV:
		if b == 0 {
			return panicf(op, interp.BadOperand, "division by zero")
		}
		r = a / b
	case isa.MOD:
		if b == 0 {
			return panicf(op, interp.BadOperand, "modulo by zero")
		}
		r = a % b
	}
	return e.push(op, cell.MakeInt(r))
}

func (e *Engine) compareLT(op isa.Op) error {
	x, err := e.pop(op)
	if err != nil {
		return err
	}
	y, err := e.pop(op)
	if err != nil {
		return err
	}
	if x.Tag() != cell.Int || y.Tag() != cell.Int {
		return panicf(op, interp.TypeMismatch, "operands must be Int")
	}
	return e.push(op, boolCell(y.Int() < x.Int()))
}

func (e *Engine) equalOp(op isa.Op) error {
	x, err := e.pop(op)
	if err != nil {
		return err
	}
	y, err := e.pop(op)
	if err != nil {
		return err
	}
	eq, ok := cell.Equal(x, y)
	if !ok {
		return panicf(op, interp.TypeMismatch, "operands not comparable")
	}
	return e.push(op, boolCell(eq))
}

func (e *Engine) eqTag(op isa.Op) error {
	x, err := e.st.Peek(0)
	if err != nil {
		return e.underflow(op)
	}
	y, err := e.st.Peek(1)
	if err != nil {
		return e.underflow(op)
	}
	return e.push(op, boolCell(x.Tag() == y.Tag()))
}

func (e *Engine) eqSymbolImmediate(op isa.Op, name string) error {
	x, err := e.st.Peek(0)
	if err != nil {
		return e.underflow(op)
	}
	if x.Tag() != cell.String {
		return panicf(op, interp.TypeMismatch, "EQSI operand must be String")
	}
	return e.push(op, boolCell(x.String() == name))
}

func (e *Engine) cons(op isa.Op) error {
	x, err := e.pop(op)
	if err != nil {
		return err
	}
	y, err := e.pop(op)
	if err != nil {
		return err
	}
	xi, err := e.alloc(op, x)
	if err != nil {
		return err
	}
	yi, err := e.alloc(op, y)
	if err != nil {
		return err
	}
	return e.push(op, cell.MakePair(xi, yi))
}

func (e *Engine) carCdr(op isa.Op, cdr, keepPair bool) error {
	top, err := e.pop(op)
	if err != nil {
		return err
	}
	if top.Tag() == cell.Nil {
		return panicf(op, interp.UnboundSymbol, "car/cdr of Nil")
	}
	if top.Tag() != cell.Pair {
		return panicf(op, interp.TypeMismatch, "operand must be Pair")
	}
	var idx uint32
	if cdr {
		idx = top.Right()
	} else {
		idx = top.Left()
	}
	child := e.h.Get(idx)
	if keepPair {
		if err := e.push(op, top); err != nil {
			return err
		}
	}
	return e.push(op, child)
}

func (e *Engine) def(op isa.Op) error {
	pairCell, err := e.pop(op)
	if err != nil {
		return err
	}
	if pairCell.Tag() != cell.Pair {
		return panicf(op, interp.TypeMismatch, "DEF operand must be (name . value)")
	}
	nameIdx := pairCell.Left()
	nameCell := e.h.Get(nameIdx)

	oldEnv := e.h.Get(e.envPtr)
	oldEnvCopyIdx, err := e.alloc(op, oldEnv)
	if err != nil {
		return err
	}
	newHeadIdx, err := e.alloc(op, pairCell)
	if err != nil {
		return err
	}
	e.h.Set(e.envPtr, cell.MakePair(newHeadIdx, oldEnvCopyIdx))
	return e.push(op, nameCell)
}

func (e *Engine) storeenv(op isa.Op) error {
	top, err := e.pop(op)
	if err != nil {
		return err
	}
	idx, err := e.alloc(op, top)
	if err != nil {
		return err
	}
	e.envPtr = idx
	return nil
}

func (e *Engine) condJump(op isa.Op, jumpOnNonZero bool, delta int) error {
	c, err := e.st.Peek(0)
	if err != nil {
		return e.underflow(op)
	}
	if c.Tag() != cell.Int {
		return panicf(op, interp.TypeMismatch, "branch condition must be Int")
	}
	nonZero := c.Int() != 0
	if nonZero == jumpOnNonZero {
		e.pc += delta
		e.jumped = true
	}
	return nil
}

func (e *Engine) call(op isa.Op) error {
	fn, err := e.pop(op)
	if err != nil {
		return err
	}
	if fn.Tag() != cell.Lambda || fn.IsSentinelLambda() {
		return panicf(op, interp.TypeMismatch, "CALL operand must be a Lambda")
	}
	if err := e.push(op, cell.MakeInstructionPointer(e.pc+1)); err != nil {
		return err
	}
	if err := e.push(op, cell.MakeEnvironment(e.envPtr)); err != nil {
		return err
	}
	e.envPtr = fn.LambdaEnv()
	e.pc = int(fn.LambdaAddr())
	e.jumped = true
	return nil
}

func (e *Engine) ret(op isa.Op, n int) error {
	envCell, err := e.pop(op)
	if err != nil {
		return err
	}
	if envCell.Tag() != cell.Environment {
		return panicf(op, interp.TypeMismatch, "RET expected a saved Environment frame")
	}
	ipCell, err := e.pop(op)
	if err != nil {
		return err
	}
	if ipCell.Tag() != cell.InstructionPointer {
		return panicf(op, interp.TypeMismatch, "RET expected a saved InstructionPointer frame")
	}
	if n > 0 {
		if err := e.st.Drop(n); err != nil {
			return e.underflow(op)
		}
	}
	e.envPtr = envCell.EnvironmentValue()
	e.pc = ipCell.InstructionPointerValue()
	e.jumped = true
	return nil
}

func (e *Engine) prn(op isa.Op) (string, error) {
	c, err := e.pop(op)
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
