// Package jitc implements spec §4.9's optional JIT as closure-threaded
// ("direct-threaded code") compiled dispatch: Compile turns an isa.Program
// into a slice of Go closures, one per instruction, each already bound to
// its own operand data. Running a program is then just calling through
// that slice instead of re-fetching and re-switching on an isa.Instruction
// every tick — the same win original_source/vm.cc's libjit-based JIT gets
// over its own naive mnemonic-string interpreter, reached here with a Go
// closure instead of emitted machine code (see DESIGN.md's Open Question
// resolution on why: no repository in the retrieval pack carries an
// assembler or cgo-based native codegen dependency to ground one).
package jitc

import (
	"time"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/interp"
	"github.com/dmitryduka/cellvm/isa"
	"github.com/dmitryduka/cellvm/stack"
)

// thunk is one compiled instruction: it performs that instruction's full
// effect against e and returns any PRN/PRNL text produced.
type thunk func(e *Engine) (string, error)

// Engine owns one run's mutable state — the same shape as
// interp.Interpreter (program counter, environment pointer, heap, stack)
// plus the compiled thunk slice Compile produced. It reuses
// interp.PanicError/interp.Kind and interp.Stats so a caller can treat
// either engine's result identically.
type Engine struct {
	ops []thunk
	fin []bool
	pc  int

	envPtr uint32

	h  *heap.Heap
	st *stack.Stack

	jumped bool
	stats  interp.Stats
}

// New compiles prog and returns a ready-to-run Engine over h/st.
func New(prog isa.Program, h *heap.Heap, st *stack.Stack) (*Engine, error) {
	ops, fin, err := Compile(prog)
	if err != nil {
		return nil, err
	}
	return &Engine{ops: ops, fin: fin, h: h, st: st, envPtr: heap.GlobalEnvIndex}, nil
}

// Stats returns the diagnostics accumulated so far.
func (e *Engine) Stats() interp.Stats { return e.stats }

// Top returns the current top-of-stack value, if any.
func (e *Engine) Top() (cell.Cell, bool) {
	c, err := e.st.Peek(0)
	if err != nil {
		return cell.Cell(0), false
	}
	return c, true
}

// PC returns the current program counter, for diagnostics.
func (e *Engine) PC() int { return e.pc }

// Run drives the compiled program the same way interp.Interpreter.Run
// drives an uncompiled one: one (output, nil) pair per PRN/PRNL. A clean
// FIN ends the iteration with no further pair; a VM panic yields a final
// ("", *interp.PanicError) pair.
func (e *Engine) Run(yield func(output string, err error) bool) {
	start := time.Now()
	for {
		if e.pc < 0 || e.pc >= len(e.ops) {
			e.stats.ExecutionTime = time.Since(start)
			yield("", &interp.PanicError{Op: "pc", Kind: interp.BadOperand, Message: "program counter out of range"})
			return
		}
		fin := e.fin[e.pc]
		out, err := e.ops[e.pc](e)
		e.stats.Ticks++
		e.stats.StackHighWaterMark = e.st.HighWaterMark()
		if err != nil {
			e.stats.ExecutionTime = time.Since(start)
			yield("", err)
			return
		}
		if out != "" {
			if !yield(out, nil) {
				return
			}
		}
		if fin {
			e.stats.ExecutionTime = time.Since(start)
			return
		}
		if e.jumped {
			e.jumped = false
		} else {
			e.pc++
		}
	}
}
