// Package interp implements the dispatch loop of spec §4.8: it reads
// program[pc], executes the instruction against the shared heap/stack/env
// state, and advances pc by one except on branches, CALL, RET, and FIN.
package interp

import (
	"time"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/isa"
	"github.com/dmitryduka/cellvm/stack"
)

// Interpreter owns one run's mutable state: program counter, environment
// pointer, and the heap/stack it shares with nothing else (spec §5: "the
// stack and heap are owned exclusively by the VM instance").
type Interpreter struct {
	prog   isa.Program
	pc     int
	envPtr uint32

	h  *heap.Heap
	st *stack.Stack

	jumped bool
	stats  Stats
}

// New constructs an Interpreter over an already-linked (and optionally
// optimized) Program, with a fresh heap and stack sized per the caller's
// configuration.
func New(prog isa.Program, h *heap.Heap, st *stack.Stack) *Interpreter {
	return &Interpreter{prog: prog, h: h, st: st, envPtr: heap.GlobalEnvIndex}
}

// Stats returns the diagnostics accumulated so far; valid to call at any
// point, including from a signal handler mid-run (see cmd/lispvm).
func (vm *Interpreter) Stats() Stats { return vm.stats }

// Top returns the current top-of-stack value, if any — the final result
// of a program that terminates via FIN.
func (vm *Interpreter) Top() (cell.Cell, bool) {
	c, err := vm.st.Peek(0)
	if err != nil {
		return cell.Cell(0), false
	}
	return c, true
}

// PC returns the current program counter, for diagnostics.
func (vm *Interpreter) PC() int { return vm.pc }

// Run drives the dispatch loop, yielding one (output, nil) pair per
// character-producing PRN/PRNL instruction. A clean FIN ends the
// iteration with no further pair; a VM panic yields a final
// ("", *PanicError) pair. It
// follows the range-over-func iterator idiom the teacher's own VM.Run
// method uses: `for out, err := range vm.Run { ... }`.
func (vm *Interpreter) Run(yield func(output string, err error) bool) {
	start := time.Now()
	for {
		if vm.pc < 0 || vm.pc >= len(vm.prog) {
			vm.stats.ExecutionTime = time.Since(start)
			yield("", newPanic(pseudoOp("pc"), BadOperand, "program counter %d out of range", vm.pc))
			return
		}
		in := vm.prog[vm.pc]
		out, err := vm.step(in)
		vm.stats.Ticks++
		vm.stats.StackHighWaterMark = vm.st.HighWaterMark()
		if err != nil {
			vm.stats.ExecutionTime = time.Since(start)
			yield("", err)
			return
		}
		if out != "" {
			if !yield(out, nil) {
				return
			}
		}
		if in.Op == isa.FIN {
			vm.stats.ExecutionTime = time.Since(start)
			return
		}
		if vm.jumped {
			vm.jumped = false
		} else {
			vm.pc++
		}
	}
}

type pseudoOp string

func (p pseudoOp) String() string { return string(p) }
