// Package stack implements the fixed-capacity Cell array that the
// interpreter uses for both operand values and call frames, per spec
// §4.3: CALL pushes a saved InstructionPointer then a saved Environment;
// RET pops both back off and drops any leftover argument slots.
package stack

import (
	"errors"

	"github.com/dmitryduka/cellvm/cell"
)

// ErrUnderflow is returned when an operation needs more elements than are
// present. Also used for stack capacity exhaustion on Push: both are a
// violation of the same fixed-size structure, and spec §7's taxonomy has
// no separate "overflow" kind, so interp reports either as UnderflowedStack.
var ErrUnderflow = errors.New("stack: not enough elements")

// Stack is a fixed-capacity Cell array with an explicit top-of-stack index.
type Stack struct {
	cells []cell.Cell
	sp    int
	high  int // historic high-water mark, for interp.Stats
}

// New allocates a Stack with room for capacity Cells, matching spec's
// default of 500.
func New(capacity int) *Stack {
	return &Stack{cells: make([]cell.Cell, capacity)}
}

// Len returns the current number of live elements (stack_ptr in the
// traced source).
func (s *Stack) Len() int { return s.sp }

// Cap returns the fixed capacity.
func (s *Stack) Cap() int { return len(s.cells) }

// HighWaterMark returns the largest Len ever observed.
func (s *Stack) HighWaterMark() int { return s.high }

// Push places c on top of the stack.
func (s *Stack) Push(c cell.Cell) error {
	if s.sp >= len(s.cells) {
		return ErrUnderflow
	}
	s.cells[s.sp] = c
	s.sp++
	if s.sp > s.high {
		s.high = s.sp
	}
	return nil
}

// Pop removes and returns the top-of-stack Cell.
func (s *Stack) Pop() (cell.Cell, error) {
	if s.sp == 0 {
		return cell.Cell(0), ErrUnderflow
	}
	s.sp--
	return s.cells[s.sp], nil
}

// Peek returns the Cell at offset k below the top (k=0 is top-of-stack)
// without removing it, backing both PUSHFS and PUSHFP.
func (s *Stack) Peek(k int) (cell.Cell, error) {
	idx := s.sp - k - 1
	if idx < 0 || idx >= s.sp {
		return cell.Cell(0), ErrUnderflow
	}
	return s.cells[idx], nil
}

// Drop discards n elements from the top without returning them, used by
// RET n.
func (s *Stack) Drop(n int) error {
	if n > s.sp {
		return ErrUnderflow
	}
	s.sp -= n
	return nil
}

// Swap exchanges top-of-stack with the element k slots below it.
func (s *Stack) Swap(k int) error {
	top := s.sp - 1
	other := s.sp - k - 1
	if top < 0 || other < 0 || other >= s.sp {
		return ErrUnderflow
	}
	s.cells[top], s.cells[other] = s.cells[other], s.cells[top]
	return nil
}

// Slice returns the live window [0, Len()) for GC root-scanning. The
// returned slice aliases the Stack's backing array; heap.Collect rewrites
// it in place during a collection.
func (s *Stack) Slice() []cell.Cell { return s.cells[:s.sp] }
