package compiler

import (
	"testing"

	"github.com/dmitryduka/cellvm/isa"
)

func TestSpliceDeletesAndRepatchesForwardBranch(t *testing.T) {
	// RJMP at 0 jumps past the 3-instruction span [1,4) to land on NOP at 4.
	prog := isa.Program{
		{Op: isa.RJMP, IntArg: 4},
		{Op: isa.PUSHCI, IntArg: 9},
		{Op: isa.RJZ, IntArg: 1},
		{Op: isa.POP},
		{Op: isa.NOP},
	}
	out := splice(prog, 1, 3, nil)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	// RJMP is still at index 0; NOP has moved to index 1. Target must track it.
	if got := 0 + int(out[0].IntArg); got != 1 {
		t.Errorf("RJMP target = %d, want 1 (NOP's new index)", got)
	}
}

func TestSpliceClampsBranchIntoDeletedRangeToStart(t *testing.T) {
	// RJZ at 0 jumps into the middle of the span being deleted.
	prog := isa.Program{
		{Op: isa.RJZ, IntArg: 2},
		{Op: isa.PUSHCI, IntArg: 1},
		{Op: isa.POP},
		{Op: isa.PUSHCI, IntArg: 5},
	}
	out := splice(prog, 1, 2, isa.Program{{Op: isa.PUSHNIL}})
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if got := 0 + int(out[0].IntArg); got != 1 {
		t.Errorf("RJZ target = %d, want 1 (start of replacement)", got)
	}
}

func TestFoldConstantConditionalsRemovesDeadBranch(t *testing.T) {
	prog := isa.Program{
		{Op: isa.PUSHCI, IntArg: 7},
		{Op: isa.RJZ, IntArg: 3},
		{Op: isa.POP},
		{Op: isa.PUSHCI, IntArg: 99},
		{Op: isa.FIN},
	}
	out := FoldConstantConditionals(prog)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2, got %v", len(out), out)
	}
	if out[0].Op != isa.PUSHCI || out[0].IntArg != 99 {
		t.Errorf("out[0] = %+v, want PUSHCI 99", out[0])
	}
	if out[1].Op != isa.FIN {
		t.Errorf("out[1] = %+v, want FIN", out[1])
	}
}

func TestFoldConstantConditionalsLeavesZeroConditionAlone(t *testing.T) {
	prog := isa.Program{
		{Op: isa.PUSHCI, IntArg: 0},
		{Op: isa.RJZ, IntArg: 3},
		{Op: isa.POP},
		{Op: isa.FIN},
	}
	out := FoldConstantConditionals(prog)
	if len(out) != len(prog) {
		t.Fatalf("len(out) = %d, want unchanged %d", len(out), len(prog))
	}
}
