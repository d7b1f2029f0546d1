package compiler

import (
	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compilePredicate lowers null?/int?/str?/func?: compile the one operand,
// push a sentinel of the target tag, compare tags with EQT (which keeps
// both operands per spec §4.5), then discard them with a SWAP that
// rotates the kept flag down past both before two POPs.
//
// EQT leaves [..., operand, sentinel, flag]. my stack.Swap(k) exchanges
// top with the slot k below it (other = sp-1-k); SWAP 2 here swaps flag
// (top) with operand (two below sentinel), landing [..., flag, sentinel,
// operand] — POP, POP then discard sentinel and operand, leaving flag.
// This is one slot deeper than original_source/main.cc's literal
// "SWAP 1" because that source's own SWAP indexes one off from this
// Stack's convention (see DESIGN.md's stack section).
func (c *Compiler) compilePredicate(name string, items []sexpr.Node) (isa.Program, error) {
	if err := requireArgs(name, items, 1); err != nil {
		return nil, err
	}
	operand, err := c.compileNode(items[1])
	if err != nil {
		return nil, err
	}
	var sentinel isa.Instruction
	switch name {
	case "null?":
		sentinel = isa.Instruction{Op: isa.PUSHNIL}
	case "int?":
		sentinel = isa.Instruction{Op: isa.PUSHCI, IntArg: 0}
	case "str?":
		sentinel = isa.Instruction{Op: isa.PUSHS, StrArg: "s"}
	case "func?":
		sentinel = isa.Instruction{Op: isa.PUSHL, IntArg: -1}
	}
	prog := append(operand, sentinel)
	prog = append(prog,
		isa.Instruction{Op: isa.EQT},
		isa.Instruction{Op: isa.SWAP, IntArg: 2},
		isa.Instruction{Op: isa.POP},
		isa.Instruction{Op: isa.POP},
	)
	return prog, nil
}
