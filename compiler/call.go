package compiler

import (
	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compileCall lowers a list whose head is any symbol not otherwise
// recognized: push the arguments left to right, compile the head symbol
// (an ordinary lookup, expected to resolve to a Lambda), then CALL.
func (c *Compiler) compileCall(name string, items []sexpr.Node) (isa.Program, error) {
	prog, err := c.compileArgs(items)
	if err != nil {
		return nil, err
	}
	fn, err := lookupSymbol(name)
	if err != nil {
		return nil, err
	}
	prog = append(prog, fn...)
	return append(prog, isa.Instruction{Op: isa.CALL}), nil
}
