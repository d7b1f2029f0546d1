package compiler

import (
	"fmt"

	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compileBegin lowers `(begin e1 ... en)`: compile and discard each
// intermediate expression's value, leaving only the last one's.
func (c *Compiler) compileBegin(items []sexpr.Node) (isa.Program, error) {
	if len(items) < 2 {
		return nil, fmt.Errorf("compiler: begin requires at least one expression")
	}
	var prog isa.Program
	for _, item := range items[1 : len(items)-1] {
		sub, err := c.compileNode(item)
		if err != nil {
			return nil, err
		}
		prog = append(prog, sub...)
		prog = append(prog, isa.Instruction{Op: isa.POP})
	}
	last, err := c.compileNode(items[len(items)-1])
	if err != nil {
		return nil, err
	}
	return append(prog, last...), nil
}
