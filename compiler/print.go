package compiler

import (
	"fmt"

	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compilePrint lowers `(print)` to PRNL plus Nil, and `(print x)` to
// compiling x, PRN, plus Nil — print is always a Nil-valued expression so
// it composes with begin/define like anything else.
func (c *Compiler) compilePrint(items []sexpr.Node) (isa.Program, error) {
	var prog isa.Program
	switch len(items) - 1 {
	case 0:
		prog = isa.Program{{Op: isa.PRNL}}
	case 1:
		arg, err := c.compileNode(items[1])
		if err != nil {
			return nil, err
		}
		prog = append(arg, isa.Instruction{Op: isa.PRN})
	default:
		return nil, fmt.Errorf("compiler: print takes 0 or 1 arguments, got %d", len(items)-1)
	}
	return append(prog, isa.Instruction{Op: isa.PUSHNIL}), nil
}
