package compiler

import (
	"fmt"

	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compileCond lowers `(cond p1 r1 p2 r2 ... pn rn)`. Each clause i
// compiles to: [POP if i!=0 — discards the previous clause's false flag,
// which RJZ never auto-pops] <p_i> RJZ <past this clause's true branch>
// POP <r_i> [RJMP <past all remaining clauses>, if i isn't last].
//
// Rather than port original_source/main.cc's manual instruction-count
// arithmetic for the RJZ/RJMP displacements (traced and found to overshoot
// by one instruction whenever a jump needs to skip past the final clause —
// its RJMP distance formula charges every remaining clause a uniform
// trailing RJMP's worth of length, including the last clause, which never
// emits one), this assembles the clauses first and computes every branch
// displacement from the resulting slice's own indices, the way a real
// one-pass assembler would. A dummy sentinel clause `(1) r` is the
// convention for an "else" — compileCond imposes no such requirement
// itself.
func (c *Compiler) compileCond(items []sexpr.Node) (isa.Program, error) {
	rest := items[1:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, fmt.Errorf("compiler: cond requires an even number of predicate/result pairs")
	}
	n := len(rest) / 2
	var prog isa.Program
	var pendingRJMP []int
	for i := 0; i < n; i++ {
		if i != 0 {
			prog = append(prog, isa.Instruction{Op: isa.POP})
		}
		predicate, err := c.compileNode(rest[2*i])
		if err != nil {
			return nil, err
		}
		prog = append(prog, predicate...)

		rjzIdx := len(prog)
		prog = append(prog, isa.Instruction{Op: isa.RJZ}) // patched below
		prog = append(prog, isa.Instruction{Op: isa.POP})

		result, err := c.compileNode(rest[2*i+1])
		if err != nil {
			return nil, err
		}
		prog = append(prog, result...)

		if i != n-1 {
			rjmpIdx := len(prog)
			prog = append(prog, isa.Instruction{Op: isa.RJMP}) // patched after the loop
			pendingRJMP = append(pendingRJMP, rjmpIdx)
			prog[rjzIdx].IntArg = int64(len(prog) - rjzIdx)
		} else {
			prog[rjzIdx].IntArg = int64(len(prog) - rjzIdx)
		}
	}
	end := len(prog)
	for _, idx := range pendingRJMP {
		prog[idx].IntArg = int64(end - idx)
	}
	return prog, nil
}
