package compiler

import "github.com/dmitryduka/cellvm/isa"

// Link appends each function blob to the main body in table order,
// records each blob's start address, and rewrites every `PUSHL i` whose
// operand equals the table index `i` to the blob's absolute start
// address. `PUSHL -1` (the sentinel closure) is never touched.
func Link(r Result) isa.Program {
	starts := make([]int64, len(r.Functions))
	addr := int64(len(r.Main))
	for i, fn := range r.Functions {
		starts[i] = addr
		addr += int64(len(fn))
	}

	relocate := func(prog isa.Program) {
		for i, in := range prog {
			if in.Op == isa.PUSHL && in.IntArg >= 0 {
				prog[i].IntArg = starts[in.IntArg]
			}
		}
	}

	out := make(isa.Program, 0, addr)
	out = append(out, r.Main...)
	for _, fn := range r.Functions {
		out = append(out, fn...)
	}
	relocate(out)
	return out
}
