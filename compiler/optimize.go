package compiler

import "github.com/dmitryduka/cellvm/isa"

func isBranch(op isa.Op) bool {
	return op == isa.RJMP || op == isa.RJZ || op == isa.RJNZ
}

// splice removes the n instructions starting at start and inserts
// replacement in their place, recomputing every surviving branch's
// displacement against the new layout. A branch whose original target
// fell inside the removed range lands on start, the first surviving
// instruction of whatever replaced it.
//
// This is the one piece neither cond-folding nor argument-binding
// elision can do with a literal instruction-count formula the way
// original_source/main.cc's remove_instructions does it (see
// compileCond and DESIGN.md): both need to delete or shrink a span
// and keep every branch elsewhere in the program pointing at the same
// logical place, so the remap is written once and shared.
func splice(prog isa.Program, start, n int, replacement isa.Program) isa.Program {
	delta := len(replacement) - n
	remap := func(old int) int {
		switch {
		case old < start:
			return old
		case old >= start+n:
			return old + delta
		default:
			return start
		}
	}

	out := make(isa.Program, 0, len(prog)+delta)
	out = append(out, prog[:start]...)
	out = append(out, replacement...)
	out = append(out, prog[start+n:]...)

	for i := range out {
		var oldIdx int
		switch {
		case i < start:
			oldIdx = i
		case i >= start+len(replacement):
			oldIdx = i - delta
		default:
			continue // belongs to replacement, not a relocated original instruction
		}
		if !isBranch(out[i].Op) {
			continue
		}
		oldTarget := oldIdx + int(prog[oldIdx].IntArg)
		out[i].IntArg = int64(remap(oldTarget) - i)
	}
	return out
}

// FoldConstantConditionals is the first of the two peephole passes:
// a `cond` clause compiled against a predicate that is itself a nonzero
// integer literal always takes its true branch, so PUSHCI <n>; RJZ; POP
// (n != 0) never actually jumps — delete the triple and repoint whatever
// branches elsewhere in the program. Used by (cond (1) else-body) as a
// Scheme-style default clause.
func FoldConstantConditionals(prog isa.Program) isa.Program {
	for {
		idx := -1
		for i := 0; i+2 < len(prog); i++ {
			if prog[i].Op == isa.PUSHCI && prog[i].IntArg != 0 &&
				prog[i+1].Op == isa.RJZ &&
				prog[i+2].Op == isa.POP {
				idx = i
				break
			}
		}
		if idx < 0 {
			return prog
		}
		prog = splice(prog, idx, 3, nil)
	}
}

// Optimize runs the conditional-fold peephole over the main body and
// every function blob. Argument-binding elision already happened
// inline during compileLambda (see elide.go) — by the time a Result
// reaches here, a function's per-formal env bindings have already
// been replaced with PUSHFP references wherever elision applied, so
// there is nothing left for a second pass to detect.
func Optimize(r Result) Result {
	out := Result{Main: FoldConstantConditionals(r.Main), Functions: make([]isa.Program, len(r.Functions))}
	for i, fn := range r.Functions {
		out.Functions[i] = FoldConstantConditionals(fn)
	}
	return out
}
