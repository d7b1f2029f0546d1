package compiler

import (
	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// containsLambda reports whether a body subform produces a nested
// closure anywhere within it. A function that does can't have its
// formals' env bindings elided: the nested lambda's own prologue reads
// the OUTER env chain at call time, long after the outer frame that
// would otherwise hold the formal on the stack has unwound, so the
// value has to live in the heap-backed environment instead.
func containsLambda(n sexpr.Node) bool {
	if n.Kind != sexpr.List || len(n.Items) == 0 {
		return false
	}
	if head := n.Items[0]; head.Kind == sexpr.Symbol && !head.IsNil() && head.SymVal == "lambda" {
		return true
	}
	for _, item := range n.Items {
		if containsLambda(item) {
			return true
		}
	}
	return false
}

// formalDepths walks a lambda body's AST in the same left-to-right,
// child-by-child order compileNode's dispatch compiles it, recording
// the stack depth (relative to the body's first instruction, where
// depth 0 means "nothing pushed yet") at every leaf reference to one
// of names. Every compiled subtree nets exactly +1 on the stack
// (compiler.go's invariant), so a sibling's starting depth is always
// the previous sibling's starting depth plus one — begin and cond are
// the two exceptions, where an inserted POP or the implicit discard of
// a predicate's flag resets the next sibling back to the same depth.
//
// This has to walk the AST rather than the already-compiled
// instruction stream because CALL's own stack effect (pop nargs+1,
// push 1) isn't recoverable by scanning opcodes alone — nargs is a
// property of the call site, not of any single instruction.
func formalDepths(n sexpr.Node, names []string) map[string][]int {
	isFormal := make(map[string]bool, len(names))
	for _, name := range names {
		isFormal[name] = true
	}
	depths := make(map[string][]int, len(names))
	walkDepths(n, isFormal, depths, 0)
	return depths
}

func walkDepths(n sexpr.Node, isFormal map[string]bool, depths map[string][]int, depth int) {
	switch n.Kind {
	case sexpr.Int:
		return
	case sexpr.Symbol:
		if !n.IsNil() && isFormal[n.SymVal] {
			depths[n.SymVal] = append(depths[n.SymVal], depth)
		}
		return
	case sexpr.List:
		walkDepthsList(n, isFormal, depths, depth)
	}
}

func walkDepthsList(n sexpr.Node, isFormal map[string]bool, depths map[string][]int, depth int) {
	items := n.Items
	if len(items) == 0 {
		return
	}
	head := items[0]
	if head.Kind != sexpr.Symbol || head.IsNil() {
		return
	}
	switch head.SymVal {
	case "+", "-", "*", "/", "%", "less", "eq":
		if len(items) > 1 {
			walkDepths(items[1], isFormal, depths, depth)
		}
		if len(items) > 2 {
			walkDepths(items[2], isFormal, depths, depth+1)
		}
	case "car", "cdr":
		if len(items) > 1 {
			walkDepths(items[1], isFormal, depths, depth)
		}
	case "cons":
		if len(items) > 2 {
			walkDepths(items[2], isFormal, depths, depth)
		}
		if len(items) > 1 {
			walkDepths(items[1], isFormal, depths, depth+1)
		}
	case "define":
		if len(items) > 2 {
			walkDepths(items[2], isFormal, depths, depth)
		}
	case "lambda":
		return // guarded by containsLambda before this walk ever runs
	case "cond":
		rest := items[1:]
		for i := 0; i+1 < len(rest); i += 2 {
			walkDepths(rest[i], isFormal, depths, depth)
			walkDepths(rest[i+1], isFormal, depths, depth)
		}
	case "begin":
		for _, item := range items[1:] {
			walkDepths(item, isFormal, depths, depth)
		}
	case "print":
		if len(items) > 1 {
			walkDepths(items[1], isFormal, depths, depth)
		}
	case "gc":
		return
	case "null?", "int?", "str?", "func?":
		if len(items) > 1 {
			walkDepths(items[1], isFormal, depths, depth)
		}
	default:
		for i, arg := range items[1:] {
			walkDepths(arg, isFormal, depths, depth+i)
		}
	}
}

var lookupSeqShape = []isa.Op{
	isa.LOADENV, isa.PUSHCAR, isa.PUSHCAR, isa.EQSI, isa.RJNZ,
	isa.POP, isa.POP, isa.POP, isa.CDR, isa.RJMP,
	isa.POP, isa.POP, isa.CDR, isa.SWAP, isa.POP,
}

// matchLookupSeq reports the symbol name a lookupSymbol block at prog[i]
// searches for, if prog[i:i+lookupSeqLen] is exactly that block.
func matchLookupSeq(prog isa.Program, i int) (name string, ok bool) {
	if i+lookupSeqLen > len(prog) {
		return "", false
	}
	seq := prog[i : i+lookupSeqLen]
	for j, op := range lookupSeqShape {
		if seq[j].Op != op {
			return "", false
		}
	}
	if seq[4].IntArg != 6 || seq[9].IntArg != -8 || seq[13].IntArg != 1 {
		return "", false
	}
	return seq[3].StrArg, true
}

// elideFormals rewrites every occurrence of an elided formal's
// lookupSymbol block in body into a single PUSHFP, using the
// occurrence's precomputed depth (relative to body entry, i.e. SP
// right after the lambda prologue ran) plus the distance from body
// entry back to that formal's call-frame slot. That second term is
// n - i + 1 for formal index i, one less than the PUSHFS constant the
// (now-skipped) prologue binding group uses, since that group reads the
// frame after its own LOADENV has pushed one cell.
func elideFormals(body isa.Program, names []string, n int, depths map[string][]int) isa.Program {
	indexOf := make(map[string]int, len(names))
	for i, name := range names {
		indexOf[name] = i
	}
	cursor := make(map[string]int, len(names))

	i := 0
	for i+lookupSeqLen <= len(body) {
		name, ok := matchLookupSeq(body, i)
		if !ok {
			i++
			continue
		}
		fi, elided := indexOf[name]
		if !elided {
			i += lookupSeqLen
			continue
		}
		occurrences := depths[name]
		c := cursor[name]
		if c >= len(occurrences) {
			i += lookupSeqLen
			continue
		}
		cursor[name] = c + 1
		offset := int64(occurrences[c] + n - fi + 1)
		body = splice(body, i, lookupSeqLen, isa.Program{{Op: isa.PUSHFP, IntArg: offset}})
		i++
	}
	return body
}
