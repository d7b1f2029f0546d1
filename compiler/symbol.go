package compiler

import (
	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// lookupSymbol emits the inline linear search spec.md §4.4 describes:
// walk the env chain comparing each binding's name to the literal symbol,
// on match leave the binding's value and discard everything else pushed
// along the way. Hand-verified cell-by-cell in
// interp.TestDefineAndUse/TestDefMutatesEnvInPlaceAcrossMultipleBindings
// against this exact instruction sequence.
func lookupSymbol(name string) (isa.Program, error) {
	return isa.Program{
		{Op: isa.LOADENV},
		{Op: isa.PUSHCAR},
		{Op: isa.PUSHCAR},
		{Op: isa.EQSI, StrArg: name},
		{Op: isa.RJNZ, IntArg: 6},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.CDR},
		{Op: isa.RJMP, IntArg: -8},
		{Op: isa.POP},
		{Op: isa.POP},
		{Op: isa.CDR},
		{Op: isa.SWAP, IntArg: 1},
		{Op: isa.POP},
	}, nil
}

// lookupSeqLen is the fixed instruction count of lookupSymbol's output,
// used by the optimizer to recognize and splice out occurrences for an
// elided formal.
const lookupSeqLen = 15

// compileDefine lowers `(define name expr)`: compile expr, push the
// literal name, CONS them into a (name . value) pair, and DEF it into the
// current environment. DEF itself leaves exactly one value (the bound
// name) on the stack, so no trailing POP belongs here — that is the
// caller's job (CompileForms, begin) when sequencing statements.
func (c *Compiler) compileDefine(items []sexpr.Node) (isa.Program, error) {
	if err := requireArgs("define", items, 2); err != nil {
		return nil, err
	}
	if items[1].Kind != sexpr.Symbol || items[1].IsNil() {
		return nil, requireSymbolError("define", items[1])
	}
	value, err := c.compileNode(items[2])
	if err != nil {
		return nil, err
	}
	prog := append(value, isa.Instruction{Op: isa.PUSHS, StrArg: items[1].SymVal})
	prog = append(prog, isa.Instruction{Op: isa.CONS}, isa.Instruction{Op: isa.DEF})
	return prog, nil
}

func requireSymbolError(form string, n sexpr.Node) error {
	return &compileError{form: form, msg: "expected a bare symbol, got " + n.String()}
}

type compileError struct {
	form string
	msg  string
}

func (e *compileError) Error() string { return e.form + ": " + e.msg }
