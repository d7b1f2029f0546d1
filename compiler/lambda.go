package compiler

import (
	"fmt"

	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compileLambda lowers `(lambda (formals...) body)` into a new function
// blob appended to the compiler's function table, emitting `PUSHL <idx>`
// in the caller's stream (the linker later rewrites that index to the
// blob's absolute address).
//
// Layout at blob entry: [..., arg_0, ..., arg_{n-1}, IP, Env(top)] — the
// caller pushed formals left to right, then CALL popped the Lambda cell
// and pushed IP then Env. At entry formal i (0-indexed, leftmost=0) sits
// n-i+1 slots below the top (the offset interp.TestCallAndReturnIdentityLambda
// reads with PUSHFS 2); each binding group first pushes the env with
// LOADENV, so its `PUSHFS (n-i+2)` reads the formal without disturbing
// the frame. See DESIGN.md for the derivation.
func (c *Compiler) compileLambda(items []sexpr.Node) (isa.Program, error) {
	if err := requireArgs("lambda", items, 2); err != nil {
		return nil, err
	}
	if items[1].Kind != sexpr.List {
		return nil, fmt.Errorf("compiler: lambda formals must be a list")
	}
	formals := items[1].Items
	n := len(formals)
	names := make([]string, n)
	for i, f := range formals {
		if f.Kind != sexpr.Symbol || f.IsNil() {
			return nil, requireSymbolError("lambda", f)
		}
		names[i] = f.SymVal
	}

	body, err := c.compileNode(items[2])
	if err != nil {
		return nil, err
	}

	// Argument binding elision: a function that never produces a
	// closure of its own can read its formals straight off the call
	// frame via PUSHFP instead of DEF-ing them into a heap env pair
	// every call, so skip both the prologue group and drop the env
	// indirection from every lookup of that formal in the body.
	elided := make([]bool, n)
	if n > 0 && !containsLambda(items[2]) {
		depths := formalDepths(items[2], names)
		body = elideFormals(body, names, n, depths)
		for i := range elided {
			elided[i] = true
		}
	}

	var blob isa.Program
	blob = append(blob, isa.Instruction{Op: isa.LOADENV}, isa.Instruction{Op: isa.STOREENV})
	for i, name := range names {
		if elided[i] {
			continue
		}
		blob = append(blob,
			isa.Instruction{Op: isa.LOADENV},
			isa.Instruction{Op: isa.PUSHFS, IntArg: int64(n - i + 2)},
			isa.Instruction{Op: isa.PUSHS, StrArg: name},
			isa.Instruction{Op: isa.CONS},
			isa.Instruction{Op: isa.CONS},
			isa.Instruction{Op: isa.STOREENV},
		)
	}
	blob = append(blob, body...)

	// Epilogue: rotate the result down through the (n+3)-cell call window
	// (n argument slots, IP, Env, result) to the bottom, then RET n drops
	// the n argument slots and restores IP/Env. See DESIGN.md item 2b for
	// the hand-traced derivation of this descending SWAP chain.
	for k := n + 2; k >= 1; k-- {
		blob = append(blob, isa.Instruction{Op: isa.SWAP, IntArg: int64(k)})
	}
	blob = append(blob, isa.Instruction{Op: isa.RET, IntArg: int64(n)})

	idx := len(c.functions)
	c.functions = append(c.functions, blob)
	return isa.Program{{Op: isa.PUSHL, IntArg: int64(idx)}}, nil
}
