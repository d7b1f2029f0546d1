// Package compiler lowers a parsed internal/sexpr tree into cellvm
// bytecode, per spec.md §4.6: each node compiles to an append-to-program
// operation, with every compiled subtree leaving exactly one net value on
// the stack — the invariant the linker and optimizer both lean on.
package compiler

import (
	"fmt"

	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// Compiler accumulates the main body and a table of lambda blobs compiled
// as a side effect of encountering `lambda` forms anywhere in the tree.
type Compiler struct {
	functions []isa.Program
}

// Result is one compiled (but not yet linked) unit: a main body plus the
// function table `PUSHL` indices into it refer to.
type Result struct {
	Main      isa.Program
	Functions []isa.Program
}

// Compile lowers a single top-level form into a Result. Use CompileForms
// for a whole program of several top-level forms sharing one function
// table (spec.md §4.12's supplemented multi-form source shape).
func Compile(form sexpr.Node) (Result, error) {
	c := &Compiler{}
	prog, err := c.compileNode(form)
	if err != nil {
		return Result{}, err
	}
	return Result{Main: prog, Functions: c.functions}, nil
}

// CompileForms compiles each top-level form in order into one shared
// program: every form's code runs in sequence, each popping its own
// leftover value except the last, whose value is the program's result —
// this is original_source/main.cc's top-level driver shape (one compiled
// `(define ...)` or expression per line of source), not itself named by
// any single spec.md construct. The main body ends in FIN, so a linked
// program halts before reaching the lambda blobs appended after it.
func CompileForms(forms []sexpr.Node) (Result, error) {
	if len(forms) == 0 {
		return Result{}, fmt.Errorf("compiler: no forms to compile")
	}
	c := &Compiler{}
	var main isa.Program
	for i, form := range forms {
		prog, err := c.compileNode(form)
		if err != nil {
			return Result{}, err
		}
		main = append(main, prog...)
		if i != len(forms)-1 {
			main = append(main, isa.Instruction{Op: isa.POP})
		}
	}
	main = append(main, isa.Instruction{Op: isa.FIN})
	return Result{Main: main, Functions: c.functions}, nil
}

// compileNode dispatches on the node's shape: integers emit PUSHCI,
// symbols emit the environment lookup sequence (or PUSHNIL for the
// reserved symbol "Nil"), lists dispatch on the head per the table in
// spec.md §4.6.
func (c *Compiler) compileNode(n sexpr.Node) (isa.Program, error) {
	switch n.Kind {
	case sexpr.Int:
		return isa.Program{{Op: isa.PUSHCI, IntArg: n.IntVal}}, nil
	case sexpr.Symbol:
		if n.IsNil() {
			return isa.Program{{Op: isa.PUSHNIL}}, nil
		}
		return lookupSymbol(n.SymVal)
	case sexpr.List:
		return c.compileList(n)
	default:
		return nil, fmt.Errorf("compiler: unrecognized node kind %d", n.Kind)
	}
}

func (c *Compiler) compileList(n sexpr.Node) (isa.Program, error) {
	if len(n.Items) == 0 {
		return nil, nil
	}
	head := n.Items[0]
	switch head.Kind {
	case sexpr.Int:
		return c.compileNode(head)
	case sexpr.Symbol:
		if head.IsNil() {
			return isa.Program{{Op: isa.PUSHNIL}}, nil
		}
		return c.compileHeadedList(head.SymVal, n.Items)
	default:
		return nil, fmt.Errorf("compiler: list head must be an atom, got %s", head)
	}
}

// compileArgs compiles n.Items[1:] left to right, the default argument
// order for arithmetic/relational heads and ordinary function calls.
func (c *Compiler) compileArgs(items []sexpr.Node) (isa.Program, error) {
	var out isa.Program
	for _, item := range items[1:] {
		prog, err := c.compileNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, prog...)
	}
	return out, nil
}

func requireArgs(name string, items []sexpr.Node, n int) error {
	if len(items)-1 != n {
		return fmt.Errorf("compiler: %q expects %d argument(s), got %d", name, n, len(items)-1)
	}
	return nil
}
