package compiler

import (
	"github.com/dmitryduka/cellvm/internal/sexpr"
	"github.com/dmitryduka/cellvm/isa"
)

// compileHeadedList dispatches a non-empty list whose head is a symbol,
// per the table in spec.md §4.6.
func (c *Compiler) compileHeadedList(name string, items []sexpr.Node) (isa.Program, error) {
	switch name {
	case "+", "-", "*", "/", "%", "less", "eq", "car", "cdr":
		return c.compileArithHead(name, items)
	case "cons":
		return c.compileCons(items)
	case "define":
		return c.compileDefine(items)
	case "lambda":
		return c.compileLambda(items)
	case "cond":
		return c.compileCond(items)
	case "begin":
		return c.compileBegin(items)
	case "print":
		return c.compilePrint(items)
	case "gc":
		return c.compileGC(items)
	case "null?", "int?", "str?", "func?":
		return c.compilePredicate(name, items)
	default:
		return c.compileCall(name, items)
	}
}

var arithOp = map[string]isa.Op{
	"+":    isa.ADD,
	"-":    isa.SUB,
	"*":    isa.MUL,
	"/":    isa.DIV,
	"%":    isa.MOD,
	"less": isa.LT,
	"eq":   isa.EQ,
	"car":  isa.CAR,
	"cdr":  isa.CDR,
}

// compileArithHead handles the two-argument arithmetic/relational heads
// plus the one-argument car/cdr, all of which compile their operands
// left to right and append a single opcode.
func (c *Compiler) compileArithHead(name string, items []sexpr.Node) (isa.Program, error) {
	if name == "car" || name == "cdr" {
		if err := requireArgs(name, items, 1); err != nil {
			return nil, err
		}
	} else if err := requireArgs(name, items, 2); err != nil {
		return nil, err
	}
	prog, err := c.compileArgs(items)
	if err != nil {
		return nil, err
	}
	return append(prog, isa.Instruction{Op: arithOp[name]}), nil
}

// compileCons compiles its two arguments right-to-left (list[2] then
// list[1] in original_source/main.cc's terms) so that CONS's own operand
// order — it pops x=TOS then y and builds pair(x,y) — ends up binding the
// first argument as the car and the second as the cdr.
func (c *Compiler) compileCons(items []sexpr.Node) (isa.Program, error) {
	if err := requireArgs("cons", items, 2); err != nil {
		return nil, err
	}
	second, err := c.compileNode(items[2])
	if err != nil {
		return nil, err
	}
	first, err := c.compileNode(items[1])
	if err != nil {
		return nil, err
	}
	prog := append(second, first...)
	return append(prog, isa.Instruction{Op: isa.CONS}), nil
}

// compileGC lowers `(gc)` to a forced collection followed by Nil, matching
// original_source/main.cc's handling (an out-of-scope builtin in spec.md's
// table but present in the traced source and kept for parity).
func (c *Compiler) compileGC(items []sexpr.Node) (isa.Program, error) {
	if err := requireArgs("gc", items, 0); err != nil {
		return nil, err
	}
	return isa.Program{{Op: isa.GC}, {Op: isa.PUSHNIL}}, nil
}
