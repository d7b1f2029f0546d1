package isa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitryduka/cellvm/cell"
)

// Instruction is one predecoded bytecode instruction: an Op plus whichever
// of IntArg/StrArg it carries, per HasIntOperand/HasStringOperand.
type Instruction struct {
	Op     Op
	IntArg int64
	StrArg string
}

// String renders an Instruction back to the external text format, one
// mnemonic (plus optional operand) per line.
func (in Instruction) String() string {
	switch {
	case in.Op.HasStringOperand():
		return in.Op.String() + " " + in.StrArg
	case in.Op.HasIntOperand():
		return in.Op.String() + " " + strconv.FormatInt(in.IntArg, 10)
	default:
		return in.Op.String()
	}
}

// ParseInstruction decodes one line of bytecode text into an Instruction.
// It reports ErrUnknownOpcode for an unrecognized mnemonic and
// ErrBadOperand for a missing or malformed immediate.
func ParseInstruction(line string) (Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Instruction{}, fmt.Errorf("%w: empty line", ErrBadOperand)
	}
	op, ok := Lookup(fields[0])
	if !ok {
		return Instruction{}, fmt.Errorf("%w: %q", ErrUnknownOpcode, fields[0])
	}
	in := Instruction{Op: op}
	switch {
	case op.HasStringOperand():
		if len(fields) < 2 {
			return Instruction{}, fmt.Errorf("%w: %s requires a symbol operand", ErrBadOperand, op)
		}
		if len(fields[1]) > cell.MaxSymbolBytes-1 {
			return Instruction{}, fmt.Errorf("%w: symbol %q exceeds %d bytes", ErrLongSymbol, fields[1], cell.MaxSymbolBytes-1)
		}
		in.StrArg = fields[1]
	case op.HasIntOperand():
		if len(fields) < 2 {
			return Instruction{}, fmt.Errorf("%w: %s requires an integer operand", ErrBadOperand, op)
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Instruction{}, fmt.Errorf("%w: %s operand %q: %v", ErrBadOperand, op, fields[1], err)
		}
		in.IntArg = n
	}
	return in, nil
}
