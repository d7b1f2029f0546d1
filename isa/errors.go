package isa

import "errors"

// Sentinel errors returned by ParseInstruction/Parse. cmd/lispvm reports
// them on stderr and exits 1 before any instruction runs; they are not
// converted into PanicError values.
var (
	ErrUnknownOpcode = errors.New("isa: unknown opcode")
	ErrBadOperand    = errors.New("isa: malformed operand")
	ErrLongSymbol    = errors.New("isa: symbol exceeds 6 bytes")
)
