package isa

import (
	"fmt"
	"strings"
)

// Program is a linear, already-linked and relocated instruction sequence:
// the unit the interpreter, optimizer, and JIT all operate on.
type Program []Instruction

// Parse decodes a whole bytecode text (one mnemonic per line, blank lines
// ignored) into a Program.
func Parse(text string) (Program, error) {
	var prog Program
	for lineNo, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		in, err := ParseInstruction(trimmed)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		prog = append(prog, in)
	}
	return prog, nil
}

// Format renders a Program back to the external one-mnemonic-per-line text
// format.
func (p Program) Format() string {
	var b strings.Builder
	for _, in := range p {
		b.WriteString(in.String())
		b.WriteByte('\n')
	}
	return b.String()
}
