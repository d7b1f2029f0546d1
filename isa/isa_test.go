package isa

import (
	"errors"
	"testing"
)

func TestLookupAndString(t *testing.T) {
	op, ok := Lookup("PUSHCI")
	if !ok || op != PUSHCI {
		t.Fatalf("Lookup(PUSHCI) = %v, %v", op, ok)
	}
	if PUSHCI.String() != "PUSHCI" {
		t.Fatalf("String() = %q", PUSHCI.String())
	}
	if _, ok := Lookup("NOTANOP"); ok {
		t.Fatal("expected Lookup to fail for unknown mnemonic")
	}
}

func TestParseInstructionIntOperand(t *testing.T) {
	in, err := ParseInstruction("PUSHCI 42")
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != PUSHCI || in.IntArg != 42 {
		t.Fatalf("got %+v", in)
	}
	if in.String() != "PUSHCI 42" {
		t.Fatalf("String() = %q", in.String())
	}
}

func TestParseInstructionNegativeOperand(t *testing.T) {
	in, err := ParseInstruction("PUSHL -1")
	if err != nil {
		t.Fatal(err)
	}
	if in.IntArg != -1 {
		t.Fatalf("IntArg = %d, want -1", in.IntArg)
	}
}

func TestParseInstructionStringOperand(t *testing.T) {
	in, err := ParseInstruction("PUSHS foobar")
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != PUSHS || in.StrArg != "foobar" {
		t.Fatalf("got %+v", in)
	}
}

func TestParseInstructionNoOperand(t *testing.T) {
	in, err := ParseInstruction("FIN")
	if err != nil {
		t.Fatal(err)
	}
	if in.Op != FIN || in.String() != "FIN" {
		t.Fatalf("got %+v", in)
	}
}

func TestParseInstructionUnknownOpcode(t *testing.T) {
	_, err := ParseInstruction("FROB 1")
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestParseInstructionMissingOperand(t *testing.T) {
	_, err := ParseInstruction("PUSHCI")
	if !errors.Is(err, ErrBadOperand) {
		t.Fatalf("err = %v, want ErrBadOperand", err)
	}
}

func TestParseInstructionBadIntOperand(t *testing.T) {
	_, err := ParseInstruction("PUSHCI abc")
	if !errors.Is(err, ErrBadOperand) {
		t.Fatalf("err = %v, want ErrBadOperand", err)
	}
}

func TestParseInstructionLongSymbol(t *testing.T) {
	_, err := ParseInstruction("PUSHS toolongsymbol")
	if !errors.Is(err, ErrLongSymbol) {
		t.Fatalf("err = %v, want ErrLongSymbol", err)
	}
}

func TestProgramRoundTrip(t *testing.T) {
	src := "PUSHCI 3\nPUSHCI 4\nADD\nPRN\nFIN\n"
	prog, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 5 {
		t.Fatalf("len(prog) = %d, want 5", len(prog))
	}
	if got := prog.Format(); got != src {
		t.Fatalf("round trip mismatch:\ngot:  %q\nwant: %q", got, src)
	}
}

func TestProgramIgnoresBlankLines(t *testing.T) {
	prog, err := Parse("PUSHCI 1\n\n\nFIN\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 2 {
		t.Fatalf("len(prog) = %d, want 2", len(prog))
	}
}

func TestAllocates(t *testing.T) {
	for _, op := range []Op{CONS, DEF, STOREENV} {
		if !op.Allocates() {
			t.Fatalf("%v should allocate", op)
		}
	}
	for _, op := range []Op{ADD, POP, FIN} {
		if op.Allocates() {
			t.Fatalf("%v should not allocate", op)
		}
	}
}
