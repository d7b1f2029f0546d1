package reader

import (
	"testing"

	"github.com/dmitryduka/cellvm/internal/sexpr"
)

func TestReadAllSingleForm(t *testing.T) {
	forms, err := ReadAll("(define x 10)")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(forms) != 1 {
		t.Fatalf("want 1 form, got %d", len(forms))
	}
	n := forms[0]
	if n.Kind != sexpr.List || len(n.Items) != 3 {
		t.Fatalf("unexpected shape: %s", n)
	}
	if n.Items[0].SymVal != "define" || n.Items[1].SymVal != "x" || n.Items[2].IntVal != 10 {
		t.Fatalf("unexpected contents: %s", n)
	}
}

func TestReadAllMultipleTopLevelForms(t *testing.T) {
	forms, err := ReadAll("(define a 1)\n(define b 2)\n(+ a b)")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(forms) != 3 {
		t.Fatalf("want 3 forms, got %d", len(forms))
	}
}

func TestReadAllNestedLists(t *testing.T) {
	forms, err := ReadAll("(lambda (x y) (+ x y))")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	fn := forms[0]
	formals := fn.Items[1]
	if formals.Kind != sexpr.List || len(formals.Items) != 2 {
		t.Fatalf("unexpected formals: %s", formals)
	}
	body := fn.Items[2]
	if body.Kind != sexpr.List || body.Items[0].SymVal != "+" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestReadAllNegativeInteger(t *testing.T) {
	forms, err := ReadAll("(+ -5 +3)")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	args := forms[0].Items[1:]
	if args[0].IntVal != -5 || args[1].IntVal != 3 {
		t.Fatalf("unexpected args: %v %v", args[0], args[1])
	}
}

func TestReadAllNilSymbol(t *testing.T) {
	forms, err := ReadAll("Nil")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !forms[0].IsNil() {
		t.Fatalf("expected Nil, got %s", forms[0])
	}
}

func TestReadAllLongSymbolRejected(t *testing.T) {
	_, err := ReadAll("(define toolongname 1)")
	if err == nil {
		t.Fatalf("expected an error for an 11-byte symbol")
	}
}

func TestReadAllUnterminatedListErrors(t *testing.T) {
	_, err := ReadAll("(define x 1")
	if err == nil {
		t.Fatalf("expected an unterminated-list error")
	}
}
