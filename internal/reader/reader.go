// Package reader implements exactly the grammar spec.md §6 describes as
// the reader contract — parenthesized S-expressions, ASCII symbols ≤6
// bytes, decimal integers with an optional sign, "Nil" as a reserved
// symbol — grounded on original_source/main.cc's parse_list, but written
// as an ordinary recursive-descent scanner rather than ported character
// for character.
package reader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/dmitryduka/cellvm/cell"
	"github.com/dmitryduka/cellvm/internal/sexpr"
)

// Reader scans one source text into a sequence of top-level Nodes.
type Reader struct {
	src []rune
	pos int
}

// New returns a Reader over src.
func New(src string) *Reader {
	return &Reader{src: []rune(src)}
}

// ReadAll consumes the whole source and returns every top-level form it
// contains, in order.
func ReadAll(src string) ([]sexpr.Node, error) {
	r := New(src)
	var forms []sexpr.Node
	for {
		r.skipSpace()
		if r.atEnd() {
			return forms, nil
		}
		n, err := r.readNode()
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
}

func (r *Reader) atEnd() bool { return r.pos >= len(r.src) }

func (r *Reader) peek() rune { return r.src[r.pos] }

func (r *Reader) skipSpace() {
	for !r.atEnd() && unicode.IsSpace(r.peek()) {
		r.pos++
	}
}

func isDelimiter(c rune) bool {
	return c == '(' || c == ')' || unicode.IsSpace(c)
}

// readNode reads one form: a list, or an atom (integer or symbol).
func (r *Reader) readNode() (sexpr.Node, error) {
	r.skipSpace()
	if r.atEnd() {
		return sexpr.Node{}, fmt.Errorf("reader: unexpected end of input")
	}
	if r.peek() == '(' {
		return r.readList()
	}
	if r.peek() == ')' {
		return sexpr.Node{}, fmt.Errorf("reader: unexpected ')'")
	}
	return r.readAtom()
}

func (r *Reader) readList() (sexpr.Node, error) {
	r.pos++ // consume '('
	var items []sexpr.Node
	for {
		r.skipSpace()
		if r.atEnd() {
			return sexpr.Node{}, fmt.Errorf("reader: unterminated list")
		}
		if r.peek() == ')' {
			r.pos++
			return sexpr.MakeList(items...), nil
		}
		n, err := r.readNode()
		if err != nil {
			return sexpr.Node{}, err
		}
		items = append(items, n)
	}
}

func (r *Reader) readAtom() (sexpr.Node, error) {
	start := r.pos
	for !r.atEnd() && !isDelimiter(r.peek()) {
		r.pos++
	}
	text := string(r.src[start:r.pos])
	if text == "" {
		return sexpr.Node{}, fmt.Errorf("reader: empty atom")
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return sexpr.MakeInt(n), nil
	}
	if !isASCII(text) {
		return sexpr.Node{}, fmt.Errorf("reader: symbol %q is not ASCII", text)
	}
	if len(text) > cell.MaxSymbolBytes-1 {
		return sexpr.Node{}, fmt.Errorf("reader: symbol %q exceeds %d bytes", text, cell.MaxSymbolBytes-1)
	}
	return sexpr.MakeSymbol(text), nil
}

func isASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r > unicode.MaxASCII }) == -1
}
