// Package cliflags is a small command-line flag registry, grounded on the
// teacher's cmds package: flags register as values against one process-wide
// Executor and os.Args is dispatched token by token rather than parsed with
// flag.FlagSet. Unlike the teacher's cmds, which dispatches to arbitrary
// N-argument functions via reflection (its CLI has subcommands like
// `tai chat`, `tai config set`), cellvm's flags are a flat, fixed shape —
// a bare trigger or a single validated value — so Flag carries no reflection
// at all: just a parse-and-validate closure over its own argument.
package cliflags

import "fmt"

// Flag is one registered command-line token: either a bare trigger (no
// argument, e.g. "-o") or a value flag that consumes and validates the next
// token (e.g. "-heap 65536").
type Flag struct {
	Description string
	Aliases     []string

	arity   int
	trigger func()
	apply   func(arg string) error
}

func (f *Flag) Desc(desc string) *Flag {
	f.Description = desc
	return f
}

func (f *Flag) Alias(names ...string) *Flag {
	f.Aliases = append(f.Aliases, names...)
	return f
}

// Trigger registers a zero-argument flag that calls fn when the token is
// seen, e.g. "-log-debug" or "-h".
func Trigger(fn func()) *Flag {
	if fn == nil {
		panic(fmt.Errorf("cliflags: Trigger requires a non-nil function"))
	}
	return &Flag{arity: 0, trigger: fn}
}

// Value registers a one-argument flag whose token is passed to apply for
// parsing and validation, e.g. "-heap" consuming and range-checking the
// integer that follows it.
func Value(apply func(arg string) error) *Flag {
	if apply == nil {
		panic(fmt.Errorf("cliflags: Value requires a non-nil function"))
	}
	return &Flag{arity: 1, apply: apply}
}
