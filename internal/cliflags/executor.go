package cliflags

import (
	"fmt"
	"os"
	"strings"
)

// Executor dispatches a flat token stream against a registry of Flags, the
// way the teacher's cmds.Executor drives -log-debug/-model-style arguments
// for its own CLIs. cellvm has no subcommands, so unlike cmds.Executor there
// is no notion of a command unlocking further sub-registrations once it
// runs — every flag is reachable from the start, and Execute is a flat
// left-to-right walk of args.
type Executor struct {
	flags map[string]*Flag
}

// NewExecutor returns an Executor pre-registered with "-h"/"-help"/"--help".
func NewExecutor() *Executor {
	e := &Executor{flags: make(map[string]*Flag)}
	usage := Trigger(func() {
		e.PrintUsage()
		os.Exit(0)
	}).Desc("print this usage").Alias("-help", "--help")
	e.Define("-h", usage)
	return e
}

// Define registers flag under name and any aliases it carries. Defining the
// same name twice panics — flag registration is a one-time, init-time
// affair throughout this codebase, same as the teacher's.
func (e *Executor) Define(name string, flag *Flag) {
	if _, ok := e.flags[name]; ok {
		panic(fmt.Errorf("cliflags: duplicated flag %s", name))
	}
	e.flags[name] = flag
	for _, alias := range flag.Aliases {
		if _, ok := e.flags[alias]; ok {
			panic(fmt.Errorf("cliflags: duplicated flag %s", alias))
		}
		e.flags[alias] = flag
	}
}

// PrintUsage writes every registered flag's name and description to
// stderr, sorted for determinism.
func (e *Executor) PrintUsage() {
	names := make([]string, 0, len(e.flags))
	for name := range e.flags {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	for _, name := range names {
		flag := e.flags[name]
		if flag.Description == "" {
			fmt.Fprintf(os.Stderr, "  %s\n", name)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-20s %s\n", name, flag.Description)
	}
}

// Execute consumes args left to right: each token names a registered Flag,
// and a value flag consumes the token that follows it as its argument.
func (e *Executor) Execute(args []string) error {
	for len(args) > 0 {
		name := strings.TrimSpace(args[0])
		args = args[1:]

		flag, ok := e.flags[name]
		if !ok {
			return fmt.Errorf("cliflags: unknown flag: %s", name)
		}

		switch flag.arity {
		case 0:
			flag.trigger()
		case 1:
			if len(args) == 0 {
				return fmt.Errorf("cliflags: %s: expects an argument", name)
			}
			if err := flag.apply(args[0]); err != nil {
				return fmt.Errorf("cliflags: %w", err)
			}
			args = args[1:]
		}
	}
	return nil
}

// MustExecute panics on the first error Execute returns.
func (e *Executor) MustExecute(args []string) {
	if err := e.Execute(args); err != nil {
		panic(err)
	}
}
