// Command lispc is the compiler CLI: it reads S-expression source from
// stdin, compiles and links it (optionally running the peephole optimizer
// with -o), and writes the resulting bytecode as one mnemonic per line to
// stdout, matching the teacher's cmd/tai shape of "read all of stdin,
// produce one artifact, exit 0/1".
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/reusee/dscope"

	"github.com/dmitryduka/cellvm/compiler"
	"github.com/dmitryduka/cellvm/internal/cliflags"
	"github.com/dmitryduka/cellvm/internal/logging"
	"github.com/dmitryduka/cellvm/internal/reader"
	"github.com/dmitryduka/cellvm/internal/wiring"
)

func main() {
	if err := cliflags.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	scope := dscope.New(new(wiring.Module))

	exitCode := 0
	scope.Call(func(
		logger logging.Logger,
		optimize wiring.OptimizeEnabled,
	) {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}

		forms, err := reader.ReadAll(string(src))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}

		res, err := compiler.CompileForms(forms)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}

		if optimize {
			res = compiler.Optimize(res)
		}

		prog := compiler.Link(res)

		logger.Debug("compiled", "forms", len(forms), "instructions", len(prog), "optimized", bool(optimize))

		if _, err := os.Stdout.WriteString(prog.Format()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}
	})

	os.Exit(exitCode)
}
