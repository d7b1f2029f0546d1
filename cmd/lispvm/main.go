// Command lispvm is the VM CLI: it reads one mnemonic per line from
// stdin, executes it via interp.Interpreter (or, with -j, the
// closure-threaded jitc.Engine), writes PRN/PRNL output to stdout, and
// prints end-of-run diagnostics to stderr. A SIGINT/SIGTERM handler prints
// whatever diagnostics the run has accumulated so far and exits 130,
// matching the original's own interrupt-prints-stats-and-exits behavior
// (see SPEC_FULL.md §4.12).
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"weak"

	"github.com/reusee/dscope"

	"github.com/dmitryduka/cellvm/heap"
	"github.com/dmitryduka/cellvm/interp"
	"github.com/dmitryduka/cellvm/internal/cliflags"
	"github.com/dmitryduka/cellvm/internal/logging"
	"github.com/dmitryduka/cellvm/internal/wiring"
	"github.com/dmitryduka/cellvm/isa"
	"github.com/dmitryduka/cellvm/jitc"
	"github.com/dmitryduka/cellvm/stack"
)

// engine is the shape interp.Interpreter and jitc.Engine both satisfy; the
// VM CLI picks one at startup per -j and drives it identically either way.
type engine interface {
	Run(yield func(output string, err error) bool)
	Stats() interp.Stats
	PC() int
}

// runningEngine boxes the active engine so a weak reference can be taken
// to it — spec's Design Notes call for "an explicit weak reference rather
// than a global" for the interrupt handler's access to VM state.
type runningEngine struct {
	e engine
}

func main() {
	if err := cliflags.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	scope := dscope.New(new(wiring.Module))

	exitCode := 0
	scope.Call(func(
		logger logging.Logger,
		heapSize wiring.HeapSize,
		stackSize wiring.StackSize,
		useJIT wiring.JITEnabled,
	) {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}

		prog, err := isa.Parse(string(src))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
			return
		}

		h := heap.New(uint32(heapSize))
		st := stack.New(int(stackSize))

		var eng engine
		if useJIT {
			jitEng, err := jitc.New(prog, h, st)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				exitCode = 1
				return
			}
			eng = jitEng
		} else {
			eng = interp.New(prog, h, st)
		}

		holder := &runningEngine{e: eng}
		weakHolder := weak.Make(holder)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			select {
			case <-sigCh:
				if re := weakHolder.Value(); re != nil {
					fmt.Fprintf(os.Stderr, "interrupted at pc=%d: %s\n", re.e.PC(), re.e.Stats())
				}
				os.Exit(130)
			case <-done:
			}
		}()
		defer close(done)

		var runErr error
		for out, err := range eng.Run {
			if err != nil {
				runErr = err
				break
			}
			if out != "" {
				os.Stdout.WriteString(out)
			}
		}

		logger.Debug("run complete", "jit", bool(useJIT), "stats", eng.Stats().String())
		fmt.Fprintln(os.Stderr, eng.Stats().String())

		if runErr != nil {
			fmt.Fprintln(os.Stderr, runErr)
			exitCode = 1
		}
	})

	os.Exit(exitCode)
}
