// Package wiring assembles the dscope dependency graph cmd/lispc and
// cmd/lispvm both build on: Logger -> Loader -> heap/stack sizes and engine
// toggles -> the compiler/optimizer/interpreter/JIT. CLI flags win over
// config file values, which win over the built-in defaults, following the
// precedence the teacher's taiconfigs providers (MaxTokens, MaxUserTokens)
// establish.
package wiring

import (
	"github.com/reusee/dscope"

	"github.com/dmitryduka/cellvm/internal/cliflags"
	"github.com/dmitryduka/cellvm/internal/config"
	"github.com/dmitryduka/cellvm/internal/logging"
)

const (
	defaultStackSize = 500
	defaultHeapSize  = 25000 // per semispace; 50 000 cells total
)

// HeapSize is the per-semispace cell count passed to heap.New.
type HeapSize uint32

// StackSize is the operand/frame slot count passed to stack.New.
type StackSize int

// OptimizeEnabled reports whether the compiler's peephole passes should run
// (the -o flag).
type OptimizeEnabled bool

// JITEnabled reports whether cmd/lispvm should dispatch through jitc.Engine
// instead of interp.Interpreter (the -j flag).
type JITEnabled bool

var heapFlag = cliflags.IntFlag("-heap", cliflags.Positive)
var stackFlag = cliflags.IntFlag("-stack", cliflags.Positive)
var optimizeFlag = cliflags.Switch("-o")
var jitFlag = cliflags.Switch("-j")

// Module provides the full ambient + engine-sizing dependency graph.
type Module struct {
	dscope.Module
	Logging logging.Module
	Config  config.Module
}

func (Module) HeapSize(loader config.Loader) HeapSize {
	if *heapFlag > 0 {
		return HeapSize(*heapFlag)
	}
	if n, ok := loader.HeapSize(); ok {
		return HeapSize(n)
	}
	return defaultHeapSize
}

func (Module) StackSize(loader config.Loader) StackSize {
	if *stackFlag > 0 {
		return StackSize(*stackFlag)
	}
	if n, ok := loader.StackSize(); ok {
		return StackSize(n)
	}
	return defaultStackSize
}

func (Module) OptimizeEnabled(loader config.Loader) OptimizeEnabled {
	if *optimizeFlag {
		return true
	}
	return OptimizeEnabled(loader.Optimize())
}

func (Module) JITEnabled(loader config.Loader) JITEnabled {
	if *jitFlag {
		return true
	}
	return JITEnabled(loader.JIT())
}
