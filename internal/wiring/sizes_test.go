package wiring

import (
	"testing"

	"github.com/dmitryduka/cellvm/internal/config"
)

func TestHeapAndStackSizeDefaultWhenUnconfigured(t *testing.T) {
	m := Module{}
	loader := config.NewLoader(nil, "")

	if got := m.HeapSize(loader); got != defaultHeapSize {
		t.Errorf("HeapSize = %d, want default %d", got, defaultHeapSize)
	}
	if got := m.StackSize(loader); got != defaultStackSize {
		t.Errorf("StackSize = %d, want default %d", got, defaultStackSize)
	}
	if got := m.OptimizeEnabled(loader); got != false {
		t.Errorf("OptimizeEnabled = %v, want false", got)
	}
	if got := m.JITEnabled(loader); got != false {
		t.Errorf("JITEnabled = %v, want false", got)
	}
}

func TestHeapFlagOverridesConfigAndDefault(t *testing.T) {
	m := Module{}
	loader := config.NewLoader(nil, "")

	*heapFlag = 9000
	defer func() { *heapFlag = 0 }()

	if got := m.HeapSize(loader); got != 9000 {
		t.Errorf("HeapSize = %d, want 9000 (flag override)", got)
	}
}

func TestConfigValueUsedWhenFlagUnset(t *testing.T) {
	m := Module{}
	loader := config.NewLoader([]string{"../config/testdata/test.cue"}, `
heap_size?:  int
stack_size?: int
optimize?:   bool
jit?:        bool
`)

	if got := m.HeapSize(loader); got != 65536 {
		t.Errorf("HeapSize = %d, want 65536 (from config file)", got)
	}
	if got := m.OptimizeEnabled(loader); got != true {
		t.Errorf("OptimizeEnabled = %v, want true (from config file)", got)
	}
}
