// Package heap implements the two-semispace Cell array described in
// spec §4.2: a bump allocator over the active semispace and the
// Cheney-style mark/scavenge collector that reclaims it.
package heap

import (
	"errors"

	"github.com/dmitryduka/cellvm/cell"
)

// GlobalEnvIndex is the heap index reserved for the initial global
// environment pair at construction time.
const GlobalEnvIndex uint32 = 1

// ErrExhausted is returned by Alloc when the active semispace has no free
// slot left, after the GC guard should already have run a collection. It
// is the caller's (interp package's) job to turn this into a HeapExhausted
// panic.
var ErrExhausted = errors.New("heap: semispace exhausted")

// Heap is a fixed-size array of Cells split into two equal semispaces.
// Slot 0 is Nil at construction; slot 1 is the initial global environment
// pair (0,0); slots >=2 are user data. The active semispace alternates
// with every collection.
type Heap struct {
	cells    []cell.Cell
	capacity uint32 // cells per semispace
	ptr      uint32 // bump pointer, absolute index into cells

	gcCount     uint32
	gcCollected uint64
}

// New allocates a Heap with capacityPerSemispace cells in each of its two
// semispaces (so 2*capacityPerSemispace cells total), matching spec's
// "50 000 cells (25 000 per semispace)" default when called with 25000.
func New(capacityPerSemispace uint32) *Heap {
	h := &Heap{
		cells:    make([]cell.Cell, 2*capacityPerSemispace),
		capacity: capacityPerSemispace,
	}
	h.cells[GlobalEnvIndex] = cell.MakePair(0, 0)
	h.ptr = GlobalEnvIndex + 1
	return h
}

// Capacity returns the per-semispace cell count.
func (h *Heap) Capacity() uint32 { return h.capacity }

// Ptr returns the current bump pointer (absolute index into the active
// semispace's backing array).
func (h *Heap) Ptr() uint32 { return h.ptr }

// GCCount returns the number of completed collections.
func (h *Heap) GCCount() uint32 { return h.gcCount }

// GCCollected returns the cumulative number of cells reclaimed across all
// collections so far.
func (h *Heap) GCCollected() uint64 { return h.gcCollected }

// base returns the absolute index of the active semispace's first cell.
func (h *Heap) base() uint32 {
	if h.gcCount&1 == 1 {
		return h.capacity
	}
	return 0
}

// Get reads the cell at heap index idx.
func (h *Heap) Get(idx uint32) cell.Cell { return h.cells[idx] }

// Set writes the cell at heap index idx.
func (h *Heap) Set(idx uint32, c cell.Cell) { h.cells[idx] = c }

// ShouldCollect reports whether the active semispace has crossed the
// guard spec §4.2 requires checking before CONS, DEF, or STOREENV: used
// size exceeding (capacity - 3), the 3-cell slack those opcodes' own
// allocations need.
func (h *Heap) ShouldCollect() bool {
	used := h.ptr - h.base()
	return used > h.capacity-3
}

// Alloc bump-allocates one cell in the active semispace and returns its
// absolute heap index. Callers that may allocate (CONS, DEF, STOREENV)
// must check ShouldCollect and run Collect first; Alloc itself only
// guards against the degenerate case of being called without that check.
func (h *Heap) Alloc(c cell.Cell) (uint32, error) {
	base := h.base()
	if h.ptr-base >= h.capacity {
		return 0, ErrExhausted
	}
	idx := h.ptr
	h.cells[idx] = c
	h.ptr++
	return idx, nil
}
