package heap

import "github.com/dmitryduka/cellvm/cell"

// Collect runs one full mark/scavenge cycle rooted at the current
// environment pair (envPtr) and every live stack slot in stack, per
// spec §4.2. It mutates stack in place, rewriting any Pair/Lambda/
// Environment cell to reference the post-collection heap, and returns
// the (possibly relocated) environment pointer the caller must adopt.
func (h *Heap) Collect(envPtr uint32, stack []cell.Cell) uint32 {
	h.mark(envPtr, stack)
	newEnvPtr := h.scavenge(envPtr, stack)
	return newEnvPtr
}

// mark sets the reachability bit on every cell reachable from envPtr and
// from the stack, per the traversal rule in spec §4.2: descend into
// Pair.left/right, Lambda.lambda_env, and Environment payloads. Visiting
// an already-marked cell terminates that branch, which is what makes
// cyclic environments and self-referential data safe to traverse.
func (h *Heap) mark(envPtr uint32, stack []cell.Cell) {
	h.markIndex(envPtr)
	for _, c := range stack {
		h.markFromValue(c)
	}
}

// markIndex marks the heap cell at idx (if not already marked) and floods
// from its contents.
func (h *Heap) markIndex(idx uint32) {
	c := h.cells[idx]
	if c.Marked() {
		return
	}
	c = c.WithMark()
	h.cells[idx] = c
	h.markFromValue(c)
}

// markFromValue floods reachability from a Cell already in hand, whether
// it came from a heap slot just marked or directly from a stack root.
func (h *Heap) markFromValue(c cell.Cell) {
	switch c.Tag() {
	case cell.Pair:
		h.markIndex(c.Left())
		h.markIndex(c.Right())
	case cell.Lambda:
		if !c.IsSentinelLambda() {
			h.markIndex(c.LambdaEnv())
		}
	case cell.Environment:
		h.markIndex(c.EnvironmentValue())
	}
}

// scavenge copies every marked cell in the active semispace to the next
// free slot of the opposite semispace, leaving a forwarding marker (the
// mark bit plus the new absolute index) behind in the old slot, then
// rewrites internal pointers in both the freshly copied heap region and
// the caller's stack. It returns the forwarded environment pointer.
func (h *Heap) scavenge(envPtr uint32, stack []cell.Cell) uint32 {
	oldBase := h.base()
	oldPtr := h.ptr
	newBase := h.capacity - oldBase

	cursor := newBase
	for i := oldBase; i < oldPtr; i++ {
		c := h.cells[i]
		if !c.Marked() {
			continue
		}
		h.cells[cursor] = c.ClearMark()
		h.cells[i] = forwardingCell(cursor)
		cursor++
	}

	for i := newBase; i < cursor; i++ {
		h.cells[i] = h.rewrite(h.cells[i])
	}
	for i := range stack {
		stack[i] = h.rewrite(stack[i])
	}

	newEnvPtr := h.forwardedIndex(envPtr)

	h.gcCollected += uint64((oldPtr - oldBase) - (cursor - newBase))
	h.ptr = cursor
	h.gcCount++
	return newEnvPtr
}

// rewrite returns c with any heap index it carries replaced by that
// index's post-scavenge location. Cells with no heap-index payload
// (Nil, Int, String, InstructionPointer) pass through unchanged.
func (h *Heap) rewrite(c cell.Cell) cell.Cell {
	switch c.Tag() {
	case cell.Pair:
		return cell.MakePair(h.forwardedIndex(c.Left()), h.forwardedIndex(c.Right()))
	case cell.Lambda:
		if c.IsSentinelLambda() {
			return c
		}
		return cell.MakeLambda(c.LambdaAddr(), h.forwardedIndex(c.LambdaEnv()))
	case cell.Environment:
		return cell.MakeEnvironment(h.forwardedIndex(c.EnvironmentValue()))
	default:
		return c
	}
}

// forwardingCell encodes the "this cell moved to newIdx" marker left
// behind in a scavenged slot's old location: the mark bit set, with the
// new absolute index as payload.
func forwardingCell(newIdx uint32) cell.Cell {
	return cell.Cell(cell.MarkBit | uint64(newIdx))
}

// forwardedIndex decodes a forwarding marker previously left at oldIdx by
// scavenge. oldIdx must reference a cell that was actually marked during
// this cycle; forwardedIndex is only ever called on such indices, since
// every caller reaches it by following a pointer discovered during mark.
func (h *Heap) forwardedIndex(oldIdx uint32) uint32 {
	raw := uint64(h.cells[oldIdx]) &^ cell.MarkBit
	return uint32(raw)
}
