package interp

import (
	"fmt"
	"time"
)

// Stats mirrors the end-of-run diagnostics the traced source prints after
// FIN or a panic (ticks, stack_historic_max_size, gc_count, gc_collected,
// execution_time) — see SPEC_FULL.md §4.12.
type Stats struct {
	Ticks              uint64
	StackHighWaterMark int
	GCCount            uint32
	GCCollected        uint64
	ExecutionTime      time.Duration
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"ticks=%d stack_high_water=%d gc_count=%d gc_collected=%d execution_time=%s",
		s.Ticks, s.StackHighWaterMark, s.GCCount, s.GCCollected, s.ExecutionTime,
	)
}
