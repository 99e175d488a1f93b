// Package kstat holds feature-gated kernel counters. When Enabled is
// false every operation is a no-op, so leaving counters wired into the
// allocator and scheduler hot paths costs nothing in a normal build —
// the same tradeoff the teacher's stats package makes with its Stats
// flag.
package kstat

import "sync/atomic"

// Enabled gates whether Counter.Inc actually counts. Flipped by tests
// that want to assert on allocation/preemption counts.
var Enabled = false

// Counter is a monotonically increasing statistic, e.g. "pages
// allocated" or "timer ticks delivered".
type Counter int64

// Inc increments the counter by one when Enabled.
func (c *Counter) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// Add increments the counter by n when Enabled.
func (c *Counter) Add(n int64) {
	if Enabled {
		atomic.AddInt64((*int64)(c), n)
	}
}

// Get returns the current value regardless of Enabled.
func (c *Counter) Get() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Kernel-wide counters, named after the events §9 of the spec calls
// out as worth observing.
var (
	PagesAllocated Counter
	PagesFreed     Counter
	HeapAllocs     Counter
	HeapFrees      Counter
	TimerTicks     Counter
	Preemptions    Counter
	ContextSwitches Counter
)
