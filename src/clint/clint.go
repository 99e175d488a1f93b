// Package clint models the core-local interruptor: the single mtime
// counter and per-hart mtimecmp registers a real RISC-V board exposes
// at CLINT_START, and the arm-next-tick arithmetic timer_init runs
// once at boot and timer_handle_interrupt repeats on every tick.
//
// There is no wall clock behind a Go process either, so Timer is an
// interface the trap dispatcher depends on, and FakeCLINT is a
// deterministic in-memory stand-in: tests advance mtime explicitly
// instead of waiting on real time to produce a timer interrupt.
package clint

import "kerrors"

// TickInterval is the number of mtime ticks an armed mtimecmp is set
// ahead of the current mtime, mirroring the original's TIMER_INTERVAL.
// The original's defining constant lives in a param header outside the
// retrievable source tree, so this value is a judgment call documented
// in the grounding ledger rather than a copied constant.
const TickInterval = 1000000

// Timer is the CLINT contract: read the free-running counter, and arm
// this hart's comparator TickInterval ticks past the current count so
// exactly one more timer interrupt eventually fires.
type Timer interface {
	Now() uint64
	ArmNextTick()
}

// FakeCLINT is a Timer backed by plain uint64 counters a test can
// advance by calling Advance, rather than real elapsed wall-clock time.
type FakeCLINT struct {
	mtime    uint64
	mtimecmp uint64
	armed    bool
}

// NewFakeCLINT returns a FakeCLINT with mtime at 0 and nothing armed.
func NewFakeCLINT() *FakeCLINT {
	return &FakeCLINT{}
}

// Now returns the current counter value.
func (c *FakeCLINT) Now() uint64 { return c.mtime }

// ArmNextTick sets mtimecmp to mtime+TickInterval, the same arithmetic
// timer_init and timer_handle_interrupt both perform to schedule the
// next timer interrupt.
func (c *FakeCLINT) ArmNextTick() {
	c.mtimecmp = c.mtime + TickInterval
	c.armed = true
}

// Advance moves mtime forward by delta ticks. It panics if the timer
// was never armed, since a real hart would never reach this call
// without timer_init having run first.
func (c *FakeCLINT) Advance(delta uint64) {
	if !c.armed {
		kerrors.Panic("clint.Advance", "mtime advanced before ArmNextTick installed a comparator")
	}
	c.mtime += delta
}

// Pending reports whether mtime has reached mtimecmp, i.e. whether a
// timer interrupt would be pending on real hardware right now.
func (c *FakeCLINT) Pending() bool {
	return c.armed && c.mtime >= c.mtimecmp
}
