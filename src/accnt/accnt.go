// Package accnt accumulates per-process CPU usage. It is pure
// instrumentation: nothing in the scheduler's control flow depends on
// it, but the original Tiny-OS thread struct tracked ticks used and
// the distilled spec dropped that detail silently — this restores it
// in the teacher's accounting idiom.
package accnt

import (
	"sync/atomic"
)

// Accnt accumulates nanoseconds of CPU time. The zero value is ready
// to use.
type Accnt struct {
	userns int64
	sysns  int64
}

// AddUser adds delta nanoseconds to the user-time counter.
func (a *Accnt) AddUser(delta int64) {
	atomic.AddInt64(&a.userns, delta)
}

// AddSys adds delta nanoseconds to the system-time counter.
func (a *Accnt) AddSys(delta int64) {
	atomic.AddInt64(&a.sysns, delta)
}

// Snapshot returns a consistent-enough (each field independently
// atomic) view of accumulated usage.
func (a *Accnt) Snapshot() (userns, sysns int64) {
	return atomic.LoadInt64(&a.userns), atomic.LoadInt64(&a.sysns)
}
