package sched

import (
	"unsafe"

	"accnt"
	"list"
	"trapframe"
	"vmm"
)

// State is a point in a thread's life cycle.
type State int

const (
	New State = iota
	Ready
	Running
	Blocked
	Dead
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Dead:
		return "dead"
	default:
		return "unknown state"
	}
}

// threadMagic guards against using a stale or corrupt *Thread the way
// the teacher's thread_t.magic guards against a stack-overflowed
// thread_current() read.
const threadMagic = 0xe87ab59efc899600

// TimeSlice is the number of timer ticks a thread runs before
// preemption. A var rather than a const so boot.Config can retune it at
// startup, matching the original's TIME_SLICE being a param.h macro a
// build configures rather than code hard-codes.
var TimeSlice = 10000

// Thread is one schedulable unit of execution. node must be the first
// field: the ready queue and semaphore waiter lists recover a *Thread
// from a *list.Node with a bare pointer cast, the same convention
// pmm.blockHeader uses for buddy buckets.
type Thread struct {
	node list.Node

	magic uint64
	Tid   uint64
	Name  string

	state    State
	exitCode int64
	Proc     *Process

	remaining int

	// Frame and Ctx hold the data layout spec.md's "Thread creation"
	// names: the trap frame a first dispatch into this thread would
	// restore, and the context a voluntary switch would resume through.
	// Nothing here actually reads them — this process has no real CPU
	// to restore a register file into, so the scheduler below suspends
	// and resumes threads by blocking goroutines on a gate channel
	// instead. Create sets only Frame.Status (SPP and SPIE set, SIE
	// clear); Frame.Epc, the rest of Frame, and all of Ctx stay zero.
	Frame trapframe.Frame
	Ctx   trapframe.Context

	page unsafe.Pointer // kernel-stack page backing this thread, from the scheduler's pool
	gate chan *Thread
}

func isThread(t *Thread) bool {
	return t != nil && t.magic == threadMagic
}

// ExitCode returns the code a dead thread exited with.
func (t *Thread) ExitCode() int64 { return t.exitCode }

// State returns t's current lifecycle state.
func (t *Thread) State() State { return t.state }

func threadOf(n *list.Node) *Thread {
	return (*Thread)(unsafe.Pointer(n))
}

// Process groups threads sharing a name and an address space, the way
// the teacher's proc_t does — minus user-mode page tables, which are a
// non-goal here. spec.md names a name, a page-table root, and a thread
// count; Space is that page-table root — the kernel process's Space is
// the one boot.Boot builds and identity-maps, set via SetKernelSpace
// before any thread runs.
type Process struct {
	Name        string
	ThreadCount int
	Accnt       accnt.Accnt
	Space       *vmm.Space
}
