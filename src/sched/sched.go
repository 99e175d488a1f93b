// Package sched is the preemptive round-robin thread scheduler: a
// FIFO ready queue, five-state thread lifecycle, and the
// synchronization primitives (Semaphore, Lock) built on top of it —
// the Go port of the teacher's threads/thread.c and threads/synch.c.
//
// There is no real hart to context-switch on, so where the original
// saves and restores a register file, this package suspends and
// resumes threads by blocking goroutines on a per-thread gate channel:
// exactly one thread's goroutine is ever unblocked at a time, which is
// what makes the single-hart, interrupts-off concurrency model in
// spec.md §5 hold even though multiple real OS threads back the
// goroutines. The scheduler's own state (ready queue, current pointer)
// is therefore never touched concurrently and needs no mutex of its
// own — only trap.Disable/trap.SetState bracket it, matching the
// original's reliance on interrupts-off instead of a lock.
package sched

import (
	"list"
	"pmm"
	"vmm"

	"kerrors"
	"trap"
	"trapframe"
)

var (
	pool        *pmm.Pool
	readyQueue  list.List
	current     *Thread
	idle        *Thread
	nextTid     uint64
	tidLock     *Lock
	kernelProc  Process
	initialized bool
)

// Init resets the scheduler around pool, the page allocator thread
// creation draws kernel-stack pages from. It must run with interrupts
// off, before any thread is created, mirroring thread_init.
func Init(p *pmm.Pool) {
	if trap.GetState() != trap.Off {
		kerrors.Panic("sched.Init", "must be called with interrupts off")
	}
	pool = p
	readyQueue.Init()
	current = nil
	idle = nil
	nextTid = 1
	tidLock = NewLock()
	kernelProc = Process{Name: "kernel"}
	initialized = true
}

// SetKernelSpace installs the kernel process's page-table root, the way
// the original statically allocates the kernel process holding the
// kernel page table (spec.md's Process data model). It runs after
// Init, once boot has built the address space Init itself has no way
// to construct (vmm depends on pmm, not the reverse, so sched cannot
// build a Space during Init without importing boot's wiring order).
func SetKernelSpace(space *vmm.Space) {
	kernelProc.Space = space
}

// HartInit turns the calling goroutine itself into the initial kernel
// thread, the way thread_hart_init repurposes the booting hart's own
// stack as its first thread_t instead of spawning a new one. Must run
// once, with interrupts off, before Create or Start.
func HartInit() *Thread {
	if trap.GetState() != trap.Off {
		kerrors.Panic("sched.HartInit", "must be called with interrupts off")
	}
	t := &Thread{
		magic: threadMagic,
		Name:  "kernel",
		state: Running,
		Proc:  &kernelProc,
		gate:  make(chan *Thread),
	}
	kernelProc.ThreadCount++
	t.remaining = TimeSlice
	current = t
	t.Tid = allocTid()
	return t
}

func thisThread() *Thread {
	if !isThread(current) {
		kerrors.Panic("sched.thisThread", "current thread is corrupt or unset")
	}
	return current
}

// Current returns the running thread.
func Current() *Thread { return thisThread() }

func allocTid() uint64 {
	tidLock.Acquire()
	tid := nextTid
	nextTid++
	tidLock.Release()
	return tid
}

func pushReady(t *Thread) {
	if t.state != New && t.state != Running && t.state != Blocked {
		kerrors.Panic("sched.pushReady", "thread %d pushed from invalid state %s", t.Tid, t.state)
	}
	t.state = Ready
	readyQueue.PushTail(&t.node)
}

func popReady() *Thread {
	n := readyQueue.PopHead()
	if n == nil {
		return idle
	}
	return threadOf(n)
}

// schedule requires interrupts off and current not RUNNING. It hands
// the CPU to the next ready thread (or the idle thread), blocking this
// goroutine until it is itself scheduled again.
func schedule() {
	if trap.GetState() != trap.Off {
		kerrors.Panic("sched.schedule", "schedule called with interrupts enabled")
	}
	cur := current
	if cur.state == Running {
		kerrors.Panic("sched.schedule", "schedule called without leaving RUNNING")
	}

	next := popReady()
	if !isThread(next) {
		kerrors.Panic("sched.schedule", "no next thread to run (idle thread missing?)")
	}

	if cur == next {
		scheduleTail(nil)
		return
	}

	current = next
	next.gate <- cur
	if cur.state == Dead {
		// This goroutine is finished; nothing resumes it.
		return
	}
	prev := <-cur.gate
	scheduleTail(prev)
}

// scheduleTail runs in the context of the thread that just won the
// CPU: it validates the new current thread, marks it RUNNING, resets
// its quantum, and reaps prev if it exited.
func scheduleTail(prev *Thread) {
	if trap.GetState() != trap.Off {
		kerrors.Panic("sched.scheduleTail", "called with interrupts enabled")
	}
	cur := current
	if !isThread(cur) {
		kerrors.Panic("sched.scheduleTail", "current thread is corrupt")
	}
	if cur == prev {
		kerrors.Panic("sched.scheduleTail", "thread scheduled against itself")
	}

	cur.state = Running
	cur.remaining = TimeSlice

	if prev != nil && prev.state == Dead {
		freeThread(prev)
	}
}

func freeThread(t *Thread) {
	if !isThread(t) || t.state != Dead {
		kerrors.Panic("sched.freeThread", "freeing a thread that is not dead")
	}
	if t.page != nil {
		pool.Free(t.page, 0)
	}
	if t.Proc != nil {
		t.Proc.ThreadCount--
	}
}

// Tick implements trap.Scheduler: called from the timer-interrupt
// path, it charges the running thread one tick and yields when its
// quantum is spent.
func Tick() {
	cur := thisThread()
	cur.remaining--
	if cur.remaining <= 0 {
		Yield()
	}
}

// Yield disables interrupts, re-enqueues the current thread (unless it
// is the idle thread) and calls schedule.
func Yield() {
	old := trap.Disable()
	defer trap.SetState(old)

	cur := thisThread()
	if cur != idle {
		pushReady(cur)
	}
	schedule()
}

// block is the shared body of thread_block and Semaphore.Down's
// wait loop: the caller is responsible for having already placed the
// current thread on the relevant waiter list.
func block() {
	cur := thisThread()
	cur.state = Blocked
	schedule()
}

// Block suspends the calling thread. Callers must first place it on a
// waiter list themselves, or it will never be woken.
func Block() {
	old := trap.Disable()
	defer trap.SetState(old)
	block()
}

func unblock(t *Thread) {
	if !isThread(t) {
		kerrors.Panic("sched.unblock", "not a thread")
	}
	if t.state != Blocked {
		kerrors.Panic("sched.unblock", "thread %d not blocked", t.Tid)
	}
	pushReady(t)
}

// Unblock moves t from BLOCKED to READY.
func Unblock(t *Thread) {
	old := trap.Disable()
	defer trap.SetState(old)
	unblock(t)
}

// Exit tears the calling thread down with the given exit code. It
// never returns.
func Exit(code int64) {
	trap.Disable()
	cur := thisThread()
	cur.state = Dead
	cur.exitCode = code
	schedule()
	kerrors.Panic("sched.Exit", "schedule returned to a dead thread")
}

func panicLockReentry() {
	kerrors.Panic("sched.Lock", "thread reacquired a lock it already holds")
}

func panicNotHolder() {
	kerrors.Panic("sched.Lock", "thread released a lock it does not hold")
}

// Create allocates a new kernel thread in proc (the kernel process if
// nil) running fn(arg), and unblocks it onto the ready queue. It does
// not itself yield the caller. ok is false if the page allocator is
// exhausted.
func Create(name string, proc *Process, fn func(arg interface{}), arg interface{}) (*Thread, bool) {
	if !initialized {
		kerrors.Panic("sched.Create", "sched.Init not called")
	}
	if proc == nil {
		proc = &kernelProc
	}

	page, ok := pool.Alloc(0)
	if !ok {
		return nil, false
	}

	t := &Thread{
		magic: threadMagic,
		Name:  name,
		state: New,
		Proc:  proc,
		page:  page,
		gate:  make(chan *Thread),
	}
	proc.ThreadCount++
	t.Tid = allocTid()

	// Data layout only: see the Frame/Ctx doc comment in thread.go.
	t.Frame.Epc = 0
	t.Frame.Status = (t.Frame.Status | trapframe.SstatusSPPMask | trapframe.SstatusSPIEMask) &^ trapframe.SstatusSIEMask

	t.state = Blocked
	go threadMain(t, fn, arg)

	Unblock(t)
	return t, true
}

func threadMain(t *Thread, fn func(interface{}), arg interface{}) {
	prev := <-t.gate
	scheduleTail(prev)

	trap.Enable()
	fn(arg)
	Exit(0)
}

// idleLoop is the body of the idle thread: it blocks forever, only
// ever resumed when the ready queue is otherwise empty.
func idleLoop(arg interface{}) {
	started := arg.(*Semaphore)
	idle = thisThread()
	started.Up()

	for {
		Block()
	}
}

// Start boots the scheduler: it spawns the idle thread, enables
// interrupts, and waits for the idle thread to install itself before
// returning.
func Start() {
	started := NewSemaphore(0)
	if _, ok := Create("idle", nil, idleLoop, started); !ok {
		kerrors.Panic("sched.Start", "out of memory creating the idle thread")
	}
	trap.Enable()
	started.Down()
}
