package sched

import (
	"list"
	"trap"
)

// Semaphore is a counting semaphore with a FIFO waiter list, the Go
// port of the teacher's semaphore_t. Down may suspend the calling
// thread; Up may be called from an interrupt handler.
type Semaphore struct {
	value   int
	waiters list.List
}

// NewSemaphore returns a semaphore initialized to value.
func NewSemaphore(value int) *Semaphore {
	s := &Semaphore{value: value}
	s.waiters.Init()
	return s
}

// TryDown decrements the semaphore without blocking, reporting whether
// it succeeded.
func (s *Semaphore) TryDown() bool {
	old := trap.Disable()
	defer trap.SetState(old)

	if s.value > 0 {
		s.value--
		return true
	}
	return false
}

// Down waits for the semaphore to become positive, then decrements it.
// Must not be called from an interrupt handler.
func (s *Semaphore) Down() {
	old := trap.Disable()
	defer trap.SetState(old)

	for s.value == 0 {
		cur := thisThread()
		s.waiters.PushTail(&cur.node)
		block()
	}
	s.value--
}

// Up increments the semaphore and, if a thread is waiting, wakes the
// oldest one.
func (s *Semaphore) Up() {
	old := trap.Disable()
	defer trap.SetState(old)

	if n := s.waiters.PopHead(); n != nil {
		unblock(threadOf(n))
	}
	s.value++
}

// Lock is a binary semaphore with a holder pointer, used for mutual
// exclusion sections that may sleep (bucket locks, the tid-allocation
// lock). Self-acquire is a bug, not a deadlock-avoidance mechanism.
type Lock struct {
	sem    *Semaphore
	holder *Thread
}

// NewLock returns an unheld lock.
func NewLock() *Lock {
	return &Lock{sem: NewSemaphore(1)}
}

func (l *Lock) heldByCurrent() bool {
	return l.holder == thisThread()
}

// Acquire blocks until l is free, then takes it.
func (l *Lock) Acquire() {
	if l.heldByCurrent() {
		panicLockReentry()
	}
	l.sem.Down()
	l.holder = thisThread()
}

// TryAcquire takes l without blocking, reporting success.
func (l *Lock) TryAcquire() bool {
	if l.heldByCurrent() {
		panicLockReentry()
	}
	if l.sem.TryDown() {
		l.holder = thisThread()
		return true
	}
	return false
}

// Release gives up l. The caller must currently hold it.
func (l *Lock) Release() {
	if !l.heldByCurrent() {
		panicNotHolder()
	}
	l.holder = nil
	l.sem.Up()
}
