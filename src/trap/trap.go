// Package trap is the supervisor-mode trap dispatcher: it classifies
// every scause it's handed into a timer tick, an external interrupt,
// or an exception, and routes each to the right handler — the Go
// equivalent of the teacher's s_trap/s_intr_handler/s_exc_handler
// trio. It also owns the interrupt-enable flag composable critical
// sections are built from (Disable/Enable/SetState).
//
// There is no real sstatus register behind a Go process, so State
// simulates the one bit the kernel actually reads and writes:
// sstatus.SIE. A real port would back Get/Set with csrr/csrw; this one
// backs them with a mutex-guarded bool.
package trap

import (
	"sync"

	"kerrors"
	"kstat"
	"trapframe"
)

// State mirrors the two values of intr_state_t: whether a hart is
// currently willing to take interrupts.
type State bool

const (
	Off State = false
	On  State = true
)

var (
	mu      sync.Mutex
	enabled State = Off
)

// GetState returns the current interrupt-enable state without
// changing it.
func GetState() State {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetState installs state directly, returning whatever was there
// before — the primitive Disable/Enable and every composable critical
// section in the scheduler are built from.
func SetState(state State) State {
	mu.Lock()
	defer mu.Unlock()
	prev := enabled
	enabled = state
	return prev
}

// Enable turns interrupts on and returns the prior state, so a caller
// can restore it later with SetState instead of blindly calling
// Disable (which would stomp on an enclosing disabled section).
func Enable() State { return SetState(On) }

// Disable turns interrupts off and returns the prior state.
func Disable() State { return SetState(Off) }

// Scheduler is the narrow slice of the scheduler the timer interrupt
// needs. Defining it here instead of importing package sched keeps the
// dependency one-directional: sched imports trap, not the reverse: the
// concrete scheduler is handed to SetScheduler during boot wiring.
type Scheduler interface {
	Tick()
}

// Timer is the CLINT contract the dispatcher rearms after every timer
// interrupt so another one eventually fires.
type Timer interface {
	ArmNextTick()
}

// ExternalController is the PLIC contract: claim the highest-priority
// pending IRQ (0 means none pending, the real PLIC's own sentinel),
// run its handler, then signal completion.
type ExternalController interface {
	Claim() int
	Complete(irq int)
}

var (
	scheduler Scheduler
	timer     Timer
	plic      ExternalController

	extHandlers   = map[int]func(*trapframe.Frame){}
	extHandlersMu sync.Mutex
)

// SetScheduler wires the scheduler the timer interrupt ticks.
func SetScheduler(s Scheduler) { scheduler = s }

// SetTimer wires the CLINT the timer interrupt rearms.
func SetTimer(t Timer) { timer = t }

// SetExternalController wires the PLIC external interrupts are claimed
// from and completed through.
func SetExternalController(p ExternalController) { plic = p }

// RegisterExtHandler installs the handler run when irq is claimed from
// the PLIC. Registering over an existing irq replaces its handler.
func RegisterExtHandler(irq int, handler func(*trapframe.Frame)) {
	extHandlersMu.Lock()
	defer extHandlersMu.Unlock()
	extHandlers[irq] = handler
}

// Dispatch is the supervisor trap entry point: it classifies tf.Cause
// and routes to the timer, external, or exception path. It corresponds
// exactly to the teacher's s_trap.
func Dispatch(tf *trapframe.Frame) {
	if tf.Status&trapframe.SstatusSPPMask == 0 {
		kerrors.Panic("trap.Dispatch", "trap taken from user mode with no user handler installed")
	}

	if trapframe.IsInterrupt(tf.Cause) {
		dispatchInterrupt(tf)
		return
	}
	dispatchException(tf)
}

func dispatchInterrupt(tf *trapframe.Frame) {
	switch trapframe.Code(tf.Cause) {
	case trapframe.CauseSTI:
		kstat.TimerTicks.Inc()
		if scheduler != nil {
			scheduler.Tick()
		}
		if timer != nil {
			timer.ArmNextTick()
		}
	case trapframe.CauseSEI:
		dispatchExternal(tf)
	default:
		kerrors.Panic("trap.dispatchInterrupt", "unexpected interrupt cause %d", trapframe.Code(tf.Cause))
	}
}

func dispatchExternal(tf *trapframe.Frame) {
	if plic == nil {
		kerrors.Panic("trap.dispatchExternal", "external interrupt with no PLIC wired")
	}
	irq := plic.Claim()
	if irq == 0 {
		return
	}
	extHandlersMu.Lock()
	handler := extHandlers[irq]
	extHandlersMu.Unlock()
	if handler != nil {
		handler(tf)
	}
	plic.Complete(irq)
}

func dispatchException(tf *trapframe.Frame) {
	switch trapframe.Code(tf.Cause) {
	case trapframe.CauseInstAddrMisaligned, trapframe.CauseLoadAddrMisaligned, trapframe.CauseStoreAddrMisaligned:
		kerrors.Panic("trap", "address misaligned: epc=%#x tval=%#x", tf.Epc, tf.Tval)
	case trapframe.CauseInstPageFault, trapframe.CauseLoadPageFault, trapframe.CauseStorePageFault:
		kerrors.Panic("trap", "page fault: epc=%#x tval=%#x", tf.Epc, tf.Tval)
	case trapframe.CauseInstAccessFault, trapframe.CauseLoadAccessFault, trapframe.CauseStoreAccessFault:
		kerrors.Panic("trap", "access fault: epc=%#x tval=%#x", tf.Epc, tf.Tval)
	case trapframe.CauseUEcall, trapframe.CauseSEcall, trapframe.CauseMEcall:
		kerrors.Panic("trap", "unhandled ecall: epc=%#x", tf.Epc)
	case trapframe.CauseIllegalInst:
		kerrors.Panic("trap", "illegal instruction: epc=%#x tval=%#x", tf.Epc, tf.Tval)
	case trapframe.CauseBreakpoint:
		kerrors.Panic("trap", "breakpoint: epc=%#x", tf.Epc)
	default:
		kerrors.Panic("trap", "unhandled exception cause %d: epc=%#x", trapframe.Code(tf.Cause), tf.Epc)
	}
}
