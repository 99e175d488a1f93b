// Package trapframe defines the on-trap register save area and the
// CSR bit layouts the trap dispatcher and scheduler decode, mirroring
// the teacher's trap_frame_t/context_t split: one struct captures
// everything a trap needs to resume the interrupted code exactly, the
// other captures only the callee-saved registers a cooperative context
// switch needs to preserve.
package trapframe

const (
	NumGPRegs = 32
	NumFPRegs = 32
)

// Frame is the full register save area built by the trap vector before
// the supervisor dispatcher runs, and restored by sret on the way out.
type Frame struct {
	Regs   [NumGPRegs]uint64
	FPRegs [NumFPRegs]uint64
	Status uint64 // sstatus at trap entry
	Epc    uint64 // sepc: the instruction to resume at
	Tval   uint64 // stval: faulting address or bad instruction
	Cause  uint64 // scause: trap cause, MSB set for interrupts
}

// NumCalleeSaved is the count of RISC-V callee-saved integer registers
// (s0-s11) a context switch must preserve.
const NumCalleeSaved = 12

// Context is the minimal state a cooperative context switch saves:
// everything else is either caller-saved (and so already spilled by
// the calling convention) or belongs to a trap, not a voluntary yield.
type Context struct {
	Ra uint64
	S  [NumCalleeSaved]uint64
}

// --- mstatus / sstatus bit layout (shared; sstatus is a restricted
// view of mstatus at the bits the kernel actually touches) ---

const (
	MstatusMPPMask uint64 = 3 << 11
	MstatusMPPM    uint64 = 3 << 11
	MstatusMPPS    uint64 = 1 << 11
	MstatusMPPU    uint64 = 0 << 11

	MstatusSPPMask  uint64 = 1 << 8
	MstatusSPIEMask uint64 = 1 << 5
	MstatusMIEMask  uint64 = 1 << 3
	MstatusSIEMask  uint64 = 1 << 1
)

const (
	SstatusSPPMask  uint64 = 1 << 8
	SstatusSPIEMask uint64 = 1 << 5
	SstatusUPIEMask uint64 = 1 << 4
	SstatusSIEMask  uint64 = 1 << 1
	SstatusUIEMask  uint64 = 1 << 0
)

// --- mip/mie/sip/sie: pending and enabled bits per privilege level
// and interrupt source ---

const (
	MipMEIP uint64 = 1 << 11
	MipSEIP uint64 = 1 << 9
	MipMTIP uint64 = 1 << 7
	MipSTIP uint64 = 1 << 5
	MipMSIP uint64 = 1 << 3
	MipSSIP uint64 = 1 << 1
)

const (
	MieMEIE uint64 = 1 << 11
	MieSEIE uint64 = 1 << 9
	MieMTIE uint64 = 1 << 7
	MieSTIE uint64 = 1 << 5
	MieMSIE uint64 = 1 << 3
	MieSSIE uint64 = 1 << 1
)

const SipSSIP uint64 = 1 << 1

// --- mtvec/stvec mode ---

const (
	TvecModeMask     uint64 = 0x3
	TvecModeDirect   uint64 = 0
	TvecModeVectored uint64 = 1
)

// --- mcause/scause decoding ---

const causeInterruptMask uint64 = 1 << 63

// IsInterrupt reports whether cause's top bit marks it asynchronous
// (an interrupt) rather than synchronous (an exception).
func IsInterrupt(cause uint64) bool {
	return cause&causeInterruptMask != 0
}

// Code strips the interrupt bit, leaving the exception/interrupt
// number.
func Code(cause uint64) uint64 {
	return cause &^ causeInterruptMask
}

// Interrupt causes (scause with the top bit set).
const (
	CauseUSI uint64 = 0
	CauseSSI uint64 = 1
	CauseMSI uint64 = 3
	CauseUTI uint64 = 4
	CauseSTI uint64 = 5
	CauseMTI uint64 = 7
	CauseUEI uint64 = 8
	CauseSEI uint64 = 9
	CauseMEI uint64 = 11
)

// Exception causes (scause with the top bit clear).
const (
	CauseInstAddrMisaligned  uint64 = 0
	CauseInstAccessFault     uint64 = 1
	CauseIllegalInst         uint64 = 2
	CauseBreakpoint          uint64 = 3
	CauseLoadAddrMisaligned  uint64 = 4
	CauseLoadAccessFault     uint64 = 5
	CauseStoreAddrMisaligned uint64 = 6
	CauseStoreAccessFault    uint64 = 7
	CauseUEcall              uint64 = 8
	CauseSEcall              uint64 = 9
	CauseMEcall              uint64 = 11
	CauseInstPageFault       uint64 = 12
	CauseLoadPageFault       uint64 = 13
	CauseStorePageFault      uint64 = 15
)
