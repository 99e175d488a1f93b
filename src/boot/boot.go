// Package boot is the C8 bootstrap: the sequence that turns a cold
// arena of bytes and a set of device fakes into a running kernel with
// paging enabled, a heap, a trap vector, and an idle thread — the Go
// analogue of the original's init()/main() pair in src/main.c. There is
// no machine-mode/supervisor-mode split to model (no real mstatus,
// medeleg, mret): Boot starts directly where the original's main()
// does, already in supervisor mode on hart 0.
package boot

import (
	"clint"
	"kerrors"
	"kstat"
	"malloc"
	"plic"
	"pmm"
	"sched"
	"trap"
	"trapframe"
	"uart"
	"vmm"
)

// Config is the plain struct of linker-provided symbols and compile-time
// constants the original's main.c hard-codes: image bounds, the MMIO
// windows it identity-maps, and the scheduler tuning spec.md §9
// leaves as Open Questions. There is no flag/env parsing: like the
// teacher, this kernel is configured at compile time by whoever builds
// the Config literal (cmd/kernel).
type Config struct {
	// ImageStart/ImageEnd bound the kernel's own loaded image, the
	// region identity-mapped so code and data keep working once paging
	// is live.
	ImageStart, ImageEnd uintptr

	// UART0Base/PLICBase/CLINTBase are the MMIO windows identity-mapped
	// alongside the image, named after the original's UART0/PLIC_START/
	// CLINT_START macros (include/dev/uart.h, src/dev/plic.c,
	// src/dev/timer.c).
	UART0Base, PLICBase, CLINTBase uintptr

	// TimeSlice is the number of ticks a thread runs before Tick yields
	// it, mirroring the original's TIME_SLICE.
	TimeSlice int

	// NumHarts is carried for fidelity with the original's per-hart
	// mscratch array; this kernel only ever drives hart 0.
	NumHarts int
}

// Kernel is everything Boot assembles: the allocators, address space,
// and devices cmd/kernel needs a handle on after bootstrap returns.
type Kernel struct {
	Pool    *pmm.Pool
	Space   *vmm.Space
	Heap    *malloc.Heap
	UART    uart.Device
	PLIC    plic.Controller
	CLINT   clint.Timer
	Console uart.Writer
}

// Boot runs the C8 sequence against arena (backing the buddy pool) and
// the three device fakes: CLINT arm, then C2/C7/C3/C4/C6 init in that
// order (the page pool is set up before the scheduler that is handed
// it), then C7 start.
//
// uartDev, plicCtl, and clintTimer are accepted as interfaces rather
// than constructed here, so a test can hand Boot fakes it drives by
// hand (Advance, Raise, Feed) instead of real MMIO devices.
func Boot(cfg Config, arena []byte, uartDev uart.Device, plicCtl plic.Controller, clintTimer clint.Timer) *Kernel {
	if cfg.TimeSlice > 0 {
		sched.TimeSlice = cfg.TimeSlice
	}

	// Every init step below runs with interrupts off, the same
	// disabled window spanning init()/main() up to scheduler_start() in
	// the original. Start (C7 start) is the one call that turns
	// interrupts back on, so there is no restore here: Boot returns
	// with interrupts enabled, matching a kernel that has finished
	// bootstrapping.
	trap.Disable()

	// CLINT arm: power-on schedules the first timer interrupt before
	// anything else runs, matching the original's init() calling
	// timer_init() ahead of main().
	clintTimer.ArmNextTick()

	// C2 init: the buddy pool over arena. C7 init: ready queue and tid
	// allocator reset around that pool.
	pool := &pmm.Pool{}
	pool.Init(arena)
	sched.Init(pool)

	// C3 init: build the kernel's address space and identity-map the
	// image plus the three MMIO windows a real bootstrap would need
	// live before it can take its first trap.
	space, kind := vmm.NewSpace(pool)
	if kind != kerrors.OK {
		kerrors.Panic("boot.Boot", "failed to allocate root page table: %s", kind)
	}
	identityMap(space, cfg.ImageStart, cfg.ImageEnd)
	identityMapPage(space, cfg.UART0Base)
	identityMapPage(space, cfg.PLICBase)
	identityMapPage(space, cfg.CLINTBase)
	sched.SetKernelSpace(space)

	// C4 init: the slab heap draws pages from the same pool.
	heap := malloc.NewHeap(pool)

	// C6 init: install the supervisor trap vector's collaborators and
	// unmask external IRQ sources the way plic_hart_init does.
	trap.SetScheduler(schedulerAdapter{})
	trap.SetTimer(clintTimer)
	trap.SetExternalController(plicCtl)
	trap.RegisterExtHandler(plic.UART0IRQ, uartIRQHandler(uartDev))

	plicCtl.SetPriority(plic.UART0IRQ, 1)
	plicCtl.Enable(plic.UART0IRQ)
	plicCtl.SetThreshold(0)

	kstat.Enabled = true

	k := &Kernel{
		Pool:    pool,
		Space:   space,
		Heap:    heap,
		UART:    uartDev,
		PLIC:    plicCtl,
		CLINT:   clintTimer,
		Console: uart.Writer{Device: uartDev},
	}

	// C7 start: spawn the idle thread, become the initial kernel
	// thread, enable interrupts. HartInit must run under the same
	// disabled section Init did, matching the original's
	// thread_hart_init() being called before interrupts are live.
	sched.HartInit()
	sched.Start()

	return k
}

// identityMap maps every page overlapping [start, end) to itself with
// read/write/execute permission, the way the original's vm_init maps
// the kernel's own image.
func identityMap(space *vmm.Space, start, end uintptr) {
	if end <= start {
		return
	}
	if kind := space.Map(start, start, int(end-start), vmm.PteR|vmm.PteW|vmm.PteX|vmm.PteG); kind != kerrors.OK {
		kerrors.Panic("boot.identityMap", "failed to map image [%#x,%#x): %s", start, end, kind)
	}
}

// identityMapPage maps a single MMIO page at addr to itself,
// read/write, no execute — matching uart_vm_init/timer_vm_init/
// plic_vm_init's one-page device mappings.
func identityMapPage(space *vmm.Space, addr uintptr) {
	if addr == 0 {
		return
	}
	if kind := space.MapPage(addr, addr, vmm.PteR|vmm.PteW|vmm.PteG); kind != kerrors.OK {
		kerrors.Panic("boot.identityMapPage", "failed to map MMIO page %#x: %s", addr, kind)
	}
}

// schedulerAdapter satisfies trap.Scheduler by forwarding to the
// package-level sched.Tick, so trap never imports sched directly.
type schedulerAdapter struct{}

func (schedulerAdapter) Tick() { sched.Tick() }

// uartIRQHandler returns the handler RegisterExtHandler installs for
// the UART's IRQ: drain the hardware's notion of "data ready" into the
// device's own RX path, mirroring plic_handle_interrupt's UART0 case
// calling uart_handle_interrupt.
func uartIRQHandler(d uart.Device) func(*trapframe.Frame) {
	return func(*trapframe.Frame) { d.HandleRxIRQ() }
}
