// Command kernel is the init-wiring entry point: it builds a
// boot.Config from the compile-time symbols a real linker script would
// supply, then hands it to boot.Boot along with the UART/PLIC/CLINT
// devices the platform exposes, mirroring the data-flow spec.md §2
// describes from power-on through scheduler_start().
//
// There is no real RISC-V platform behind this binary — no MMU, no
// MMIO, no linker script — so the Config's addresses are the same
// values QEMU's virt machine and the original's linker script use, and
// the UART/PLIC/CLINT are the in-memory fakes every package test
// already drives. This binary exists so the init sequence itself is
// exercised end to end the way a real bootstrap would run it, not so
// it can be flashed to hardware.
package main

import (
	"fmt"

	"boot"
	"clint"
	"plic"
	"uart"
)

// Linker-provided symbols a real build.ld would supply; placeholders
// matching the original's kernel link address and QEMU virt's MMIO
// map (include/dev/uart.h's UART0, src/dev/plic.c's PLIC_START,
// src/dev/timer.c's CLINT_START).
const (
	imageStart = 0xffffffff80000000
	imageEnd   = imageStart + 0x400000
	uart0Base  = 0x10000000
	plicBase   = 0xc000000
	clintBase  = 0x2000000
)

func main() {
	cfg := boot.Config{
		ImageStart: imageStart,
		ImageEnd:   imageEnd,
		UART0Base:  uart0Base,
		PLICBase:   plicBase,
		CLINTBase:  clintBase,
		NumHarts:   1,
	}

	arena := make([]byte, 64<<20) // 64MiB, matching a small QEMU -m run
	uartDev := uart.NewFakeDevice(4096)
	plicCtl := plic.NewFakePLIC()
	clintTimer := clint.NewFakeCLINT()

	k := boot.Boot(cfg, arena, uartDev, plicCtl, clintTimer)

	fmt.Fprintf(k.Console, "Hello World :)\n")

	// The original's main() never returns: it loops calling
	// timer_sleep forever once the scheduler is running. There is no
	// real clock to sleep against here, so the initial kernel thread
	// simply parks — the idle thread and any spawned kernel threads do
	// the rest of the work through the scheduler.
	select {}
}
