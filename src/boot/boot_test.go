package boot

import (
	"testing"

	"clint"
	"kerrors"
	"plic"
	"sched"
	"trap"
	"uart"
)

func freshArena(t *testing.T, pages int) []byte {
	t.Helper()
	return make([]byte, pages*4096)
}

func TestBootBringsUpIdleThreadAndEnablesInterrupts(t *testing.T) {
	trap.SetState(trap.Off)

	uartDev := uart.NewFakeDevice(64)
	plicCtl := plic.NewFakePLIC()
	clintTimer := clint.NewFakeCLINT()

	k := Boot(Config{}, freshArena(t, 64), uartDev, plicCtl, clintTimer)

	if trap.GetState() != trap.On {
		t.Fatal("expected interrupts enabled after Boot")
	}
	if k.Pool == nil || k.Space == nil || k.Heap == nil {
		t.Fatal("expected Boot to populate pool, space, and heap")
	}
	if sched.Current() == nil {
		t.Fatal("expected a current thread after Boot")
	}
	if sched.Current().Proc.Space != k.Space {
		t.Fatal("expected the kernel process to hold the kernel's page-table root")
	}
}

func TestBootIdentityMapsImageAndMMIO(t *testing.T) {
	trap.SetState(trap.Off)

	uartDev := uart.NewFakeDevice(64)
	plicCtl := plic.NewFakePLIC()
	clintTimer := clint.NewFakeCLINT()

	cfg := Config{
		ImageStart: 0x80000000,
		ImageEnd:   0x80000000 + 4096,
		UART0Base:  0x10000000,
		PLICBase:   0xc000000,
		CLINTBase:  0x2000000,
	}
	k := Boot(cfg, freshArena(t, 256), uartDev, plicCtl, clintTimer)

	if pa, kind := k.Space.Walk(cfg.ImageStart); kind != kerrors.OK || pa != cfg.ImageStart {
		t.Fatalf("image identity map: pa=%#x kind=%v", pa, kind)
	}
	if pa, kind := k.Space.Walk(cfg.UART0Base); kind != kerrors.OK || pa != cfg.UART0Base {
		t.Fatalf("uart identity map: pa=%#x kind=%v", pa, kind)
	}
}

func TestBootWiresExternalUARTInterrupt(t *testing.T) {
	trap.SetState(trap.Off)

	uartDev := uart.NewFakeDevice(64)
	plicCtl := plic.NewFakePLIC()
	clintTimer := clint.NewFakeCLINT()

	Boot(Config{}, freshArena(t, 64), uartDev, plicCtl, clintTimer)

	plicCtl.Raise(plic.UART0IRQ)
	if irq := plicCtl.Claim(); irq != plic.UART0IRQ {
		t.Fatalf("expected UART0 IRQ pending and claimable, got %d", irq)
	}
}
