// Package uart is the console contract: a byte-at-a-time device the
// kernel writes log output through and reads input from, with an RX
// path driven by a PLIC interrupt rather than polling.
//
// A real UART is a fixed MMIO window (QEMU's virt machine maps ns16550a
// at 0x10000000); this process has no such window, so Device is an
// interface and FakeDevice backs it with an in-memory ring buffer, the
// same substitution pmm makes for physical RAM.
package uart

import (
	"circbuf"
)

// Device is the console contract every caller (the format-string
// writer, the trap dispatcher's RX handler registration) depends on,
// never a concrete driver.
type Device interface {
	PutC(c byte)
	GetC() (byte, bool)
	HandleRxIRQ()
}

// FakeDevice is a Device backed by two circbuf rings: RX holds bytes a
// test has "typed" at the console, TX holds everything the kernel has
// written out, so a test can assert on console output without a real
// terminal.
type FakeDevice struct {
	rx, tx circbuf.Buf
}

// NewFakeDevice returns a FakeDevice with rx/tx capacity cap bytes
// each.
func NewFakeDevice(cap int) *FakeDevice {
	d := &FakeDevice{}
	d.rx.Init(cap)
	d.tx.Init(cap)
	return d
}

// PutC writes one byte to the (simulated) transmit line. A full TX
// ring silently drops the byte, matching the original driver's
// fire-and-forget MMIO write with no backpressure signal.
func (d *FakeDevice) PutC(c byte) {
	d.tx.PutByte(c)
}

// GetC reads one byte the test harness queued on the RX ring, as if
// typed at the console.
func (d *FakeDevice) GetC() (byte, bool) {
	return d.rx.GetByte()
}

// HandleRxIRQ is the handler the PLIC dispatch would call for the
// UART's IRQ. A real driver drains the hardware RX FIFO into its ring
// here; a FakeDevice already has everything in d.rx, so there is
// nothing further to move — the method exists to satisfy Device. It
// does nothing and records nothing.
func (d *FakeDevice) HandleRxIRQ() {}

// Feed queues bytes on the RX ring as if they had been typed at the
// console, for tests driving GetC.
func (d *FakeDevice) Feed(p []byte) int {
	return d.rx.Write(p)
}

// Written drains everything PutC has accumulated on the TX ring.
func (d *FakeDevice) Written() []byte {
	buf := make([]byte, d.tx.Used())
	d.tx.Read(buf)
	return buf
}

// Write implements io.Writer over PutC, so the kernel's format-string
// engine (fmt.Fprintf) can target a Device directly instead of a
// hand-rolled printf, the way the original's info()/printf() macros
// funnel every format specifier through putc().
func Write(d Device, p []byte) (int, error) {
	for _, c := range p {
		d.PutC(c)
	}
	return len(p), nil
}

// Writer adapts a Device to io.Writer.
type Writer struct{ Device Device }

func (w Writer) Write(p []byte) (int, error) {
	return Write(w.Device, p)
}
