// Package kerrors defines the kernel's error taxonomy. There is no
// recoverable error tier: an operation either returns a well-defined
// value (including nil/false for exhaustion) or control passes to
// Panic, which is terminal.
package kerrors

import (
	"fmt"

	"caller"
)

// Kind classifies why an operation did not produce a value. Kind is
// returned, never panicked with — callers decide what to do with it.
type Kind int

const (
	// OK means the operation succeeded; callers normally don't see
	// this value because success is signalled by a non-nil pointer,
	// not by a Kind.
	OK Kind = iota
	// Exhaustion means a page or heap allocator had nothing left to
	// give.
	Exhaustion
	// BadAddr means a page-table walk met a leaf entry at an upper
	// level, where it expected a pointer to the next table. The walk
	// does not range-check the virtual address: bits above the three
	// 9-bit VPN slices are ignored, not rejected.
	BadAddr
	// NotMapped means a page-table walk reached an invalid entry and
	// was not permitted to allocate one.
	NotMapped
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Exhaustion:
		return "exhaustion"
	case BadAddr:
		return "bad address"
	case NotMapped:
		return "not mapped"
	default:
		return "unknown kerrors.Kind"
	}
}

// Panic terminates the kernel. It prints the panic site and message and
// then spins forever, mirroring a bare-metal kernel that has nowhere
// else to go. site is normally the package/function name, e.g.
// "pmm.free".
func Panic(site, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("\x1b[0;31m[PANIC]\x1b[0m %s: %s\n", site, msg)
	caller.Dump(2)
	select {}
}
