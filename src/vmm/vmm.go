// Package vmm is the Sv39 virtual memory manager: three levels of
// 512-entry page tables, each indexed by a 9-bit slice of the virtual
// address, translating to a 4KiB physical frame at the leaf.
//
// Page table pages and the frames they map both come from a pmm.Pool.
// Table entries don't store pointers — they store the frame's offset
// into the pool's arena (see pmm.Pool.PhysAddr), the same way the
// teacher's Pa_t is an opaque physical address recovered into a usable
// pointer on demand via Dmap, never carried around as one.
package vmm

import (
	"kerrors"
	"pmm"
)

const (
	// PageShift is the base-2 exponent of a leaf frame.
	PageShift = 12
	// PageSize is the size of a leaf frame in bytes.
	PageSize = 1 << PageShift

	vpnBits = 9
	vpnMask = (1 << vpnBits) - 1

	// Levels is the depth of an Sv39 page table: VPN[2], VPN[1], VPN[0].
	Levels = 3
	// EntriesPerTable is the fixed fan-out of every page table page.
	EntriesPerTable = 1 << vpnBits

	ppnShift = 10
	ppnMask  = (uint64(1) << 44) - 1
)

// PTE is a single Sv39 page table entry: flag bits in [0,10) and a
// 44-bit physical page number above that.
type PTE uint64

const (
	PteV PTE = 1 << 0 // valid
	PteR PTE = 1 << 1 // readable
	PteW PTE = 1 << 2 // writable
	PteX PTE = 1 << 3 // executable
	PteU PTE = 1 << 4 // user-accessible
	PteG PTE = 1 << 5 // global
	PteA PTE = 1 << 6 // accessed
	PteD PTE = 1 << 7 // dirty
)

// Valid reports whether the entry's V bit is set.
func (e PTE) Valid() bool { return e&PteV != 0 }

// Leaf reports whether the entry has any of R/W/X set, i.e. whether it
// terminates a walk instead of pointing at another table.
func (e PTE) Leaf() bool { return e&(PteR|PteW|PteX) != 0 }

// Addr extracts the physical address (a pmm.Pool offset) the entry
// points at.
func (e PTE) Addr() uintptr {
	return uintptr((uint64(e) >> ppnShift & ppnMask) << PageShift)
}

// Perm returns the flag bits below the PPN, i.e. everything but V.
func (e PTE) Perm() PTE { return e & (PteR | PteW | PteX | PteU | PteG | PteA | PteD) }

// makePTE packs a physical address and flag bits into an entry.
func makePTE(phys uintptr, flags PTE) PTE {
	return PTE((uint64(phys)>>PageShift&ppnMask)<<ppnShift) | flags | PteV
}

// vpn extracts the 9-bit virtual page number slice for level (0 is the
// innermost, leaf-adjacent level; Levels-1 is the root).
func vpn(va uintptr, level int) int {
	shift := PageShift + vpnBits*level
	return int((va >> uint(shift)) & vpnMask)
}

// Table is one page table page: 512 entries, laid out exactly as the
// hardware page table walker expects so it can live directly in a
// pmm-allocated frame.
type Table [EntriesPerTable]PTE

// Space is one Sv39 address space — one root table plus the pool its
// tables and leaf frames are carved from.
type Space struct {
	pool     *pmm.Pool
	rootPhys uintptr
}

// NewSpace allocates a fresh, all-invalid root table from pool.
func NewSpace(pool *pmm.Pool) (*Space, kerrors.Kind) {
	root, ok := pool.Alloc(0)
	if !ok {
		return nil, kerrors.Exhaustion
	}
	return &Space{pool: pool, rootPhys: pool.PhysAddr(root)}, kerrors.OK
}

// Root returns the address space's root table physical address, the
// value a real kernel would shift into satp.
func (s *Space) Root() uintptr { return s.rootPhys }

// Satp packs the root table address into an Sv39-mode satp value:
// mode 8 in the top four bits, the root's page frame number below.
func (s *Space) Satp() uint64 {
	const modeSv39 = uint64(8) << 60
	return modeSv39 | uint64(s.rootPhys>>PageShift)
}

func (s *Space) tableAt(phys uintptr) *Table {
	return (*Table)(s.pool.Deref(phys))
}

// walk locates the leaf PTE for va, allocating intermediate page table
// pages along the way when alloc is true. With alloc false, an absent
// intermediate table means va is unmapped and walk returns NotMapped.
func (s *Space) walk(va uintptr, alloc bool) (*PTE, kerrors.Kind) {
	tablePhys := s.rootPhys
	for level := Levels - 1; level > 0; level-- {
		table := s.tableAt(tablePhys)
		pte := &table[vpn(va, level)]
		if !pte.Valid() {
			if !alloc {
				return nil, kerrors.NotMapped
			}
			next, ok := s.pool.Alloc(0)
			if !ok {
				return nil, kerrors.Exhaustion
			}
			*pte = makePTE(s.pool.PhysAddr(next), 0)
		}
		if pte.Leaf() {
			return nil, kerrors.BadAddr
		}
		tablePhys = pte.Addr()
	}
	table := s.tableAt(tablePhys)
	return &table[vpn(va, 0)], kerrors.OK
}

// Walk translates va to a physical address without creating any
// mapping, returning NotMapped if va isn't mapped.
func (s *Space) Walk(va uintptr) (uintptr, kerrors.Kind) {
	pte, kind := s.walk(va, false)
	if kind != kerrors.OK {
		return 0, kind
	}
	if !pte.Valid() {
		return 0, kerrors.NotMapped
	}
	return pte.Addr() | (va & (PageSize - 1)), kerrors.OK
}

// MapPage installs a single PageSize mapping va -> pa with perm,
// allocating any missing intermediate page tables.
func (s *Space) MapPage(va, pa uintptr, perm PTE) kerrors.Kind {
	pte, kind := s.walk(va, true)
	if kind != kerrors.OK {
		return kind
	}
	*pte = makePTE(pa, perm|PteV)
	return kerrors.OK
}

// UnmapPage clears va's leaf mapping. The leaf frame itself is not
// freed: spec.md §4.3 assigns frame ownership to the caller, not to
// the address space, so the caller decides separately whether (and
// when) to return the frame to the pool. It is an error to unmap a va
// with no mapping.
func (s *Space) UnmapPage(va uintptr) kerrors.Kind {
	pte, kind := s.walk(va, false)
	if kind != kerrors.OK {
		return kind
	}
	if !pte.Valid() {
		return kerrors.NotMapped
	}
	*pte = 0
	return kerrors.OK
}

// Map installs mappings for every page overlapping [va, va+n), taking
// physical frames starting at pa (so pa advances alongside va — the
// caller is responsible for pa describing n contiguous bytes).
func (s *Space) Map(va, pa uintptr, n int, perm PTE) kerrors.Kind {
	start := va &^ (PageSize - 1)
	end := (va + uintptr(n) - 1) &^ (PageSize - 1)
	for v, p := start, pa; v <= end; v, p = v+PageSize, p+PageSize {
		if kind := s.MapPage(v, p, perm); kind != kerrors.OK {
			return kind
		}
	}
	return kerrors.OK
}

// Unmap clears mappings for every page overlapping [va, va+n).
func (s *Space) Unmap(va uintptr, n int) kerrors.Kind {
	start := va &^ (PageSize - 1)
	end := (va + uintptr(n) - 1) &^ (PageSize - 1)
	for v := start; v <= end; v += PageSize {
		if kind := s.UnmapPage(v); kind != kerrors.OK {
			return kind
		}
	}
	return kerrors.OK
}
