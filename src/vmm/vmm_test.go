package vmm

import (
	"testing"

	"kerrors"
	"pmm"
)

func newSpace(t *testing.T, pages int) (*Space, *pmm.Pool) {
	t.Helper()
	var p pmm.Pool
	p.Init(make([]byte, pages*pmm.PageSize))
	s, kind := NewSpace(&p)
	if kind != kerrors.OK {
		t.Fatalf("NewSpace failed: %v", kind)
	}
	return s, &p
}

func TestMapThenWalkRoundTrips(t *testing.T) {
	s, p := newSpace(t, 64)
	frame, ok := p.Alloc(0)
	if !ok {
		t.Fatal("frame alloc failed")
	}
	pa := p.PhysAddr(frame)
	va := uintptr(0x1000)

	if kind := s.MapPage(va, pa, PteR|PteW); kind != kerrors.OK {
		t.Fatalf("MapPage failed: %v", kind)
	}

	got, kind := s.Walk(va + 0x10)
	if kind != kerrors.OK {
		t.Fatalf("Walk failed: %v", kind)
	}
	if got != pa+0x10 {
		t.Fatalf("Walk = %#x, want %#x", got, pa+0x10)
	}
}

func TestWalkUnmappedFails(t *testing.T) {
	s, _ := newSpace(t, 64)
	if _, kind := s.Walk(0x2000); kind == kerrors.OK {
		t.Fatal("expected walk of an unmapped address to fail")
	}
}

func TestUnmapPageDoesNotFreeTheLeafFrame(t *testing.T) {
	s, p := newSpace(t, 64)
	frame, _ := p.Alloc(0)
	pa := p.PhysAddr(frame)
	va := uintptr(0x3000)

	if kind := s.MapPage(va, pa, PteR); kind != kerrors.OK {
		t.Fatalf("MapPage failed: %v", kind)
	}
	if kind := s.UnmapPage(va); kind != kerrors.OK {
		t.Fatalf("UnmapPage failed: %v", kind)
	}
	if _, kind := s.Walk(va); kind == kerrors.OK {
		t.Fatal("expected walk after unmap to fail")
	}

	// spec.md §4.3: leaf frames are not freed by unmap, so the frame
	// can be mapped again at a different address, and draining the pool
	// never hands it out.
	if kind := s.MapPage(va+PageSize, pa, PteR); kind != kerrors.OK {
		t.Fatalf("remapping the still-owned frame failed: %v", kind)
	}
	if got, kind := s.Walk(va + PageSize); kind != kerrors.OK || got != pa {
		t.Fatalf("Walk after remap = %#x, %v; want %#x, OK", got, kind, pa)
	}
	for {
		q, ok := p.Alloc(0)
		if !ok {
			break
		}
		if q == frame {
			t.Fatal("UnmapPage returned the leaf frame to the pool")
		}
	}
}

func TestMapRangeCoversMultiplePages(t *testing.T) {
	s, p := newSpace(t, 64)
	base, ok := p.Alloc(2) // 4 contiguous frames
	if !ok {
		t.Fatal("order-2 alloc failed")
	}
	pa := p.PhysAddr(base)
	va := uintptr(0x10000)

	if kind := s.Map(va, pa, 4*PageSize, PteR|PteW); kind != kerrors.OK {
		t.Fatalf("Map failed: %v", kind)
	}
	for i := 0; i < 4; i++ {
		got, kind := s.Walk(va + uintptr(i)*PageSize)
		if kind != kerrors.OK {
			t.Fatalf("page %d: Walk failed: %v", i, kind)
		}
		if want := pa + uintptr(i)*PageSize; got != want {
			t.Fatalf("page %d: Walk = %#x, want %#x", i, got, want)
		}
	}
}

func TestSatpEncodesSv39Mode(t *testing.T) {
	s, _ := newSpace(t, 64)
	satp := s.Satp()
	if satp>>60 != 8 {
		t.Fatalf("satp mode field = %d, want 8 (Sv39)", satp>>60)
	}
	if satp&((uint64(1)<<44)-1) != uint64(s.Root()>>PageShift) {
		t.Fatal("satp PPN field does not match the root table's address")
	}
}
