package clint

import "testing"

func TestArmNextTickSetsComparatorAhead(t *testing.T) {
	c := NewFakeCLINT()
	c.ArmNextTick()
	if c.Pending() {
		t.Fatal("freshly armed timer should not be pending")
	}
}

func TestAdvancePastComparatorIsPending(t *testing.T) {
	c := NewFakeCLINT()
	c.ArmNextTick()
	c.Advance(TickInterval)
	if !c.Pending() {
		t.Fatal("expected pending once mtime reaches mtimecmp")
	}
	if c.Now() != TickInterval {
		t.Fatalf("Now() = %d, want %d", c.Now(), TickInterval)
	}
}

func TestRearmAfterPendingClearsIt(t *testing.T) {
	c := NewFakeCLINT()
	c.ArmNextTick()
	c.Advance(TickInterval)
	c.ArmNextTick()
	if c.Pending() {
		t.Fatal("rearming should push the comparator beyond the current mtime")
	}
}
