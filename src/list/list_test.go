package list

import (
	"testing"
	"unsafe"
)

// box is a typical owner of a list Node: the node is embedded as the
// first field so the owner can be recovered from a *Node with a plain
// unsafe.Pointer cast, the same trick pmm's blocks and sched's
// threads use.
type box struct {
	n Node
	v int
}

func containerOf(n *Node) *box {
	return (*box)(unsafe.Pointer(n))
}

func TestPushPopFIFO(t *testing.T) {
	var l List
	l.Init()
	if !l.Empty() || l.Size() != 0 {
		t.Fatalf("fresh list should be empty")
	}

	boxes := make([]*box, 3)
	for i := range boxes {
		boxes[i] = &box{v: i}
		l.PushTail(&boxes[i].n)
	}
	if l.Size() != 3 {
		t.Fatalf("size = %d, want 3", l.Size())
	}

	for i := 0; i < 3; i++ {
		n := l.PopHead()
		if n == nil {
			t.Fatalf("unexpected empty pop at i=%d", i)
		}
		got := containerOf(n)
		if got.v != i {
			t.Fatalf("pop order: got %d, want %d", got.v, i)
		}
	}
	if !l.Empty() {
		t.Fatalf("list should be empty after draining")
	}
}

func TestRemoveArbitrary(t *testing.T) {
	var l List
	l.Init()
	a, b, c := &Node{}, &Node{}, &Node{}
	l.PushTail(a)
	l.PushTail(b)
	l.PushTail(c)
	l.Remove(b)
	if l.Size() != 2 {
		t.Fatalf("size after remove = %d, want 2", l.Size())
	}
	if got := l.PopHead(); got != a {
		t.Fatalf("expected a first")
	}
	if got := l.PopHead(); got != c {
		t.Fatalf("expected c second")
	}
}

func TestPushHeadOrder(t *testing.T) {
	var l List
	l.Init()
	a, b := &Node{}, &Node{}
	l.PushHead(a)
	l.PushHead(b)
	if got := l.PopHead(); got != b {
		t.Fatalf("most recently pushed head should pop first")
	}
	if got := l.PopHead(); got != a {
		t.Fatalf("expected a second")
	}
}
