package circbuf

import "testing"

func TestPutGetFIFO(t *testing.T) {
	var b Buf
	b.Init(4)
	for _, c := range []byte("ab") {
		if !b.PutByte(c) {
			t.Fatalf("unexpected full buffer")
		}
	}
	if b.Used() != 2 || b.Left() != 2 {
		t.Fatalf("used/left wrong: used=%d left=%d", b.Used(), b.Left())
	}
	for _, want := range []byte("ab") {
		c, ok := b.GetByte()
		if !ok || c != want {
			t.Fatalf("got %q,%v want %q", c, ok, want)
		}
	}
	if !b.Empty() {
		t.Fatalf("expected empty after draining")
	}
}

func TestFullDropsBytes(t *testing.T) {
	var b Buf
	b.Init(2)
	if n := b.Write([]byte("xyz")); n != 2 {
		t.Fatalf("Write should stop at capacity, got %d", n)
	}
	if !b.Full() {
		t.Fatalf("expected full")
	}
}

func TestWrapAround(t *testing.T) {
	var b Buf
	b.Init(3)
	b.Write([]byte("ab"))
	b.Read(make([]byte, 1)) // drop 'a', tail advances
	b.Write([]byte("cd"))   // wraps past capacity boundary
	out := make([]byte, 3)
	n := b.Read(out)
	if string(out[:n]) != "bcd" {
		t.Fatalf("wraparound read = %q, want %q", out[:n], "bcd")
	}
}
