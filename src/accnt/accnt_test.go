package accnt

import "testing"

func TestAddAndSnapshot(t *testing.T) {
	var a Accnt
	a.AddUser(100)
	a.AddSys(50)
	a.AddUser(25)
	u, s := a.Snapshot()
	if u != 125 || s != 50 {
		t.Fatalf("snapshot = (%d,%d), want (125,50)", u, s)
	}
}
