package kerrors

import "testing"

func TestKindStrings(t *testing.T) {
	cases := []Kind{OK, Exhaustion, BadAddr, NotMapped}
	for _, k := range cases {
		if k.String() == "" {
			t.Fatalf("Kind %d stringified to empty", k)
		}
	}
	if Kind(99).String() != "unknown kerrors.Kind" {
		t.Fatalf("unrecognized kind should say so")
	}
}
