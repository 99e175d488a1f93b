// Package caller dumps Go call stacks for panic diagnostics. It backs
// the "print site + message, spin" panic policy: when the kernel
// panics, the offending call chain is printed before the core halts.
package caller

import (
	"fmt"
	"runtime"
	"sync"
)

// Dump prints the call stack starting at the given depth, counted as in
// Trace (0 = Trace's own frame, 1 = Dump, 2 = the caller of Dump).
func Dump(start int) {
	fmt.Print(Trace(start))
}

// Trace renders the call stack starting at depth start as a string,
// one frame per line, oldest caller last. Depth 0 is Trace's own frame,
// 1 is its caller.
func Trace(start int) string {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	return s
}

// DistinctCaller remembers whether a given call chain has already been
// reported once, so a hot path that might panic or warn repeatedly
// only gets logged the first time it's hit from each distinct set of
// ancestors.
type DistinctCaller struct {
	sync.Mutex
	seen map[string]bool
}

// Seen reports whether the call chain starting at depth start has been
// observed before, recording it if not.
func (d *DistinctCaller) Seen(start int) bool {
	key := Trace(start + 1)
	d.Lock()
	defer d.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	was := d.seen[key]
	d.seen[key] = true
	return was
}
