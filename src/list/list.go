// Package list implements an intrusive, circular, doubly linked list
// with a sentinel node, the way the kernel's buddy buckets, ready
// queue, and semaphore waiter lists all need: O(1) insert/remove with
// no allocation on the hot path.
package list

// Node is the embeddable link. Any struct that wants to live on a List
// embeds a Node and recovers itself from a *Node via a companion
// accessor the owner provides (see pmm.blockHeader, sched.Thread for
// examples) — list itself never needs to know the owning type.
type Node struct {
	prev, next *Node
}

// List is a circular list with an inline sentinel. An empty list is a
// sentinel whose prev and next point to itself. The zero value is not
// ready to use — call Init first.
type List struct {
	sentinel Node
	n        int
}

// Init makes l an empty list. Must be called before any other
// operation; re-running it on a non-empty list orphans its members.
func (l *List) Init() {
	l.sentinel.prev = &l.sentinel
	l.sentinel.next = &l.sentinel
	l.n = 0
}

// Empty reports whether l has no elements.
func (l *List) Empty() bool {
	return l.sentinel.next == &l.sentinel
}

// Size returns the number of elements currently on l.
func (l *List) Size() int {
	return l.n
}

// Head returns the first node, or nil if l is empty.
func (l *List) Head() *Node {
	if l.Empty() {
		return nil
	}
	return l.sentinel.next
}

// Tail returns the last node, or nil if l is empty.
func (l *List) Tail() *Node {
	if l.Empty() {
		return nil
	}
	return l.sentinel.prev
}

// InsertBefore splices n into the list immediately before mark. mark
// must currently be a member of l (or the sentinel, to append at the
// tail).
func InsertBefore(mark, n *Node) {
	n.prev = mark.prev
	n.next = mark
	mark.prev.next = n
	mark.prev = n
}

// InsertAfter splices n into the list immediately after mark. mark
// must currently be a member of l (or the sentinel, to prepend at the
// head).
func InsertAfter(mark, n *Node) {
	n.next = mark.next
	n.prev = mark
	mark.next.prev = n
	mark.next = n
}

// PushHead inserts n at the front of l.
func (l *List) PushHead(n *Node) {
	InsertAfter(&l.sentinel, n)
	l.n++
}

// PushTail inserts n at the back of l.
func (l *List) PushTail(n *Node) {
	InsertBefore(&l.sentinel, n)
	l.n++
}

// Delete removes n from whatever list it is on. Deleting a node that
// is not a member of any list, or the sentinel itself, is undefined
// behavior — the caller is trusted to know what it is unlinking. This
// is the low-level splice; prefer (*List).Remove when the owning list
// is known, since it keeps Size() accurate.
func Delete(n *Node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev = nil
	n.next = nil
}

// Remove unlinks n from l, e.g. pulling a specific buddy block out of
// its bucket when its sibling is found free and merged. n must
// currently be a member of l.
func (l *List) Remove(n *Node) {
	Delete(n)
	l.n--
}

// PopHead removes and returns the first node, or nil if l is empty.
func (l *List) PopHead() *Node {
	if l.Empty() {
		return nil
	}
	n := l.sentinel.next
	Delete(n)
	l.n--
	return n
}

// PopTail removes and returns the last node, or nil if l is empty.
func (l *List) PopTail() *Node {
	if l.Empty() {
		return nil
	}
	n := l.sentinel.prev
	Delete(n)
	l.n--
	return n
}

// Next returns the node after n, or nil if n is the last element of
// its list (the sentinel is never returned).
func (l *List) Next(n *Node) *Node {
	if n.next == &l.sentinel {
		return nil
	}
	return n.next
}
