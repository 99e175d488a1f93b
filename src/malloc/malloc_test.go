package malloc

import (
	"testing"
	"unsafe"

	"pmm"
)

func newHeap(t *testing.T, pages int) *Heap {
	t.Helper()
	p := &pmm.Pool{}
	p.Init(make([]byte, pages*pmm.PageSize))
	return NewHeap(p)
}

func TestAllocZeroed(t *testing.T) {
	h := newHeap(t, 16)
	ptr, ok := h.Alloc(32)
	if !ok {
		t.Fatal("alloc failed")
	}
	b := unsafe.Slice((*byte)(ptr), 32)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, c)
		}
	}
}

func TestSmallAllocReuseAfterFree(t *testing.T) {
	h := newHeap(t, 16)
	a, ok := h.Alloc(24)
	if !ok {
		t.Fatal("first alloc failed")
	}
	h.Free(a)
	b, ok := h.Alloc(24)
	if !ok {
		t.Fatal("second alloc failed")
	}
	if a != b {
		t.Fatalf("expected the freed block to be reused: got %p, want %p", b, a)
	}
}

func TestBucketSuperblockReturnedWhenFullyFreed(t *testing.T) {
	h := newHeap(t, 16)
	bucketIdx := 0 // 16-byte bucket
	blockSize := h.buckets[bucketIdx].blockSize
	count := (pmm.PageSize - int(sblockHeaderSize)) / blockSize

	ptrs := make([]unsafe.Pointer, count)
	for i := range ptrs {
		p, ok := h.Alloc(blockSize - 1)
		if !ok {
			t.Fatalf("alloc %d failed", i)
		}
		ptrs[i] = p
	}

	for _, p := range ptrs {
		h.Free(p)
	}

	// The superblock's page should be back in the pool: it is the only
	// free order-0 block, so the pool's next order-0 page is that page.
	// Had it not been returned, the pool would split a larger block
	// and hand out a different page.
	sbPage := h.pool.PhysAddr(ptrs[0]) &^ uintptr(pmm.PageSize-1)
	if page, ok := h.pool.Alloc(0); !ok || h.pool.PhysAddr(page) != sbPage {
		t.Fatal("the emptied superblock's page was not returned to the pool")
	}
	if _, ok := h.Alloc(blockSize - 1); !ok {
		t.Fatal("alloc after draining and freeing a superblock should succeed")
	}
}

func TestUniblockAllocAndFree(t *testing.T) {
	h := newHeap(t, 64)
	size := 4096 // larger than any bucket, forces a uniblock superblock
	ptr, ok := h.Alloc(size)
	if !ok {
		t.Fatal("uniblock alloc failed")
	}
	b := unsafe.Slice((*byte)(ptr), size)
	b[0] = 0xFF
	b[size-1] = 0xFF
	h.Free(ptr)

	ptr2, ok := h.Alloc(size)
	if !ok {
		t.Fatal("uniblock alloc after free failed")
	}
	b2 := unsafe.Slice((*byte)(ptr2), size)
	if b2[0] != 0 || b2[size-1] != 0 {
		t.Fatal("reused uniblock region should come back zeroed via the pool")
	}
}

func TestFreeNilIsNoop(t *testing.T) {
	h := newHeap(t, 4)
	h.Free(nil)
}

func TestCallocZeroesProduct(t *testing.T) {
	h := newHeap(t, 16)
	ptr, ok := h.Calloc(8, 4)
	if !ok {
		t.Fatal("calloc failed")
	}
	b := unsafe.Slice((*byte)(ptr), 32)
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not zeroed: %x", i, c)
		}
	}
}

func TestCallocRejectsNonPositiveArgs(t *testing.T) {
	h := newHeap(t, 4)
	if _, ok := h.Calloc(0, 8); ok {
		t.Fatal("calloc(0, 8) should fail")
	}
	if _, ok := h.Calloc(8, 0); ok {
		t.Fatal("calloc(8, 0) should fail")
	}
}

func TestReallocPreservesContentsUpToMin(t *testing.T) {
	h := newHeap(t, 16)
	a, ok := h.Alloc(24)
	if !ok {
		t.Fatal("alloc failed")
	}
	src := unsafe.Slice((*byte)(a), 24)
	for i := range src {
		src[i] = byte(i + 1)
	}

	grown, ok := h.Realloc(a, 64)
	if !ok {
		t.Fatal("realloc (grow) failed")
	}
	gb := unsafe.Slice((*byte)(grown), 64)
	for i := 0; i < 24; i++ {
		if gb[i] != byte(i+1) {
			t.Fatalf("byte %d = %x, want %x", i, gb[i], byte(i+1))
		}
	}

	shrunk, ok := h.Realloc(grown, 8)
	if !ok {
		t.Fatal("realloc (shrink) failed")
	}
	sb := unsafe.Slice((*byte)(shrunk), 8)
	for i := 0; i < 8; i++ {
		if sb[i] != byte(i+1) {
			t.Fatalf("byte %d = %x, want %x", i, sb[i], byte(i+1))
		}
	}
}

func TestReallocZeroSizeFreesAndReturnsNil(t *testing.T) {
	h := newHeap(t, 16)
	a, ok := h.Alloc(16)
	if !ok {
		t.Fatal("alloc failed")
	}
	p, ok := h.Realloc(a, 0)
	if !ok {
		t.Fatal("realloc(ptr, 0) should report ok")
	}
	if p != nil {
		t.Fatal("realloc(ptr, 0) should return nil")
	}
	// a's block should be reusable now that it has been freed.
	b, ok := h.Alloc(16)
	if !ok || b != a {
		t.Fatalf("expected a's block reused after realloc-to-zero, got %p (ok=%v)", b, ok)
	}
}

func TestReallocNilActsAsAlloc(t *testing.T) {
	h := newHeap(t, 16)
	p, ok := h.Realloc(nil, 32)
	if !ok || p == nil {
		t.Fatal("realloc(nil, size) should behave like Alloc")
	}
}

func TestDistinctBucketsDoNotOverlap(t *testing.T) {
	h := newHeap(t, 16)
	small, ok := h.Alloc(8)
	if !ok {
		t.Fatal("small alloc failed")
	}
	large, ok := h.Alloc(200)
	if !ok {
		t.Fatal("large-bucket alloc failed")
	}
	if small == large {
		t.Fatal("distinct allocations should not alias")
	}
}
