// Package malloc is the kernel's general-purpose heap allocator,
// layered on top of pmm's page allocator the same way the teacher's
// heap sits on Physmem_t: small requests are carved out of shared
// "superblocks" (single pages split into equal-size blocks), and large
// requests get their own run of pages directly.
//
// A superblock descriptor lives at the start of the page(s) it
// describes, recovered from any block pointer by rounding down to a
// page boundary — the same container-of trick pmm uses for its buddy
// block headers.
package malloc

import (
	"sync"
	"unsafe"

	"kerrors"
	"list"
	"pmm"
)

const (
	// MinBlockOrder is the smallest block size malloc hands out, as a
	// power of two: 1<<MinBlockOrder bytes.
	MinBlockOrder = 4
	// MaxBlockOrder is one less than the page shift: a page can't hold
	// a bucket of blocks at its own size and still have room for the
	// superblock header.
	MaxBlockOrder = pmm.PageShift - 1
	// NumBuckets is the number of distinct block sizes malloc buckets
	// small requests into.
	NumBuckets = MaxBlockOrder - MinBlockOrder

	sblockMagic = 0x9a548eed
)

type sblockType int

const (
	sblockMultiblock sblockType = iota
	sblockUniblock
)

// sblockHeader sits at the start of every superblock. For a multiblock
// superblock it's followed by equal-size blocks belonging to one
// bucket; for a uniblock superblock the rest of its pages are one
// single allocation.
type sblockHeader struct {
	magic uint64
	typ   sblockType

	bucketIdx  int // multiblock only
	freeBlocks int // multiblock only
	pageOrder  int // uniblock only
}

const sblockHeaderSize = unsafe.Sizeof(sblockHeader{})

// blockNode is the free-list linkage stored in the first bytes of an
// unallocated block. It is overwritten by the caller's data the moment
// the block is handed out.
type blockNode struct {
	node list.Node
}

type bucket struct {
	mu        sync.Mutex
	freeList  list.List
	blockSize int
}

// Heap is one malloc arena over a pmm.Pool. The zero value is not
// ready to use — call NewHeap.
type Heap struct {
	pool    *pmm.Pool
	buckets [NumBuckets]bucket
}

// NewHeap builds an empty heap backed by pool. Buckets are populated
// lazily, the same way the teacher's bucket free lists start empty and
// fault in a superblock on first use.
func NewHeap(pool *pmm.Pool) *Heap {
	h := &Heap{pool: pool}
	for i := range h.buckets {
		h.buckets[i].freeList.Init()
		h.buckets[i].blockSize = 1 << uint(i+MinBlockOrder)
	}
	return h
}

func pageOrderFor(bytes int) int {
	order := 0
	for (1<<uint(order))*pmm.PageSize < bytes {
		order++
	}
	return order
}

// sblockOf recovers the superblock header a live block or uniblock
// allocation belongs to by rounding its address down to a page
// boundary, then validates the magic the way is_sblock does in the
// teacher's reference allocator.
func (h *Heap) sblockOf(ptr unsafe.Pointer) *sblockHeader {
	phys := h.pool.PhysAddr(ptr)
	pageBase := phys &^ uintptr(pmm.PageSize-1)
	sb := (*sblockHeader)(h.pool.Deref(pageBase))
	if sb.magic != sblockMagic {
		kerrors.Panic("malloc.sblockOf", "corrupt or foreign pointer %p", ptr)
	}
	return sb
}

func blockAt(sb unsafe.Pointer, idx, blockSize int) *blockNode {
	addr := uintptr(sb) + sblockHeaderSize + uintptr(idx*blockSize)
	return (*blockNode)(unsafe.Pointer(addr))
}

// Alloc returns a pointer to a zeroed region of at least size bytes,
// or (nil, false) if the underlying page pool is exhausted. Requests
// at or above the largest bucket's block size (1<<(MaxBlockOrder-1)
// bytes) get a dedicated run of pages; smaller requests are served from
// the smallest bucket whose block size exceeds them.
func (h *Heap) Alloc(size int) (unsafe.Pointer, bool) {
	if size <= 0 {
		return nil, false
	}

	i := 0
	for i < NumBuckets && size >= h.buckets[i].blockSize {
		i++
	}
	if i == NumBuckets {
		return h.allocUniblock(size)
	}
	return h.allocFromBucket(i)
}

func (h *Heap) allocUniblock(size int) (unsafe.Pointer, bool) {
	order := pageOrderFor(size + int(sblockHeaderSize))
	raw, ok := h.pool.Alloc(order)
	if !ok {
		return nil, false
	}
	sb := (*sblockHeader)(raw)
	sb.magic = sblockMagic
	sb.typ = sblockUniblock
	sb.pageOrder = order
	return unsafe.Pointer(uintptr(raw) + sblockHeaderSize), true
}

func (h *Heap) allocFromBucket(i int) (unsafe.Pointer, bool) {
	b := &h.buckets[i]
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.freeList.Empty() {
		raw, ok := h.pool.Alloc(0)
		if !ok {
			return nil, false
		}
		sb := (*sblockHeader)(raw)
		sb.magic = sblockMagic
		sb.typ = sblockMultiblock
		sb.bucketIdx = i
		count := (pmm.PageSize - int(sblockHeaderSize)) / b.blockSize
		sb.freeBlocks = count
		for j := 0; j < count; j++ {
			blk := blockAt(raw, j, b.blockSize)
			b.freeList.PushTail(&blk.node)
		}
	}

	n := b.freeList.PopHead()
	blk := (*blockNode)(unsafe.Pointer(n))
	sb := h.sblockOf(unsafe.Pointer(blk))
	sb.freeBlocks--

	p := unsafe.Pointer(blk)
	zero(p, b.blockSize)
	return p, true
}

// Free returns a block or uniblock allocation previously returned by
// Alloc. Freeing the last outstanding block of a multiblock superblock
// returns the whole page to the pool. Free(nil) is a no-op.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	sb := h.sblockOf(ptr)
	switch sb.typ {
	case sblockUniblock:
		h.pool.Free(unsafe.Pointer(sb), sb.pageOrder)
	case sblockMultiblock:
		h.freeMultiblock(sb, ptr)
	default:
		kerrors.Panic("malloc.Free", "unknown superblock type %d", sb.typ)
	}
}

// Calloc is malloc(n*size) with the product zeroed, per spec.md §4.4.
// It reports false (without allocating) on a non-positive size or on
// overflow of n*size.
func (h *Heap) Calloc(n, size int) (unsafe.Pointer, bool) {
	if n <= 0 || size <= 0 {
		return nil, false
	}
	total := n * size
	if total/n != size {
		return nil, false
	}
	// Alloc already returns zeroed memory (see allocUniblock/
	// allocFromBucket), so there is nothing left to zero here.
	return h.Alloc(total)
}

// sizeOf returns the usable capacity of a live allocation: the bucket's
// block size for a multiblock allocation, or the page run's size minus
// the superblock header for a uniblock one. This is the allocator's
// own notion of "old size" Realloc copies against — like the original
// malloc.c, it tracks capacity by size class, not the exact byte count
// a caller originally requested.
func (h *Heap) sizeOf(ptr unsafe.Pointer) int {
	sb := h.sblockOf(ptr)
	switch sb.typ {
	case sblockUniblock:
		return (1<<uint(sb.pageOrder))*pmm.PageSize - int(sblockHeaderSize)
	case sblockMultiblock:
		return h.buckets[sb.bucketIdx].blockSize
	default:
		kerrors.Panic("malloc.sizeOf", "unknown superblock type %d", sb.typ)
		return 0
	}
}

// Realloc is malloc(size) + memcpy(min(old,new)) + free(ptr), per
// spec.md §4.4. realloc(ptr, 0) frees ptr and returns (nil, true).
// realloc(nil, size) behaves as Alloc(size).
func (h *Heap) Realloc(ptr unsafe.Pointer, size int) (unsafe.Pointer, bool) {
	if size == 0 {
		h.Free(ptr)
		return nil, true
	}
	if ptr == nil {
		return h.Alloc(size)
	}

	next, ok := h.Alloc(size)
	if !ok {
		return nil, false
	}

	n := h.sizeOf(ptr)
	if size < n {
		n = size
	}
	copy(unsafe.Slice((*byte)(next), n), unsafe.Slice((*byte)(ptr), n))

	h.Free(ptr)
	return next, true
}

func (h *Heap) freeMultiblock(sb *sblockHeader, ptr unsafe.Pointer) {
	b := &h.buckets[sb.bucketIdx]
	zero(ptr, b.blockSize)

	b.mu.Lock()
	defer b.mu.Unlock()

	blk := (*blockNode)(ptr)
	b.freeList.PushHead(&blk.node)
	sb.freeBlocks++

	count := (pmm.PageSize - int(sblockHeaderSize)) / b.blockSize
	if sb.freeBlocks < count {
		return
	}
	for j := 0; j < count; j++ {
		other := blockAt(unsafe.Pointer(sb), j, b.blockSize)
		b.freeList.Remove(&other.node)
	}
	h.pool.Free(unsafe.Pointer(sb), 0)
}

func zero(p unsafe.Pointer, n int) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}
