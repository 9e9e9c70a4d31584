package transport

import (
	"container/heap"
	"sync"
)

// interval is one freed [offset, offset+length) span awaiting coalescing
// into the committed read position.
type interval struct {
	offset uint64
	length uint64
}

// intervalHeap is a min-heap ordered by offset, letting the reclaimer pop
// the earliest pending free first — the same BinaryHeap<Reverse<(u64,
// u64)>> shape DsmReclaimer uses in shmem.rs, grounded here on
// datalog/storage/key_mask_iterator.go's interval-bookkeeping style.
type intervalHeap []interval

func (h intervalHeap) Len() int            { return len(h) }
func (h intervalHeap) Less(i, j int) bool  { return h[i].offset < h[j].offset }
func (h intervalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *intervalHeap) Push(x interface{}) { *h = append(*h, x.(interval)) }
func (h *intervalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// reclaimer advances a ring's committed read position as out-of-order
// frees (driven by ShmLease.Close, possibly in a different order than
// they were issued) become contiguous with what's already been
// reclaimed, then publishes the new read_pos and wakes the writer.
type reclaimer struct {
	mu               sync.Mutex
	ring             ringBufferHeader
	committedReadPos uint64
	pending          intervalHeap
	onAdvance        func() // signals the remote writer; nil-safe
	detached         bool
}

func newReclaimer(ring ringBufferHeader, onAdvance func()) *reclaimer {
	r := &reclaimer{ring: ring, committedReadPos: ring.readPos(), onAdvance: onAdvance}
	heap.Init(&r.pending)
	return r
}

// detach stops the reclaimer from touching shared memory — used once the
// backing Region is about to be unmapped out from under it.
func (r *reclaimer) detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detached = true
}

// markFreed records that [offset, offset+length) is no longer needed,
// coalescing it (and any other pending frees) into committedReadPos while
// the intervals stay contiguous, then commits the result.
func (r *reclaimer) markFreed(offset, length uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detached {
		return
	}

	heap.Push(&r.pending, interval{offset: offset, length: length})

	for len(r.pending) > 0 && r.pending[0].offset == r.committedReadPos {
		next := heap.Pop(&r.pending).(interval)
		r.committedReadPos += next.length
	}

	r.ring.storeReadPos(r.committedReadPos)
	if r.onAdvance != nil {
		r.onAdvance()
	}
}

// Lease is a refcounted handle on a pinned span of a Region's data ring.
// Closing it returns the span to the reclaimer; holding it alive defers
// reclamation, mirroring ShmLease's Drop-triggered mark_freed in
// shmem.rs, grounded on datalog/storage/batch_iterator.go's
// handle-with-explicit-Close() pattern.
type Lease struct {
	offset    uint64
	length    uint64
	reclaimer *reclaimer
	closed    bool
}

// Bytes returns the leased span's view of the underlying data buffer.
// The caller must not retain it past Close.
func (l *Lease) Bytes(buf []byte, capacity int) []byte {
	offset := int(l.offset) % capacity
	if offset+int(l.length) <= capacity {
		return buf[offset : offset+int(l.length)]
	}
	out := make([]byte, l.length)
	first := capacity - offset
	copy(out[:first], buf[offset:])
	copy(out[first:], buf[0:int(l.length)-first])
	return out
}

// Close releases the lease, making its span eligible for reuse once it
// (and any earlier still-outstanding leases) have coalesced into the
// committed read position. Close is idempotent.
func (l *Lease) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.reclaimer.markFreed(l.offset, l.length)
	return nil
}
