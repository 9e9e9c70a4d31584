package transport

import (
	"sync/atomic"
	"unsafe"
)

// ringBufferHeader is a thin, non-owning view over 32 bytes of a Region's
// backing memory: magic (u64) | write_pos (u64, atomic) | read_pos (u64,
// atomic) | finished (u64, atomic). It mirrors RingBufferHeader in
// shmem.rs; Go can't place sync/atomic fields at an arbitrary mmap
// offset the way Rust places AtomicU64 structs, so each accessor instead
// reinterprets 8 bytes of mem as a *uint64 and goes through the
// sync/atomic free functions, which is safe here because mmap always
// returns page-aligned (hence 8-byte-aligned) memory.
type ringBufferHeader struct {
	mem []byte
}

func (h ringBufferHeader) magicPtr() *uint64    { return (*uint64)(unsafe.Pointer(&h.mem[0])) }
func (h ringBufferHeader) writePosPtr() *uint64 { return (*uint64)(unsafe.Pointer(&h.mem[8])) }
func (h ringBufferHeader) readPosPtr() *uint64  { return (*uint64)(unsafe.Pointer(&h.mem[16])) }
func (h ringBufferHeader) finishedPtr() *uint64 { return (*uint64)(unsafe.Pointer(&h.mem[24])) }

func initRingBufferHeader(mem []byte) {
	h := ringBufferHeader{mem: mem}
	atomic.StoreUint64(h.magicPtr(), dsmMagic)
	atomic.StoreUint64(h.writePosPtr(), 0)
	atomic.StoreUint64(h.readPosPtr(), 0)
	atomic.StoreUint64(h.finishedPtr(), 0)
}

func (h ringBufferHeader) magic() uint64 { return atomic.LoadUint64(h.magicPtr()) }

func (h ringBufferHeader) writePos() uint64 { return atomic.LoadUint64(h.writePosPtr()) }
func (h ringBufferHeader) readPos() uint64  { return atomic.LoadUint64(h.readPosPtr()) }

func (h ringBufferHeader) addWritePos(n uint64) {
	atomic.AddUint64(h.writePosPtr(), n)
}

func (h ringBufferHeader) storeReadPos(v uint64) {
	atomic.StoreUint64(h.readPosPtr(), v)
}

func (h ringBufferHeader) isFinished() bool {
	return atomic.LoadUint64(h.finishedPtr()) == 1
}

func (h ringBufferHeader) markFinished() {
	atomic.StoreUint64(h.finishedPtr(), 1)
}
