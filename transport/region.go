// Package transport implements T: a multiplexed byte-stream channel over
// an anonymously-mmapped shared-memory region, plus the local-socket
// signal bridge that wakes a blocked reader when a writer makes progress.
// Grounded on
// original_source/pg_search/src/postgres/customscan/joinscan/transport/shmem.rs's
// ring buffer/multiplexer design, translated from its unsafe-pointer, Rust
// atomics version into Go's golang.org/x/sys/unix.Mmap plus sync/atomic,
// the way SnellerInc-sneller/vm/malloc_linux.go maps its own arena.
package transport

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// dsmMagic identifies an initialized ring buffer header; a mismatch means
// either uninitialized memory or corruption.
const dsmMagic uint64 = 0x5044425F44534D31 // "PDB_DSM1"

const ringBufferHeaderSize = 32 // magic + write_pos + read_pos + finished, all u64
const transportHeaderSize = 40  // ringBufferHeaderSize + control_offset (u64), 8-aligned

// Layout describes how many bytes a Region's main data channel and
// (optional) reverse control channel need, mirroring
// TransportLayout in shmem.rs.
type Layout struct {
	DataCapacity    int
	ControlCapacity int
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// ControlOffset is the byte offset from the region's base to the control
// ring's header.
func (l Layout) ControlOffset() int {
	return alignUp(transportHeaderSize+l.DataCapacity, 8)
}

// TotalSize is the number of bytes a Region needs to back this Layout.
func (l Layout) TotalSize() int {
	return l.ControlOffset() + ringBufferHeaderSize + l.ControlCapacity + 64
}

// Region is one anonymously-mmapped shared-memory arena carrying a main
// data ring and an optional reverse control ring. A real multi-process
// deployment would back this with a POSIX shm_open/mmap(MAP_SHARED)
// region instead of MAP_ANONYMOUS|MAP_PRIVATE; this core only needs a
// single growable arena per participant pair, so anonymous mmap is
// sufficient and keeps the Region self-contained for tests.
type Region struct {
	mem    []byte
	layout Layout
}

// NewRegion mmaps a fresh region sized for layout and initializes both
// ring headers.
func NewRegion(layout Layout) (*Region, error) {
	size := layout.TotalSize()
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("transport: mmap %d bytes: %w", size, err)
	}
	r := &Region{mem: mem, layout: layout}
	r.initHeaders()
	return r, nil
}

func (r *Region) initHeaders() {
	initRingBufferHeader(r.mem[0:ringBufferHeaderSize])
	binary.LittleEndian.PutUint64(r.mem[ringBufferHeaderSize:transportHeaderSize], uint64(r.layout.ControlOffset()))
	controlStart := r.layout.ControlOffset()
	initRingBufferHeader(r.mem[controlStart : controlStart+ringBufferHeaderSize])
}

// Close unmaps the region. Callers must ensure no Writer/Reader/Lease
// still references it.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	err := unix.Munmap(r.mem)
	r.mem = nil
	return err
}

func (r *Region) controlOffset() int {
	return int(binary.LittleEndian.Uint64(r.mem[ringBufferHeaderSize:transportHeaderSize]))
}

func (r *Region) dataRing() ringBufferHeader {
	return ringBufferHeader{mem: r.mem[0:ringBufferHeaderSize]}
}

func (r *Region) dataBuf() []byte {
	return r.mem[transportHeaderSize : transportHeaderSize+r.layout.DataCapacity]
}

func (r *Region) controlRing() ringBufferHeader {
	off := r.controlOffset()
	return ringBufferHeader{mem: r.mem[off : off+ringBufferHeaderSize]}
}

func (r *Region) controlBuf() []byte {
	off := r.controlOffset() + ringBufferHeaderSize
	return r.mem[off : off+r.layout.ControlCapacity]
}
