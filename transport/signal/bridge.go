// Package signal implements the local-socket signal bridge that wakes a
// blocked transport.Reader/Writer when its counterpart makes progress:
// one Unix-domain listener per participant, a 4-byte sender-id handshake,
// and non-blocking, best-effort signal bytes. Grounded on
// original_source/.../transport/shmem.rs's SignalBridge, adapted from its
// Tokio Waker registry to a condition-variable-backed Go wait/wake pair,
// and on SnellerInc-sneller/usock/conn.go's raw-socket-handling style.
package signal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ParticipantID identifies one participant's socket within a session.
type ParticipantID uint16

// Bridge is one participant's end of the signal mesh: it listens for
// incoming signals from every other participant and caches outgoing
// connections to them.
type Bridge struct {
	self      ParticipantID
	session   uuid.UUID
	listener  net.Listener
	closeOnce sync.Once

	mu       sync.Mutex
	outgoing map[ParticipantID]net.Conn

	cond      *sync.Cond
	condLock  sync.Mutex
	universal []uint64 // generation markers woken by any signal
	perSender map[ParticipantID]uint64
	gen       uint64
}

func socketPath(session uuid.UUID, id ParticipantID) string {
	return fmt.Sprintf("/tmp/pdb_mpp_%s_%d.sock", session, id)
}

// New binds this participant's listener and starts its accept loop.
// session must be shared by every participant in the mesh; self is this
// participant's own id.
func New(session uuid.UUID, self ParticipantID) (*Bridge, error) {
	path := socketPath(session, self)
	_ = os.Remove(path)

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("signal: listening on %s: %w", path, err)
	}

	b := &Bridge{
		self:      self,
		session:   session,
		listener:  l,
		outgoing:  make(map[ParticipantID]net.Conn),
		perSender: make(map[ParticipantID]uint64),
	}
	b.cond = sync.NewCond(&b.condLock)
	go b.acceptLoop()
	return b, nil
}

func (b *Bridge) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			return
		}
		go b.serve(conn)
	}
}

func (b *Bridge) serve(conn net.Conn) {
	defer conn.Close()

	var idBuf [4]byte
	if _, err := io.ReadFull(conn, idBuf[:]); err != nil {
		return
	}
	sender := ParticipantID(binary.LittleEndian.Uint32(idBuf[:]))

	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			b.wake(sender)
		}
		if err != nil {
			return
		}
	}
}

// wake bumps the generation counters any waiter on sender (or a universal
// waiter) is watching, then broadcasts so Wait returns.
func (b *Bridge) wake(sender ParticipantID) {
	b.condLock.Lock()
	b.gen++
	b.perSender[sender] = b.gen
	b.universal = append(b.universal, b.gen)
	b.cond.Broadcast()
	b.condLock.Unlock()
}

// Wait blocks until a signal from source has arrived since lastSeen (or,
// if source is nil, until any signal has arrived since lastSeen),
// returning the new generation to pass as lastSeen on the next call. This
// register-then-check-then-suspend shape — the caller re-reads state
// after Wait returns, rather than trusting the wake alone — avoids the
// race shmem.rs's poll_read_for_stream solves by registering its Waker
// before re-checking the ring.
func (b *Bridge) Wait(source *ParticipantID, lastSeen uint64) uint64 {
	b.condLock.Lock()
	defer b.condLock.Unlock()
	for {
		if source != nil {
			if g := b.perSender[*source]; g > lastSeen {
				return g
			}
		}
		if b.gen > lastSeen {
			return b.gen
		}
		b.cond.Wait()
	}
}

// Signal notifies target, establishing (and caching) a connection and
// performing the 4-byte handshake on first use. Signaling self resolves
// locally without touching a socket. Once connected, writes are
// non-blocking: a full kernel buffer means the target already has
// pending signals queued, so the write is silently dropped (event
// coalescing) rather than stalling the caller.
func (b *Bridge) Signal(target ParticipantID) error {
	if target == b.self {
		b.wake(b.self)
		return nil
	}

	b.mu.Lock()
	conn, ok := b.outgoing[target]
	b.mu.Unlock()

	if !ok {
		c, err := b.connect(target)
		if err != nil {
			return err
		}
		if c == nil {
			// Connection refused / not found yet: target isn't listening.
			// Safe to drop, matching shmem.rs's startup-race handling.
			return nil
		}
		conn = c
		b.mu.Lock()
		b.outgoing[target] = conn
		b.mu.Unlock()
	}

	if err := b.writeSignalByte(conn); err != nil {
		if isBrokenPipe(err) {
			b.mu.Lock()
			delete(b.outgoing, target)
			b.mu.Unlock()
			c, cerr := b.connect(target)
			if cerr != nil {
				return cerr
			}
			if c == nil {
				return nil
			}
			b.mu.Lock()
			b.outgoing[target] = c
			b.mu.Unlock()
			return b.writeSignalByte(c)
		}
		return err
	}
	return nil
}

func (b *Bridge) connect(target ParticipantID) (net.Conn, error) {
	path := socketPath(b.session, target)
	conn, err := net.Dial("unix", path)
	if err != nil {
		if errors.Is(err, unix.ECONNREFUSED) || errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("signal: connecting to %s: %w", path, err)
	}

	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], uint32(b.self))
	if _, err := conn.Write(idBuf[:]); err != nil {
		conn.Close()
		return nil, fmt.Errorf("signal: handshake to %s: %w", path, err)
	}
	return conn, nil
}

func (b *Bridge) writeSignalByte(conn net.Conn) error {
	_, err := conn.Write([]byte{1})
	if err != nil && isWouldBlock(err) {
		return nil
	}
	return err
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE) || errors.Is(err, net.ErrClosed)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN)
}

// Close releases the listener and every cached outgoing connection.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.listener.Close()
		b.mu.Lock()
		for _, c := range b.outgoing {
			c.Close()
		}
		b.outgoing = nil
		b.mu.Unlock()
	})
	return err
}
