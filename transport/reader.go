package transport

import (
	"errors"
	"fmt"
)

// ErrEOF is returned by ReadForStream once the writer has both signalled
// Finish and every frame for that stream has drained — distinct from
// ErrWouldBlock, which just means "nothing new yet".
var ErrEOF = errors.New("transport: stream drained")

type streamQueue struct {
	frames []Frame
}

// Frame is one demultiplexed message: either real payload bytes (Lease
// non-nil when zero-copy) or the zero-length end-of-stream marker
// (Payload nil, Lease nil).
type Frame struct {
	Payload []byte
	Lease   *Lease
}

// Reader demultiplexes one Region's main data ring into per-stream
// message queues, and writes start_stream/cancel_stream control frames
// back to the writer over the reverse control ring, per shmem.rs's
// MultiplexedDsmReader.
type Reader struct {
	data       frameRing
	control    frameRing
	reclaimer  *reclaimer
	localRead  uint64
	streams    map[PhysicalStreamID]*streamQueue
	bridge     Signaler
	remote     ParticipantID
}

// NewReader binds a Reader to region's data ring, with remote signalled
// whenever a control message (start/cancel) is sent.
func NewReader(region *Region, bridge Signaler, remote ParticipantID) *Reader {
	dataRing := region.dataRing()
	r := &Reader{
		data:    frameRing{header: dataRing, buf: region.dataBuf()},
		control: frameRing{header: region.controlRing(), buf: region.controlBuf()},
		bridge:  bridge,
		remote:  remote,
		streams: make(map[PhysicalStreamID]*streamQueue),
	}
	r.localRead = dataRing.readPos()
	r.reclaimer = newReclaimer(dataRing, func() { _ = bridge.Signal(remote) })
	return r
}

// Detach stops the reclaimer from touching the region's shared memory,
// for use just before the backing Region is unmapped.
func (r *Reader) Detach() { r.reclaimer.detach() }

// ReadForStream pulls the next frame belonging to streamID, reading and
// demultiplexing new physical frames from the ring as needed. It returns
// ErrWouldBlock if no complete frame is available yet and the writer
// hasn't finished, or ErrEOF once the stream's close marker has been
// consumed. When forceCopy is true, zero-copy leasing is disabled and the
// payload is always a private copy — used to break a lifetime dependency
// on the shared region (e.g. before handing rows to a long-lived cache).
func (r *Reader) ReadForStream(streamID PhysicalStreamID, forceCopy bool) (Frame, error) {
	q := r.streams[streamID]
	if q == nil {
		q = &streamQueue{}
		r.streams[streamID] = q
	}
	if len(q.frames) > 0 {
		f := q.frames[0]
		q.frames = q.frames[1:]
		if f.Payload == nil && f.Lease == nil {
			return Frame{}, ErrEOF
		}
		return f, nil
	}

	for {
		writePos := r.data.header.writePos()
		available := int(writePos - r.localRead)
		if available == 0 {
			if r.data.header.isFinished() {
				return Frame{}, ErrEOF
			}
			return Frame{}, ErrWouldBlock
		}
		if available < frameHeaderSize {
			return Frame{}, ErrWouldBlock
		}

		var hdr [frameHeaderSize]byte
		r.data.rawReadAt(r.localRead, hdr[:])
		msgStreamID := PhysicalStreamID(getUint32(hdr[0:4]))
		msgLen := int(getUint32(hdr[4:8]))
		padding := framePadding(msgLen)
		totalLen := frameHeaderSize + msgLen + padding

		if available < totalLen {
			return Frame{}, ErrWouldBlock
		}

		offset := int(r.localRead) % r.data.capacity()
		contiguous := offset+totalLen <= r.data.capacity()

		var frame Frame
		switch {
		case msgLen == 0:
			r.reclaimer.markFreed(r.localRead, uint64(totalLen))
			frame = Frame{}
		case !forceCopy && contiguous:
			lease := &Lease{offset: r.localRead + frameHeaderSize, length: uint64(msgLen), reclaimer: r.reclaimer}
			payloadOffset := (offset + frameHeaderSize) % r.data.capacity()
			frame = Frame{Payload: r.data.buf[payloadOffset : payloadOffset+msgLen], Lease: lease}
			// The header and padding are never leased out; reclaim them immediately.
			r.reclaimer.markFreed(r.localRead, frameHeaderSize)
			if padding > 0 {
				r.reclaimer.markFreed(r.localRead+frameHeaderSize+uint64(msgLen), uint64(padding))
			}
		default:
			payload := make([]byte, msgLen)
			r.data.rawReadAt(r.localRead+frameHeaderSize, payload)
			r.reclaimer.markFreed(r.localRead, uint64(totalLen))
			frame = Frame{Payload: payload}
		}
		r.localRead += uint64(totalLen)

		if msgStreamID == streamID {
			if msgLen == 0 {
				return Frame{}, ErrEOF
			}
			return frame, nil
		}
		other := r.streams[msgStreamID]
		if other == nil {
			other = &streamQueue{}
			r.streams[msgStreamID] = other
		}
		other.frames = append(other.frames, frame)
	}
}

// StartStream asks the writer to begin producing frames for streamID.
func (r *Reader) StartStream(streamID PhysicalStreamID) error {
	return r.sendControl(ControlStartStream, streamID, nil)
}

// CancelStream asks the writer to stop producing frames for streamID.
func (r *Reader) CancelStream(streamID PhysicalStreamID) error {
	return r.sendControl(ControlCancelStream, streamID, nil)
}

// SendControlMessageVariable sends an application-defined, length-prefixed
// control message; msgType must be >= 128 to distinguish it from the
// fixed-width start/cancel messages.
func (r *Reader) SendControlMessageVariable(msgType byte, payload []byte) error {
	if msgType < 128 {
		return fmt.Errorf("transport: variable control message type must be >= 128, got %d", msgType)
	}
	total := 1 + 4 + len(payload)
	if r.control.availableSpace() < total {
		return ErrWouldBlock
	}
	var lenBuf [4]byte
	putUint32(lenBuf[:], uint32(len(payload)))
	r.control.rawWrite([]byte{msgType})
	r.control.rawWrite(lenBuf[:])
	r.control.rawWrite(payload)
	return r.bridge.Signal(r.remote)
}

func (r *Reader) sendControl(msgType byte, streamID PhysicalStreamID, _ []byte) error {
	if r.control.availableSpace() < 5 {
		return ErrWouldBlock
	}
	var idBuf [4]byte
	putUint32(idBuf[:], uint32(streamID))
	r.control.rawWrite([]byte{msgType})
	r.control.rawWrite(idBuf[:])
	return r.bridge.Signal(r.remote)
}
