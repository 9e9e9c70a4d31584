package transport

import (
	"fmt"
)

// Signaler wakes a remote participant after a producer makes progress
// it should know about. signal.Bridge implements this; Writer/Reader
// depend only on the interface so this package never imports the
// socket-handshake details.
type Signaler interface {
	Signal(target ParticipantID) error
}

// ControlFrame is one parsed message off a reverse control channel:
// start_stream/cancel_stream (type < 128, fixed 4-byte stream-id payload)
// or an application-defined variable message (type >= 128, length-prefixed).
type ControlFrame struct {
	Type    byte
	Payload []byte
}

const (
	ControlStartStream  byte = 0
	ControlCancelStream byte = 1
)

// Writer multiplexes many logical streams' frames into one Region's main
// data ring, and drains the reverse control ring the paired Reader uses
// to signal start/cancel, per shmem.rs's MultiplexedDsmWriter.
type Writer struct {
	data      frameRing
	control   frameRing
	bridge    Signaler
	remote    ParticipantID
	cancelled map[PhysicalStreamID]bool
}

// NewWriter binds a Writer to region's data ring for the given remote
// participant, who will be signaled after every write.
func NewWriter(region *Region, bridge Signaler, remote ParticipantID) *Writer {
	return &Writer{
		data:      frameRing{header: region.dataRing(), buf: region.dataBuf()},
		control:   frameRing{header: region.controlRing(), buf: region.controlBuf()},
		bridge:    bridge,
		remote:    remote,
		cancelled: make(map[PhysicalStreamID]bool),
	}
}

// WriteMessage frames and writes one payload for stream_id, then signals
// remote. Returns ErrWouldBlock if the ring doesn't currently have room
// for the whole framed message — callers should retry after remote's
// reader has drained more (the bridge will wake them).
func (w *Writer) WriteMessage(streamID PhysicalStreamID, payload []byte) error {
	if w.cancelled[streamID] {
		return fmt.Errorf("transport: stream %d is cancelled", streamID)
	}
	if err := w.data.writeFrame(streamID, payload); err != nil {
		return err
	}
	return w.bridge.Signal(w.remote)
}

// CloseStream writes the zero-length frame that marks one logical
// stream's end-of-stream to the reader.
func (w *Writer) CloseStream(streamID PhysicalStreamID) error {
	if w.cancelled[streamID] {
		return nil
	}
	if err := w.data.writeFrame(streamID, nil); err != nil {
		return err
	}
	return w.bridge.Signal(w.remote)
}

// Finish marks the whole ring finished: once the reader drains every
// frame already written, it will observe Eof instead of ErrWouldBlock.
func (w *Writer) Finish() error {
	w.data.header.markFinished()
	return w.bridge.Signal(w.remote)
}

// ReadControlFrames drains whatever complete control frames the reverse
// channel currently holds, applying any cancel_stream markers against
// future WriteMessage calls.
func (w *Writer) ReadControlFrames() ([]ControlFrame, error) {
	frames, err := readControlFrames(w.control)
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if f.Type == ControlCancelStream {
			w.cancelled[PhysicalStreamID(getUint32(f.Payload))] = true
		}
	}
	return frames, nil
}

func readControlFrames(ring frameRing) ([]ControlFrame, error) {
	var frames []ControlFrame
	pos := ring.header.readPos()
	limit := ring.header.writePos()
	for {
		avail := int(limit - pos)
		if avail < 1 {
			break
		}
		var typeByte [1]byte
		ring.rawReadAt(pos, typeByte[:])
		msgType := typeByte[0]

		payloadLen := 4
		headerLen := 1
		if msgType >= 128 {
			if avail < 5 {
				break
			}
			var lenBuf [4]byte
			ring.rawReadAt(pos+1, lenBuf[:])
			payloadLen = int(getUint32(lenBuf[:]))
			headerLen = 5
		}
		if avail < headerLen+payloadLen {
			break
		}
		payload := make([]byte, payloadLen)
		ring.rawReadAt(pos+uint64(headerLen), payload)
		frames = append(frames, ControlFrame{Type: msgType, Payload: payload})
		pos += uint64(headerLen + payloadLen)
	}
	if pos > ring.header.readPos() {
		ring.header.storeReadPos(pos)
	}
	return frames, nil
}
