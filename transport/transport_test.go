package transport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSignaler struct {
	mu     sync.Mutex
	counts map[ParticipantID]int
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{counts: make(map[ParticipantID]int)}
}

func (f *fakeSignaler) Signal(target ParticipantID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[target]++
	return nil
}

func newTestRegion(t *testing.T, dataCapacity, controlCapacity int) *Region {
	t.Helper()
	r, err := NewRegion(Layout{DataCapacity: dataCapacity, ControlCapacity: controlCapacity})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestWriteReadRoundTrip(t *testing.T) {
	region := newTestRegion(t, 1024, 256)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	stream := NewPhysicalStreamID(7, 1)
	require.NoError(t, w.WriteMessage(stream, []byte("hello")))
	require.NoError(t, w.CloseStream(stream))

	frame, err := r.ReadForStream(stream, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), frame.Payload)
	if frame.Lease != nil {
		require.NoError(t, frame.Lease.Close())
	}

	_, err = r.ReadForStream(stream, false)
	assert.ErrorIs(t, err, ErrEOF)

	assert.Equal(t, 2, sig.counts[1])
}

func TestMultiplexingSeparatesStreams(t *testing.T) {
	region := newTestRegion(t, 4096, 256)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	streamA := NewPhysicalStreamID(1, 1)
	streamB := NewPhysicalStreamID(2, 1)

	require.NoError(t, w.WriteMessage(streamA, []byte("a-payload")))
	require.NoError(t, w.WriteMessage(streamB, []byte("b-payload")))
	require.NoError(t, w.WriteMessage(streamA, []byte("a-second")))

	fb, err := r.ReadForStream(streamB, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("b-payload"), fb.Payload)

	fa1, err := r.ReadForStream(streamA, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("a-payload"), fa1.Payload)

	fa2, err := r.ReadForStream(streamA, true)
	require.NoError(t, err)
	assert.Equal(t, []byte("a-second"), fa2.Payload)
}

func TestWrapAroundRoundTrip(t *testing.T) {
	region := newTestRegion(t, 64, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	stream := NewPhysicalStreamID(1, 1)
	payload := make([]byte, 24)
	for i := range payload {
		payload[i] = byte(i)
	}

	// Write/read/reclaim a few messages so write_pos and read_pos walk
	// past the ring boundary, forcing later frames to wrap.
	for i := 0; i < 6; i++ {
		require.NoError(t, w.WriteMessage(stream, payload))
		frame, err := r.ReadForStream(stream, true)
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, payload, frame.Payload)
	}
}

func TestForceCopyDisablesLease(t *testing.T) {
	region := newTestRegion(t, 1024, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	stream := NewPhysicalStreamID(1, 1)
	require.NoError(t, w.WriteMessage(stream, []byte("copy-me")))

	frame, err := r.ReadForStream(stream, true)
	require.NoError(t, err)
	assert.Nil(t, frame.Lease)
	assert.Equal(t, []byte("copy-me"), frame.Payload)
}

func TestWouldBlockWhenNoDataAndNotFinished(t *testing.T) {
	region := newTestRegion(t, 64, 64)
	sig := newFakeSignaler()
	r := NewReader(region, sig, 0)

	_, err := r.ReadForStream(NewPhysicalStreamID(1, 1), false)
	assert.ErrorIs(t, err, ErrWouldBlock)
}

func TestEofOnceFinishedAndDrained(t *testing.T) {
	region := newTestRegion(t, 64, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	require.NoError(t, w.Finish())
	_, err := r.ReadForStream(NewPhysicalStreamID(1, 1), false)
	assert.ErrorIs(t, err, ErrEOF)
}

func TestLeaseReclaimAdvancesReadPos(t *testing.T) {
	region := newTestRegion(t, 1024, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	stream := NewPhysicalStreamID(1, 1)
	require.NoError(t, w.WriteMessage(stream, []byte("payload-one")))
	require.NoError(t, w.WriteMessage(stream, []byte("payload-two")))

	frame1, err := r.ReadForStream(stream, false)
	require.NoError(t, err)
	frame2, err := r.ReadForStream(stream, false)
	require.NoError(t, err)

	before := region.dataRing().readPos()

	if frame2.Lease != nil {
		require.NoError(t, frame2.Lease.Close())
	}
	// Closing the later lease alone shouldn't advance read_pos past the
	// still-outstanding earlier lease: reclamation must stay contiguous.
	assert.Equal(t, before, region.dataRing().readPos())

	if frame1.Lease != nil {
		require.NoError(t, frame1.Lease.Close())
	}
	assert.Greater(t, region.dataRing().readPos(), before)
}

func TestCancelStreamStopsWriter(t *testing.T) {
	region := newTestRegion(t, 1024, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)
	r := NewReader(region, sig, 0)

	stream := NewPhysicalStreamID(1, 1)
	require.NoError(t, r.CancelStream(stream))

	frames, err := w.ReadControlFrames()
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, ControlCancelStream, frames[0].Type)

	err = w.WriteMessage(stream, []byte("too late"))
	assert.Error(t, err)
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	region := newTestRegion(t, 16, 64)
	sig := newFakeSignaler()
	w := NewWriter(region, sig, 1)

	err := w.WriteMessage(NewPhysicalStreamID(1, 1), make([]byte, 64))
	assert.Error(t, err)
}
