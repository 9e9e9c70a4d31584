package transport

import "github.com/paradedb-core/searchcore/transport/signal"

// ParticipantID identifies one participant (leader or worker) in a
// multiplexed transport session. It is an alias of signal.ParticipantID
// so a *signal.Bridge satisfies Signaler directly, without a wrapper.
type ParticipantID = signal.ParticipantID

// LogicalStreamID identifies one logical exchange/shuffle in the plan;
// every sender participating in that exchange reuses the same value.
type LogicalStreamID uint16

// PhysicalStreamID packs a LogicalStreamID and the sending ParticipantID
// into one 32-bit key so a single physical ring buffer can carry many
// logical streams from many senders: high 16 bits logical id, low 16
// bits sender id, per shmem.rs's PhysicalStreamId.
type PhysicalStreamID uint32

// NewPhysicalStreamID packs logical and sender into one PhysicalStreamID.
func NewPhysicalStreamID(logical LogicalStreamID, sender ParticipantID) PhysicalStreamID {
	return PhysicalStreamID(uint32(logical)<<16 | uint32(sender)&0xFFFF)
}
