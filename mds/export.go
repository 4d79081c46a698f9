package mds

import (
	"github.com/user/chunkstream-blue/logger"
)

const (
	// ProtocolFloorMTU is the minimum MTU the protocol guarantees
	ProtocolFloorMTU = 23

	// chunkOverhead is the per-notification overhead: 3-byte transport
	// header plus the 1-byte chunk header.
	chunkOverhead = 4

	// SequenceModulus bounds the rolling chunk sequence counter
	SequenceModulus = 32

	// sequenceMask extracts the 5 sequence bits of the chunk header
	sequenceMask = 0x1F
)

// ExportState is the live flow-control state of the export session.
// Invariants: ExportEnabled implies Subscribed; Subscriber is InvalidConn
// exactly when Subscribed is false; Sequence stays in [0, 32).
type ExportState struct {
	Subscribed    bool
	Subscriber    ConnID
	ExportEnabled bool
	Sequence      uint8
	MTU           uint16
	Congested     bool
}

func newExportState() ExportState {
	return ExportState{
		Subscriber: InvalidConn,
		MTU:        ProtocolFloorMTU,
	}
}

// pump attempts to send exactly one chunk notification. It never sends a
// second chunk on its own: the next attempt is driven by the transport's
// confirmation event, which bounds the number of chunks in flight to one.
func (s *Service) pump() {
	st := &s.export
	if !st.ExportEnabled || !st.Subscribed || st.Congested {
		return
	}

	handle, ok := s.registry.Handle(TagDataExport)
	if !ok {
		// Unreachable once the service is started, and a subscription
		// cannot exist before that.
		logger.Error(logPrefix, "export characteristic has no registered handle")
		return
	}

	maxPayload := int(st.MTU) - chunkOverhead
	data, ok := s.source.NextChunk(maxPayload)
	if !ok {
		logger.Info(logPrefix, "chunk source drained, disabling export")
		st.ExportEnabled = false
		return
	}

	// Chunk header: bits 0-4 carry the sequence number, bits 5-7 reserved.
	payload := make([]byte, 0, 1+len(data))
	payload = append(payload, st.Sequence&sequenceMask)
	payload = append(payload, data...)

	if err := s.transport.SendNotification(st.Subscriber, handle, payload); err != nil {
		logger.Warn(logPrefix, "notification submit failed, aborting chunk: %v", err)
		s.source.AbortChunk()
		return
	}

	logger.Debug(logPrefix, "sent chunk %d, %d bytes", st.Sequence, len(data))
	st.Sequence = (st.Sequence + 1) % SequenceModulus
}

func (s *Service) onMTUChanged(ev MTUChanged) {
	if ev.MTU < ProtocolFloorMTU {
		logger.Warn(logPrefix, "ignoring MTU %d below protocol floor", ev.MTU)
		return
	}
	logger.Info(logPrefix, "MTU for conn %d negotiated to %d", ev.Conn, ev.MTU)
	// Takes effect on the next pump; no pump is triggered here.
	s.export.MTU = ev.MTU
}

func (s *Service) onCongestion(ev Congestion) {
	was := s.export.Congested
	s.export.Congested = ev.Congested
	logger.Debug(logPrefix, "congestion: %v", ev.Congested)

	// Only the clearing edge resumes the stream.
	if was && !ev.Congested && s.export.ExportEnabled {
		s.pump()
	}
}

func (s *Service) onConfirmation(Confirmation) {
	if s.export.ExportEnabled {
		s.pump()
	}
}
