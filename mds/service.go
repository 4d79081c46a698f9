package mds

import (
	"github.com/user/chunkstream-blue/logger"
)

const logPrefix = "mds"

// buildPhase tracks how far the one-time attribute table construction has
// progressed. Any setup failure parks the phase at phaseFailed; the service
// then stays permanently unstarted.
type buildPhase int

const (
	phaseIdle buildPhase = iota
	phaseAwaitService
	phaseAddingCharacteristics
	phaseAwaitDescriptor
	phaseAwaitStart
	phaseStarted
	phaseFailed
)

// Service owns the full state of one diagnostic export service instance:
// the build cursor, the handle registry, and the export flow-control state.
// All mutation happens inside HandleEvent, which the host stack must call
// from a single dispatch goroutine.
type Service struct {
	transport Transport
	source    ChunkSource
	desc      ServiceDescriptor
	values    Values

	registry      *HandleRegistry
	serviceHandle uint16

	phase    buildPhase
	nextChar int // index of the next characteristic to submit

	export ExportState
}

// NewService creates a service around the given host stack transport and
// chunk source. Nothing is submitted to the transport until the Registered
// event arrives.
func NewService(transport Transport, source ChunkSource, desc ServiceDescriptor, values Values) *Service {
	return &Service{
		transport: transport,
		source:    source,
		desc:      desc,
		values:    values,
		registry:  NewHandleRegistry(),
		phase:     phaseIdle,
		export:    newExportState(),
	}
}

// Started reports whether the attribute table is built and the service is
// live.
func (s *Service) Started() bool {
	return s.phase == phaseStarted
}

// ExportState returns a snapshot of the current export flow-control state.
func (s *Service) ExportState() ExportState {
	return s.export
}

// HandleEvent consumes one transport event. Events must be delivered
// serially; the host stack's dispatch loop is the only caller.
func (s *Service) HandleEvent(ev Event) {
	switch ev := ev.(type) {
	case Registered:
		s.onRegistered(ev)
	case ServiceCreated:
		s.onServiceCreated(ev)
	case CharacteristicAdded:
		s.onCharacteristicAdded(ev)
	case DescriptorAdded:
		s.onDescriptorAdded(ev)
	case ServiceStarted:
		s.onServiceStarted(ev)
	case Connected:
		logger.Info(logPrefix, "connection %d established", ev.Conn)
	case Disconnected:
		s.onDisconnected(ev)
	case ReadRequest:
		s.onRead(ev)
	case WriteRequest:
		s.onWrite(ev)
	case MTUChanged:
		s.onMTUChanged(ev)
	case Congestion:
		s.onCongestion(ev)
	case Confirmation:
		s.onConfirmation(ev)
	case AdvertisingChanged:
		if !ev.Status.OK() {
			logger.Error(logPrefix, "advertising change failed: %v", ev.Status)
		} else if ev.Advertising {
			logger.Info(logPrefix, "advertising started")
		} else {
			logger.Info(logPrefix, "advertising stopped")
		}
	default:
		logger.Warn(logPrefix, "unhandled event %T", ev)
	}
}

func (s *Service) onDisconnected(ev Disconnected) {
	logger.Info(logPrefix, "connection %d closed, reason 0x%02X", ev.Conn, ev.Reason)

	// Clean slate for the next connection: subscription, export mode,
	// sequence counter and MTU all revert to their initial values.
	s.export = newExportState()

	if err := s.transport.StartAdvertising(); err != nil {
		logger.Error(logPrefix, "failed to restart advertising: %v", err)
	}
}
