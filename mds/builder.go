package mds

import (
	"github.com/user/chunkstream-blue/logger"
)

// Attribute table construction is a fixed, non-retrying chain: each step is
// a one-time negotiation with the host stack, and any failure leaves the
// service permanently unstarted at that step.

func (s *Service) onRegistered(ev Registered) {
	if s.phase != phaseIdle {
		logger.Warn(logPrefix, "unexpected registration completion in phase %d", s.phase)
		return
	}
	if !ev.Status.OK() {
		// Fatal: the transport identity could not be established.
		logger.Error(logPrefix, "application registration failed: %v", ev.Status)
		s.phase = phaseFailed
		return
	}

	logger.Info(logPrefix, "registered, creating service (%d attribute slots)", s.desc.TotalSlots())
	if err := s.transport.CreateService(s.desc.UUID, s.desc.TotalSlots()); err != nil {
		logger.Error(logPrefix, "create service rejected: %v", err)
		s.phase = phaseFailed
		return
	}
	s.phase = phaseAwaitService
}

func (s *Service) onServiceCreated(ev ServiceCreated) {
	if s.phase != phaseAwaitService {
		logger.Warn(logPrefix, "unexpected service creation completion in phase %d", s.phase)
		return
	}
	if !ev.Status.OK() {
		logger.Error(logPrefix, "service creation failed: %v", ev.Status)
		s.phase = phaseFailed
		return
	}

	s.serviceHandle = ev.ServiceHandle
	s.nextChar = 0
	s.phase = phaseAddingCharacteristics
	logger.Debug(logPrefix, "service created, handle 0x%04X", ev.ServiceHandle)
	s.submitNextCharacteristic()
}

func (s *Service) onCharacteristicAdded(ev CharacteristicAdded) {
	if s.phase != phaseAddingCharacteristics {
		logger.Warn(logPrefix, "unexpected characteristic completion in phase %d", s.phase)
		return
	}
	if !ev.Status.OK() {
		logger.Error(logPrefix, "adding characteristic %v failed: %v", ev.Tag, ev.Status)
		s.phase = phaseFailed
		return
	}

	if err := s.registry.Set(ev.Tag, ev.AttrHandle); err != nil {
		logger.Error(logPrefix, "registering characteristic handle: %v", err)
		s.phase = phaseFailed
		return
	}
	logger.Debug(logPrefix, "characteristic %v added, handle 0x%04X", ev.Tag, ev.AttrHandle)

	s.nextChar++
	if s.nextChar < len(s.desc.Characteristics) {
		s.submitNextCharacteristic()
		return
	}

	// Last characteristic done; create its subscription-control descriptor.
	if err := s.transport.AddDescriptor(s.serviceHandle, s.desc.DescriptorUUID, descriptorPermissions); err != nil {
		logger.Error(logPrefix, "add descriptor rejected: %v", err)
		s.phase = phaseFailed
		return
	}
	s.phase = phaseAwaitDescriptor
}

func (s *Service) onDescriptorAdded(ev DescriptorAdded) {
	if s.phase != phaseAwaitDescriptor {
		logger.Warn(logPrefix, "unexpected descriptor completion in phase %d", s.phase)
		return
	}
	if !ev.Status.OK() {
		logger.Error(logPrefix, "adding descriptor failed: %v", ev.Status)
		s.phase = phaseFailed
		return
	}

	if err := s.registry.SetDescriptor(ev.AttrHandle); err != nil {
		logger.Error(logPrefix, "registering descriptor handle: %v", err)
		s.phase = phaseFailed
		return
	}
	logger.Debug(logPrefix, "descriptor added, handle 0x%04X", ev.AttrHandle)

	if err := s.transport.StartService(s.serviceHandle); err != nil {
		logger.Error(logPrefix, "start service rejected: %v", err)
		s.phase = phaseFailed
		return
	}
	s.phase = phaseAwaitStart
}

func (s *Service) onServiceStarted(ev ServiceStarted) {
	if s.phase != phaseAwaitStart {
		logger.Warn(logPrefix, "unexpected service start completion in phase %d", s.phase)
		return
	}
	if !ev.Status.OK() {
		logger.Error(logPrefix, "service start failed: %v", ev.Status)
		s.phase = phaseFailed
		return
	}

	s.phase = phaseStarted
	logger.Info(logPrefix, "service started")
}

func (s *Service) submitNextCharacteristic() {
	def := s.desc.Characteristics[s.nextChar]
	if err := s.transport.AddCharacteristic(s.serviceHandle, def); err != nil {
		logger.Error(logPrefix, "add characteristic %v rejected: %v", def.Tag, err)
		s.phase = phaseFailed
	}
}
