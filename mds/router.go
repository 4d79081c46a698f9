package mds

import (
	"encoding/binary"

	"github.com/user/chunkstream-blue/gatt"
	"github.com/user/chunkstream-blue/logger"
)

// Application-level status codes, in the ATT application error range
const (
	StatusInvalidLength     gatt.Status = 0x80
	StatusAlreadySubscribed gatt.Status = 0x81
	StatusNotSubscribed     gatt.Status = 0x82
)

// Export mode byte values accepted by the data export characteristic
const (
	exportModeDisabled byte = 0x00
	exportModeEnabled  byte = 0x01
)

// subscribeBit is bit 0 of the 2-byte subscription-control bitmask
const subscribeBit = 0x0001

func (s *Service) onRead(ev ReadRequest) {
	logger.Debug(logPrefix, "read request, conn %d handle 0x%04X", ev.Conn, ev.Handle)

	tag, ok := s.registry.Tag(ev.Handle)
	if !ok {
		s.respond(ev.Conn, ev.TxID, gatt.StatusInvalidHandle, nil)
		return
	}

	var value []byte
	switch tag {
	case TagSupportedFeatures:
		value = s.values.SupportedFeatures
	case TagDeviceID:
		value = []byte(s.values.DeviceID)
	case TagDataURI:
		value = []byte(s.values.DataURI)
	case TagAuthorization:
		value = []byte(s.values.Authorization)
	default:
		// The export characteristic is write/notify only.
		s.respond(ev.Conn, ev.TxID, gatt.StatusInvalidHandle, nil)
		return
	}

	s.respond(ev.Conn, ev.TxID, gatt.StatusSuccess, value)
}

func (s *Service) onWrite(ev WriteRequest) {
	logger.Debug(logPrefix, "write request, conn %d handle 0x%04X len %d", ev.Conn, ev.Handle, len(ev.Value))

	if handle, ok := s.registry.Handle(TagDataExport); ok && handle == ev.Handle {
		s.writeExportControl(ev)
		return
	}
	if handle, ok := s.registry.Descriptor(); ok && handle == ev.Handle {
		s.writeSubscriptionControl(ev)
		return
	}

	s.respond(ev.Conn, ev.TxID, gatt.StatusInvalidHandle, nil)
}

// writeExportControl toggles export mode. A single byte: 0 disables,
// 1 enables. Only the current subscriber may toggle it.
func (s *Service) writeExportControl(ev WriteRequest) {
	if len(ev.Value) != 1 {
		s.respond(ev.Conn, ev.TxID, StatusInvalidLength, nil)
		return
	}
	if !s.export.Subscribed {
		s.respond(ev.Conn, ev.TxID, StatusNotSubscribed, nil)
		return
	}

	mode := ev.Value[0]
	if mode != exportModeDisabled && mode != exportModeEnabled {
		s.respond(ev.Conn, ev.TxID, gatt.StatusInvalidPDU, nil)
		return
	}

	s.export.ExportEnabled = mode == exportModeEnabled
	s.respond(ev.Conn, ev.TxID, gatt.StatusSuccess, nil)
	logger.Info(logPrefix, "export mode set to %d by conn %d", mode, ev.Conn)

	if s.export.ExportEnabled {
		s.pump()
	}
}

// writeSubscriptionControl handles the 2-byte little-endian
// subscription-control bitmask. At most one connection may hold the
// subscription; exclusivity is enforced here and nowhere else.
func (s *Service) writeSubscriptionControl(ev WriteRequest) {
	if len(ev.Value) != 2 {
		s.respond(ev.Conn, ev.TxID, StatusInvalidLength, nil)
		return
	}

	mask := binary.LittleEndian.Uint16(ev.Value)
	subscribe := mask&subscribeBit != 0

	if subscribe && s.export.Subscribed && s.export.Subscriber != ev.Conn {
		s.respond(ev.Conn, ev.TxID, StatusAlreadySubscribed, nil)
		return
	}

	s.export.Subscribed = subscribe
	if subscribe {
		s.export.Subscriber = ev.Conn
		logger.Info(logPrefix, "conn %d subscribed", ev.Conn)
	} else {
		s.export.Subscriber = InvalidConn
		s.export.ExportEnabled = false
		logger.Info(logPrefix, "conn %d unsubscribed", ev.Conn)
	}

	s.respond(ev.Conn, ev.TxID, gatt.StatusSuccess, nil)
}

func (s *Service) respond(conn ConnID, txID uint32, status gatt.Status, value []byte) {
	if !status.OK() {
		logger.Debug(logPrefix, "responding to conn %d with %v", conn, status)
	}
	if err := s.transport.SendResponse(conn, txID, status, value); err != nil {
		logger.Error(logPrefix, "failed to send response to conn %d: %v", conn, err)
	}
}
