package mds

import "github.com/user/chunkstream-blue/gatt"

// Transport is the host stack boundary. Every call is asynchronous: a nil
// return means the request was accepted, and completion arrives later as an
// Event through HandleEvent.
type Transport interface {
	// CreateService reserves an attribute container of totalSlots
	// attributes and creates the service declaration.
	CreateService(serviceUUID []byte, totalSlots int) error

	// AddCharacteristic creates the declaration/value attribute pair for
	// one characteristic. The completion event echoes def.Tag.
	AddCharacteristic(serviceHandle uint16, def CharacteristicDef) error

	// AddDescriptor creates a descriptor under the most recently added
	// characteristic.
	AddDescriptor(serviceHandle uint16, uuid []byte, permissions uint8) error

	// StartService makes the service live and visible to centrals.
	StartService(serviceHandle uint16) error

	// SendNotification submits one unacknowledged notification. An error
	// return means the transport refused the submission outright.
	SendNotification(conn ConnID, handle uint16, value []byte) error

	// SendResponse answers a read or write request.
	SendResponse(conn ConnID, txID uint32, status gatt.Status, value []byte) error

	// StartAdvertising and StopAdvertising control discoverability.
	StartAdvertising() error
	StopAdvertising() error
}

// ChunkSource is the opaque byte producer the export pump pulls from.
// NextChunk is non-blocking: it returns up to maxLen bytes and true, or
// (nil, false) when no data is currently available. AbortChunk rewinds the
// most recent NextChunk so its bytes are served again, used when the
// transport refuses the notification carrying them.
type ChunkSource interface {
	NextChunk(maxLen int) ([]byte, bool)
	AbortChunk()
}
