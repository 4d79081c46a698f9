package mds

import "github.com/user/chunkstream-blue/gatt"

// ConnID identifies one connection at the host stack
type ConnID uint16

// InvalidConn marks the absence of a subscriber
const InvalidConn ConnID = 0xFFFF

// Event is one transport event delivered by the host stack. Events arrive
// serially; no two events are ever handled concurrently. Each variant
// carries only the fields relevant to its kind.
type Event interface {
	isEvent()
}

// Registered completes application registration with the host stack
type Registered struct {
	Status gatt.Status
}

// ServiceCreated completes a CreateService request
type ServiceCreated struct {
	Status        gatt.Status
	ServiceHandle uint16
}

// CharacteristicAdded completes an AddCharacteristic request. Tag echoes
// the identity the request was submitted with, so completion dispatch never
// has to compare raw UUID bytes.
type CharacteristicAdded struct {
	Status     gatt.Status
	Tag        CharTag
	AttrHandle uint16
}

// DescriptorAdded completes an AddDescriptor request
type DescriptorAdded struct {
	Status     gatt.Status
	AttrHandle uint16
}

// ServiceStarted completes a StartService request
type ServiceStarted struct {
	Status gatt.Status
}

// Connected signals a new connection from a central
type Connected struct {
	Conn ConnID
}

// Disconnected signals that a connection was torn down
type Disconnected struct {
	Conn   ConnID
	Reason uint8
}

// ReadRequest asks for the current value of an attribute
type ReadRequest struct {
	Conn   ConnID
	TxID   uint32
	Handle uint16
}

// WriteRequest carries a client write to an attribute
type WriteRequest struct {
	Conn   ConnID
	TxID   uint32
	Handle uint16
	Value  []byte
}

// MTUChanged reports a renegotiated MTU for a connection
type MTUChanged struct {
	Conn ConnID
	MTU  uint16
}

// Congestion reports transport backpressure starting or clearing
type Congestion struct {
	Congested bool
}

// Confirmation fires once a previously submitted notification has left the
// local transport buffer. This is the sole pacing signal for chunk export;
// it says nothing about peer-level delivery.
type Confirmation struct{}

// AdvertisingChanged completes a start/stop advertising request
type AdvertisingChanged struct {
	Advertising bool
	Status      gatt.Status
}

func (Registered) isEvent()          {}
func (ServiceCreated) isEvent()      {}
func (CharacteristicAdded) isEvent() {}
func (DescriptorAdded) isEvent()     {}
func (ServiceStarted) isEvent()      {}
func (Connected) isEvent()           {}
func (Disconnected) isEvent()        {}
func (ReadRequest) isEvent()         {}
func (WriteRequest) isEvent()        {}
func (MTUChanged) isEvent()          {}
func (Congestion) isEvent()          {}
func (Confirmation) isEvent()        {}
func (AdvertisingChanged) isEvent()  {}
