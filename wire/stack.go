// Package wire simulates the BLE host stack the export service runs on.
// It owns the attribute database, assigns runtime handles, and delivers
// every transport event through a single dispatch goroutine, so the
// service's event handler is never entered concurrently.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/user/chunkstream-blue/gatt"
	"github.com/user/chunkstream-blue/logger"
	"github.com/user/chunkstream-blue/mds"
)

const logPrefix = "wire"

// Stack is a simulated host stack bound to one peripheral device. It
// implements mds.Transport: every request is accepted synchronously and
// completed asynchronously with an event on the dispatch queue.
type Stack struct {
	hardwareUUID string

	mu             sync.Mutex
	db             *gatt.AttributeDatabase
	registered     bool
	slotsRemaining int
	serviceHandle  uint16
	charDefs       map[uint16]mds.CharacteristicDef // value handle -> def
	started        bool
	advertising    bool
	congested      bool

	conns    map[mds.ConnID]*Central
	nextConn mds.ConnID
	nextTx   uint32

	handler func(mds.Event)
	events  chan any
	stop    chan struct{}
	done    chan struct{}
}

// flushEvent is an internal dispatch barrier, never seen by the handler
type flushEvent struct {
	flushed chan struct{}
}

// NewStack creates a stack for a fresh simulated device
func NewStack() *Stack {
	return &Stack{
		hardwareUUID: uuid.NewString(),
		db:           gatt.NewAttributeDatabase(),
		charDefs:     make(map[uint16]mds.CharacteristicDef),
		conns:        make(map[mds.ConnID]*Central),
		events:       make(chan any, eventQueueSize),
	}
}

// HardwareUUID returns the simulated device identity
func (s *Stack) HardwareUUID() string {
	return s.hardwareUUID
}

// SetEventHandler installs the application event handler. Must be called
// before Start.
func (s *Stack) SetEventHandler(h func(mds.Event)) {
	s.handler = h
}

// Start launches the dispatch goroutine
func (s *Stack) Start() error {
	if s.handler == nil {
		return errors.New("wire: no event handler installed")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.dispatchLoop()
	return nil
}

// Stop halts the dispatch goroutine and drops all connections
func (s *Stack) Stop() {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stop:
		s.mu.Unlock()
		return
	default:
		close(s.stop)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Stack) dispatchLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case ev := <-s.events:
			switch ev := ev.(type) {
			case flushEvent:
				close(ev.flushed)
			case mds.Event:
				logger.Trace(logPrefix, "dispatching %T", ev)
				s.handler(ev)
			}
		}
	}
}

// Flush blocks until every event queued before the call has been handled
func (s *Stack) Flush() {
	barrier := flushEvent{flushed: make(chan struct{})}
	select {
	case s.events <- barrier:
		select {
		case <-barrier.flushed:
		case <-s.stop:
		}
	case <-s.stop:
	}
}

// emit queues one event for serial dispatch. The queue is sized for the
// longest completion chain; overflow indicates a runaway sim and drops.
func (s *Stack) emit(ev mds.Event) {
	select {
	case s.events <- ev:
	default:
		logger.Warn(logPrefix, "event queue full, dropping %T", ev)
	}
}

// RegisterApp registers the application, completing with a Registered event
func (s *Stack) RegisterApp() {
	s.mu.Lock()
	s.registered = true
	s.mu.Unlock()
	s.emit(mds.Registered{Status: gatt.StatusSuccess})
}

// CreateService implements mds.Transport
func (s *Stack) CreateService(serviceUUID []byte, totalSlots int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registered {
		return errors.New("wire: application not registered")
	}
	if s.serviceHandle != 0 {
		return errors.New("wire: service already created")
	}
	if totalSlots < 1 {
		return fmt.Errorf("wire: invalid slot count %d", totalSlots)
	}

	s.slotsRemaining = totalSlots - 1
	handle := s.db.AddAttribute(gatt.UUIDPrimaryService, serviceUUID, gatt.PermReadable)
	s.serviceHandle = handle

	s.emit(mds.ServiceCreated{Status: gatt.StatusSuccess, ServiceHandle: handle})
	return nil
}

// AddCharacteristic implements mds.Transport. It creates the
// declaration/value pair and completes with the value handle, echoing the
// definition's tag.
func (s *Stack) AddCharacteristic(serviceHandle uint16, def mds.CharacteristicDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if serviceHandle != s.serviceHandle || s.serviceHandle == 0 {
		return fmt.Errorf("wire: unknown service handle 0x%04X", serviceHandle)
	}
	if s.slotsRemaining < 2 {
		// Container exhausted: completes with a failure status, the
		// request itself was well-formed.
		s.emit(mds.CharacteristicAdded{Status: gatt.StatusInsufficientResources, Tag: def.Tag})
		return nil
	}
	s.slotsRemaining -= 2

	// Declaration value: [properties][value handle LE][UUID]
	declValue := make([]byte, 3+len(def.UUID))
	declValue[0] = def.Properties
	binary.LittleEndian.PutUint16(declValue[1:3], s.db.NextHandle()+1)
	copy(declValue[3:], def.UUID)
	s.db.AddAttribute(gatt.UUIDCharacteristic, declValue, gatt.PermReadable)

	valueHandle := s.db.AddAttribute(def.UUID, nil, def.Permissions)
	s.charDefs[valueHandle] = def

	s.emit(mds.CharacteristicAdded{Status: gatt.StatusSuccess, Tag: def.Tag, AttrHandle: valueHandle})
	return nil
}

// AddDescriptor implements mds.Transport
func (s *Stack) AddDescriptor(serviceHandle uint16, descUUID []byte, permissions uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if serviceHandle != s.serviceHandle || s.serviceHandle == 0 {
		return fmt.Errorf("wire: unknown service handle 0x%04X", serviceHandle)
	}
	if s.slotsRemaining < 1 {
		s.emit(mds.DescriptorAdded{Status: gatt.StatusInsufficientResources})
		return nil
	}
	s.slotsRemaining--

	handle := s.db.AddAttribute(descUUID, []byte{0x00, 0x00}, permissions)
	s.emit(mds.DescriptorAdded{Status: gatt.StatusSuccess, AttrHandle: handle})
	return nil
}

// StartService implements mds.Transport
func (s *Stack) StartService(serviceHandle uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if serviceHandle != s.serviceHandle || s.serviceHandle == 0 {
		return fmt.Errorf("wire: unknown service handle 0x%04X", serviceHandle)
	}
	s.started = true
	s.emit(mds.ServiceStarted{Status: gatt.StatusSuccess})
	return nil
}

// SendNotification implements mds.Transport. The notification lands in the
// connection's local buffer; a Confirmation event fires once it is flushed
// to the peer.
func (s *Stack) SendNotification(conn mds.ConnID, handle uint16, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return errors.New("wire: service not started")
	}
	if s.congested {
		return errors.New("wire: transport congested")
	}
	central, ok := s.conns[conn]
	if !ok {
		return fmt.Errorf("wire: unknown connection %d", conn)
	}
	def, ok := s.charDefs[handle]
	if !ok || def.Properties&gatt.PropNotify == 0 {
		return fmt.Errorf("wire: handle 0x%04X is not notifiable", handle)
	}
	if len(value) > int(central.mtu)-notificationHeader {
		return fmt.Errorf("wire: notification of %d bytes exceeds MTU %d", len(value), central.mtu)
	}

	out := Notification{Handle: handle, Value: append([]byte{}, value...)}
	select {
	case central.notifications <- out:
	default:
		return errors.New("wire: notification buffer full")
	}

	s.emit(mds.Confirmation{})
	return nil
}

// SendResponse implements mds.Transport
func (s *Stack) SendResponse(conn mds.ConnID, txID uint32, status gatt.Status, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	central, ok := s.conns[conn]
	if !ok {
		return fmt.Errorf("wire: unknown connection %d", conn)
	}

	resp := Response{TxID: txID, Status: status, Value: append([]byte{}, value...)}
	select {
	case central.responses <- resp:
		return nil
	default:
		return fmt.Errorf("wire: response buffer full for connection %d", conn)
	}
}

// StartAdvertising implements mds.Transport
func (s *Stack) StartAdvertising() error {
	s.mu.Lock()
	s.advertising = true
	s.mu.Unlock()
	s.emit(mds.AdvertisingChanged{Advertising: true, Status: gatt.StatusSuccess})
	return nil
}

// StopAdvertising implements mds.Transport
func (s *Stack) StopAdvertising() error {
	s.mu.Lock()
	s.advertising = false
	s.mu.Unlock()
	s.emit(mds.AdvertisingChanged{Advertising: false, Status: gatt.StatusSuccess})
	return nil
}

// Advertising reports the current advertising state
func (s *Stack) Advertising() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advertising
}

// SetCongested toggles transport backpressure and notifies the service
func (s *Stack) SetCongested(congested bool) {
	s.mu.Lock()
	s.congested = congested
	s.mu.Unlock()
	s.emit(mds.Congestion{Congested: congested})
}

// FindHandleByType returns the first attribute handle with the given type
// UUID. Centrals use it as a stand-in for service discovery.
func (s *Stack) FindHandleByType(attrType []byte) (uint16, bool) {
	return s.db.FindByType(attrType)
}

func (s *Stack) txID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	return s.nextTx
}
