package wire

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/chunkstream-blue/gatt"
	"github.com/user/chunkstream-blue/mds"
)

// Response is the completion of a read or write request
type Response struct {
	TxID   uint32
	Status gatt.Status
	Value  []byte
}

// Notification is one unacknowledged value push from the peripheral
type Notification struct {
	Handle uint16
	Value  []byte
}

// Central simulates one connected central peer. Its methods run on the
// caller's goroutine and exchange data with the peripheral through the
// stack's dispatch queue, mirroring how a remote device would.
type Central struct {
	stack        *Stack
	hardwareUUID string
	conn         mds.ConnID
	mtu          uint16

	responses     chan Response
	notifications chan Notification
}

// Connect attaches a new simulated central to the stack
func (s *Stack) Connect() *Central {
	s.mu.Lock()
	c := &Central{
		stack:         s,
		hardwareUUID:  uuid.NewString(),
		conn:          s.nextConn,
		mtu:           DefaultMTU,
		responses:     make(chan Response, 8),
		notifications: make(chan Notification, notificationBufferSize),
	}
	s.nextConn++
	s.conns[c.conn] = c
	s.mu.Unlock()

	s.emit(mds.Connected{Conn: c.conn})
	return c
}

// ConnID returns the connection identifier assigned by the stack
func (c *Central) ConnID() mds.ConnID {
	return c.conn
}

// Disconnect tears the connection down with the given reason code
func (c *Central) Disconnect(reason uint8) {
	c.stack.mu.Lock()
	delete(c.stack.conns, c.conn)
	c.stack.mu.Unlock()

	c.stack.emit(mds.Disconnected{Conn: c.conn, Reason: reason})
}

// ExchangeMTU renegotiates the connection MTU, clamped to MaxMTU
func (c *Central) ExchangeMTU(mtu uint16) {
	if mtu > MaxMTU {
		mtu = MaxMTU
	}
	c.stack.mu.Lock()
	c.mtu = mtu
	c.stack.mu.Unlock()

	c.stack.emit(mds.MTUChanged{Conn: c.conn, MTU: mtu})
}

// Read requests the value of an attribute and waits for the response
func (c *Central) Read(handle uint16) (Response, error) {
	tx := c.stack.txID()
	c.stack.emit(mds.ReadRequest{Conn: c.conn, TxID: tx, Handle: handle})
	return c.awaitResponse(tx)
}

// Write writes a value to an attribute and waits for the response
func (c *Central) Write(handle uint16, value []byte) (Response, error) {
	tx := c.stack.txID()
	c.stack.emit(mds.WriteRequest{Conn: c.conn, TxID: tx, Handle: handle, Value: append([]byte{}, value...)})
	return c.awaitResponse(tx)
}

func (c *Central) awaitResponse(tx uint32) (Response, error) {
	select {
	case resp := <-c.responses:
		if resp.TxID != tx {
			return Response{}, fmt.Errorf("wire: response for transaction %d, expected %d", resp.TxID, tx)
		}
		return resp, nil
	case <-time.After(2 * time.Second):
		return Response{}, fmt.Errorf("wire: timed out waiting for response to transaction %d", tx)
	}
}

// Notification waits up to timeout for the next notification
func (c *Central) Notification(timeout time.Duration) (Notification, error) {
	select {
	case n := <-c.notifications:
		return n, nil
	case <-time.After(timeout):
		return Notification{}, fmt.Errorf("wire: no notification within %v", timeout)
	}
}

// TryNotification returns a buffered notification without waiting
func (c *Central) TryNotification() (Notification, bool) {
	select {
	case n := <-c.notifications:
		return n, true
	default:
		return Notification{}, false
	}
}
