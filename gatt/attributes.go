package gatt

import (
	"fmt"
	"sync"
)

// Characteristic Properties (bitmask)
const (
	PropBroadcast            = 0x01
	PropRead                 = 0x02
	PropWriteWithoutResponse = 0x04
	PropWrite                = 0x08
	PropNotify               = 0x10
	PropIndicate             = 0x20
)

// Attribute permissions (not transmitted over the air, server-side only)
const (
	PermReadable = 0x01
	PermWritable = 0x02
)

// Attribute represents a single GATT attribute with a handle
type Attribute struct {
	Handle      uint16 // ATT handle (1-based, 0x0000 is reserved)
	Type        []byte // UUID (2 or 16 bytes)
	Value       []byte // Current value
	Permissions uint8  // Read/Write permissions
}

// AttributeDatabase manages a GATT attribute table with handle-based access.
// The host stack owns one database per server and assigns handles in
// creation order.
type AttributeDatabase struct {
	mu         sync.RWMutex
	attributes map[uint16]*Attribute
	nextHandle uint16
}

// NewAttributeDatabase creates an empty attribute database
func NewAttributeDatabase() *AttributeDatabase {
	return &AttributeDatabase{
		attributes: make(map[uint16]*Attribute),
		nextHandle: 0x0001, // Handles start at 1
	}
}

// AddAttribute adds an attribute and assigns it the next handle
func (db *AttributeDatabase) AddAttribute(attrType []byte, value []byte, permissions uint8) uint16 {
	db.mu.Lock()
	defer db.mu.Unlock()

	handle := db.nextHandle
	db.nextHandle++

	db.attributes[handle] = &Attribute{
		Handle:      handle,
		Type:        append([]byte{}, attrType...), // Copy to avoid aliasing
		Value:       append([]byte{}, value...),
		Permissions: permissions,
	}

	return handle
}

// GetAttribute retrieves a copy of an attribute by handle
func (db *AttributeDatabase) GetAttribute(handle uint16) (*Attribute, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	attr, ok := db.attributes[handle]
	if !ok {
		return nil, fmt.Errorf("gatt: invalid handle 0x%04X", handle)
	}

	return &Attribute{
		Handle:      attr.Handle,
		Type:        append([]byte{}, attr.Type...),
		Value:       append([]byte{}, attr.Value...),
		Permissions: attr.Permissions,
	}, nil
}

// SetAttributeValue updates an attribute's value
func (db *AttributeDatabase) SetAttributeValue(handle uint16, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	attr, ok := db.attributes[handle]
	if !ok {
		return fmt.Errorf("gatt: invalid handle 0x%04X", handle)
	}

	attr.Value = append([]byte{}, value...)
	return nil
}

// FindByType returns the lowest handle whose attribute type matches the
// given UUID, scanning in handle order.
func (db *AttributeDatabase) FindByType(attrType []byte) (uint16, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for h := uint16(0x0001); h < db.nextHandle; h++ {
		attr, ok := db.attributes[h]
		if ok && bytesEqual(attr.Type, attrType) {
			return h, true
		}
	}
	return 0, false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Count returns the number of attributes in the database
func (db *AttributeDatabase) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.attributes)
}

// NextHandle returns the handle the next added attribute would receive
func (db *AttributeDatabase) NextHandle() uint16 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.nextHandle
}
