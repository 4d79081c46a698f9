package mds

import "fmt"

// HandleRegistry maps characteristic tags to the runtime handles the host
// stack assigned during setup. Entries are write-once: the builder
// populates the registry before the service starts and the router only
// reads it afterwards.
type HandleRegistry struct {
	handles    map[CharTag]uint16
	tags       map[uint16]CharTag
	descHandle uint16
}

// NewHandleRegistry creates an empty registry
func NewHandleRegistry() *HandleRegistry {
	return &HandleRegistry{
		handles: make(map[CharTag]uint16),
		tags:    make(map[uint16]CharTag),
	}
}

// Set records the handle for a characteristic tag. Re-setting a tag or
// reusing a handle is a setup-phase bug and returns an error.
func (r *HandleRegistry) Set(tag CharTag, handle uint16) error {
	if existing, ok := r.handles[tag]; ok {
		return fmt.Errorf("mds: tag %v already registered with handle 0x%04X", tag, existing)
	}
	if existing, ok := r.tags[handle]; ok {
		return fmt.Errorf("mds: handle 0x%04X already registered for tag %v", handle, existing)
	}
	r.handles[tag] = handle
	r.tags[handle] = tag
	return nil
}

// Handle returns the runtime handle for a tag
func (r *HandleRegistry) Handle(tag CharTag) (uint16, bool) {
	h, ok := r.handles[tag]
	return h, ok
}

// Tag performs the reverse lookup used on inbound requests
func (r *HandleRegistry) Tag(handle uint16) (CharTag, bool) {
	t, ok := r.tags[handle]
	return t, ok
}

// SetDescriptor records the subscription-control descriptor handle
func (r *HandleRegistry) SetDescriptor(handle uint16) error {
	if r.descHandle != 0 {
		return fmt.Errorf("mds: descriptor already registered with handle 0x%04X", r.descHandle)
	}
	r.descHandle = handle
	return nil
}

// Descriptor returns the subscription-control descriptor handle
func (r *HandleRegistry) Descriptor() (uint16, bool) {
	return r.descHandle, r.descHandle != 0
}

// Complete reports whether every characteristic in the descriptor and the
// subscription-control descriptor have been registered.
func (r *HandleRegistry) Complete(desc ServiceDescriptor) bool {
	for _, def := range desc.Characteristics {
		if _, ok := r.handles[def.Tag]; !ok {
			return false
		}
	}
	return r.descHandle != 0
}
