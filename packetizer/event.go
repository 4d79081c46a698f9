package packetizer

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// EventKind classifies a diagnostic event
type EventKind string

const (
	KindHeartbeat EventKind = "heartbeat"
	KindTrace     EventKind = "trace"
	KindReboot    EventKind = "reboot"
)

// Event is one diagnostic record. Events are CBOR-encoded into queue
// messages; the export peer decodes them after reassembling chunks.
type Event struct {
	Kind       EventKind      `cbor:"1,keyasint"`
	CapturedAt time.Time      `cbor:"2,keyasint"`
	Attributes map[string]any `cbor:"3,keyasint,omitempty"`
}

// eventEncMode is the CBOR encoder mode for diagnostic events.
// Deterministic encoding so identical events produce identical bytes.
var eventEncMode cbor.EncMode

// eventDecMode is the CBOR decoder mode for diagnostic events.
var eventDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	eventEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}
	eventDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create event CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes
func EncodeEvent(event Event) ([]byte, error) {
	return eventEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := eventDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// EnqueueEvent encodes an event and appends it to the queue as one message
func (q *Queue) EnqueueEvent(event Event) error {
	data, err := EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("packetizer: encoding event: %w", err)
	}
	q.Enqueue(data)
	return nil
}
