package wire

// MTU limits - real BLE has a small default MTU
const (
	DefaultMTU = 23  // BLE 4.0 default: 23 bytes total, 20 bytes data + 3 byte header
	MaxMTU     = 512 // iOS/Android can negotiate up to 512

	// notificationHeader is the transport framing ahead of the payload
	notificationHeader = 3
)

// eventQueueSize bounds the serial dispatch queue. Completions chain off
// each other during setup, so the queue must hold a full build sequence.
const eventQueueSize = 128

// notificationBufferSize is the per-connection local notification buffer.
// A full buffer makes SendNotification fail, like a saturated controller.
const notificationBufferSize = 32
