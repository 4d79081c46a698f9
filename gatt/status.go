package gatt

import "fmt"

// Status is an ATT status code carried in responses
// (Bluetooth Core Spec v5.3 Vol 3, Part F, Section 3.4.1.1)
type Status uint8

const (
	StatusSuccess                     Status = 0x00
	StatusInvalidHandle               Status = 0x01
	StatusReadNotPermitted            Status = 0x02
	StatusWriteNotPermitted           Status = 0x03
	StatusInvalidPDU                  Status = 0x04
	StatusRequestNotSupported         Status = 0x06
	StatusAttributeNotFound           Status = 0x0A
	StatusInvalidAttributeValueLength Status = 0x0D
	StatusUnlikelyError               Status = 0x0E
	StatusInsufficientResources       Status = 0x11

	// Application error codes occupy 0x80 - 0x9F; profiles assign meaning.
	StatusApplicationErrorStart Status = 0x80
	StatusApplicationErrorEnd   Status = 0x9F
)

var statusNames = map[Status]string{
	StatusSuccess:                     "Success",
	StatusInvalidHandle:               "Invalid Handle",
	StatusReadNotPermitted:            "Read Not Permitted",
	StatusWriteNotPermitted:           "Write Not Permitted",
	StatusInvalidPDU:                  "Invalid PDU",
	StatusRequestNotSupported:         "Request Not Supported",
	StatusAttributeNotFound:           "Attribute Not Found",
	StatusInvalidAttributeValueLength: "Invalid Attribute Value Length",
	StatusUnlikelyError:               "Unlikely Error",
	StatusInsufficientResources:       "Insufficient Resources",
}

// OK reports whether the status is the success code
func (s Status) OK() bool {
	return s == StatusSuccess
}

// String returns a human-readable name for the status code
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s >= StatusApplicationErrorStart && s <= StatusApplicationErrorEnd {
		return fmt.Sprintf("Application Error (0x%02X)", uint8(s))
	}
	return fmt.Sprintf("Unknown Error (0x%02X)", uint8(s))
}
