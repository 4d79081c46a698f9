package gatt

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Well-known GATT UUIDs (16-bit, little-endian)
var (
	UUIDPrimaryService   = UUID16(0x2800)
	UUIDSecondaryService = UUID16(0x2801)
	UUIDCharacteristic   = UUID16(0x2803)

	// Client Characteristic Configuration Descriptor (0x2902)
	UUIDClientCharacteristicConfig = UUID16(0x2902)
)

// UUID16 creates a 16-bit UUID in little-endian format
func UUID16(val uint16) []byte {
	return []byte{byte(val), byte(val >> 8)}
}

// MustParseUUID128 converts a canonical UUID string
// ("54220000-f6a5-4007-a371-722f4ebd8436") into the 16-byte little-endian
// form used on the wire. Panics on malformed input; intended for
// compile-time service definitions only.
func MustParseUUID128(s string) []byte {
	clean := strings.ReplaceAll(s, "-", "")
	raw, err := hex.DecodeString(clean)
	if err != nil || len(raw) != 16 {
		panic(fmt.Sprintf("gatt: malformed 128-bit UUID %q", s))
	}

	// Canonical string form is big-endian; the wire carries little-endian.
	uuid := make([]byte, 16)
	for i := 0; i < 16; i++ {
		uuid[i] = raw[15-i]
	}
	return uuid
}

// IsUUID16 checks if a UUID is 16-bit (2 bytes)
func IsUUID16(uuid []byte) bool {
	return len(uuid) == 2
}

// IsUUID128 checks if a UUID is 128-bit (16 bytes)
func IsUUID128(uuid []byte) bool {
	return len(uuid) == 16
}

// UUIDToString converts a UUID byte slice to a lowercase hex string
func UUIDToString(uuid []byte) string {
	return fmt.Sprintf("%x", uuid)
}
