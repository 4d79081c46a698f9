// Package mds implements a diagnostic data export service on top of a
// connection-oriented attribute protocol: a central subscribes to the data
// export characteristic, enables export mode, and the service streams
// queued diagnostic data to it as sequenced, MTU-bounded chunks.
package mds

import "github.com/user/chunkstream-blue/gatt"

// CharTag identifies a characteristic by role, independent of the runtime
// handle the host stack assigns to it.
type CharTag int

const (
	TagSupportedFeatures CharTag = iota
	TagDeviceID
	TagDataURI
	TagAuthorization
	TagDataExport
)

var charTagNames = map[CharTag]string{
	TagSupportedFeatures: "supported-features",
	TagDeviceID:          "device-id",
	TagDataURI:           "data-uri",
	TagAuthorization:     "authorization",
	TagDataExport:        "data-export",
}

func (t CharTag) String() string {
	if name, ok := charTagNames[t]; ok {
		return name
	}
	return "unknown"
}

// CharacteristicDef declares one characteristic of the service
type CharacteristicDef struct {
	Tag         CharTag
	UUID        []byte
	Permissions uint8
	Properties  uint8
}

// Notifiable reports whether the characteristic supports notifications
func (d CharacteristicDef) Notifiable() bool {
	return d.Properties&gatt.PropNotify != 0
}

// ServiceDescriptor is the compile-time shape of the service: an ordered
// list of characteristics plus one subscription-control descriptor attached
// to the last, notifiable characteristic.
type ServiceDescriptor struct {
	UUID           []byte
	Characteristics []CharacteristicDef
	DescriptorUUID []byte
}

// TotalSlots returns the attribute container size the host stack must
// reserve: the service declaration, a declaration/value pair per
// characteristic, and one descriptor.
func (d ServiceDescriptor) TotalSlots() int {
	return 1 + 2*len(d.Characteristics) + 1
}

// Diagnostic export service UUIDs. The characteristic UUIDs share the
// service base with the third byte counting up from 1.
var (
	ServiceUUID           = gatt.MustParseUUID128("54220000-f6a5-4007-a371-722f4ebd8436")
	UUIDSupportedFeatures = gatt.MustParseUUID128("54220001-f6a5-4007-a371-722f4ebd8436")
	UUIDDeviceID          = gatt.MustParseUUID128("54220002-f6a5-4007-a371-722f4ebd8436")
	UUIDDataURI           = gatt.MustParseUUID128("54220003-f6a5-4007-a371-722f4ebd8436")
	UUIDAuthorization     = gatt.MustParseUUID128("54220004-f6a5-4007-a371-722f4ebd8436")
	UUIDDataExport        = gatt.MustParseUUID128("54220005-f6a5-4007-a371-722f4ebd8436")
)

// descriptorPermissions applies to the subscription-control descriptor:
// centrals both read and write it.
const descriptorPermissions = gatt.PermReadable | gatt.PermWritable

// DefaultDescriptor returns the diagnostic export service layout: four
// read-only identity characteristics followed by the write/notify data
// export characteristic carrying the subscription-control descriptor.
func DefaultDescriptor() ServiceDescriptor {
	return ServiceDescriptor{
		UUID: ServiceUUID,
		Characteristics: []CharacteristicDef{
			{Tag: TagSupportedFeatures, UUID: UUIDSupportedFeatures, Permissions: gatt.PermReadable, Properties: gatt.PropRead},
			{Tag: TagDeviceID, UUID: UUIDDeviceID, Permissions: gatt.PermReadable, Properties: gatt.PropRead},
			{Tag: TagDataURI, UUID: UUIDDataURI, Permissions: gatt.PermReadable, Properties: gatt.PropRead},
			{Tag: TagAuthorization, UUID: UUIDAuthorization, Permissions: gatt.PermReadable, Properties: gatt.PropRead},
			{Tag: TagDataExport, UUID: UUIDDataExport, Permissions: gatt.PermWritable, Properties: gatt.PropWrite | gatt.PropNotify},
		},
		DescriptorUUID: gatt.UUIDClientCharacteristicConfig,
	}
}

// Values holds the static readable characteristic values
type Values struct {
	SupportedFeatures []byte
	DeviceID          string
	DataURI           string
	Authorization     string
}
