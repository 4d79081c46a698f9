package mds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/user/chunkstream-blue/gatt"
)

// fakeTransport records every request the service submits. Completions are
// driven by the tests themselves, mirroring the host stack's async model.
type fakeTransport struct {
	createdSlots      []int
	addedChars        []CharTag
	addedDescriptors  int
	serviceStarts     int
	advertisingStarts int

	notifications []fakeNotification
	responses     []fakeResponse

	notifyErr error
}

type fakeNotification struct {
	conn   ConnID
	handle uint16
	value  []byte
}

type fakeResponse struct {
	conn   ConnID
	txID   uint32
	status gatt.Status
	value  []byte
}

func (f *fakeTransport) CreateService(serviceUUID []byte, totalSlots int) error {
	f.createdSlots = append(f.createdSlots, totalSlots)
	return nil
}

func (f *fakeTransport) AddCharacteristic(serviceHandle uint16, def CharacteristicDef) error {
	f.addedChars = append(f.addedChars, def.Tag)
	return nil
}

func (f *fakeTransport) AddDescriptor(serviceHandle uint16, uuid []byte, permissions uint8) error {
	f.addedDescriptors++
	return nil
}

func (f *fakeTransport) StartService(serviceHandle uint16) error {
	f.serviceStarts++
	return nil
}

func (f *fakeTransport) SendNotification(conn ConnID, handle uint16, value []byte) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifications = append(f.notifications, fakeNotification{conn, handle, append([]byte{}, value...)})
	return nil
}

func (f *fakeTransport) SendResponse(conn ConnID, txID uint32, status gatt.Status, value []byte) error {
	f.responses = append(f.responses, fakeResponse{conn, txID, status, append([]byte{}, value...)})
	return nil
}

func (f *fakeTransport) StartAdvertising() error {
	f.advertisingStarts++
	return nil
}

func (f *fakeTransport) StopAdvertising() error {
	return nil
}

func (f *fakeTransport) lastResponse(t *testing.T) fakeResponse {
	t.Helper()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1]
}

// bufferSource serves chunks from a fixed buffer with abort/rewind support
type bufferSource struct {
	data       []byte
	off        int
	chunkStart int
	aborts     int
}

func (b *bufferSource) NextChunk(maxLen int) ([]byte, bool) {
	if b.off >= len(b.data) || maxLen <= 0 {
		return nil, false
	}
	b.chunkStart = b.off
	n := len(b.data) - b.off
	if n > maxLen {
		n = maxLen
	}
	chunk := b.data[b.off : b.off+n]
	b.off += n
	return chunk, true
}

func (b *bufferSource) AbortChunk() {
	b.aborts++
	b.off = b.chunkStart
}

// Handles the fake build sequence assigns, in descriptor order
var (
	testServiceHandle = uint16(0x0001)
	testCharHandles   = []uint16{0x0003, 0x0005, 0x0007, 0x0009, 0x000B}
	testDescHandle    = uint16(0x000C)
)

func testValues() Values {
	return Values{
		SupportedFeatures: []byte{0x00},
		DeviceID:          "CSB-TEST-DEVICE",
		DataURI:           "https://chunks.memfault.com/api/v0/chunks/CSB-TEST-DEVICE",
		Authorization:     "Memfault-Project-Key:test-key",
	}
}

// driveBuild walks the service through a fully successful setup chain
func driveBuild(t *testing.T, svc *Service) {
	t.Helper()
	desc := DefaultDescriptor()

	svc.HandleEvent(Registered{Status: gatt.StatusSuccess})
	svc.HandleEvent(ServiceCreated{Status: gatt.StatusSuccess, ServiceHandle: testServiceHandle})
	for i, def := range desc.Characteristics {
		svc.HandleEvent(CharacteristicAdded{Status: gatt.StatusSuccess, Tag: def.Tag, AttrHandle: testCharHandles[i]})
	}
	svc.HandleEvent(DescriptorAdded{Status: gatt.StatusSuccess, AttrHandle: testDescHandle})
	svc.HandleEvent(ServiceStarted{Status: gatt.StatusSuccess})
	require.True(t, svc.Started())
}

func newStartedService(t *testing.T, ft *fakeTransport, source ChunkSource) *Service {
	t.Helper()
	svc := NewService(ft, source, DefaultDescriptor(), testValues())
	driveBuild(t, svc)
	return svc
}

var txCounter uint32

func subscribe(t *testing.T, svc *Service, ft *fakeTransport, conn ConnID) {
	t.Helper()
	txCounter++
	svc.HandleEvent(WriteRequest{Conn: conn, TxID: txCounter, Handle: testDescHandle, Value: []byte{0x01, 0x00}})
	require.Equal(t, gatt.StatusSuccess, ft.lastResponse(t).status)
}

func enableExport(t *testing.T, svc *Service, ft *fakeTransport, conn ConnID) {
	t.Helper()
	txCounter++
	svc.HandleEvent(WriteRequest{Conn: conn, TxID: txCounter, Handle: testCharHandles[4], Value: []byte{0x01}})
	require.Equal(t, gatt.StatusSuccess, ft.lastResponse(t).status)
}
