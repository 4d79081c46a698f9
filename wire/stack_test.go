package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/user/chunkstream-blue/gatt"
	"github.com/user/chunkstream-blue/mds"
	"github.com/user/chunkstream-blue/packetizer"
)

func startServer(t *testing.T, source mds.ChunkSource) (*Stack, *mds.Service) {
	t.Helper()

	stack := NewStack()
	svc := mds.NewService(stack, source, mds.DefaultDescriptor(), mds.Values{
		SupportedFeatures: []byte{0x00},
		DeviceID:          "CSB-WIRE-TEST",
		DataURI:           "https://chunks.memfault.com/api/v0/chunks/CSB-WIRE-TEST",
		Authorization:     "Memfault-Project-Key:wire-test",
	})
	stack.SetEventHandler(svc.HandleEvent)

	if err := stack.Start(); err != nil {
		t.Fatalf("failed to start stack: %v", err)
	}
	t.Cleanup(stack.Stop)

	stack.RegisterApp()
	stack.Flush()
	if !svc.Started() {
		t.Fatal("service did not reach started state")
	}
	return stack, svc
}

func exportHandles(t *testing.T, stack *Stack) (exportHandle, cccdHandle uint16) {
	t.Helper()
	exportHandle, ok := stack.FindHandleByType(mds.UUIDDataExport)
	if !ok {
		t.Fatal("export characteristic not found in attribute database")
	}
	cccdHandle, ok = stack.FindHandleByType(gatt.UUIDClientCharacteristicConfig)
	if !ok {
		t.Fatal("subscription-control descriptor not found in attribute database")
	}
	return exportHandle, cccdHandle
}

func TestServiceSetupOverStack(t *testing.T) {
	stack, _ := startServer(t, packetizer.NewQueue())

	// Service declaration + 5 declaration/value pairs + CCCD = 12 slots.
	if got := stack.db.Count(); got != 12 {
		t.Fatalf("attribute database holds %d attributes, want 12", got)
	}

	exportHandle, cccdHandle := exportHandles(t, stack)
	if cccdHandle != exportHandle+1 {
		t.Fatalf("CCCD handle 0x%04X not adjacent to export value handle 0x%04X", cccdHandle, exportHandle)
	}
}

func TestReadIdentityOverStack(t *testing.T) {
	stack, _ := startServer(t, packetizer.NewQueue())
	central := stack.Connect()

	handle, ok := stack.FindHandleByType(mds.UUIDDeviceID)
	if !ok {
		t.Fatal("device-id characteristic not found")
	}

	resp, err := central.Read(handle)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !resp.Status.OK() {
		t.Fatalf("read status %v", resp.Status)
	}
	if string(resp.Value) != "CSB-WIRE-TEST" {
		t.Fatalf("unexpected device id %q", resp.Value)
	}
}

func TestExportSessionEndToEnd(t *testing.T) {
	queue := packetizer.NewQueue()
	payload := make([]byte, 50)
	for i := range payload {
		payload[i] = byte(i)
	}
	queue.Enqueue(payload)

	stack, svc := startServer(t, queue)
	exportHandle, cccdHandle := exportHandles(t, stack)
	central := stack.Connect()

	resp, err := central.Write(cccdHandle, []byte{0x01, 0x00})
	if err != nil || !resp.Status.OK() {
		t.Fatalf("subscribe failed: %v status %v", err, resp.Status)
	}

	resp, err = central.Write(exportHandle, []byte{0x01})
	if err != nil || !resp.Status.OK() {
		t.Fatalf("export enable failed: %v status %v", err, resp.Status)
	}

	// Confirmations pace the stream automatically: 19 + 19 + 12 bytes.
	var received []byte
	for i, wantLen := range []int{19, 19, 12} {
		n, err := central.Notification(time.Second)
		if err != nil {
			t.Fatalf("missing chunk %d: %v", i, err)
		}
		if n.Handle != exportHandle {
			t.Fatalf("chunk %d on handle 0x%04X, want 0x%04X", i, n.Handle, exportHandle)
		}
		if seq := n.Value[0] & 0x1F; seq != byte(i) {
			t.Fatalf("chunk %d carries sequence %d", i, seq)
		}
		if len(n.Value)-1 != wantLen {
			t.Fatalf("chunk %d carries %d bytes, want %d", i, len(n.Value)-1, wantLen)
		}
		received = append(received, n.Value[1:]...)
	}

	if !bytes.Equal(received, payload) {
		t.Fatal("reassembled stream differs from the queued message")
	}

	stack.Flush()
	if _, ok := central.TryNotification(); ok {
		t.Fatal("unexpected notification after source exhaustion")
	}
	if svc.ExportState().ExportEnabled {
		t.Fatal("export should auto-disable on exhaustion")
	}
	if !svc.ExportState().Subscribed {
		t.Fatal("subscription should survive exhaustion")
	}
}

func TestSubscriptionExclusivityOverStack(t *testing.T) {
	stack, _ := startServer(t, packetizer.NewQueue())
	_, cccdHandle := exportHandles(t, stack)

	first := stack.Connect()
	second := stack.Connect()

	resp, err := first.Write(cccdHandle, []byte{0x01, 0x00})
	if err != nil || !resp.Status.OK() {
		t.Fatalf("first subscribe failed: %v status %v", err, resp.Status)
	}

	resp, err = second.Write(cccdHandle, []byte{0x01, 0x00})
	if err != nil {
		t.Fatalf("second subscribe errored: %v", err)
	}
	if resp.Status != gatt.Status(0x81) {
		t.Fatalf("second subscribe status %v, want Application Error (0x81)", resp.Status)
	}
}

func TestCongestionWindowOverStack(t *testing.T) {
	queue := packetizer.NewQueue()
	queue.Enqueue(make([]byte, 40))

	stack, _ := startServer(t, queue)
	exportHandle, cccdHandle := exportHandles(t, stack)
	central := stack.Connect()

	if resp, err := central.Write(cccdHandle, []byte{0x01, 0x00}); err != nil || !resp.Status.OK() {
		t.Fatalf("subscribe failed: %v", err)
	}

	stack.SetCongested(true)
	stack.Flush()

	if resp, err := central.Write(exportHandle, []byte{0x01}); err != nil || !resp.Status.OK() {
		t.Fatalf("export enable failed: %v", err)
	}
	stack.Flush()
	if _, ok := central.TryNotification(); ok {
		t.Fatal("no chunk may be submitted while congested")
	}

	// Clearing the congestion resumes the stream to exhaustion.
	stack.SetCongested(false)
	for i := 0; i < 3; i++ {
		n, err := central.Notification(time.Second)
		if err != nil {
			t.Fatalf("missing chunk %d after congestion cleared: %v", i, err)
		}
		if seq := n.Value[0] & 0x1F; seq != byte(i) {
			t.Fatalf("chunk %d carries sequence %d", i, seq)
		}
	}
}

func TestMTURenegotiationOverStack(t *testing.T) {
	queue := packetizer.NewQueue()
	queue.Enqueue(make([]byte, 300))

	stack, _ := startServer(t, queue)
	exportHandle, cccdHandle := exportHandles(t, stack)
	central := stack.Connect()
	central.ExchangeMTU(185)

	if resp, err := central.Write(cccdHandle, []byte{0x01, 0x00}); err != nil || !resp.Status.OK() {
		t.Fatalf("subscribe failed: %v", err)
	}
	if resp, err := central.Write(exportHandle, []byte{0x01}); err != nil || !resp.Status.OK() {
		t.Fatalf("export enable failed: %v", err)
	}

	n, err := central.Notification(time.Second)
	if err != nil {
		t.Fatalf("missing first chunk: %v", err)
	}
	if len(n.Value) != 182 {
		t.Fatalf("chunk carries %d bytes, want 182 (MTU 185 - 3 transport header)", len(n.Value))
	}
}

func TestDisconnectResetsSessionOverStack(t *testing.T) {
	queue := packetizer.NewQueue()
	queue.Enqueue(make([]byte, 100))

	stack, svc := startServer(t, queue)
	exportHandle, cccdHandle := exportHandles(t, stack)

	central := stack.Connect()
	if resp, err := central.Write(cccdHandle, []byte{0x01, 0x00}); err != nil || !resp.Status.OK() {
		t.Fatalf("subscribe failed: %v", err)
	}
	if resp, err := central.Write(exportHandle, []byte{0x01}); err != nil || !resp.Status.OK() {
		t.Fatalf("export enable failed: %v", err)
	}
	if _, err := central.Notification(time.Second); err != nil {
		t.Fatalf("missing first chunk: %v", err)
	}

	central.Disconnect(0x13)
	stack.Flush()

	st := svc.ExportState()
	if st.Subscribed || st.ExportEnabled {
		t.Fatal("disconnect must clear subscription and export mode")
	}
	if st.Sequence != 0 || st.MTU != mds.ProtocolFloorMTU {
		t.Fatalf("disconnect must reset sequence and MTU, got seq %d mtu %d", st.Sequence, st.MTU)
	}
	if !stack.Advertising() {
		t.Fatal("advertising must restart after disconnect")
	}

	// A fresh central takes over cleanly.
	next := stack.Connect()
	if resp, err := next.Write(cccdHandle, []byte{0x01, 0x00}); err != nil || !resp.Status.OK() {
		t.Fatalf("re-subscribe failed: %v", err)
	}
}
