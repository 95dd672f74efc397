package registry

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func fastRegistry() *Registry {
	r := New()
	r.ProbeInterval = 50 * time.Millisecond
	r.ProbeTimeout = 200 * time.Millisecond
	r.CommandTimeout = 500 * time.Millisecond
	r.EventBuffer = 64
	return r
}

func lampInfo(name string, port uint16, ttl uint32) *mdns.ServiceInfo {
	return &mdns.ServiceInfo{
		Name:       name,
		Type:       "_lightlamp._tcp.local.",
		Port:       port,
		Kind:       wire.KindActuator,
		Category:   wire.CategoryLightLamp,
		Transport:  wire.TransportTCP,
		Properties: map[string]string{"is_on": "false", "brightness": "0"},
		Addresses:  []string{"127.0.0.1"},
		TTL:        ttl,
	}
}

// announcement wraps a service's records in the packet the registry would
// receive off the wire.
func announcement(info *mdns.ServiceInfo) *wire.Packet {
	records := info.Records()
	return &wire.Packet{
		TransactionID: 1,
		Timestamp:     time.Now().UnixMilli(),
		Body: wire.QueryResponse{
			Answers:           records[:1],
			AdditionalRecords: records[1:],
		},
	}
}

func drainEvents(ch chan Event) []Event {
	var events []Event
	for {
		select {
		case evt := <-ch:
			events = append(events, evt)
		default:
			return events
		}
	}
}

func TestIngest_AddsEntry(t *testing.T) {
	r := fastRegistry()
	events := r.Subscribe()

	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 60)))

	entries := r.List(wire.KindUnknown, "")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ID != "Light Lamp._lightlamp._tcp.local." {
		t.Errorf("unexpected id %q", entry.ID)
	}
	if entry.Status != wire.StatusUnknown {
		t.Errorf("new entries must start Unknown, got %s", entry.Status)
	}
	if entry.Kind != wire.KindActuator || entry.Category != wire.CategoryLightLamp {
		t.Errorf("kind/category not mapped from TXT: %s / %s", entry.Kind, entry.Category)
	}
	if entry.Port != 40123 {
		t.Errorf("port not mapped from SRV: %d", entry.Port)
	}
	if len(entry.Addresses) != 1 || entry.Addresses[0] != "127.0.0.1" {
		t.Errorf("addresses not mapped from A records: %v", entry.Addresses)
	}
	if entry.Properties["is_on"] != "false" {
		t.Errorf("properties not mapped from TXT: %v", entry.Properties)
	}
	if _, reserved := entry.Properties["kind"]; reserved {
		t.Error("reserved TXT key leaked into properties")
	}
	if entry.ExpiresAt.Before(time.Now()) {
		t.Error("expires_at must be in the future")
	}

	got := drainEvents(events)
	if len(got) != 1 || got[0].Type != EventDeviceAdded {
		t.Fatalf("expected one device_added event, got %+v", got)
	}
	if got[0].Device.ID != entry.ID {
		t.Errorf("event snapshot has wrong id %q", got[0].Device.ID)
	}
}

func TestIngest_UnchangedAdvancesExpiryOnly(t *testing.T) {
	r := fastRegistry()

	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 60)))
	first, err := r.Get("Light Lamp._lightlamp._tcp.local.")
	if err != nil {
		t.Fatal(err)
	}

	events := r.Subscribe()
	time.Sleep(10 * time.Millisecond)
	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 60)))

	second, err := r.Get("Light Lamp._lightlamp._tcp.local.")
	if err != nil {
		t.Fatal(err)
	}

	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Error("unchanged re-announcement must advance expires_at")
	}
	if got := drainEvents(events); len(got) != 0 {
		t.Errorf("unchanged re-announcement must not emit events, got %+v", got)
	}
}

func TestIngest_PropertyChangeEmitsChanged(t *testing.T) {
	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 60)))

	events := r.Subscribe()

	updated := lampInfo("Light Lamp", 40123, 60)
	updated.Properties["is_on"] = "true"
	r.Ingest(announcement(updated))

	got := drainEvents(events)
	if len(got) != 1 || got[0].Type != EventDeviceChanged {
		t.Fatalf("expected one device_changed event, got %+v", got)
	}
	if got[0].Device.Properties["is_on"] != "true" {
		t.Errorf("event snapshot is stale: %v", got[0].Device.Properties)
	}
}

func TestIngest_GoodbyeRemoves(t *testing.T) {
	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 60)))

	events := r.Subscribe()

	goodbye := lampInfo("Light Lamp", 40123, 0)
	r.Ingest(announcement(goodbye))

	if entries := r.List(wire.KindUnknown, ""); len(entries) != 0 {
		t.Fatalf("goodbye must remove the entry, still have %d", len(entries))
	}

	got := drainEvents(events)
	if len(got) != 1 || got[0].Type != EventDeviceRemoved {
		t.Fatalf("expected one device_removed event, got %+v", got)
	}
}

func TestSweep_ExpiresEntries(t *testing.T) {
	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", 40123, 1)))

	events := r.Subscribe()

	time.Sleep(1100 * time.Millisecond)
	r.Sweep()

	if entries := r.List(wire.KindUnknown, ""); len(entries) != 0 {
		t.Fatal("entry must be removed once its TTL passes")
	}

	got := drainEvents(events)
	if len(got) != 1 || got[0].Type != EventDeviceRemoved {
		t.Fatalf("expected one device_removed event, got %+v", got)
	}
}

func TestSweep_ProbeStateMachine(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := uint16(listener.Addr().(*net.TCPAddr).Port)

	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", port, 60)))
	id := "Light Lamp._lightlamp._tcp.local."

	// Port open: Unknown -> Online.
	r.Sweep()
	entry, err := r.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != wire.StatusOnline {
		t.Fatalf("expected Online after a successful probe, got %s", entry.Status)
	}
	if entry.LastHealthOKAt.IsZero() {
		t.Error("last_health_ok_at must be set on probe success")
	}

	// Port closed: Online -> Offline.
	_ = listener.Close()
	r.Sweep()
	entry, err = r.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != wire.StatusOffline {
		t.Fatalf("expected Offline after a failed probe, got %s", entry.Status)
	}

	// Port open again: Offline -> Online.
	listener, err = net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", entry.Port))
	if err != nil {
		t.Skipf("could not rebind probe port: %v", err)
	}
	defer listener.Close()
	r.Sweep()
	entry, err = r.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != wire.StatusOnline {
		t.Fatalf("expected Online after the port reopened, got %s", entry.Status)
	}
}

func TestList_Filters(t *testing.T) {
	r := fastRegistry()

	lamp := lampInfo("Light Lamp", 40123, 60)
	r.Ingest(announcement(lamp))

	toilet := &mdns.ServiceInfo{
		Name:       "Inteligent Toilet",
		Type:       "_toilet._tcp.local.",
		Port:       40124,
		Kind:       wire.KindSensor,
		Category:   wire.CategoryToilet,
		Transport:  wire.TransportTCP,
		Properties: map[string]string{"clogged": "false"},
		Addresses:  []string{"127.0.0.1"},
		TTL:        60,
	}
	r.Ingest(announcement(toilet))

	if got := r.List(wire.KindUnknown, ""); len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got := r.List(wire.KindActuator, ""); len(got) != 1 || got[0].Category != wire.CategoryLightLamp {
		t.Errorf("actuator filter failed: %+v", got)
	}
	if got := r.List(wire.KindUnknown, "toilet"); len(got) != 1 || got[0].Category != wire.CategoryToilet {
		t.Errorf("case-insensitive name filter failed: %+v", got)
	}
	if got := r.List(wire.KindSensor, "lamp"); len(got) != 0 {
		t.Errorf("combined filters must intersect, got %+v", got)
	}

	// Stable order by id.
	got := r.List(wire.KindUnknown, "")
	if got[0].ID > got[1].ID {
		t.Errorf("list must be ordered by id: %q, %q", got[0].ID, got[1].ID)
	}
}

func TestSendActuatorCommand_NotFound(t *testing.T) {
	r := fastRegistry()

	on := true
	_, err := r.SendActuatorCommand(context.Background(), "ghost", wire.LightLampAction{TurnOn: &on})
	assertErrorCode(t, err, wire.ErrorCodeDeviceNotFound)
}

func TestSendActuatorCommand_RejectsSensors(t *testing.T) {
	r := fastRegistry()

	toilet := &mdns.ServiceInfo{
		Name:       "Inteligent Toilet",
		Type:       "_toilet._tcp.local.",
		Port:       40124,
		Kind:       wire.KindSensor,
		Category:   wire.CategoryToilet,
		Transport:  wire.TransportTCP,
		Properties: map[string]string{},
		Addresses:  []string{"127.0.0.1"},
		TTL:        60,
	}
	r.Ingest(announcement(toilet))

	on := true
	_, err := r.SendActuatorCommand(context.Background(), toilet.DomainName(), wire.SinkAction{TurnOn: &on})
	assertErrorCode(t, err, wire.ErrorCodeInvalidCommand)
}

func TestSendActuatorCommand_OfflineRejected(t *testing.T) {
	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", 1, 60))) // nothing listens on port 1

	// Drive the entry Offline first.
	r.Sweep()

	on := true
	_, err := r.SendActuatorCommand(context.Background(), "Light Lamp._lightlamp._tcp.local.", wire.LightLampAction{TurnOn: &on})
	assertErrorCode(t, err, wire.ErrorCodeDeviceOffline)
}

func TestSendActuatorCommand_UnreachableCarriesAddress(t *testing.T) {
	r := fastRegistry()
	// Status stays Unknown (no sweep), so dispatch is attempted and the
	// connect fails.
	r.Ingest(announcement(lampInfo("Light Lamp", 1, 60)))

	on := true
	_, err := r.SendActuatorCommand(context.Background(), "Light Lamp._lightlamp._tcp.local.", wire.LightLampAction{TurnOn: &on})

	var details wire.ErrorDetails
	if !asErrorDetails(err, &details) {
		t.Fatalf("expected ErrorDetails, got %v", err)
	}
	if details.Code != wire.ErrorCodeDeviceOffline {
		t.Fatalf("expected DEVICE_OFFLINE, got %s", details.Code)
	}
	if details.Metadata["address"] != "127.0.0.1:1" {
		t.Errorf("metadata must carry the attempted address, got %v", details.Metadata)
	}
}

func TestSendActuatorCommand_Success(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	port := uint16(listener.Addr().(*net.TCPAddr).Port)

	// Fake device: answer one framed command with a message.
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		req, err := wire.DecodeRequest(payload)
		if err != nil {
			return
		}
		cmd, ok := req.(wire.SendActuatorCommandRequest)
		if !ok {
			return
		}
		respBytes, _ := wire.EncodeResponse(wire.SendActuatorCommandResponse{
			Message: "Light turned ON for " + cmd.DeviceID,
		})
		_ = wire.WriteFrame(conn, respBytes)
	}()

	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", port, 60)))

	on := true
	message, err := r.SendActuatorCommand(context.Background(), "Light Lamp._lightlamp._tcp.local.", wire.LightLampAction{TurnOn: &on})
	if err != nil {
		t.Fatal(err)
	}
	if message != "Light turned ON for Light Lamp._lightlamp._tcp.local." {
		t.Errorf("unexpected message %q", message)
	}
}

func TestSendActuatorCommand_DeviceErrorPassesThrough(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer listener.Close()
	port := uint16(listener.Addr().(*net.TCPAddr).Port)

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		if _, err := wire.ReadFrame(conn); err != nil {
			return
		}
		respBytes, _ := wire.EncodeResponse(wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  "unsupported actuator command type",
			Metadata: map[string]string{"action": "sink"},
		})
		_ = wire.WriteFrame(conn, respBytes)
	}()

	r := fastRegistry()
	r.Ingest(announcement(lampInfo("Light Lamp", port, 60)))

	on := true
	_, err = r.SendActuatorCommand(context.Background(), "Light Lamp._lightlamp._tcp.local.", wire.SinkAction{TurnOn: &on})

	var details wire.ErrorDetails
	if !asErrorDetails(err, &details) {
		t.Fatalf("expected ErrorDetails, got %v", err)
	}
	if details.Code != wire.ErrorCodeInvalidCommand || details.Metadata["action"] != "sink" {
		t.Errorf("device error must surface unchanged, got %+v", details)
	}
}

func TestEventOverflow_DropsOldestAndResyncs(t *testing.T) {
	r := fastRegistry()
	r.EventBuffer = 2

	events := r.Subscribe()

	// Nobody reads; flood well past the buffer.
	for i := 0; i < 10; i++ {
		info := lampInfo("Light Lamp", 40123, 60)
		info.Properties["brightness"] = string(rune('0' + i))
		r.Ingest(announcement(info))
	}

	got := drainEvents(events)
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("queue must stay bounded at 2, got %d events", len(got))
	}

	// After draining, the pending resync is delivered with the next event.
	r.Ingest(announcement(lampInfo("Light Lamp", 40124, 60)))
	got = drainEvents(events)

	sawResync := false
	for _, evt := range got {
		if evt.Type == EventResync {
			sawResync = true
		}
	}
	if !sawResync {
		t.Error("a coalesced resync event must follow an overflow")
	}
}

func assertErrorCode(t *testing.T, err error, code wire.ErrorCode) {
	t.Helper()
	var details wire.ErrorDetails
	if !asErrorDetails(err, &details) {
		t.Fatalf("expected ErrorDetails, got %v", err)
	}
	if details.Code != code {
		t.Fatalf("expected %s, got %s", code, details.Code)
	}
}

func asErrorDetails(err error, target *wire.ErrorDetails) bool {
	if err == nil {
		return false
	}
	details, ok := err.(wire.ErrorDetails)
	if !ok {
		return false
	}
	*target = details
	return true
}
