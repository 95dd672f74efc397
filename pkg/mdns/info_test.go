package mdns

import (
	"testing"

	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func sinkInfo() *ServiceInfo {
	return &ServiceInfo{
		Name:      "Sink",
		Type:      "_sink._tcp.local.",
		Port:      40124,
		Kind:      wire.KindActuator,
		Category:  wire.CategorySink,
		Transport: wire.TransportTCP,
		Properties: map[string]string{
			"is_on":                     "false",
			"water_consumed_in_litters": "0",
		},
		Addresses: []string{"192.168.1.43", "10.0.0.7"},
		TTL:       DefaultTTL,
	}
}

func TestRecords_Layout(t *testing.T) {
	info := sinkInfo()
	records := info.Records()

	// PTR first, then one A per address, SRV, TXT.
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}

	ptr, ok := records[0].Data.(wire.PTRRecord)
	if !ok {
		t.Fatalf("first record must be PTR, got %T", records[0].Data)
	}
	if ptr.DomainName != "Sink._sink._tcp.local." {
		t.Errorf("unexpected domain name %q", ptr.DomainName)
	}
	if records[0].CacheFlush {
		t.Error("PTR must not carry cache-flush")
	}

	for _, rec := range records[1:] {
		if !rec.CacheFlush {
			t.Errorf("%s record must carry cache-flush", rec.Type())
		}
		if rec.Name != "Sink._sink._tcp.local." {
			t.Errorf("additional record named %q", rec.Name)
		}
	}

	srv, ok := records[3].Data.(wire.SRVRecord)
	if !ok {
		t.Fatalf("fourth record must be SRV, got %T", records[3].Data)
	}
	if srv.Port != 40124 || srv.Instance != "Sink" || srv.Service != "_sink" {
		t.Errorf("SRV fields wrong: %+v", srv)
	}
}

func TestRecords_BuiltinTXTKeysWin(t *testing.T) {
	info := sinkInfo()
	// A device cannot shadow the reserved keys with its own properties.
	info.Properties["kind"] = "ACTUATOR_KIND_FAKE"
	info.Properties["category"] = "TOILET"

	records := info.Records()
	txt, ok := records[len(records)-1].Data.(wire.TXTRecord)
	if !ok {
		t.Fatalf("last record must be TXT, got %T", records[len(records)-1].Data)
	}

	if txt.Entries["kind"] != wire.KindActuator.String() {
		t.Errorf("kind entry shadowed: %q", txt.Entries["kind"])
	}
	if txt.Entries["category"] != wire.CategorySink.String() {
		t.Errorf("category entry shadowed: %q", txt.Entries["category"])
	}
}

func TestInfoFromRecords_RoundTrip(t *testing.T) {
	original := sinkInfo()

	infos := InfoFromRecords(original.Records())
	if len(infos) != 1 {
		t.Fatalf("expected 1 service, got %d", len(infos))
	}

	got := infos[0]
	if got.Name != original.Name || got.Type != original.Type {
		t.Errorf("identity lost: %q %q", got.Name, got.Type)
	}
	if got.Port != original.Port {
		t.Errorf("port lost: %d", got.Port)
	}
	if got.Kind != wire.KindActuator || got.Category != wire.CategorySink {
		t.Errorf("kind/category lost: %s %s", got.Kind, got.Category)
	}
	if got.Transport != wire.TransportTCP {
		t.Errorf("transport lost: %s", got.Transport)
	}
	if len(got.Addresses) != 2 {
		t.Errorf("addresses lost: %v", got.Addresses)
	}
	if got.Properties["is_on"] != "false" {
		t.Errorf("properties lost: %v", got.Properties)
	}
	if _, reserved := got.Properties["kind"]; reserved {
		t.Error("reserved TXT keys must not appear as properties")
	}
	if got.TTL != DefaultTTL {
		t.Errorf("ttl lost: %d", got.TTL)
	}
}

func TestInfoFromRecords_MinTTL(t *testing.T) {
	info := sinkInfo()
	records := info.Records()

	// A lower TTL on any grouped record caps the service's TTL.
	records[2].TTL = 30

	infos := InfoFromRecords(records)
	if len(infos) != 1 {
		t.Fatalf("expected 1 service, got %d", len(infos))
	}
	if infos[0].TTL != 30 {
		t.Errorf("expected the group minimum TTL 30, got %d", infos[0].TTL)
	}
}

func TestInfoFromRecords_MultipleServices(t *testing.T) {
	sink := sinkInfo()
	lamp := lampInfo("Light Lamp")

	records := append(sink.Records(), lamp.Records()...)
	infos := InfoFromRecords(records)
	if len(infos) != 2 {
		t.Fatalf("expected 2 services, got %d", len(infos))
	}
}
