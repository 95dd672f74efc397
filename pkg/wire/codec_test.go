package wire

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func announcementPacket() *Packet {
	return &Packet{
		TransactionID: 0xDEADBEEF,
		Timestamp:     1718000000123,
		Body: QueryResponse{
			Answers: []Record{
				{
					Name: "_lightlamp._tcp.local.",
					TTL:  4500,
					Data: PTRRecord{
						Name:       "_lightlamp._tcp.local.",
						DomainName: "Light Lamp._lightlamp._tcp.local.",
					},
				},
			},
			AdditionalRecords: []Record{
				{
					Name:       "Light Lamp._lightlamp._tcp.local.",
					TTL:        4500,
					CacheFlush: true,
					Data: ARecord{
						Name:    "Light Lamp._lightlamp._tcp.local.",
						Address: "192.168.1.42",
					},
				},
				{
					Name:       "Light Lamp._lightlamp._tcp.local.",
					TTL:        4500,
					CacheFlush: true,
					Data: SRVRecord{
						Name:     "Light Lamp",
						Protocol: TransportTCP,
						Service:  "_lightlamp",
						Instance: "Light Lamp",
						Port:     40123,
						Target:   "Light Lamp._lightlamp._tcp.local.",
					},
				},
				{
					Name:       "Light Lamp._lightlamp._tcp.local.",
					TTL:        4500,
					CacheFlush: true,
					Data: TXTRecord{
						Name: "Light Lamp._lightlamp._tcp.local.",
						Entries: map[string]string{
							"kind":       "ACTUATOR_KIND",
							"category":   "LIGHT_LAMP",
							"is_on":      "false",
							"brightness": "0",
						},
					},
				},
			},
		},
	}
}

func TestPacketRoundTrip_Announcement(t *testing.T) {
	p := announcementPacket()

	data, err := EncodePacket(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodePacket(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !reflect.DeepEqual(p, decoded) {
		t.Errorf("round trip mismatch:\n  sent: %+v\n  got:  %+v", p, decoded)
	}
}

func TestPacketRoundTrip_Query(t *testing.T) {
	p := &Packet{
		TransactionID: 7,
		Timestamp:     42,
		Body: QueryRequest{
			Questions: []Question{
				{Name: ServiceDiscoveryType, Type: RecordTypePTR},
				{Name: "_sink._tcp.local.", Type: RecordTypePTR},
			},
		},
	}

	data, err := EncodePacket(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodePacket(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(p, decoded) {
		t.Errorf("round trip mismatch: %+v != %+v", p, decoded)
	}
}

func TestPacketEncoding_Deterministic(t *testing.T) {
	p := announcementPacket()

	first, err := EncodePacket(p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := EncodePacket(p)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding is not deterministic on attempt %d", i)
		}
	}
}

func TestDecodePacket_Truncated(t *testing.T) {
	data, err := EncodePacket(announcementPacket())
	if err != nil {
		t.Fatal(err)
	}

	for n := 0; n < len(data); n++ {
		if _, err := DecodePacket(data[:n]); err == nil {
			t.Errorf("expected error decoding %d of %d bytes", n, len(data))
		}
	}
}

func TestDecodePacket_TrailingBytes(t *testing.T) {
	data, err := EncodePacket(announcementPacket())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := DecodePacket(append(data, 0xFF)); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestDecodePacket_UnknownBodyTag(t *testing.T) {
	data := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 99}
	if _, err := DecodePacket(data); err == nil {
		t.Error("expected error for unknown packet body tag")
	}
}

func TestRequestRoundTrip(t *testing.T) {
	on := true
	brightness := int32(75)
	color := int32(0xFFAA00)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty", EmptyRequest{}},
		{"list all", ListDevicesRequest{}},
		{"list filtered", ListDevicesRequest{Kind: KindActuator, Name: "lamp"}},
		{"light command", SendActuatorCommandRequest{
			DeviceID: "Light Lamp._lightlamp._tcp.local.",
			Action:   LightLampAction{TurnOn: &on, Brightness: &brightness, Color: &color},
		}},
		{"light partial", SendActuatorCommandRequest{
			DeviceID: "Light Lamp._lightlamp._tcp.local.",
			Action:   LightLampAction{Brightness: &brightness},
		}},
		{"sink command", SendActuatorCommandRequest{
			DeviceID: "Sink._sink._tcp.local.",
			Action:   SinkAction{TurnOn: &on},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeRequest(tt.req)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := DecodeRequest(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(tt.req, decoded) {
				t.Errorf("round trip mismatch: %+v != %+v", tt.req, decoded)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		resp Response
	}{
		{"empty", EmptyResponse{}},
		{"error", ErrorDetails{
			Code:     ErrorCodeDeviceOffline,
			Message:  "dial tcp: connection refused",
			Metadata: map[string]string{"address": "192.168.1.42:40123"},
		}},
		{"command ok", SendActuatorCommandResponse{Message: "Light turned ON."}},
		{"list", ListConnectedDevicesResponse{Devices: []ConnectedDevice{
			{
				ID:         "Sink._sink._tcp.local.",
				DeviceName: "Sink",
				Kind:       KindActuator,
				Category:   CategorySink,
				Status:     StatusOnline,
				Transport:  TransportTCP,
				Port:       40124,
				Addresses:  []string{"192.168.1.43"},
				Properties: map[string]string{"is_on": "false"},
			},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeResponse(tt.resp)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			decoded, err := DecodeResponse(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(tt.resp, decoded) {
				t.Errorf("round trip mismatch: %+v != %+v", tt.resp, decoded)
			}
		})
	}
}

func TestDecodeRequest_Truncated(t *testing.T) {
	on := true
	data, err := EncodeRequest(SendActuatorCommandRequest{
		DeviceID: "Sink._sink._tcp.local.",
		Action:   SinkAction{TurnOn: &on},
	})
	if err != nil {
		t.Fatal(err)
	}

	for n := 0; n < len(data); n++ {
		if _, err := DecodeRequest(data[:n]); err == nil {
			t.Errorf("expected error decoding %d of %d bytes", n, len(data))
		}
	}
}

func TestConnectedDeviceRoundTrip(t *testing.T) {
	d := &ConnectedDevice{
		ID:         "Inteligent Toilet._toilet._tcp.local.",
		DeviceName: "Inteligent Toilet",
		Kind:       KindSensor,
		Category:   CategoryToilet,
		Status:     StatusUnknown,
		Transport:  TransportTCP,
		Port:       50001,
		Addresses:  []string{"10.0.0.5", "192.168.1.5"},
		Properties: map[string]string{"clogged": "false", "flushed": "true"},
	}

	decoded, err := DecodeConnectedDevice(EncodeConnectedDevice(d))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(d, decoded) {
		t.Errorf("round trip mismatch: %+v != %+v", d, decoded)
	}
}
