package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func TestExcluded(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"172.17.0.2", true},
		{"172.22.5.9", true},
		{"192.168.1.42", false},
		{"10.0.0.5", false},
		{"172.16.0.1", false},
		{"172.23.0.1", false},
	}

	for _, tt := range tests {
		if got := excluded(tt.ip); got != tt.want {
			t.Errorf("excluded(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestLocalIPv4Addresses_NoLoopback(t *testing.T) {
	for _, addr := range LocalIPv4Addresses() {
		if excluded(addr) {
			t.Errorf("advertised address %q should have been excluded", addr)
		}
		if net.ParseIP(addr) == nil || net.ParseIP(addr).To4() == nil {
			t.Errorf("advertised address %q is not IPv4", addr)
		}
	}
}

func TestSendRequest_Success(t *testing.T) {
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

		payload, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		if _, err := wire.DecodeRequest(payload); err != nil {
			return
		}
		respBytes, _ := wire.EncodeResponse(wire.SendActuatorCommandResponse{Message: "done"})
		_ = wire.WriteFrame(conn, respBytes)
	}()

	on := true
	resp, err := SendRequest(context.Background(), []string{"127.0.0.1"}, port, wire.SendActuatorCommandRequest{
		DeviceID: "Sink._sink._tcp.local.",
		Action:   wire.SinkAction{TurnOn: &on},
	}, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	cmdResp, ok := resp.(wire.SendActuatorCommandResponse)
	if !ok {
		t.Fatalf("expected SendActuatorCommandResponse, got %T", resp)
	}
	if cmdResp.Message != "done" {
		t.Errorf("unexpected message %q", cmdResp.Message)
	}
}

func TestSendRequest_TriesNextAddress(t *testing.T) {
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
		respBytes, _ := wire.EncodeResponse(wire.EmptyResponse{})
		_ = wire.WriteFrame(conn, respBytes)
	}()

	// The first address is unroutable fast enough with a short timeout;
	// the loopback address answers.
	resp, err := SendRequest(context.Background(), []string{"127.0.0.2", "127.0.0.1"}, port, wire.EmptyRequest{}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.(wire.EmptyResponse); !ok {
		t.Fatalf("expected EmptyResponse, got %T", resp)
	}
}

func TestSendRequest_AllUnreachable(t *testing.T) {
	_, err := SendRequest(context.Background(), []string{"127.0.0.1"}, 1, wire.EmptyRequest{}, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected error when nothing listens on the target port")
	}
}

func TestSendRequest_NoAddresses(t *testing.T) {
	_, err := SendRequest(context.Background(), nil, 8080, wire.EmptyRequest{}, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected error with no addresses to try")
	}
}
