package mdns

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"
)

const (
	// MulticastIP is the discovery group every participant joins.
	MulticastIP = "224.0.0.251"
	// MulticastPort is the UDP port of the discovery group.
	MulticastPort = 5369
)

// Transport is the datagram plane the engine speaks over. The production
// implementation is the multicast socket; tests substitute an in-memory hub.
type Transport interface {
	// Send writes one datagram to the group.
	Send(p []byte) error
	// Recv blocks for the next datagram, honoring the read deadline.
	Recv(p []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// multicastTransport is a UDP socket joined to the discovery group with
// address and port reuse enabled, so several participants coexist on one
// host. The same socket sends and receives.
type multicastTransport struct {
	conn  *net.UDPConn
	group *net.UDPAddr
}

// NewMulticastTransport opens the shared multicast socket.
func NewMulticastTransport() (Transport, error) {
	group := &net.UDPAddr{IP: net.ParseIP(MulticastIP), Port: MulticastPort}

	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
				if opErr != nil {
					return
				}
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}

	packetConn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", MulticastPort))
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	conn, ok := packetConn.(*net.UDPConn)
	if !ok {
		_ = packetConn.Close()
		return nil, fmt.Errorf("unexpected packet conn type %T", packetConn)
	}

	if err := conn.SetReadBuffer(64 * 1024); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set read buffer: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(nil, &net.UDPAddr{IP: group.IP}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join multicast group %s: %w", MulticastIP, err)
	}
	// Loopback delivery is required so participants on the same host see
	// each other; the engine's self-echo ring discards our own packets.
	if err := pc.SetMulticastLoopback(true); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable multicast loopback: %w", err)
	}

	return &multicastTransport{conn: conn, group: group}, nil
}

func (t *multicastTransport) Send(p []byte) error {
	_, err := t.conn.WriteToUDP(p, t.group)
	return err
}

func (t *multicastTransport) Recv(p []byte) (int, net.Addr, error) {
	return t.conn.ReadFromUDP(p)
}

func (t *multicastTransport) SetReadDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *multicastTransport) Close() error {
	return t.conn.Close()
}
