// Package tcp carries the framed request/response client used by the
// gateway to reach device endpoints, plus the address helpers shared by
// every participant.
package tcp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// excludedPrefixes filters loopback and container-bridge addresses out of
// the advertised set.
var excludedPrefixes = []string{
	"127.",
	"172.17.", "172.18.", "172.19.", "172.20.", "172.21.", "172.22.",
}

// LocalIPv4Addresses returns the machine's advertisable IPv4 addresses.
func LocalIPv4Addresses() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to enumerate network interfaces")
		return nil
	}

	var addresses []string
	seen := make(map[string]struct{})
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil {
				continue
			}
			s := ip.String()
			if excluded(s) {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			addresses = append(addresses, s)
		}
	}
	return addresses
}

func excluded(ip string) bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

// SendRequest opens a short-lived connection to each address in turn,
// writes one framed request, and returns the first framed response.
// The timeout bounds the dial and the exchange on each address.
func SendRequest(ctx context.Context, addresses []string, port uint16, req wire.Request, timeout time.Duration) (wire.Response, error) {
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for _, address := range addresses {
		target := net.JoinHostPort(address, fmt.Sprintf("%d", port))

		dialer := net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			log.Warn().Err(err).Str("address", target).Msg("Could not connect, trying next address")
			lastErr = err
			continue
		}

		resp, err := exchange(conn, payload, timeout)
		_ = conn.Close()
		if err != nil {
			log.Warn().Err(err).Str("address", target).Msg("Request exchange failed")
			lastErr = err
			continue
		}
		return resp, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no addresses to try")
	}
	return nil, fmt.Errorf("could not reach any of %d addresses on port %d: %w", len(addresses), port, lastErr)
}

func exchange(conn net.Conn, payload []byte, timeout time.Duration) (wire.Response, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	respBytes, err := wire.ReadFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return wire.DecodeResponse(respBytes)
}
