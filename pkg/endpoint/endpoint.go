// Package endpoint runs a device's TCP request handler and keeps its
// advertised properties synchronized with the discovery engine.
package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// Handler executes one decoded request against the device state and
// returns the response, plus the new advertised properties when the
// request changed them (nil otherwise). The endpoint broadcasts the
// property update before the response is written, so observers see the
// change no later than the caller. Invocations are serialized, so a
// handler may mutate device state without its own locking.
type Handler func(req wire.Request) (wire.Response, map[string]string)

// Endpoint is one device's network face: a TCP listener speaking the
// framed request/response protocol, plus the service registration that
// advertises it.
type Endpoint struct {
	// DrainTimeout bounds how long in-flight connections get to finish
	// during shutdown before being forced closed.
	DrainTimeout time.Duration

	engine  *mdns.Engine
	info    *mdns.ServiceInfo
	handler Handler

	listener net.Listener

	stateMu sync.Mutex

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New builds an endpoint for a service. The engine must be started by the
// caller; Start registers the service on it.
func New(engine *mdns.Engine, info *mdns.ServiceInfo, handler Handler) *Endpoint {
	return &Endpoint{
		DrainTimeout: 2 * time.Second,
		engine:       engine,
		info:         info,
		handler:      handler,
		conns:        make(map[net.Conn]struct{}),
		done:         make(chan struct{}),
	}
}

// PortFromEnv reads the PORT override. The second return is false when no
// override is set; a set but invalid value is an error the caller should
// treat as fatal.
func PortFromEnv() (uint16, bool, error) {
	raw := os.Getenv("PORT")
	if raw == "" {
		return 0, false, nil
	}
	port, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, true, fmt.Errorf("invalid PORT %q: %w", raw, err)
	}
	return uint16(port), true, nil
}

// Start opens the listener, registers the service, and begins accepting
// connections. With a zero port in the service info, the OS assigns one.
func (ep *Endpoint) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", ep.info.Port))
	if err != nil {
		return fmt.Errorf("listen tcp: %w", err)
	}
	ep.listener = listener
	ep.info.Port = uint16(listener.Addr().(*net.TCPAddr).Port)

	if err := ep.engine.Register(ep.info); err != nil {
		_ = listener.Close()
		return fmt.Errorf("register service: %w", err)
	}

	log.Info().
		Str("service_name", ep.info.Name).
		Str("service_type", ep.info.Type).
		Uint16("port", ep.info.Port).
		Msg("Device endpoint listening")

	ep.wg.Add(1)
	go ep.acceptLoop()
	return nil
}

// Port returns the bound listener port.
func (ep *Endpoint) Port() uint16 {
	return ep.info.Port
}

// Properties returns a copy of the currently advertised properties.
func (ep *Endpoint) Properties() map[string]string {
	ep.stateMu.Lock()
	defer ep.stateMu.Unlock()

	props := make(map[string]string, len(ep.info.Properties))
	for k, v := range ep.info.Properties {
		props[k] = v
	}
	return props
}

// UpdateProperties replaces the advertised properties and broadcasts a
// fresh announcement so observers see the change promptly.
func (ep *Endpoint) UpdateProperties(properties map[string]string) error {
	ep.stateMu.Lock()
	defer ep.stateMu.Unlock()
	return ep.updatePropertiesLocked(properties)
}

func (ep *Endpoint) updatePropertiesLocked(properties map[string]string) error {
	// The engine keeps a reference to the info it renews, so swap in a
	// fresh copy instead of mutating the shared one under its feet.
	updated := *ep.info
	updated.Properties = properties
	if err := ep.engine.Update(&updated); err != nil {
		return err
	}
	ep.info = &updated
	return nil
}

// Close stops accepting, lets in-flight connections drain within
// DrainTimeout, then forces the rest closed. The goodbye is the engine's
// job, emitted when the caller closes it.
func (ep *Endpoint) Close() {
	ep.closeOnce.Do(func() {
		close(ep.done)
		if ep.listener != nil {
			_ = ep.listener.Close()
		}

		drained := make(chan struct{})
		go func() {
			ep.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-time.After(ep.DrainTimeout):
			log.Warn().Msg("Drain timeout reached, forcing connections closed")
			ep.connsMu.Lock()
			for conn := range ep.conns {
				_ = conn.Close()
			}
			ep.connsMu.Unlock()
			<-drained
		}
	})
}

func (ep *Endpoint) acceptLoop() {
	defer ep.wg.Done()

	for {
		conn, err := ep.listener.Accept()
		if err != nil {
			select {
			case <-ep.done:
				return
			default:
			}
			log.Warn().Err(err).Msg("Accept failed")
			continue
		}

		ep.connsMu.Lock()
		ep.conns[conn] = struct{}{}
		ep.connsMu.Unlock()

		ep.wg.Add(1)
		go ep.handleConn(conn)
	}
}

// handleConn serves framed requests on one connection until it closes or
// sends something malformed. Errors here never affect other connections.
func (ep *Endpoint) handleConn(conn net.Conn) {
	defer ep.wg.Done()
	defer func() {
		ep.connsMu.Lock()
		delete(ep.conns, conn)
		ep.connsMu.Unlock()
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	log.Debug().Str("remote", remote).Msg("Connection accepted")

	for {
		payload, err := wire.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug().Str("remote", remote).Msg("Connection closed by peer")
			} else {
				log.Warn().Err(err).Str("remote", remote).Msg("Dropping connection")
			}
			return
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("Malformed request, dropping connection")
			return
		}

		resp := ep.dispatch(req)

		respBytes, err := wire.EncodeResponse(resp)
		if err != nil {
			log.Error().Err(err).Str("remote", remote).Msg("Failed to encode response")
			return
		}
		if err := wire.WriteFrame(conn, respBytes); err != nil {
			log.Warn().Err(err).Str("remote", remote).Msg("Failed to write response")
			return
		}
	}
}

// dispatch serializes handler invocations so the final advertised
// properties always reflect the last committed action.
func (ep *Endpoint) dispatch(req wire.Request) wire.Response {
	ep.stateMu.Lock()
	defer ep.stateMu.Unlock()

	resp, properties := ep.handler(req)
	if properties != nil {
		if err := ep.updatePropertiesLocked(properties); err != nil {
			log.Warn().Err(err).Msg("Failed to broadcast property update")
		}
	}
	if resp == nil {
		resp = wire.EmptyResponse{}
	}
	return resp
}
