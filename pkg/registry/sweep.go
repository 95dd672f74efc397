package registry

import (
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func (r *Registry) sweepLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep expires stale entries and probes the rest. Probe failures are
// signal, not errors: they drive the status machine.
func (r *Registry) Sweep() {
	now := time.Now()

	r.mu.RLock()
	type probeTarget struct {
		id      string
		address string
		port    uint16
	}
	var expired []string
	targets := make([]probeTarget, 0, len(r.devices))
	for id, entry := range r.devices {
		if entry.ExpiresAt.Before(now) {
			expired = append(expired, id)
			continue
		}
		address := ""
		if len(entry.Addresses) > 0 {
			address = entry.Addresses[0]
		}
		targets = append(targets, probeTarget{id: id, address: address, port: entry.Port})
	}
	r.mu.RUnlock()

	for _, id := range expired {
		r.remove(id, "ttl expired")
	}

	for _, target := range targets {
		alive := r.probe(target.address, target.port)
		r.applyProbeResult(target.id, alive)
	}
}

// probe attempts a short TCP connect to the device endpoint.
func (r *Registry) probe(address string, port uint16) bool {
	if address == "" {
		return false
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(address, fmt.Sprintf("%d", port)), r.ProbeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (r *Registry) applyProbeResult(id string, alive bool) {
	status := wire.StatusOffline
	if alive {
		status = wire.StatusOnline
	}

	r.mu.Lock()
	entry, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	previous := entry.Status
	entry.Status = status
	if alive {
		entry.LastHealthOKAt = time.Now()
	}
	snapshot := entry.Clone()
	r.mu.Unlock()

	if previous != status {
		log.Info().
			Str("device_id", id).
			Str("from", previous.String()).
			Str("to", status.String()).
			Msg("Device status changed")
		r.publish(Event{Type: EventDeviceChanged, Device: snapshot, Timestamp: time.Now()})
	}
}
