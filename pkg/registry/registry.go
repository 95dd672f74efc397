// Package registry aggregates discovery announcements into the gateway's
// authoritative device view: ingest, liveness probing, TTL expiry, queries,
// command dispatch, and the change event stream.
package registry

import (
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/device"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// Registry owns the gateway's device map. It never registers services of
// its own; it only listens.
type Registry struct {
	// ProbeInterval paces the combined liveness probe and expiry sweep.
	ProbeInterval time.Duration
	// ProbeTimeout bounds one liveness TCP connect.
	ProbeTimeout time.Duration
	// CommandTimeout bounds one actuator command exchange.
	CommandTimeout time.Duration
	// EventBuffer is the per-subscriber queue depth.
	EventBuffer int

	mu      sync.RWMutex
	devices map[string]*device.Entry

	subsMu sync.Mutex
	subs   map[string]*subscriber

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New builds a registry with production defaults.
func New() *Registry {
	return &Registry{
		ProbeInterval:  60 * time.Second,
		ProbeTimeout:   time.Second,
		CommandTimeout: 2 * time.Second,
		EventBuffer:    16,
		devices:        make(map[string]*device.Entry),
		subs:           make(map[string]*subscriber),
		done:           make(chan struct{}),
	}
}

// Attach subscribes the registry to an engine's inbound feed.
func (r *Registry) Attach(engine *mdns.Engine) {
	engine.SubscribeInbound(func(packet *wire.Packet, _ net.Addr) {
		r.Ingest(packet)
	})
}

// Start launches the probe/expiry sweep loop.
func (r *Registry) Start() {
	r.wg.Add(1)
	go r.sweepLoop()
}

// Close stops the sweep and closes every subscriber channel.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		r.subsMu.Lock()
		for id, sub := range r.subs {
			close(sub.ch)
			delete(r.subs, id)
		}
		r.subsMu.Unlock()
	})
}

// Ingest merges one inbound discovery packet into the device map. Query
// requests are ignored; only responses describe services.
func (r *Registry) Ingest(packet *wire.Packet) {
	resp, ok := packet.Body.(wire.QueryResponse)
	if !ok {
		return
	}

	records := make([]wire.Record, 0, len(resp.Answers)+len(resp.AdditionalRecords))
	records = append(records, resp.Answers...)
	records = append(records, resp.AdditionalRecords...)

	for _, info := range mdns.InfoFromRecords(records) {
		r.ingestService(info)
	}
}

func (r *Registry) ingestService(info *mdns.ServiceInfo) {
	id := info.DomainName()

	// A zero TTL is a goodbye: the device leaves immediately.
	if info.TTL == 0 {
		r.remove(id, "goodbye")
		return
	}

	ttl := time.Duration(info.TTL) * time.Second
	if ttl < time.Second {
		ttl = time.Second
	}
	expiresAt := time.Now().Add(ttl)

	r.mu.Lock()
	entry, exists := r.devices[id]
	if !exists {
		entry = &device.Entry{
			ID:         id,
			DeviceName: info.Name,
			Kind:       info.Kind,
			Category:   info.Category,
			Transport:  info.Transport,
			Status:     wire.StatusUnknown,
			Port:       info.Port,
			Addresses:  info.Addresses,
			Properties: info.Properties,
			ExpiresAt:  expiresAt,
		}
		r.devices[id] = entry
		snapshot := entry.Clone()
		r.mu.Unlock()

		log.Info().
			Str("device_id", id).
			Str("device_name", info.Name).
			Str("kind", info.Kind.String()).
			Str("category", info.Category.String()).
			Strs("ips", info.Addresses).
			Uint16("port", info.Port).
			Msg("Discovered new device")
		r.publish(Event{Type: EventDeviceAdded, Device: snapshot, Timestamp: time.Now()})
		return
	}

	// Two senders of the same FQDN merge last-writer-wins per field;
	// expiry only ever advances.
	changed := entry.DeviceName != info.Name ||
		entry.Kind != info.Kind ||
		entry.Category != info.Category ||
		entry.Transport != info.Transport ||
		entry.Port != info.Port ||
		!stringSlicesEqual(entry.Addresses, info.Addresses) ||
		!stringMapsEqual(entry.Properties, info.Properties)

	entry.DeviceName = info.Name
	entry.Kind = info.Kind
	entry.Category = info.Category
	entry.Transport = info.Transport
	entry.Port = info.Port
	entry.Addresses = info.Addresses
	entry.Properties = info.Properties
	if expiresAt.After(entry.ExpiresAt) {
		entry.ExpiresAt = expiresAt
	}
	snapshot := entry.Clone()
	r.mu.Unlock()

	if changed {
		log.Debug().Str("device_id", id).Msg("Device updated")
		r.publish(Event{Type: EventDeviceChanged, Device: snapshot, Timestamp: time.Now()})
	}
}

// remove deletes an entry and emits the removal event carrying its last
// snapshot.
func (r *Registry) remove(id, reason string) {
	r.mu.Lock()
	entry, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.devices, id)
	snapshot := entry.Clone()
	r.mu.Unlock()

	log.Info().Str("device_id", id).Str("reason", reason).Msg("Removed device")
	r.publish(Event{Type: EventDeviceRemoved, Device: snapshot, Timestamp: time.Now()})
}

// Get returns a copy of one entry.
func (r *Registry) Get(id string) (*device.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return entry.Clone(), nil
}

// List returns the entries matching the filters, ordered by id. A zero
// kind matches everything; a non-empty name matches as a case-insensitive
// substring of the device name.
func (r *Registry) List(kind wire.DeviceKind, name string) []*device.Entry {
	name = strings.ToLower(name)

	r.mu.RLock()
	entries := make([]*device.Entry, 0, len(r.devices))
	for _, entry := range r.devices {
		if kind != wire.KindUnknown && entry.Kind != kind {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(entry.DeviceName), name) {
			continue
		}
		entries = append(entries, entry.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringMapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
