// Package device holds the gateway's model of a discovered device and the
// errors its operations surface.
package device

import (
	"time"

	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// Entry is the gateway's authoritative view of one discovered device,
// keyed by its FQDN.
type Entry struct {
	ID         string
	DeviceName string
	Kind       wire.DeviceKind
	Category   wire.DeviceCategory
	Transport  wire.TransportProtocol
	Status     wire.DeviceStatus
	Port       uint16
	Addresses  []string
	Properties map[string]string
	// ExpiresAt is the last ingest time plus the advertised TTL; the
	// entry is removed once it passes.
	ExpiresAt      time.Time
	LastHealthOKAt time.Time
}

// Snapshot returns the entry in its wire form, as pushed on the event
// stream.
func (e *Entry) Snapshot() wire.ConnectedDevice {
	addresses := make([]string, len(e.Addresses))
	copy(addresses, e.Addresses)
	properties := make(map[string]string, len(e.Properties))
	for k, v := range e.Properties {
		properties[k] = v
	}
	return wire.ConnectedDevice{
		ID:         e.ID,
		DeviceName: e.DeviceName,
		Kind:       e.Kind,
		Category:   e.Category,
		Status:     e.Status,
		Transport:  e.Transport,
		Port:       e.Port,
		Addresses:  addresses,
		Properties: properties,
	}
}

// Clone copies the entry so callers can hold it outside the registry lock.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Addresses = make([]string, len(e.Addresses))
	copy(c.Addresses, e.Addresses)
	c.Properties = make(map[string]string, len(e.Properties))
	for k, v := range e.Properties {
		c.Properties[k] = v
	}
	return &c
}
