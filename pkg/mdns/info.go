// Package mdns implements the discovery protocol spoken on the multicast
// group: framed binary announcement packets, name tiebreaking, TTL
// renovation, and goodbye handling.
package mdns

import (
	"fmt"
	"strings"

	"github.com/talDoFlemis/badezimmer/pkg/tcp"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// DefaultTTL is advertised on every record unless the service overrides it.
const DefaultTTL uint32 = 4500

// ServiceInfo describes one service registered on the network.
type ServiceInfo struct {
	// Name is the instance name. Tiebreaking may rename it before the
	// registration commits.
	Name       string
	Type       string
	Port       uint16
	Kind       wire.DeviceKind
	Category   wire.DeviceCategory
	Transport  wire.TransportProtocol
	Properties map[string]string
	Addresses  []string
	TTL        uint32
	// AllowNameChange permits tiebreaking to rename the instance. When
	// false, a conflict fails the registration instead.
	AllowNameChange bool
}

// NewServiceInfo builds a ServiceInfo with the machine's addresses and the
// default TTL filled in.
func NewServiceInfo(name, serviceType string, kind wire.DeviceKind, category wire.DeviceCategory, properties map[string]string) *ServiceInfo {
	return &ServiceInfo{
		Name:            name,
		Type:            serviceType,
		Kind:            kind,
		Category:        category,
		Transport:       wire.TransportTCP,
		Properties:      properties,
		Addresses:       tcp.LocalIPv4Addresses(),
		TTL:             DefaultTTL,
		AllowNameChange: true,
	}
}

// DomainName returns the service's fully-qualified domain name.
func (s *ServiceInfo) DomainName() string {
	return DomainName(s.Type, s.Name)
}

// DomainName derives the FQDN of an instance of a service type.
func DomainName(serviceType, instanceName string) string {
	return fmt.Sprintf("%s.%s", instanceName, serviceType)
}

// Records builds the announcement records for the service: one PTR answer
// followed by the A, SRV, and TXT additionals. Cache-flush is set on
// everything but the PTR.
func (s *ServiceInfo) Records() []wire.Record {
	domainName := s.DomainName()
	records := make([]wire.Record, 0, 3+len(s.Addresses))

	records = append(records, wire.Record{
		Name: s.Type,
		TTL:  s.TTL,
		Data: wire.PTRRecord{Name: s.Type, DomainName: domainName},
	})

	for _, ip := range s.Addresses {
		records = append(records, wire.Record{
			Name:       domainName,
			TTL:        s.TTL,
			CacheFlush: true,
			Data:       wire.ARecord{Name: domainName, Address: ip},
		})
	}

	service := s.Type
	if i := strings.IndexByte(s.Type, '.'); i > 0 {
		service = s.Type[:i]
	}
	records = append(records, wire.Record{
		Name:       domainName,
		TTL:        s.TTL,
		CacheFlush: true,
		Data: wire.SRVRecord{
			Name:     s.Name,
			Protocol: s.Transport,
			Service:  service,
			Instance: s.Name,
			Port:     s.Port,
			Target:   domainName,
		},
	})

	// Built-in kind/category entries win over user-supplied properties.
	entries := make(map[string]string, len(s.Properties)+2)
	for k, v := range s.Properties {
		entries[k] = v
	}
	entries["kind"] = s.Kind.String()
	entries["category"] = s.Category.String()

	records = append(records, wire.Record{
		Name:       domainName,
		TTL:        s.TTL,
		CacheFlush: true,
		Data:       wire.TXTRecord{Name: domainName, Entries: entries},
	})

	return records
}

// InfoFromRecords regroups a response's records into the services they
// describe: one ServiceInfo per PTR answer, with the SRV, TXT, and A
// additionals matched by domain name. The returned TTL is the minimum over
// the group's records, which is what a consumer should expire on.
func InfoFromRecords(records []wire.Record) []*ServiceInfo {
	type group struct {
		srv *wire.SRVRecord
		txt *wire.TXTRecord
		a   []string
		ttl uint32
		has bool
	}

	ptrs := make([]wire.Record, 0, 1)
	groups := make(map[string]*group)

	grp := func(name string) *group {
		g, ok := groups[name]
		if !ok {
			g = &group{}
			groups[name] = g
		}
		return g
	}

	for _, rec := range records {
		switch d := rec.Data.(type) {
		case wire.PTRRecord:
			ptrs = append(ptrs, rec)
		case wire.SRVRecord:
			g := grp(rec.Name)
			srv := d
			g.srv = &srv
			g.ttl, g.has = minTTL(g.ttl, g.has, rec.TTL)
		case wire.TXTRecord:
			g := grp(rec.Name)
			txt := d
			g.txt = &txt
			g.ttl, g.has = minTTL(g.ttl, g.has, rec.TTL)
		case wire.ARecord:
			g := grp(rec.Name)
			g.a = append(g.a, d.Address)
			g.ttl, g.has = minTTL(g.ttl, g.has, rec.TTL)
		}
	}

	var infos []*ServiceInfo
	for _, ptr := range ptrs {
		data := ptr.Data.(wire.PTRRecord)
		domainName := data.DomainName
		instance := domainName
		if i := strings.IndexByte(domainName, '.'); i > 0 {
			instance = domainName[:i]
		}

		info := &ServiceInfo{
			Name:       instance,
			Type:       data.Name,
			Properties: map[string]string{},
			TTL:        ptr.TTL,
		}

		if g, ok := groups[domainName]; ok {
			info.Addresses = g.a
			if g.srv != nil {
				info.Port = g.srv.Port
				info.Transport = g.srv.Protocol
				info.Name = g.srv.Instance
			}
			if g.txt != nil {
				for k, v := range g.txt.Entries {
					switch k {
					case "kind":
						info.Kind = wire.ParseDeviceKind(v)
					case "category":
						info.Category = wire.ParseDeviceCategory(v)
					default:
						info.Properties[k] = v
					}
				}
			}
			if g.has && g.ttl < info.TTL {
				info.TTL = g.ttl
			}
		}

		infos = append(infos, info)
	}

	return infos
}

func minTTL(current uint32, has bool, ttl uint32) (uint32, bool) {
	if !has || ttl < current {
		return ttl, true
	}
	return current, true
}
