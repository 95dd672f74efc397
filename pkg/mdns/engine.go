package mdns

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

var (
	// ErrInvalidPort rejects a registration with no usable TCP port.
	ErrInvalidPort = errors.New("mdns: service has no valid port")
	// ErrNonUniqueName reports a name conflict that could not be resolved.
	ErrNonUniqueName = errors.New("mdns: service name is already taken")
	// ErrDuplicateService rejects registering the same FQDN twice.
	ErrDuplicateService = errors.New("mdns: service already registered")
	// ErrNotRegistered rejects updating a service never registered here.
	ErrNotRegistered = errors.New("mdns: service not registered")
	// ErrClosed reports use of an engine after Close.
	ErrClosed = errors.New("mdns: engine closed")
)

// sentPacketsKept bounds the self-echo suppression ring.
const sentPacketsKept = 50

// InboundHandler receives every parsed, non-self inbound packet.
type InboundHandler func(packet *wire.Packet, from net.Addr)

type registration struct {
	info      *ServiceInfo
	nextRenew time.Time
}

type cachedRecord struct {
	record    wire.Record
	expiresAt time.Time
}

// Engine owns one participant's view of the discovery group: the services
// it registered, the renovation schedule, and the inbound dispatch.
type Engine struct {
	// Tiebreaking knobs; tests compress them.
	TiebreakAttempts int
	TiebreakInterval time.Duration
	TiebreakMaxDrift time.Duration
	JitterMin        time.Duration
	JitterMax        time.Duration
	// RenovationTick is how often the renewal schedule is checked.
	RenovationTick time.Duration

	transport Transport

	servicesMu sync.Mutex
	services   map[string]*registration // FQDN -> registration

	sentMu sync.Mutex
	sent   [][]byte

	cacheMu sync.Mutex
	cache   map[string][]cachedRecord // PTR name -> records

	handlersMu sync.Mutex
	handlers   []InboundHandler

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewEngine builds an engine over the given transport. Call Start before
// registering services.
func NewEngine(transport Transport) *Engine {
	return &Engine{
		TiebreakAttempts: 3,
		TiebreakInterval: 100 * time.Millisecond,
		TiebreakMaxDrift: 25 * time.Millisecond,
		JitterMin:        150 * time.Millisecond,
		JitterMax:        250 * time.Millisecond,
		RenovationTick:   time.Second,
		transport:        transport,
		services:         make(map[string]*registration),
		sent:             make([][]byte, 0, sentPacketsKept),
		cache:            make(map[string][]cachedRecord),
		done:             make(chan struct{}),
	}
}

// Start launches the receive and renovation loops.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.recvLoop()
	go e.renovateLoop()
}

// Close broadcasts a goodbye for every registered service, then shuts the
// transport and waits for the loops to drain.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.servicesMu.Lock()
		remaining := make([]*ServiceInfo, 0, len(e.services))
		for _, reg := range e.services {
			remaining = append(remaining, reg.info)
		}
		e.servicesMu.Unlock()

		for _, info := range remaining {
			goodbye := *info
			goodbye.TTL = 0
			if sendErr := e.broadcast(&goodbye); sendErr != nil {
				log.Warn().Err(sendErr).Str("service_name", info.Name).Msg("Failed to send goodbye")
			} else {
				log.Info().Str("service_name", info.Name).Msg("Sent goodbye")
			}
		}

		close(e.done)
		err = e.transport.Close()
		e.wg.Wait()
	})
	return err
}

// SubscribeInbound registers a handler for every parsed, non-self inbound
// packet. The gateway registry feeds off this.
func (e *Engine) SubscribeInbound(handler InboundHandler) {
	e.handlersMu.Lock()
	e.handlers = append(e.handlers, handler)
	e.handlersMu.Unlock()
}

// Register tiebreaks the service name, commits the registration, and
// broadcasts the first announcement. On return info.Name holds the
// committed (possibly renamed) instance name.
func (e *Engine) Register(info *ServiceInfo) error {
	if info.Port == 0 {
		return ErrInvalidPort
	}

	log.Debug().
		Str("service_name", info.Name).
		Str("service_type", info.Type).
		Uint16("port", info.Port).
		Msg("Registering service")

	// Random startup jitter desynchronizes simultaneous registrations.
	jitter := e.JitterMin + time.Duration(rand.Int63n(int64(e.JitterMax-e.JitterMin)+1))
	select {
	case <-time.After(jitter):
	case <-e.done:
		return ErrClosed
	}

	if err := e.tiebreak(info); err != nil {
		return err
	}

	domainName := info.DomainName()
	e.servicesMu.Lock()
	if _, exists := e.services[domainName]; exists {
		e.servicesMu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateService, domainName)
	}
	e.services[domainName] = &registration{info: info, nextRenew: e.renewAt(info)}
	e.servicesMu.Unlock()

	log.Info().Str("domain_name", domainName).Msg("Service registered")
	return e.broadcast(info)
}

// Update re-announces a registered service with its current properties.
// The SRV/TXT/A records carry cache-flush so listeners replace stale state.
func (e *Engine) Update(info *ServiceInfo) error {
	domainName := info.DomainName()

	e.servicesMu.Lock()
	reg, ok := e.services[domainName]
	if !ok {
		e.servicesMu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, domainName)
	}
	reg.info = info
	reg.nextRenew = e.renewAt(info)
	e.servicesMu.Unlock()

	return e.broadcast(info)
}

// Unregister broadcasts a goodbye for the service and stops renewing it.
func (e *Engine) Unregister(info *ServiceInfo) error {
	domainName := info.DomainName()

	e.servicesMu.Lock()
	delete(e.services, domainName)
	e.servicesMu.Unlock()

	goodbye := *info
	goodbye.TTL = 0
	log.Info().Str("domain_name", domainName).Msg("Unregistering service")
	return e.broadcast(&goodbye)
}

// tiebreak probes the group until the candidate FQDN survives the full
// probe window unclaimed, renaming on collision.
func (e *Engine) tiebreak(info *ServiceInfo) error {
	log.Debug().Str("service_type", info.Type).Msg("Tiebreaking")

	const maxRenames = 10
	renames := 0
	currentName := info.Name

	for {
		for e.nameClaimed(info.Type, currentName) {
			if !info.AllowNameChange {
				return fmt.Errorf("%w: %s", ErrNonUniqueName, DomainName(info.Type, currentName))
			}
			if renames >= maxRenames {
				return fmt.Errorf("%w: gave up after %d renames", ErrNonUniqueName, renames)
			}
			currentName = fmt.Sprintf("%s-%04x", info.Name, rand.Intn(0x10000))
			renames++
			log.Info().Str("candidate", currentName).Msg("Name collision, retrying with new candidate")
		}

		// The candidate commits only after surviving every probe window
		// unclaimed; a claim arriving mid-window restarts the probing.
		clean := true
		for attempt := 0; attempt < e.TiebreakAttempts; attempt++ {
			if err := e.sendQuery(wire.ServiceDiscoveryType); err != nil {
				log.Warn().Err(err).Msg("Tiebreak probe failed to send")
			}

			wait := e.TiebreakInterval + time.Duration(rand.Int63n(int64(e.TiebreakMaxDrift)+1))
			select {
			case <-time.After(wait):
			case <-e.done:
				return ErrClosed
			}

			if e.nameClaimed(info.Type, currentName) {
				clean = false
				break
			}
		}
		if clean {
			break
		}
	}

	info.Name = currentName
	log.Debug().
		Str("service_type", info.Type).
		Str("service_name", info.Name).
		Msg("Tiebreaking resolved")
	return nil
}

// nameClaimed reports whether a live cached PTR record claims the
// candidate FQDN. Self packets never reach the cache, so any claim comes
// from another participant.
func (e *Engine) nameClaimed(serviceType, instanceName string) bool {
	domainName := DomainName(serviceType, instanceName)
	now := time.Now()

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	for _, entries := range e.cache {
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			ptr, ok := entry.record.Data.(wire.PTRRecord)
			if !ok || entry.expiresAt.Before(now) {
				continue
			}
			if ptr.DomainName == domainName {
				return true
			}
		}
	}
	return false
}

func (e *Engine) recvLoop() {
	defer e.wg.Done()

	buf := make([]byte, wire.MaxMessageSize+4)
	for {
		select {
		case <-e.done:
			return
		default:
		}

		_ = e.transport.SetReadDeadline(time.Now().Add(time.Second))
		n, from, err := e.transport.Recv(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-e.done:
				return
			default:
			}
			log.Error().Err(err).Msg("Error reading from discovery socket")
			continue
		}

		data := buf[:n]
		if e.isSentPacket(data) {
			continue
		}

		payload, err := wire.Unframe(data)
		if err != nil {
			log.Warn().Err(err).Int("size", n).Msg("Dropping malformed datagram")
			continue
		}

		packet, err := wire.DecodePacket(payload)
		if err != nil {
			log.Warn().Err(err).Int("size", n).Msg("Dropping undecodable packet")
			continue
		}

		e.handlePacket(packet, from)
	}
}

func (e *Engine) handlePacket(packet *wire.Packet, from net.Addr) {
	switch body := packet.Body.(type) {
	case wire.QueryResponse:
		e.cacheResponse(body)
	case wire.QueryRequest:
		e.answerQuery(body)
	}

	e.handlersMu.Lock()
	handlers := make([]InboundHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.Unlock()

	for _, handler := range handlers {
		handler(packet, from)
	}
}

func (e *Engine) cacheResponse(resp wire.QueryResponse) {
	now := time.Now()
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	add := func(rec wire.Record) {
		e.cache[rec.Name] = append(e.cache[rec.Name], cachedRecord{
			record:    rec,
			expiresAt: now.Add(time.Duration(rec.TTL) * time.Second),
		})
	}
	for _, rec := range resp.Answers {
		add(rec)
	}
	for _, rec := range resp.AdditionalRecords {
		add(rec)
	}
}

// answerQuery responds on the multicast group with the records of every
// locally registered service matching the questions. No match, no reply.
func (e *Engine) answerQuery(query wire.QueryRequest) {
	var answers, additionals []wire.Record

	e.servicesMu.Lock()
	for _, question := range query.Questions {
		for _, reg := range e.services {
			if question.Name != wire.ServiceDiscoveryType && question.Name != reg.info.Type {
				continue
			}
			records := reg.info.Records()
			answers = append(answers, records[0])
			additionals = append(additionals, records[1:]...)
		}
	}
	e.servicesMu.Unlock()

	if len(answers) == 0 {
		return
	}

	if err := e.sendResponse(answers, additionals); err != nil {
		log.Warn().Err(err).Msg("Failed to answer query")
	}
}

func (e *Engine) renovateLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.RenovationTick)
	defer ticker.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			e.renovateDue()
		}
	}
}

// renovateDue re-announces every service whose renewal time has passed.
// Re-announcing resets the schedule, so a missed tick never duplicates.
func (e *Engine) renovateDue() {
	now := time.Now()

	e.servicesMu.Lock()
	due := make([]*registration, 0)
	for _, reg := range e.services {
		if !reg.nextRenew.After(now) {
			due = append(due, reg)
			reg.nextRenew = e.renewAt(reg.info)
		}
	}
	e.servicesMu.Unlock()

	for _, reg := range due {
		if err := e.broadcast(reg.info); err != nil {
			log.Warn().Err(err).Str("service_name", reg.info.Name).Msg("Renovation broadcast failed, will retry next cycle")
		} else {
			log.Debug().Str("service_name", reg.info.Name).Msg("Renovated service TTL")
		}
	}
}

// renewAt schedules the next renewal at 75% of the advertised TTL.
func (e *Engine) renewAt(info *ServiceInfo) time.Time {
	return time.Now().Add(time.Duration(info.TTL) * time.Second * 3 / 4)
}

// broadcast announces one service: PTR answer plus A/SRV/TXT additionals.
func (e *Engine) broadcast(info *ServiceInfo) error {
	records := info.Records()
	return e.sendResponse(records[:1], records[1:])
}

func (e *Engine) sendResponse(answers, additionals []wire.Record) error {
	return e.sendPacket(&wire.Packet{
		TransactionID: rand.Uint32(),
		Timestamp:     time.Now().UnixMilli(),
		Body: wire.QueryResponse{
			Answers:           answers,
			AdditionalRecords: additionals,
		},
	})
}

func (e *Engine) sendQuery(name string) error {
	return e.sendPacket(&wire.Packet{
		TransactionID: rand.Uint32(),
		Timestamp:     time.Now().UnixMilli(),
		Body: wire.QueryRequest{
			Questions: []wire.Question{{Name: name, Type: wire.RecordTypePTR}},
		},
	})
}

func (e *Engine) sendPacket(packet *wire.Packet) error {
	payload, err := wire.EncodePacket(packet)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}

	framed := wire.Frame(payload)
	e.rememberSent(framed)

	if err := e.transport.Send(framed); err != nil {
		return fmt.Errorf("send packet: %w", err)
	}
	return nil
}

func (e *Engine) rememberSent(data []byte) {
	e.sentMu.Lock()
	defer e.sentMu.Unlock()

	if len(e.sent) >= sentPacketsKept {
		e.sent = e.sent[1:]
	}
	kept := make([]byte, len(data))
	copy(kept, data)
	e.sent = append(e.sent, kept)
}

func (e *Engine) isSentPacket(data []byte) bool {
	e.sentMu.Lock()
	defer e.sentMu.Unlock()

	for _, sent := range e.sent {
		if bytes.Equal(sent, data) {
			return true
		}
	}
	return false
}
