package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/endpoint"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

const consumptionInterval = 3 * time.Second

// sink tracks whether the tap is open and how much water ran through it.
// The consumption loop and the request handler both touch it, so it keeps
// its own lock.
type sink struct {
	mu            sync.Mutex
	isOn          bool
	litersConsumed int
}

func (s *sink) properties() map[string]string {
	return map[string]string{
		"is_on":                     fmt.Sprintf("%t", s.isOn),
		"water_consumed_in_litters": fmt.Sprintf("%d", s.litersConsumed),
	}
}

func (s *sink) execute(req wire.Request) (wire.Response, map[string]string) {
	cmd, ok := req.(wire.SendActuatorCommandRequest)
	if !ok {
		return wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  fmt.Sprintf("unsupported request type %T", req),
			Metadata: map[string]string{"request": fmt.Sprintf("%T", req)},
		}, nil
	}

	action, ok := cmd.Action.(wire.SinkAction)
	if !ok {
		return wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  fmt.Sprintf("unsupported actuator command type %T", cmd.Action),
			Metadata: map[string]string{"action": fmt.Sprintf("%T", cmd.Action)},
		}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var msg strings.Builder
	switch {
	case action.TurnOn != nil && *action.TurnOn && !s.isOn:
		s.isOn = true
		msg.WriteString("Sink turned ON. ")
	case action.TurnOn != nil && !*action.TurnOn && s.isOn:
		s.isOn = false
		msg.WriteString("Sink turned OFF. ")
	case action.TurnOn != nil && *action.TurnOn && s.isOn:
		msg.WriteString("Sink already ON. ")
	}
	if msg.Len() == 0 {
		msg.WriteString("No change. ")
	}

	resp := wire.SendActuatorCommandResponse{Message: strings.TrimSpace(msg.String())}
	return resp, s.properties()
}

// consumeWater adds to the meter while the sink runs, announcing each
// reading.
func (s *sink) consumeWater(ep *endpoint.Endpoint, done <-chan struct{}) {
	ticker := time.NewTicker(consumptionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.isOn {
				s.mu.Unlock()
				continue
			}
			s.litersConsumed += 5
			liters := s.litersConsumed
			props := s.properties()
			s.mu.Unlock()

			log.Info().Int("liters", liters).Msg("Water consumed")
			if err := ep.UpdateProperties(props); err != nil {
				log.Warn().Err(err).Msg("Failed to announce water consumption")
			}
		}
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port, _, err := endpoint.PortFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid PORT environment variable")
	}

	transport, err := mdns.NewMulticastTransport()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open multicast socket")
	}

	engine := mdns.NewEngine(transport)
	engine.Start()

	s := &sink{}

	info := mdns.NewServiceInfo("Sink", "_sink._tcp.local.", wire.KindActuator, wire.CategorySink, s.properties())
	info.Port = port

	ep := endpoint.New(engine, info, s.execute)
	if err := ep.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Sink service")
	}

	log.Info().Uint16("port", ep.Port()).Msg("Sink service started")

	done := make(chan struct{})
	go s.consumeWater(ep, done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")
	close(done)
	ep.Close()
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close discovery engine")
	}
	log.Info().Msg("Service unregistered")
}
