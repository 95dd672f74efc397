package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/endpoint"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// lightLamp holds the lamp's in-memory state. The endpoint serializes
// handler calls, so no locking is needed here.
type lightLamp struct {
	isOn       bool
	brightness int32
	color      int32
}

func (l *lightLamp) properties() map[string]string {
	return map[string]string{
		"is_on":      fmt.Sprintf("%t", l.isOn),
		"brightness": fmt.Sprintf("%d", l.brightness),
		"color":      fmt.Sprintf("%d", l.color),
	}
}

// execute applies one request to the lamp. Non-light actions are invalid
// commands; every accepted change triggers a fresh announcement.
func (l *lightLamp) execute(req wire.Request) (wire.Response, map[string]string) {
	cmd, ok := req.(wire.SendActuatorCommandRequest)
	if !ok {
		return wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  fmt.Sprintf("unsupported request type %T", req),
			Metadata: map[string]string{"request": fmt.Sprintf("%T", req)},
		}, nil
	}

	action, ok := cmd.Action.(wire.LightLampAction)
	if !ok {
		return wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  fmt.Sprintf("unsupported actuator command type %T", cmd.Action),
			Metadata: map[string]string{"action": fmt.Sprintf("%T", cmd.Action)},
		}, nil
	}

	var msg strings.Builder
	if action.TurnOn != nil && *action.TurnOn && !l.isOn {
		l.isOn = true
		msg.WriteString("Light turned ON. ")
	}
	if action.TurnOn != nil && !*action.TurnOn && l.isOn {
		l.isOn = false
		msg.WriteString("Light turned OFF. ")
	}
	if action.Brightness != nil && *action.Brightness != l.brightness {
		l.brightness = *action.Brightness
		msg.WriteString(fmt.Sprintf("Brightness set to %d. ", l.brightness))
	}
	if action.Color != nil && *action.Color != l.color {
		l.color = *action.Color
		msg.WriteString(fmt.Sprintf("Color set to #%06X. ", l.color))
	}
	if msg.Len() == 0 {
		msg.WriteString("No change. ")
	}

	resp := wire.SendActuatorCommandResponse{Message: strings.TrimSpace(msg.String())}
	return resp, l.properties()
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

	lamp := &lightLamp{color: 0xFFFFFF}

	info := mdns.NewServiceInfo("Light Lamp", "_lightlamp._tcp.local.", wire.KindActuator, wire.CategoryLightLamp, lamp.properties())
	info.Port = port

	ep := endpoint.New(engine, info, lamp.execute)
	if err := ep.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Light Lamp service")
	}

	log.Info().Uint16("port", ep.Port()).Msg("Light Lamp service started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down...")
	ep.Close()
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close discovery engine")
	}
	log.Info().Msg("Service unregistered")
}
