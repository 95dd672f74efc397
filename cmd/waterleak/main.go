package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/endpoint"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

const intervalBetweenLeaks = 10 * time.Second

var possibleLocations = []string{"BATHROOM"}

func randomProperties() map[string]string {
	return map[string]string{
		"severity": fmt.Sprintf("%d", rand.Intn(11)),
		"location": possibleLocations[rand.Intn(len(possibleLocations))],
	}
}

// execute answers everything with Empty: the detector is a sensor and
// takes no commands.
func execute(_ wire.Request) (wire.Response, map[string]string) {
	return wire.EmptyResponse{}, nil
}

func generateRandomData(ep *endpoint.Endpoint, done <-chan struct{}) {
	ticker := time.NewTicker(intervalBetweenLeaks)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ep.UpdateProperties(randomProperties()); err != nil {
				log.Warn().Err(err).Msg("Failed to announce new reading")
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

	info := mdns.NewServiceInfo("Aliexpress Water Leak Detector", "_waterleak._tcp.local.", wire.KindSensor, wire.CategoryWaterLeak, randomProperties())
	info.Port = port

	ep := endpoint.New(engine, info, execute)
	if err := ep.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Water Leak Detector service")
	}

	log.Info().Uint16("port", ep.Port()).Msg("Water Leak Detector service started")

	done := make(chan struct{})
	go generateRandomData(ep, done)

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
