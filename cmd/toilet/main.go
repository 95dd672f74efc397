package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/endpoint"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

const (
	intervalBetweenUse       = 5 * time.Second
	cloggedFlushProbability  = 1.0 / 3.0
	solidWeightClogThreshold = 150
	litersPerFlush           = 6.0
)

var possibleMaterials = []string{"SOLID", "LIQUID"}

// toilet simulates an occupancy sensor with a clog-prone flush cycle.
// Only the data loop mutates it, so it carries no lock.
type toilet struct {
	clogged          bool
	flushed          bool
	weightOn         string
	materialIn       string
	solidWeight      string
	bowlCleanerLevel float64
	waterConsumption float64
	lastFlushed      string
}

func (t *toilet) properties() map[string]string {
	return map[string]string{
		"clogged":                        fmt.Sprintf("%t", t.clogged),
		"flushed":                        fmt.Sprintf("%t", t.flushed),
		"weight_on":                      t.weightOn,
		"material_in":                    t.materialIn,
		"solid_material_weight":          t.solidWeight,
		"bowl_cleaner_level":             fmt.Sprintf("%.1f", t.bowlCleanerLevel),
		"water_consumption_today_liters": fmt.Sprintf("%.1f", t.waterConsumption),
		"last_flushed":                   t.lastFlushed,
	}
}

// execute answers everything with Empty: the toilet is a sensor and takes
// no commands.
func execute(_ wire.Request) (wire.Response, map[string]string) {
	return wire.EmptyResponse{}, nil
}

func (t *toilet) flush() {
	t.clogged = false
	t.flushed = true
	t.lastFlushed = time.Now().Format(time.RFC3339)
	t.waterConsumption += litersPerFlush
}

// simulateUse runs the original random walk: someone uses the toilet,
// heavy solid material can clog it, and a clogged flush only clears with
// some luck.
func (t *toilet) simulateUse(ep *endpoint.Endpoint, done <-chan struct{}) {
	ticker := time.NewTicker(intervalBetweenUse)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.step()
			if err := ep.UpdateProperties(t.properties()); err != nil {
				log.Warn().Err(err).Msg("Failed to announce toilet state")
			}
		}
	}
}

func (t *toilet) step() {
	if t.clogged {
		if rand.Float64() < cloggedFlushProbability {
			log.Info().Msg("Toilet flushed while clogged")
			t.flush()
		} else {
			log.Info().Msg("Toilet flush failed - still clogged")
			t.flushed = false
			return
		}
	}

	t.materialIn = possibleMaterials[rand.Intn(len(possibleMaterials))]
	t.weightOn = strconv.Itoa(50 + rand.Intn(70))
	t.flushed = rand.Intn(2) == 0

	if t.materialIn == "SOLID" {
		weight := 100 + rand.Intn(101)
		t.solidWeight = strconv.Itoa(weight)

		if weight > solidWeightClogThreshold {
			t.clogged = true
			log.Info().Msg("Toilet clogged due to heavy solid material")
			t.bowlCleanerLevel = max(1.0, t.bowlCleanerLevel*0.3)
		} else {
			t.clogged = false
		}
	} else {
		t.clogged = false
		t.solidWeight = ""
		t.bowlCleanerLevel = min(10.0, t.bowlCleanerLevel*1.1)
	}

	if t.flushed {
		t.flush()
		t.bowlCleanerLevel = min(10.0, t.bowlCleanerLevel*1.2)
		log.Info().Msg("Toilet flushed")
	} else {
		t.bowlCleanerLevel = max(1.0, t.bowlCleanerLevel*0.8)
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

	t := &toilet{flushed: true, bowlCleanerLevel: 10.0}

	info := mdns.NewServiceInfo("Inteligent Toilet", "_toilet._tcp.local.", wire.KindSensor, wire.CategoryToilet, t.properties())
	info.Port = port

	ep := endpoint.New(engine, info, execute)
	if err := ep.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start Inteligent Toilet service")
	}

	log.Info().Uint16("port", ep.Port()).Msg("Inteligent Toilet service started")

	done := make(chan struct{})
	go t.simulateUse(ep, done)

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
