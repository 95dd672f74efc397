package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/api"
	"github.com/talDoFlemis/badezimmer/pkg/db"
	"github.com/talDoFlemis/badezimmer/pkg/device/schema"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/registry"

	_ "github.com/talDoFlemis/badezimmer/docs"
)

// @title           Badezimmer Gateway API
// @version         1.0
// @description     REST API over the bathroom device registry

// @host      localhost:8000
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/badezimmer/badezimmer.db)")
	flag.Parse()

	ctx := context.Background()

	// Open database
	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Bootstrap if needed (first run)
	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check bootstrap status")
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap database")
		}
		log.Info().Msg("Database bootstrapped successfully")
	}

	// Load configuration
	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("profile", cfg.Profile.Name).
		Str("api_address", cfg.APIAddress()).
		Dur("probe_interval", cfg.ProbeInterval()).
		Msg("Configuration loaded")

	// Join the discovery group; the gateway only listens, it never
	// registers services of its own
	transport, err := mdns.NewMulticastTransport()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open multicast socket")
	}

	engine := mdns.NewEngine(transport)
	engine.Start()

	reg := registry.New()
	if cfg.Discovery != nil {
		reg.ProbeInterval = cfg.Discovery.ProbeInterval
		reg.ProbeTimeout = cfg.Discovery.ProbeTimeout
		reg.CommandTimeout = cfg.Discovery.CommandTimeout
		reg.EventBuffer = cfg.Discovery.EventBuffer
	}
	reg.Attach(engine)
	reg.Start()

	validator := schema.NewValidator()

	// Create and start API router
	router := api.NewRouter(reg, validator)

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		reg.Close()
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close discovery engine")
		}
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
		os.Exit(0)
	}()

	// Start server
	addr := cfg.APIAddress()
	log.Info().Str("address", addr).Msg("Starting API server")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
