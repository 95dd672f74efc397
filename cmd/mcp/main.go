package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	badezimmermcp "github.com/talDoFlemis/badezimmer/pkg/mcp"
	"github.com/talDoFlemis/badezimmer/pkg/mdns"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
)

func main() {
	// Logging must go to stderr — stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Join the discovery group and build a registry, exactly like the
	// gateway does, so tools answer from a live device view
	transport, err := mdns.NewMulticastTransport()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open multicast socket")
	}

	engine := mdns.NewEngine(transport)
	engine.Start()
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close discovery engine")
		}
	}()

	reg := registry.New()
	reg.Attach(engine)
	reg.Start()
	defer reg.Close()

	// Create and start MCP server
	mcpServer := badezimmermcp.NewServer(reg)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
