package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
)

// Server wraps the MCP server with the gateway's registry functionality
type Server struct {
	mcpServer *server.MCPServer
	registry  *registry.Registry
}

// NewServer creates a new MCP server for the device registry
func NewServer(reg *registry.Registry) *Server {
	s := &Server{
		registry: reg,
	}

	// Create MCP server
	s.mcpServer = server.NewMCPServer(
		"badezimmer",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Register all tools
	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
