package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	// Health check
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of the gateway and how many devices it currently knows"),
		),
		s.handleGetHealth,
	)

	// List devices
	s.mcpServer.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List the devices discovered on the network, optionally filtered"),
			mcp.WithString("kind",
				mcp.Description("Filter by device kind (sensor or actuator)"),
			),
			mcp.WithString("name",
				mcp.Description("Filter by a case-insensitive device name substring"),
			),
		),
		s.handleListDevices,
	)

	// Get device
	s.mcpServer.AddTool(
		mcp.NewTool("get_device",
			mcp.WithDescription("Get one discovered device by its fully-qualified domain name"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Device FQDN, e.g. \"Light Lamp._lightlamp._tcp.local.\""),
			),
		),
		s.handleGetDevice,
	)

	// Send actuator command
	s.mcpServer.AddTool(
		mcp.NewTool("send_actuator_command",
			mcp.WithDescription("Send a command to an actuator. Light lamps accept turn_on, brightness, and color; sinks accept turn_on."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Device FQDN"),
			),
			mcp.WithBoolean("turn_on",
				mcp.Description("Turn the actuator on or off"),
			),
			mcp.WithNumber("brightness",
				mcp.Description("Brightness level 0-100 (light lamps only)"),
			),
			mcp.WithNumber("color",
				mcp.Description("RGB color as an integer (light lamps only)"),
			),
		),
		s.handleSendActuatorCommand,
	)
}
