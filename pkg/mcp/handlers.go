package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

func (s *Server) handleGetHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices := s.registry.List(wire.KindUnknown, "")

	out := GetHealthOutput{
		Status:    "healthy",
		Devices:   len(devices),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleListDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := wire.KindUnknown
	args := request.GetArguments()
	if raw, ok := args["kind"].(string); ok && raw != "" {
		switch raw {
		case "sensor":
			kind = wire.KindSensor
		case "actuator":
			kind = wire.KindActuator
		default:
			return mcp.NewToolResultError(fmt.Sprintf("kind must be sensor or actuator, got %q", raw)), nil
		}
	}
	name, _ := args["name"].(string)

	entries := s.registry.List(kind, name)

	infos := make([]DeviceInfo, 0, len(entries))
	for _, entry := range entries {
		infos = append(infos, EntryToInfo(entry))
	}

	out := ListDevicesOutput{
		Devices: infos,
		Count:   len(infos),
	}

	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleGetDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.registry.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	out := GetDeviceOutput{Device: EntryToInfo(entry)}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleSendActuatorCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(request, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entry, err := s.registry.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("device not found: %s", err)), nil
	}

	args := request.GetArguments()
	var action wire.ActuatorAction
	switch entry.Category {
	case wire.CategoryLightLamp:
		light := wire.LightLampAction{}
		if v, ok := args["turn_on"].(bool); ok {
			light.TurnOn = &v
		}
		if v, ok := args["brightness"].(float64); ok {
			b := int32(v)
			light.Brightness = &b
		}
		if v, ok := args["color"].(float64); ok {
			col := int32(v)
			light.Color = &col
		}
		action = light
	case wire.CategorySink:
		sink := wire.SinkAction{}
		if v, ok := args["turn_on"].(bool); ok {
			sink.TurnOn = &v
		}
		action = sink
	default:
		return mcp.NewToolResultError(fmt.Sprintf("category %s accepts no commands", entry.Category)), nil
	}

	message, err := s.registry.SendActuatorCommand(ctx, id, action)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("command failed: %s", err)), nil
	}

	out := SendActuatorCommandOutput{
		DeviceID: id,
		Message:  message,
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

// --- helpers ---

func requiredString(request mcp.CallToolRequest, key string) (string, error) {
	args := request.GetArguments()
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("required parameter %q is missing", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", key)
	}
	return s, nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response: %s"}`, err)
	}
	return string(b)
}
