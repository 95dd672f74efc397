package mcp

import (
	"time"

	"github.com/talDoFlemis/badezimmer/pkg/device"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status"`
	Devices   int    `json:"devices" jsonschema:"description=Number of devices in the registry"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- List Devices Tool ---

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Devices []DeviceInfo `json:"devices" jsonschema:"description=Discovered devices"`
	Count   int          `json:"count" jsonschema:"description=Total number of devices"`
}

// DeviceInfo represents a device in tool outputs
type DeviceInfo struct {
	ID         string            `json:"id" jsonschema:"description=Device FQDN"`
	DeviceName string            `json:"device_name" jsonschema:"description=Instance name"`
	Kind       string            `json:"kind" jsonschema:"description=Sensor or actuator"`
	Category   string            `json:"category" jsonschema:"description=Device category"`
	Status     string            `json:"status" jsonschema:"description=Liveness status"`
	IPs        []string          `json:"ips" jsonschema:"description=Advertised IPv4 addresses"`
	Port       uint16            `json:"port" jsonschema:"description=Device endpoint TCP port"`
	Properties map[string]string `json:"properties" jsonschema:"description=Device-specific properties"`
	ExpiresAt  time.Time         `json:"expires_at" jsonschema:"description=When the entry expires without renewal"`
}

// --- Get Device Tool ---

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device DeviceInfo `json:"device" jsonschema:"description=Device information"`
}

// --- Send Actuator Command Tool ---

// SendActuatorCommandOutput is the output for the send_actuator_command tool
type SendActuatorCommandOutput struct {
	DeviceID string `json:"device_id" jsonschema:"description=Device FQDN"`
	Message  string `json:"message" jsonschema:"description=The device's response message"`
}

// --- Helper conversions ---

// EntryToInfo converts a registry entry to DeviceInfo
func EntryToInfo(e *device.Entry) DeviceInfo {
	return DeviceInfo{
		ID:         e.ID,
		DeviceName: e.DeviceName,
		Kind:       e.Kind.String(),
		Category:   e.Category.String(),
		Status:     e.Status.String(),
		IPs:        e.Addresses,
		Port:       e.Port,
		Properties: e.Properties,
		ExpiresAt:  e.ExpiresAt,
	}
}
