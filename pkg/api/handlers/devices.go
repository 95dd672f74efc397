package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/talDoFlemis/badezimmer/pkg/api/types"
	"github.com/talDoFlemis/badezimmer/pkg/device"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// DevicesHandler handles device listing endpoints
type DevicesHandler struct {
	registry *registry.Registry
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(reg *registry.Registry) *DevicesHandler {
	return &DevicesHandler{registry: reg}
}

// ListDevices handles GET /devices
// @Summary      List connected devices
// @Description  Returns the registry view, optionally filtered by kind and by a case-insensitive name substring
// @Tags         devices
// @Produce      json
// @Param        kind  query     string  false  "Filter by kind (sensor or actuator)"
// @Param        name  query     string  false  "Filter by device name substring"
// @Success      200   {object}  types.ListDevicesResponse
// @Failure      400   {object}  types.ErrorResponse  "Invalid kind filter"
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	kind := wire.KindUnknown
	if raw := c.Query("kind"); raw != "" {
		switch strings.ToLower(raw) {
		case "sensor":
			kind = wire.KindSensor
		case "actuator":
			kind = wire.KindActuator
		default:
			c.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:   "invalid_kind",
				Message: "kind must be sensor or actuator",
			})
			return
		}
	}

	entries := h.registry.List(kind, c.Query("name"))

	result := make([]types.ConnectedDeviceResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entryToResponse(entry))
	}

	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: result,
		Count:   len(result),
	})
}

// GetDevice handles GET /devices/:id
// @Summary      Get device details
// @Description  Returns one registry entry by its FQDN
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device FQDN"
// @Success      200  {object}  types.ConnectedDeviceResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	entry, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "Device not found",
		})
		return
	}

	c.JSON(http.StatusOK, entryToResponse(entry))
}

func entryToResponse(entry *device.Entry) types.ConnectedDeviceResponse {
	resp := types.ConnectedDeviceResponse{
		ID:                entry.ID,
		DeviceName:        entry.DeviceName,
		Kind:              entry.Kind.String(),
		Category:          entry.Category.String(),
		Status:            entry.Status.String(),
		TransportProtocol: entry.Transport.String(),
		IPs:               entry.Addresses,
		Port:              entry.Port,
		Properties:        entry.Properties,
		ExpiresAt:         entry.ExpiresAt,
	}
	if !entry.LastHealthOKAt.IsZero() {
		t := entry.LastHealthOKAt
		resp.LastHealthOKAt = &t
	}
	return resp
}
