package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/talDoFlemis/badezimmer/pkg/api/types"
	"github.com/talDoFlemis/badezimmer/pkg/device"
	"github.com/talDoFlemis/badezimmer/pkg/device/schema"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// ControlHandler handles actuator command endpoints
type ControlHandler struct {
	registry  *registry.Registry
	validator *schema.Validator
}

// NewControlHandler creates a new control handler
func NewControlHandler(reg *registry.Registry, validator *schema.Validator) *ControlHandler {
	return &ControlHandler{registry: reg, validator: validator}
}

// SendCommand handles POST /devices/:id/command
// @Summary      Send an actuator command
// @Description  Validates the body against the device category's action schema and dispatches it to the device
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      string  true  "Device FQDN"
// @Param        request  body      object  true  "Category-specific action fields"
// @Success      200      {object}  types.CommandResponse
// @Failure      400      {object}  types.ErrorResponse  "Validation or command error"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Failure      502      {object}  types.ErrorResponse  "Device offline"
// @Router       /devices/{id}/command [post]
func (h *ControlHandler) SendCommand(c *gin.Context) {
	id := c.Param("id")

	entry, err := h.registry.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "not_found",
			Message: "Device not found",
		})
		return
	}

	actionSchema := schema.ActionSchema(entry.Category)
	if actionSchema == nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:    "invalid_command",
			Message:  "device category accepts no commands",
			Metadata: map[string]string{"category": entry.Category.String()},
		})
		return
	}

	var body map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	if err := h.validator.Validate(actionSchema, body); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	h.dispatch(c, id, actionFromBody(entry.Category, body))
}

// UpdateLight handles PATCH /devices/light/:id
// @Summary      Update a light lamp
// @Description  Turns the lamp on or off and adjusts brightness and color
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Device FQDN"
// @Param        request  body      types.UpdateLightRequest  true  "Light action"
// @Success      200      {object}  types.CommandResponse
// @Failure      400      {object}  types.ErrorResponse  "Validation or command error"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Failure      502      {object}  types.ErrorResponse  "Device offline"
// @Router       /devices/light/{id} [patch]
func (h *ControlHandler) UpdateLight(c *gin.Context) {
	var req types.UpdateLightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	action := wire.LightLampAction{TurnOn: req.TurnOn}
	if req.Brightness != nil {
		v := int32(*req.Brightness)
		action.Brightness = &v
	}
	if req.Color != nil {
		v := int32(*req.Color)
		action.Color = &v
	}

	h.dispatch(c, c.Param("id"), action)
}

// UpdateSink handles PATCH /devices/sink/:id
// @Summary      Update a sink
// @Description  Turns the sink on or off
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Device FQDN"
// @Param        request  body      types.UpdateSinkRequest  true  "Sink action"
// @Success      200      {object}  types.CommandResponse
// @Failure      400      {object}  types.ErrorResponse  "Validation or command error"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Failure      502      {object}  types.ErrorResponse  "Device offline"
// @Router       /devices/sink/{id} [patch]
func (h *ControlHandler) UpdateSink(c *gin.Context) {
	var req types.UpdateSinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
		return
	}

	h.dispatch(c, c.Param("id"), wire.SinkAction{TurnOn: req.TurnOn})
}

func (h *ControlHandler) dispatch(c *gin.Context, id string, action wire.ActuatorAction) {
	message, err := h.registry.SendActuatorCommand(c.Request.Context(), id, action)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.CommandResponse{Message: message})
}

func actionFromBody(category wire.DeviceCategory, body map[string]any) wire.ActuatorAction {
	switch category {
	case wire.CategoryLightLamp:
		action := wire.LightLampAction{}
		if v, ok := body["turn_on"].(bool); ok {
			action.TurnOn = &v
		}
		if v, ok := body["brightness"].(float64); ok {
			b := int32(v)
			action.Brightness = &b
		}
		if v, ok := body["color"].(float64); ok {
			col := int32(v)
			action.Color = &col
		}
		return action
	case wire.CategorySink:
		action := wire.SinkAction{}
		if v, ok := body["turn_on"].(bool); ok {
			action.TurnOn = &v
		}
		return action
	default:
		return nil
	}
}

// respondCommandError maps the closed error taxonomy onto HTTP statuses.
func respondCommandError(c *gin.Context, err error) {
	var details wire.ErrorDetails
	if !errors.As(err, &details) {
		if errors.Is(err, device.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.ErrorResponse{
				Error:   "not_found",
				Message: "Device not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{
			Error:   "unknown_error",
			Message: err.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch details.Code {
	case wire.ErrorCodeDeviceNotFound:
		status = http.StatusNotFound
	case wire.ErrorCodeInvalidCommand, wire.ErrorCodeValidation:
		status = http.StatusBadRequest
	case wire.ErrorCodeDeviceOffline:
		status = http.StatusBadGateway
	}

	c.JSON(status, types.ErrorResponse{
		Error:    details.Code.String(),
		Message:  details.Message,
		Metadata: details.Metadata,
	})
}
