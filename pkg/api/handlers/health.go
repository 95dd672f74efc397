package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/talDoFlemis/badezimmer/pkg/api/types"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	registry *registry.Registry
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(reg *registry.Registry) *HealthHandler {
	return &HealthHandler{registry: reg}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health status of the gateway and the number of known devices
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	devices := h.registry.List(wire.KindUnknown, "")

	c.JSON(http.StatusOK, types.HealthResponse{
		Status:    "healthy",
		Devices:   len(devices),
		Timestamp: time.Now(),
	})
}
