package handlers

import (
	"encoding/base64"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// EventsHandler streams registry change events to clients
type EventsHandler struct {
	registry *registry.Registry
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(reg *registry.Registry) *EventsHandler {
	return &EventsHandler{registry: reg}
}

// Events handles GET /events (SSE stream)
// @Summary      Subscribe to registry events
// @Description  Server-Sent Events stream; each data line is the base64-encoded serialized device snapshot. A resync event means the client missed events and should re-list.
// @Tags         events
// @Produce      text/event-stream
// @Success      200  {string}  string  "SSE event stream"
// @Router       /events [get]
func (h *EventsHandler) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// Subscribe to events
	eventChan := h.registry.Subscribe()
	defer h.registry.Unsubscribe(eventChan)

	// Send initial connection event
	sendSSEEvent(c.Writer, "connected", "")
	c.Writer.Flush()

	// Get client gone channel
	clientGone := c.Request.Context().Done()

	// Heartbeat ticker
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-clientGone:
			return

		case event, ok := <-eventChan:
			if !ok {
				return
			}
			data := ""
			if event.Device != nil {
				snapshot := event.Device.Snapshot()
				data = base64.StdEncoding.EncodeToString(wire.EncodeConnectedDevice(&snapshot))
			}
			sendSSEEvent(c.Writer, event.Type, data)
			c.Writer.Flush()

		case <-ticker.C:
			sendSSEEvent(c.Writer, "heartbeat", "")
			c.Writer.Flush()
		}
	}
}

// sendSSEEvent writes an SSE event to the response
func sendSSEEvent(w io.Writer, eventType string, data string) {
	io.WriteString(w, "event: "+eventType+"\n")
	io.WriteString(w, "data: "+data+"\n\n")
}
