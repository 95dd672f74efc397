package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/talDoFlemis/badezimmer/pkg/api/handlers"
	"github.com/talDoFlemis/badezimmer/pkg/device/schema"
	"github.com/talDoFlemis/badezimmer/pkg/registry"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	registry  *registry.Registry
	validator *schema.Validator
}

// NewRouter creates a new API router
func NewRouter(reg *registry.Registry, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:    engine,
		registry:  reg,
		validator: validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.registry)
	r.engine.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		// Health
		v1.GET("/health", healthHandler.Health)

		// Registry events
		eventsHandler := handlers.NewEventsHandler(r.registry)
		v1.GET("/events", eventsHandler.Events)

		// Devices
		devicesHandler := handlers.NewDevicesHandler(r.registry)
		controlHandler := handlers.NewControlHandler(r.registry, r.validator)
		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.GET("/:id", devicesHandler.GetDevice)

			// Actuator commands
			devices.POST("/:id/command", controlHandler.SendCommand)
			devices.PATCH("/light/:id", controlHandler.UpdateLight)
			devices.PATCH("/sink/:id", controlHandler.UpdateSink)
		}
	}
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
