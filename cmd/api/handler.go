package api

import (
	integrationDelivery "flowdesk-backend/internal/integration/delivery"
	"flowdesk-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	integrationHandler *integrationDelivery.IntegrationHandler
	config             *config.Config
}

func NewHandler(integrationHandler *integrationDelivery.IntegrationHandler, cfg *config.Config) *Handler {
	return &Handler{
		integrationHandler: integrationHandler,
		config:             cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h.integrationHandler, h.config)

	return r.Run(addr)
}
