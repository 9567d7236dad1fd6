package api

import (
	"net/http"

	"flowdesk-backend/internal/auth/delivery"
	integrationDelivery "flowdesk-backend/internal/integration/delivery"
	"flowdesk-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, integrationHandler *integrationDelivery.IntegrationHandler, cfg *config.Config) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		integrations := api.Group("/integrations")
		{
			// The provider redirects the browser here, so no bearer token
			// is available on this route.
			integrations.GET("/callback/:provider", integrationHandler.Callback)

			protected := integrations.Group("")
			protected.Use(delivery.AuthMiddleware(cfg.JWTSecret))
			{
				protected.GET("/:provider/connect", integrationHandler.Connect)
				protected.DELETE("/:provider", integrationHandler.Disconnect)
				protected.GET("/messages", integrationHandler.ListMessages)

				google := protected.Group("/google")
				{
					google.POST("/calendar/sync", integrationHandler.CalendarSync)
					google.POST("/calendar/push", integrationHandler.CalendarPush)
					google.POST("/calendar/pull", integrationHandler.CalendarPull)
					google.POST("/inbox/summarize", integrationHandler.SummarizeInbox)
					google.POST("/inbox/send", integrationHandler.SendDraft)
				}

				slack := protected.Group("/slack")
				{
					slack.GET("/channels", integrationHandler.ListChannels)
					slack.POST("/message", integrationHandler.SendChannelMessage)
					slack.POST("/summarize", integrationHandler.SummarizeChannel)
				}
			}
		}
	}
}
