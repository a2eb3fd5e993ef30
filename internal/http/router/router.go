package router

import (
	"github.com/gin-gonic/gin"

	"deskwise.app/triage/internal/http/handler"
	"deskwise.app/triage/internal/http/handler/webhook"
	"deskwise.app/triage/internal/http/middleware"
)

type RouterConfig struct {
	AdminAPIKey string
}

type Handlers struct {
	Ticket    *handler.TicketHandler
	Knowledge *handler.KnowledgeHandler
	Webhook   *webhook.TicketingWebhookHandler
}

func SetupRoutes(router *gin.Engine, h Handlers, limiter *middleware.RateLimiter, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.POST("/webhooks/ticketing", limiter.Handler(), h.Webhook.HandleEvent)

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Handler(), middleware.AdminAuth(cfg.AdminAPIKey))
	{
		TicketRouter(v1.Group("/tickets"), h.Ticket)
		KnowledgeRouter(v1.Group("/knowledge"), h.Knowledge)
	}
}
