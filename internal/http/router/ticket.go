package router

import (
	"github.com/gin-gonic/gin"

	"deskwise.app/triage/internal/http/handler"
)

func TicketRouter(router *gin.RouterGroup, handler *handler.TicketHandler) {
	router.POST("/:id/process", handler.Process)
	router.POST("/process-batch", handler.ProcessBatch)
}
