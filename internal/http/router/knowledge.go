package router

import (
	"github.com/gin-gonic/gin"

	"deskwise.app/triage/internal/http/handler"
)

func KnowledgeRouter(router *gin.RouterGroup, handler *handler.KnowledgeHandler) {
	router.POST("/documents", handler.UpsertDocument)
	router.GET("/stats", handler.Stats)
}
