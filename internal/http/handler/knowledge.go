package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/http/dto"
	"deskwise.app/triage/internal/knowledge"
)

type KnowledgeHandler struct {
	index knowledge.Index
}

func NewKnowledgeHandler(index knowledge.Index) *KnowledgeHandler {
	return &KnowledgeHandler{index: index}
}

func (h *KnowledgeHandler) UpsertDocument(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.UpsertDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid document request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc := domain.KnowledgeDocument{
		ID:    req.ID,
		Title: req.Title,
		Text:  req.Text,
		URL:   req.URL,
	}

	if err := h.index.Upsert(ctx, doc); err != nil {
		slog.ErrorContext(ctx, "failed to upsert document", "error", err, "document_id", req.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to index document"})
		return
	}

	c.JSON(http.StatusOK, dto.UpsertDocumentResponse{ID: req.ID, Status: "indexed"})
}

func (h *KnowledgeHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.index.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch index stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{DocumentCount: stats.DocumentCount})
}
