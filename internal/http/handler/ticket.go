package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deskwise.app/triage/common/id"
	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/internal/http/dto"
	"deskwise.app/triage/internal/pipeline"
)

type TicketHandler struct {
	orchestrator *pipeline.Orchestrator
}

func NewTicketHandler(orchestrator *pipeline.Orchestrator) *TicketHandler {
	return &TicketHandler{orchestrator: orchestrator}
}

// Process runs the pipeline inline for one ticket fetched from the ticketing
// system and returns the full result. Meant for operator-driven reprocessing;
// webhook traffic goes through the queue instead.
func (h *TicketHandler) Process(c *gin.Context) {
	ctx := c.Request.Context()

	ticketID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}

	result := h.orchestrator.Reprocess(ctx, ticketID)

	slog.InfoContext(ctx, "inline reprocess finished",
		"ticket_id", ticketID,
		"category", result.Category,
		"pipeline_error", result.Error,
		"duration_ms", result.ProcessingTimeMs)

	c.JSON(http.StatusOK, result)
}

func (h *TicketHandler) ProcessBatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ProcessBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid batch request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{BatchID: logger.Ptr(id.New())})

	slog.InfoContext(ctx, "processing ticket batch",
		"ticket_count", len(req.Tickets),
		"concurrency", req.Concurrency)

	results := h.orchestrator.ProcessBatch(ctx, req.Tickets, req.Concurrency)

	c.JSON(http.StatusOK, dto.ProcessBatchResponse{Results: results})
}
