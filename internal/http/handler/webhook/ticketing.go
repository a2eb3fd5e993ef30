package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"deskwise.app/triage/internal/http/dto"
	"deskwise.app/triage/internal/queue"
)

const signatureHeader = "X-Deskwise-Signature"

// TicketingWebhookHandler receives ticket events from the helpdesk and
// enqueues them for the worker. The payload is authenticated with an
// HMAC-SHA256 signature over the raw body.
type TicketingWebhookHandler struct {
	producer queue.Producer
	secret   []byte
}

func NewTicketingWebhookHandler(producer queue.Producer, secret string) *TicketingWebhookHandler {
	return &TicketingWebhookHandler{
		producer: producer,
		secret:   []byte(secret),
	}
}

// Event types that trigger the pipeline. Everything else is acknowledged
// and dropped so the helpdesk doesn't retry.
var processableEvents = map[string]bool{
	"ticket.created": true,
	"ticket.updated": true,
}

func (h *TicketingWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !h.verifySignature(body, c.GetHeader(signatureHeader)) {
		slog.WarnContext(ctx, "webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload dto.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.TicketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing ticket_id"})
		return
	}

	if !processableEvents[payload.EventType] {
		slog.InfoContext(ctx, "ignoring webhook event type",
			"event_type", payload.EventType,
			"ticket_id", payload.TicketID)
		c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ignored", Enqueued: false})
		return
	}

	msg := queue.TicketMessage{
		TicketID:  payload.TicketID,
		EventType: payload.EventType,
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID := spanCtx.TraceID().String()
		msg.TraceID = &traceID
	}

	if err := h.producer.Enqueue(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue webhook event",
			"error", err,
			"ticket_id", payload.TicketID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue event"})
		return
	}

	slog.InfoContext(ctx, "webhook event enqueued",
		"ticket_id", payload.TicketID,
		"event_type", payload.EventType)

	c.JSON(http.StatusOK, dto.WebhookResponse{Status: "ok", Enqueued: true})
}

func (h *TicketingWebhookHandler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}
