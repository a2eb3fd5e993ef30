package dto

import "deskwise.app/triage/internal/domain"

type ProcessBatchRequest struct {
	Tickets     []domain.Ticket `json:"tickets" binding:"required,min=1"`
	Concurrency int             `json:"concurrency"`
}

type ProcessBatchResponse struct {
	Results []domain.ProcessingResult `json:"results"`
}

type WebhookPayload struct {
	TicketID  int64  `json:"ticket_id"`
	EventType string `json:"event_type"`
}

type WebhookResponse struct {
	Status   string `json:"status"`
	Enqueued bool   `json:"enqueued"`
}
