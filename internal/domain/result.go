package domain

// ProcessingResult is the decision bundle produced for one ticket. It is
// populated incrementally as stages complete; a stage failure freezes it with
// Error set and whatever fields were already filled in. The pipeline never
// returns an error to its caller - Error is the only failure signal at this
// layer.
type ProcessingResult struct {
	TicketID          int64             `json:"ticket_id"`
	Category          Category          `json:"category"`
	Intent            IntentAnalysis    `json:"intent"`
	RelevantKnowledge []KnowledgeResult `json:"relevant_knowledge"`
	DraftResponse     *DraftResponse    `json:"draft_response,omitempty"`
	ProcessingTimeMs  int64             `json:"processing_time_ms"`
	Error             string            `json:"error,omitempty"`
}
