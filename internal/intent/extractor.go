// Package intent extracts what the customer wants, how urgent it is, and how
// they feel, from free-form ticket text.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/parse"
)

// response is the shape requested from the provider. All fields are validated
// individually after parsing - the provider is not trusted to honor the schema.
type response struct {
	Intent      string   `json:"intent" jsonschema_description:"Short phrase describing what the customer wants"`
	Urgency     string   `json:"urgency" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Sentiment   string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative,enum=frustrated"`
	KeyEntities []string `json:"key_entities" jsonschema_description:"Product names, error codes, feature names mentioned in the ticket"`
}

var responseSchema = llm.GenerateSchema[response]()

type Extractor struct {
	llm llm.Client
}

func New(client llm.Client) *Extractor {
	return &Extractor{llm: client}
}

// Extract returns the intent analysis for a ticket. Malformed provider output
// never fails the call: each field falls back to its default independently,
// and a fully unparseable response yields DefaultIntentAnalysis. Provider
// call failures propagate.
func (e *Extractor) Extract(ctx context.Context, ticket domain.Ticket) (domain.IntentAnalysis, error) {
	text := ticket.Description
	if text == "" {
		text = ticket.Subject
	}

	start := time.Now()

	resp, err := llm.CompleteWithRetry(ctx, e.llm, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   text,
		MaxTokens:    300,
		Temperature:  llm.Temp(0.1),
	})
	if err != nil {
		return domain.IntentAnalysis{}, fmt.Errorf("extract intent: %w", err)
	}

	analysis := parseAnalysis(ctx, ticket.ID, resp.Text)

	slog.DebugContext(ctx, "intent extracted",
		"ticket_id", ticket.ID,
		"intent", analysis.Intent,
		"urgency", analysis.Urgency,
		"sentiment", analysis.Sentiment,
		"entity_count", len(analysis.KeyEntities),
		"latency_ms", time.Since(start).Milliseconds())

	return analysis, nil
}

func parseAnalysis(ctx context.Context, ticketID int64, raw string) domain.IntentAnalysis {
	var r response
	if !parse.Unmarshal(raw, &r) {
		slog.WarnContext(ctx, "unparseable intent response, using defaults",
			"ticket_id", ticketID,
			"raw", logger.Truncate(raw, 200))
		return domain.DefaultIntentAnalysis()
	}

	analysis := domain.IntentAnalysis{
		Intent:      r.Intent,
		Urgency:     domain.ParseUrgency(r.Urgency),
		Sentiment:   domain.ParseSentiment(r.Sentiment),
		KeyEntities: r.KeyEntities,
	}
	if analysis.Intent == "" {
		analysis.Intent = "unknown"
	}
	return analysis
}

var systemPrompt = fmt.Sprintf(`You analyze customer support tickets.

Respond with a single JSON object matching this schema:

%s

- intent: one short phrase for what the customer wants
- urgency: low, medium, high or critical
- sentiment: positive, neutral, negative or frustrated
- key_entities: specific products, features or error codes mentioned, most important first`,
	mustJSON(responseSchema))

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
