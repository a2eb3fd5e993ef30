// Package draft generates confidence-scored reply drafts from ticket context
// and retrieved knowledge.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/parse"
)

// maxContextSnippets caps how many knowledge snippets are included in the
// prompt, regardless of how many the caller passes.
const maxContextSnippets = 5

type response struct {
	Draft               string   `json:"draft" jsonschema_description:"The reply to send to the customer"`
	Confidence          float64  `json:"confidence" jsonschema_description:"How confident you are this reply resolves the ticket, 0.0-1.0"`
	SuggestedTags       []string `json:"suggested_tags" jsonschema_description:"Short tags describing the reply"`
	RequiresHumanReview bool     `json:"requires_human_review" jsonschema_description:"Whether an agent should review before sending"`
	Reasoning           string   `json:"reasoning" jsonschema_description:"One sentence on why this reply fits"`
}

var responseSchema = llm.GenerateSchema[response]()

// Input bundles everything the generator needs for one draft.
type Input struct {
	Ticket    domain.Ticket
	Category  domain.Category
	Sentiment domain.Sentiment
	Knowledge []domain.KnowledgeResult
}

type Generator struct {
	llm llm.Client
}

func New(client llm.Client) *Generator {
	return &Generator{llm: client}
}

// Generate produces a reply draft. Unparseable provider output does not fail
// the call: the raw text becomes the draft with confidence 0.5 and a forced
// human-review flag. Confidence is always clamped into [0,1]. Provider call
// failures propagate.
func (g *Generator) Generate(ctx context.Context, in Input) (*domain.DraftResponse, error) {
	start := time.Now()

	resp, err := llm.CompleteWithRetry(ctx, g.llm, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildPrompt(in),
		MaxTokens:    800,
		Temperature:  llm.Temp(0.4),
	})
	if err != nil {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	result := parseDraft(ctx, in.Ticket.ID, resp.Text)

	slog.DebugContext(ctx, "draft generated",
		"ticket_id", in.Ticket.ID,
		"confidence", result.Confidence,
		"requires_human_review", result.RequiresHumanReview,
		"latency_ms", time.Since(start).Milliseconds())

	return result, nil
}

func parseDraft(ctx context.Context, ticketID int64, raw string) *domain.DraftResponse {
	var r response
	if !parse.Unmarshal(raw, &r) || r.Draft == "" {
		slog.WarnContext(ctx, "unparseable draft response, using raw text",
			"ticket_id", ticketID,
			"raw", logger.Truncate(raw, 200))
		return &domain.DraftResponse{
			Draft:               strings.TrimSpace(raw),
			Confidence:          0.5,
			RequiresHumanReview: true,
		}
	}

	return &domain.DraftResponse{
		Draft:               r.Draft,
		Confidence:          domain.ClampConfidence(r.Confidence),
		SuggestedTags:       r.SuggestedTags,
		RequiresHumanReview: r.RequiresHumanReview,
		Reasoning:           r.Reasoning,
	}
}

func buildPrompt(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Customer name: %s\n", in.Ticket.RequesterName())
	fmt.Fprintf(&sb, "Category: %s\n", in.Category)
	fmt.Fprintf(&sb, "Customer sentiment: %s\n\n", in.Sentiment)

	sb.WriteString("## Subject\n")
	sb.WriteString(in.Ticket.Subject)
	sb.WriteString("\n\n## Description\n")
	sb.WriteString(in.Ticket.Description)

	snippets := in.Knowledge
	if len(snippets) > maxContextSnippets {
		snippets = snippets[:maxContextSnippets]
	}
	if len(snippets) > 0 {
		sb.WriteString("\n\n## Relevant knowledge base articles\n")
		for i, k := range snippets {
			title := k.Title
			if title == "" {
				title = k.ID
			}
			fmt.Fprintf(&sb, "%d. %s\n%s\n\n", i+1, title, k.Text)
		}
	}

	return sb.String()
}

var systemPrompt = fmt.Sprintf(`You write support replies for customer tickets.

Respond with a single JSON object matching this schema:

%s

- Address the customer by name and match their sentiment: apologize first for
  frustrated or negative customers.
- Ground the reply in the knowledge base articles when they apply; never
  invent product behavior that is not in them.
- Lower the confidence and set requires_human_review when the articles do not
  cover the question, the ticket mentions refunds or legal issues, or the
  reply makes claims you cannot verify.`,
	mustJSON(responseSchema))

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
