// Package classify maps ticket text to one label from the closed category set.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/internal/domain"
)

type Classifier struct {
	llm llm.Client
}

func New(client llm.Client) *Classifier {
	return &Classifier{llm: client}
}

// Classify returns a category for the ticket. An unrecognized label from the
// provider is normalized to general_inquiry; a failed provider call is not
// swallowed here and propagates to the orchestrator.
func (c *Classifier) Classify(ctx context.Context, ticket domain.Ticket) (domain.Category, error) {
	start := time.Now()

	resp, err := llm.CompleteWithRetry(ctx, c.llm, llm.Request{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   buildPrompt(ticket),
		MaxTokens:    20,
		Temperature:  llm.Temp(0), // deterministic labels
	})
	if err != nil {
		return "", fmt.Errorf("classify ticket: %w", err)
	}

	category := domain.ParseCategory(resp.Text)

	slog.DebugContext(ctx, "ticket classified",
		"ticket_id", ticket.ID,
		"category", category,
		"raw_label", strings.TrimSpace(resp.Text),
		"latency_ms", time.Since(start).Milliseconds())

	return category, nil
}

func buildPrompt(ticket domain.Ticket) string {
	var sb strings.Builder

	sb.WriteString("## Subject\n")
	sb.WriteString(ticket.Subject)
	sb.WriteString("\n\n## Description\n")
	sb.WriteString(ticket.Description)

	if len(ticket.Tags) > 0 {
		sb.WriteString("\n\n## Existing tags\n")
		sb.WriteString(strings.Join(ticket.Tags, ", "))
	}

	return sb.String()
}

var classifySystemPrompt = fmt.Sprintf(`You classify customer support tickets.

Respond with exactly one of the following labels and nothing else:

%s

Pick the label that best describes the ticket's topic. If nothing fits, respond with general_inquiry.`,
	categoryList())

func categoryList() string {
	labels := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		labels[i] = "- " + string(c)
	}
	return strings.Join(labels, "\n")
}
