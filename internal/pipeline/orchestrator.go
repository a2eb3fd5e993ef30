// Package pipeline sequences classification, intent extraction, knowledge
// retrieval and draft generation for a ticket, and decides which side effects
// to commit back to the ticketing system.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/draft"
	"deskwise.app/triage/internal/ticketing"
)

// Classifier maps ticket text to one category from the closed set.
type Classifier interface {
	Classify(ctx context.Context, ticket domain.Ticket) (domain.Category, error)
}

// IntentExtractor maps ticket text to an intent analysis.
type IntentExtractor interface {
	Extract(ctx context.Context, ticket domain.Ticket) (domain.IntentAnalysis, error)
}

// KnowledgeSearcher ranks supporting snippets for a query. Must never fail:
// retrieval problems degrade to an empty list.
type KnowledgeSearcher interface {
	HybridSearch(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult
}

// DraftGenerator produces a reply draft from ticket context and knowledge.
type DraftGenerator interface {
	Generate(ctx context.Context, in draft.Input) (*domain.DraftResponse, error)
}

// Config tunes the orchestrator's gating policy.
type Config struct {
	// MinConfidenceForDraft gates persistence of the draft, not its
	// computation. Default 0.6.
	MinConfidenceForDraft float64
	// AutoRespond enables committing drafts as internal notes.
	AutoRespond bool
	// CategoryFieldID, when non-zero, is the ticketing custom field that
	// receives the category value.
	CategoryFieldID int64
	// BatchConcurrency bounds concurrent tickets per batch chunk. Default 5.
	BatchConcurrency int
}

const (
	defaultMinConfidence    = 0.6
	defaultBatchConcurrency = 5
)

// Orchestrator runs the ticket processing pipeline. Process never returns an
// error: the ProcessingResult's Error field is the only failure signal, and a
// partially populated result is still a valid result.
type Orchestrator struct {
	classifier Classifier
	extractor  IntentExtractor
	knowledge  KnowledgeSearcher
	generator  DraftGenerator
	tickets    ticketing.Client
	effects    *effects
	cfg        Config
}

func New(
	classifier Classifier,
	extractor IntentExtractor,
	knowledge KnowledgeSearcher,
	generator DraftGenerator,
	tickets ticketing.Client,
	deadLetter DeadLetter,
	cfg Config,
) *Orchestrator {
	if cfg.MinConfidenceForDraft == 0 {
		cfg.MinConfidenceForDraft = defaultMinConfidence
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = defaultBatchConcurrency
	}

	return &Orchestrator{
		classifier: classifier,
		extractor:  extractor,
		knowledge:  knowledge,
		generator:  generator,
		tickets:    tickets,
		effects:    newEffects(deadLetter),
		cfg:        cfg,
	}
}

// Process runs the full pipeline for one ticket. Stages run strictly in
// sequence; a stage failure stops forward progress, records the error on the
// result and returns immediately with whatever was already populated.
func (o *Orchestrator) Process(ctx context.Context, ticket domain.Ticket) domain.ProcessingResult {
	start := time.Now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketID:  logger.Ptr(ticket.ID),
		Component: "triage.pipeline",
	})

	result := domain.ProcessingResult{
		TicketID: ticket.ID,
		Category: domain.CategoryGeneralInquiry,
		Intent:   domain.DefaultIntentAnalysis(),
	}
	finish := func() domain.ProcessingResult {
		result.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result
	}

	stage := func(name string) context.Context {
		return logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr(name)})
	}

	category, err := o.classifier.Classify(stage("classify"), ticket)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline halted at classification", "error", err)
		result.Error = err.Error()
		return finish()
	}
	result.Category = category

	intent, err := o.extractor.Extract(stage("intent"), ticket)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline halted at intent extraction", "error", err)
		result.Error = err.Error()
		return finish()
	}
	result.Intent = intent

	// Knowledge retrieval degrades internally; it never halts the pipeline.
	query := strings.TrimSpace(ticket.Subject + "\n" + ticket.Description)
	result.RelevantKnowledge = o.knowledge.HybridSearch(stage("knowledge"), query, intent.KeyEntities)

	o.dispatchTags(ctx, ticket.ID, category, intent)

	draftResp, err := o.generator.Generate(stage("draft"), draft.Input{
		Ticket:    ticket,
		Category:  category,
		Sentiment: intent.Sentiment,
		Knowledge: result.RelevantKnowledge,
	})
	if err != nil {
		slog.ErrorContext(ctx, "pipeline halted at draft generation", "error", err)
		result.Error = err.Error()
		return finish()
	}
	result.DraftResponse = draftResp

	o.dispatchDraftCommit(ctx, ticket.ID, category, draftResp, result.RelevantKnowledge)
	o.dispatchPriority(ctx, ticket.ID, intent.Urgency)
	o.dispatchCategoryField(ctx, ticket.ID, category)

	slog.InfoContext(ctx, "ticket processed",
		"category", category,
		"urgency", intent.Urgency,
		"sentiment", intent.Sentiment,
		"knowledge_count", len(result.RelevantKnowledge),
		"draft_confidence", draftResp.Confidence)

	return finish()
}

// Reprocess fetches the ticket's current state and runs the pipeline on it.
func (o *Orchestrator) Reprocess(ctx context.Context, ticketID int64) domain.ProcessingResult {
	ticket, err := o.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		slog.ErrorContext(ctx, "reprocess failed to fetch ticket",
			"ticket_id", ticketID,
			"error", err)
		return domain.ProcessingResult{
			TicketID: ticketID,
			Category: domain.CategoryGeneralInquiry,
			Intent:   domain.DefaultIntentAnalysis(),
			Error:    err.Error(),
		}
	}
	return o.Process(ctx, *ticket)
}

// ProcessBatch processes tickets in consecutive chunks of size concurrency
// (default from config). Tickets within a chunk run concurrently; the next
// chunk starts only when the whole chunk finishes. Chunk boundaries are fixed
// by position, so an expensive ticket stalls the rest of its chunk - the
// point is bounding simultaneous provider and index calls, not work stealing.
// Results come back in input order.
func (o *Orchestrator) ProcessBatch(ctx context.Context, tickets []domain.Ticket, concurrency int) []domain.ProcessingResult {
	if concurrency <= 0 {
		concurrency = o.cfg.BatchConcurrency
	}

	results := make([]domain.ProcessingResult, len(tickets))
	for chunkStart := 0; chunkStart < len(tickets); chunkStart += concurrency {
		chunkEnd := min(chunkStart+concurrency, len(tickets))

		var wg sync.WaitGroup
		for i := chunkStart; i < chunkEnd; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = o.Process(ctx, tickets[i])
			}(i)
		}
		wg.Wait()
	}

	return results
}

// WaitEffects blocks until all dispatched side effects finish. Called at
// worker shutdown so in-flight ticketing writes are not abandoned.
func (o *Orchestrator) WaitEffects() {
	o.effects.wait()
}

func (o *Orchestrator) dispatchTags(ctx context.Context, ticketID int64, category domain.Category, intent domain.IntentAnalysis) {
	tags := SynthesizeTags(category, intent)
	o.effects.dispatch(ctx, "tags", ticketID, func(ctx context.Context) error {
		return o.tickets.AddTags(ctx, ticketID, tags)
	})
}

func (o *Orchestrator) dispatchDraftCommit(ctx context.Context, ticketID int64, category domain.Category, draftResp *domain.DraftResponse, knowledge []domain.KnowledgeResult) {
	if !o.cfg.AutoRespond {
		return
	}
	if draftResp.Confidence < o.cfg.MinConfidenceForDraft {
		slog.InfoContext(ctx, "draft below confidence gate, not committed",
			"confidence", draftResp.Confidence,
			"threshold", o.cfg.MinConfidenceForDraft)
		return
	}

	meta := ticketing.DraftMeta{
		Category:     category,
		Confidence:   draftResp.Confidence,
		SourceTitles: sourceTitles(knowledge, 3),
	}
	o.effects.dispatch(ctx, "draft_note", ticketID, func(ctx context.Context) error {
		return o.tickets.AddDraftResponse(ctx, ticketID, draftResp.Draft, meta)
	})
}

func (o *Orchestrator) dispatchPriority(ctx context.Context, ticketID int64, urgency domain.Urgency) {
	var priority domain.Priority
	switch urgency {
	case domain.UrgencyCritical:
		priority = domain.PriorityUrgent
	case domain.UrgencyHigh:
		priority = domain.PriorityHigh
	default:
		return
	}

	o.effects.dispatch(ctx, "priority", ticketID, func(ctx context.Context) error {
		return o.tickets.SetPriority(ctx, ticketID, priority)
	})
}

func (o *Orchestrator) dispatchCategoryField(ctx context.Context, ticketID int64, category domain.Category) {
	if o.cfg.CategoryFieldID == 0 {
		return
	}
	o.effects.dispatch(ctx, "category_field", ticketID, func(ctx context.Context) error {
		return o.tickets.SetCustomField(ctx, ticketID, o.cfg.CategoryFieldID, string(category))
	})
}

func sourceTitles(knowledge []domain.KnowledgeResult, limit int) []string {
	var titles []string
	for _, k := range knowledge {
		if len(titles) == limit {
			break
		}
		title := k.Title
		if title == "" {
			title = fmt.Sprintf("article %s", k.ID)
		}
		titles = append(titles, title)
	}
	return titles
}
