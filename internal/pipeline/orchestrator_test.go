package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/draft"
	"deskwise.app/triage/internal/pipeline"
)

var _ = Describe("Orchestrator", func() {
	var (
		classifier *mockClassifier
		extractor  *mockExtractor
		searcher   *mockSearcher
		generator  *mockGenerator
		tickets    *mockTicketing
		deadLetter *mockDeadLetter
		cfg        pipeline.Config
		ticket     domain.Ticket
	)

	newOrchestrator := func() *pipeline.Orchestrator {
		return pipeline.New(classifier, extractor, searcher, generator, tickets, deadLetter, cfg)
	}

	BeforeEach(func() {
		classifier = &mockClassifier{}
		extractor = &mockExtractor{}
		searcher = &mockSearcher{}
		generator = &mockGenerator{}
		tickets = &mockTicketing{}
		deadLetter = &mockDeadLetter{}
		cfg = pipeline.Config{}
		ticket = domain.Ticket{
			ID:          42,
			Subject:     "Charged twice this month",
			Description: "My invoice shows two charges for the Pro plan.",
			Requester:   &domain.Requester{Name: "Dana", Email: "dana@example.com"},
		}
	})

	Describe("Process", func() {
		It("runs all stages and populates the result", func() {
			searcher.searchFn = func(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult {
				return []domain.KnowledgeResult{{ID: "kb1", Title: "Billing FAQ", Score: 0.9}}
			}

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(BeEmpty())
			Expect(result.TicketID).To(Equal(int64(42)))
			Expect(result.Category).To(Equal(domain.CategoryBilling))
			Expect(result.RelevantKnowledge).To(HaveLen(1))
			Expect(result.DraftResponse).NotTo(BeNil())
			Expect(result.ProcessingTimeMs).To(BeNumerically(">=", 0))

			Expect(searcher.lastQuery).To(ContainSubstring("Charged twice"))
			Expect(generator.lastInput.Ticket.ID).To(Equal(int64(42)))
		})

		It("never returns an error when classification fails", func() {
			classifier.classifyFn = func(ctx context.Context, t domain.Ticket) (domain.Category, error) {
				return "", errors.New("provider unavailable")
			}

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(ContainSubstring("provider unavailable"))
			Expect(result.Category).To(Equal(domain.CategoryGeneralInquiry))
			Expect(result.Intent).To(Equal(domain.DefaultIntentAnalysis()))
			Expect(extractor.calls).To(BeZero())
			Expect(generator.calls).To(BeZero())
			Expect(tickets.tags()).To(BeEmpty())
		})

		It("keeps the category when intent extraction fails", func() {
			extractor.extractFn = func(ctx context.Context, t domain.Ticket) (domain.IntentAnalysis, error) {
				return domain.IntentAnalysis{}, errors.New("model timeout")
			}

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(ContainSubstring("model timeout"))
			Expect(result.Category).To(Equal(domain.CategoryBilling))
			Expect(result.Intent).To(Equal(domain.DefaultIntentAnalysis()))
			Expect(generator.calls).To(BeZero())
		})

		It("still generates a draft when knowledge retrieval returns nothing", func() {
			searcher.searchFn = func(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult {
				return nil
			}

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(BeEmpty())
			Expect(result.RelevantKnowledge).To(BeEmpty())
			Expect(generator.calls).To(Equal(1))
			Expect(generator.lastInput.Knowledge).To(BeEmpty())
		})

		It("synthesizes tags from category and intent", func() {
			extractor.extractFn = func(ctx context.Context, t domain.Ticket) (domain.IntentAnalysis, error) {
				return domain.IntentAnalysis{
					Intent:      "dispute duplicate charge",
					Urgency:     domain.UrgencyHigh,
					Sentiment:   domain.SentimentFrustrated,
					KeyEntities: []string{"Pro Plan", "Invoice #4411"},
				}, nil
			}

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(BeEmpty())
			Expect(tickets.tags()).To(ConsistOf(
				"ai_category:billing",
				"ai_urgency:high",
				"ai_sentiment:frustrated",
				"ai_processed",
				"ai_entity:pro_plan",
				"ai_entity:invoice__4411",
			))
		})

		Describe("draft commit gating", func() {
			BeforeEach(func() {
				cfg.AutoRespond = true
			})

			It("commits the draft at or above the confidence threshold", func() {
				generator.generateFn = func(ctx context.Context, in draft.Input) (*domain.DraftResponse, error) {
					return &domain.DraftResponse{Draft: "Hi Dana, we refunded the duplicate charge.", Confidence: 0.85}, nil
				}

				o := newOrchestrator()
				result := o.Process(context.Background(), ticket)
				o.WaitEffects()

				Expect(result.DraftResponse.Confidence).To(Equal(0.85))
				Expect(tickets.drafts()).To(HaveLen(1))
				Expect(tickets.drafts()[0]).To(ContainSubstring("Dana"))
				Expect(tickets.draftMetas[0].Category).To(Equal(domain.CategoryBilling))
			})

			It("computes but does not commit a low-confidence draft", func() {
				generator.generateFn = func(ctx context.Context, in draft.Input) (*domain.DraftResponse, error) {
					return &domain.DraftResponse{Draft: "not sure", Confidence: 0.4}, nil
				}

				o := newOrchestrator()
				result := o.Process(context.Background(), ticket)
				o.WaitEffects()

				Expect(result.DraftResponse).NotTo(BeNil())
				Expect(result.DraftResponse.Confidence).To(Equal(0.4))
				Expect(tickets.drafts()).To(BeEmpty())
			})

			It("never commits when auto-respond is disabled", func() {
				cfg.AutoRespond = false
				generator.generateFn = func(ctx context.Context, in draft.Input) (*domain.DraftResponse, error) {
					return &domain.DraftResponse{Draft: "confident answer", Confidence: 0.99}, nil
				}

				o := newOrchestrator()
				result := o.Process(context.Background(), ticket)
				o.WaitEffects()

				Expect(result.DraftResponse).NotTo(BeNil())
				Expect(tickets.drafts()).To(BeEmpty())
			})
		})

		Describe("priority escalation", func() {
			urgencyToPriority := func(urgency domain.Urgency) []domain.Priority {
				extractor.extractFn = func(ctx context.Context, t domain.Ticket) (domain.IntentAnalysis, error) {
					return domain.IntentAnalysis{Intent: "x", Urgency: urgency, Sentiment: domain.SentimentNeutral}, nil
				}
				o := newOrchestrator()
				o.Process(context.Background(), ticket)
				o.WaitEffects()
				return tickets.setPriorities()
			}

			It("escalates critical urgency to urgent priority", func() {
				Expect(urgencyToPriority(domain.UrgencyCritical)).To(Equal([]domain.Priority{domain.PriorityUrgent}))
			})

			It("escalates high urgency to high priority", func() {
				Expect(urgencyToPriority(domain.UrgencyHigh)).To(Equal([]domain.Priority{domain.PriorityHigh}))
			})

			It("leaves priority alone for medium urgency", func() {
				Expect(urgencyToPriority(domain.UrgencyMedium)).To(BeEmpty())
			})
		})

		Describe("category custom field", func() {
			It("writes the field when a field ID is configured", func() {
				cfg.CategoryFieldID = 360001234
				o := newOrchestrator()
				o.Process(context.Background(), ticket)
				o.WaitEffects()

				Expect(tickets.fields()).To(HaveLen(1))
				Expect(tickets.fields()[0].ID).To(Equal(int64(360001234)))
				Expect(tickets.fields()[0].Value).To(Equal("billing"))
			})

			It("skips the field without a configured ID", func() {
				o := newOrchestrator()
				o.Process(context.Background(), ticket)
				o.WaitEffects()

				Expect(tickets.fields()).To(BeEmpty())
			})
		})

		It("dead-letters failed side effects without failing the result", func() {
			tickets.addTagsErr = errors.New("ticketing 503")

			o := newOrchestrator()
			result := o.Process(context.Background(), ticket)
			o.WaitEffects()

			Expect(result.Error).To(BeEmpty())
			records := deadLetter.recorded()
			Expect(records).To(HaveLen(1))
			Expect(records[0].effect).To(Equal("tags"))
			Expect(records[0].ticketID).To(Equal(int64(42)))
			Expect(records[0].errMsg).To(ContainSubstring("503"))
		})
	})

	Describe("Reprocess", func() {
		It("returns a failed result when the ticket cannot be fetched", func() {
			tickets.getTicketFn = func(ctx context.Context, id int64) (*domain.Ticket, error) {
				return nil, errors.New("ticket not found")
			}

			o := newOrchestrator()
			result := o.Reprocess(context.Background(), 99)

			Expect(result.TicketID).To(Equal(int64(99)))
			Expect(result.Error).To(ContainSubstring("not found"))
			Expect(result.Category).To(Equal(domain.CategoryGeneralInquiry))
			Expect(classifier.callCount()).To(BeZero())
		})

		It("processes the fetched ticket", func() {
			o := newOrchestrator()
			result := o.Reprocess(context.Background(), 7)
			o.WaitEffects()

			Expect(result.Error).To(BeEmpty())
			Expect(result.TicketID).To(Equal(int64(7)))
			Expect(classifier.callCount()).To(Equal(1))
		})
	})

	Describe("ProcessBatch", func() {
		It("processes every ticket and returns results in input order", func() {
			batch := []domain.Ticket{
				{ID: 1, Subject: "a"},
				{ID: 2, Subject: "b"},
				{ID: 3, Subject: "c"},
			}

			o := newOrchestrator()
			results := o.ProcessBatch(context.Background(), batch, 2)
			o.WaitEffects()

			Expect(results).To(HaveLen(3))
			for i, r := range results {
				Expect(r.TicketID).To(Equal(batch[i].ID))
				Expect(r.Error).To(BeEmpty())
			}
			Expect(classifier.callCount()).To(Equal(3))
		})

		It("bounds concurrency to the chunk size", func() {
			var mu sync.Mutex
			inFlight, maxInFlight := 0, 0
			classifier.classifyFn = func(ctx context.Context, t domain.Ticket) (domain.Category, error) {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				defer func() {
					mu.Lock()
					inFlight--
					mu.Unlock()
				}()
				return domain.CategoryBilling, nil
			}

			batch := make([]domain.Ticket, 6)
			for i := range batch {
				batch[i] = domain.Ticket{ID: int64(i + 1), Subject: fmt.Sprintf("t%d", i)}
			}

			o := newOrchestrator()
			results := o.ProcessBatch(context.Background(), batch, 2)
			o.WaitEffects()

			Expect(results).To(HaveLen(6))
			Expect(maxInFlight).To(BeNumerically("<=", 2))
		})

		It("isolates failures to their own result", func() {
			classifier.classifyFn = func(ctx context.Context, t domain.Ticket) (domain.Category, error) {
				if t.ID == 2 {
					return "", errors.New("boom")
				}
				return domain.CategoryBugReport, nil
			}

			batch := []domain.Ticket{{ID: 1}, {ID: 2}, {ID: 3}}

			o := newOrchestrator()
			results := o.ProcessBatch(context.Background(), batch, 3)
			o.WaitEffects()

			Expect(results[0].Error).To(BeEmpty())
			Expect(results[1].Error).To(ContainSubstring("boom"))
			Expect(results[2].Error).To(BeEmpty())
		})
	})
})
