package pipeline_test

import (
	"context"
	"sync"

	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/draft"
	"deskwise.app/triage/internal/ticketing"
)

type mockClassifier struct {
	mu         sync.Mutex
	classifyFn func(ctx context.Context, ticket domain.Ticket) (domain.Category, error)
	calls      int
	tickets    []int64
}

func (m *mockClassifier) Classify(ctx context.Context, ticket domain.Ticket) (domain.Category, error) {
	m.mu.Lock()
	m.calls++
	m.tickets = append(m.tickets, ticket.ID)
	m.mu.Unlock()
	if m.classifyFn != nil {
		return m.classifyFn(ctx, ticket)
	}
	return domain.CategoryBilling, nil
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockExtractor struct {
	extractFn func(ctx context.Context, ticket domain.Ticket) (domain.IntentAnalysis, error)
	calls     int
}

func (m *mockExtractor) Extract(ctx context.Context, ticket domain.Ticket) (domain.IntentAnalysis, error) {
	m.calls++
	if m.extractFn != nil {
		return m.extractFn(ctx, ticket)
	}
	return domain.IntentAnalysis{
		Intent:    "billing question",
		Urgency:   domain.UrgencyMedium,
		Sentiment: domain.SentimentNeutral,
	}, nil
}

type mockSearcher struct {
	searchFn     func(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult
	calls        int
	lastQuery    string
	lastKeywords []string
}

func (m *mockSearcher) HybridSearch(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult {
	m.calls++
	m.lastQuery = query
	m.lastKeywords = keywords
	if m.searchFn != nil {
		return m.searchFn(ctx, query, keywords)
	}
	return nil
}

type mockGenerator struct {
	generateFn func(ctx context.Context, in draft.Input) (*domain.DraftResponse, error)
	calls      int
	lastInput  draft.Input
}

func (m *mockGenerator) Generate(ctx context.Context, in draft.Input) (*domain.DraftResponse, error) {
	m.calls++
	m.lastInput = in
	if m.generateFn != nil {
		return m.generateFn(ctx, in)
	}
	return &domain.DraftResponse{Draft: "Hi, here is what to do.", Confidence: 0.8}, nil
}

// mockTicketing records writes under a mutex because side effects run on
// their own goroutines.
type mockTicketing struct {
	mu sync.Mutex

	getTicketFn func(ctx context.Context, id int64) (*domain.Ticket, error)

	addTagsErr error

	addedTags      []string
	draftCommits   []string
	draftMetas     []ticketing.DraftMeta
	priorities     []domain.Priority
	customFields   []ticketing.CustomField
	internalNotes  []string
	getTicketCalls int
}

func (m *mockTicketing) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	m.mu.Lock()
	m.getTicketCalls++
	m.mu.Unlock()
	if m.getTicketFn != nil {
		return m.getTicketFn(ctx, id)
	}
	return &domain.Ticket{ID: id, Subject: "help", Description: "something broke"}, nil
}

func (m *mockTicketing) UpdateTicket(ctx context.Context, id int64, update ticketing.TicketUpdate) error {
	return nil
}

func (m *mockTicketing) AddTags(ctx context.Context, id int64, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addTagsErr != nil {
		return m.addTagsErr
	}
	m.addedTags = append(m.addedTags, tags...)
	return nil
}

func (m *mockTicketing) AddInternalNote(ctx context.Context, id int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.internalNotes = append(m.internalNotes, body)
	return nil
}

func (m *mockTicketing) AddDraftResponse(ctx context.Context, id int64, draftBody string, meta ticketing.DraftMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draftCommits = append(m.draftCommits, draftBody)
	m.draftMetas = append(m.draftMetas, meta)
	return nil
}

func (m *mockTicketing) SetCustomField(ctx context.Context, id int64, fieldID int64, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customFields = append(m.customFields, ticketing.CustomField{ID: fieldID, Value: value})
	return nil
}

func (m *mockTicketing) SetPriority(ctx context.Context, id int64, priority domain.Priority) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priorities = append(m.priorities, priority)
	return nil
}

func (m *mockTicketing) tags() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.addedTags...)
}

func (m *mockTicketing) drafts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.draftCommits...)
}

func (m *mockTicketing) setPriorities() []domain.Priority {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Priority(nil), m.priorities...)
}

func (m *mockTicketing) fields() []ticketing.CustomField {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ticketing.CustomField(nil), m.customFields...)
}

type mockDeadLetter struct {
	mu      sync.Mutex
	records []deadLetterRecord
}

type deadLetterRecord struct {
	effect   string
	ticketID int64
	errMsg   string
}

func (m *mockDeadLetter) Record(ctx context.Context, effect string, ticketID int64, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, deadLetterRecord{effect: effect, ticketID: ticketID, errMsg: errMsg})
}

func (m *mockDeadLetter) recorded() []deadLetterRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]deadLetterRecord(nil), m.records...)
}
