package classify

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/internal/domain"
)

type mockLLM struct {
	completeFn func(ctx context.Context, req llm.Request) (*llm.Response, error)
	requests   []llm.Request
}

func (m *mockLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	return m.completeFn(ctx, req)
}

func (m *mockLLM) Model() string { return "mock" }

func TestClassify(t *testing.T) {
	ticket := domain.Ticket{ID: 1, Subject: "Refund please", Description: "I want my money back"}

	tests := []struct {
		name     string
		response string
		want     domain.Category
	}{
		{"exact label", "refund", domain.CategoryRefund},
		{"label with whitespace", "  billing\n", domain.CategoryBilling},
		{"uppercase label", "BUG_REPORT", domain.CategoryBugReport},
		{"label in prose", "The category is: technical support.", domain.CategoryGeneralInquiry},
		{"unknown label", "spam", domain.CategoryGeneralInquiry},
		{"empty response", "", domain.CategoryGeneralInquiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockLLM{completeFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
				return &llm.Response{Text: tt.response}, nil
			}}

			got, err := New(client).Classify(context.Background(), ticket)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyPropagatesProviderError(t *testing.T) {
	client := &mockLLM{completeFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, fmt.Errorf("openai chat: %w", context.Canceled)
	}}

	_, err := New(client).Classify(context.Background(), domain.Ticket{ID: 1})
	if err == nil {
		t.Fatal("Classify() expected error, got nil")
	}
	if len(client.requests) != 1 {
		t.Errorf("Classify() made %d attempts for a non-retryable error, want 1", len(client.requests))
	}
}

func TestClassifyPromptIncludesTicketText(t *testing.T) {
	client := &mockLLM{completeFn: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return &llm.Response{Text: "billing"}, nil
	}}

	ticket := domain.Ticket{
		ID:          2,
		Subject:     "Double charge",
		Description: "Charged twice for March",
		Tags:        []string{"vip"},
	}

	if _, err := New(client).Classify(context.Background(), ticket); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	req := client.requests[0]
	for _, want := range []string{"Double charge", "Charged twice for March", "vip"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Error("expected temperature 0 for deterministic labels")
	}
}
