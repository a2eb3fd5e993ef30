package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"deskwise.app/triage/internal/domain"
)

// ZendeskConfig holds connection settings for a Zendesk-style REST API.
type ZendeskConfig struct {
	BaseURL  string // e.g. https://acme.zendesk.com
	Email    string
	APIToken string
}

// ZendeskClient talks to the Zendesk ticket API. Writes go through the
// tickets update endpoint; reads sideload requester users so a single call
// returns everything the pipeline needs.
type ZendeskClient struct {
	http    *http.Client
	baseURL string
	email   string
	token   string
}

func NewZendeskClient(cfg ZendeskConfig) (*ZendeskClient, error) {
	if cfg.BaseURL == "" || cfg.Email == "" || cfg.APIToken == "" {
		return nil, fmt.Errorf("zendesk base URL, email and API token are required")
	}

	return &ZendeskClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		email:   cfg.Email,
		token:   cfg.APIToken,
	}, nil
}

type zendeskUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type zendeskTicket struct {
	ID          int64    `json:"id"`
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	RequesterID int64    `json:"requester_id"`
	Tags        []string `json:"tags"`
}

type ticketEnvelope struct {
	Ticket zendeskTicket `json:"ticket"`
	Users  []zendeskUser `json:"users"`
}

func (c *ZendeskClient) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	var envelope ticketEnvelope
	path := fmt.Sprintf("/api/v2/tickets/%d.json?include=users", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("ticketing get ticket %d: %w", id, err)
	}

	ticket := &domain.Ticket{
		ID:          envelope.Ticket.ID,
		Subject:     envelope.Ticket.Subject,
		Description: envelope.Ticket.Description,
		Tags:        envelope.Ticket.Tags,
	}
	for _, u := range envelope.Users {
		if u.ID == envelope.Ticket.RequesterID {
			ticket.Requester = &domain.Requester{Name: u.Name, Email: u.Email}
			break
		}
	}

	return ticket, nil
}

type ticketUpdatePayload struct {
	Comment      *commentPayload `json:"comment,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Priority     string          `json:"priority,omitempty"`
	CustomFields []fieldPayload  `json:"custom_fields,omitempty"`
}

type commentPayload struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

type fieldPayload struct {
	ID    int64  `json:"id"`
	Value string `json:"value"`
}

func (c *ZendeskClient) UpdateTicket(ctx context.Context, id int64, update TicketUpdate) error {
	payload := ticketUpdatePayload{Tags: update.Tags}
	if update.Comment != nil {
		payload.Comment = &commentPayload{Body: update.Comment.Body, Public: update.Comment.Public}
	}
	if update.Priority != nil {
		payload.Priority = string(*update.Priority)
	}
	for _, f := range update.CustomFields {
		payload.CustomFields = append(payload.CustomFields, fieldPayload{ID: f.ID, Value: f.Value})
	}

	body := map[string]any{"ticket": payload}
	path := fmt.Sprintf("/api/v2/tickets/%d.json", id)
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("ticketing update ticket %d: %w", id, err)
	}
	return nil
}

func (c *ZendeskClient) AddTags(ctx context.Context, id int64, tags []string) error {
	ticket, err := c.GetTicket(ctx, id)
	if err != nil {
		return err
	}

	merged := mergeTags(ticket.Tags, tags)
	return c.UpdateTicket(ctx, id, TicketUpdate{Tags: merged})
}

func (c *ZendeskClient) AddInternalNote(ctx context.Context, id int64, body string) error {
	return c.UpdateTicket(ctx, id, TicketUpdate{
		Comment: &Comment{Body: body, Public: false},
	})
}

func (c *ZendeskClient) AddDraftResponse(ctx context.Context, id int64, draft string, meta DraftMeta) error {
	return c.AddInternalNote(ctx, id, FormatDraftNote(draft, meta))
}

func (c *ZendeskClient) SetCustomField(ctx context.Context, id int64, fieldID int64, value string) error {
	return c.UpdateTicket(ctx, id, TicketUpdate{
		CustomFields: []CustomField{{ID: fieldID, Value: value}},
	})
}

func (c *ZendeskClient) SetPriority(ctx context.Context, id int64, priority domain.Priority) error {
	return c.UpdateTicket(ctx, id, TicketUpdate{Priority: &priority})
}

func (c *ZendeskClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	// Zendesk API token auth: {email}/token as the basic-auth username.
	req.SetBasicAuth(c.email+"/token", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.DebugContext(ctx, "ticketing API error response",
			"status", resp.StatusCode,
			"body", string(snippet))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// mergeTags unions existing and new tags, deduplicated, sorted for stable
// request bodies.
func mergeTags(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	var merged []string
	for _, t := range append(append([]string{}, existing...), added...) {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	sort.Strings(merged)
	return merged
}

// FormatDraftNote renders the internal note body for a committed draft:
// the draft itself plus category, confidence percentage and up to three
// source titles.
func FormatDraftNote(draft string, meta DraftMeta) string {
	var sb strings.Builder
	sb.WriteString("AI-suggested reply (not sent to customer):\n\n")
	sb.WriteString(draft)
	sb.WriteString("\n\n---\n")
	fmt.Fprintf(&sb, "Category: %s | Confidence: %.0f%%", meta.Category, meta.Confidence*100)

	titles := meta.SourceTitles
	if len(titles) > 3 {
		titles = titles[:3]
	}
	if len(titles) > 0 {
		fmt.Fprintf(&sb, "\nSources: %s", strings.Join(titles, "; "))
	}
	return sb.String()
}
