// Package ticketing wraps the external ticketing system. The pipeline's only
// writes go through this package: tag merges, internal notes, priority and
// custom-field updates.
package ticketing

import (
	"context"

	"deskwise.app/triage/internal/domain"
)

// Comment is a note appended to a ticket. Public controls customer
// visibility; the pipeline only ever writes internal (non-public) notes.
type Comment struct {
	Body   string
	Public bool
}

// CustomField is one custom field assignment.
type CustomField struct {
	ID    int64
	Value string
}

// TicketUpdate is a partial update; nil/empty fields are left untouched.
// Tags replaces the full tag set - use AddTags for a merge.
type TicketUpdate struct {
	Comment      *Comment
	Tags         []string
	Priority     *domain.Priority
	CustomFields []CustomField
}

// DraftMeta is the metadata block appended to a committed draft note.
type DraftMeta struct {
	Category     domain.Category
	Confidence   float64
	SourceTitles []string
}

// Client is the ticketing system contract the pipeline consumes.
type Client interface {
	GetTicket(ctx context.Context, id int64) (*domain.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, update TicketUpdate) error

	// AddTags merges tags into the ticket's existing set, deduplicated.
	AddTags(ctx context.Context, id int64, tags []string) error
	// AddInternalNote appends a note not visible to the customer.
	AddInternalNote(ctx context.Context, id int64, body string) error
	// AddDraftResponse appends the draft as an internal note with metadata.
	AddDraftResponse(ctx context.Context, id int64, draft string, meta DraftMeta) error
	SetCustomField(ctx context.Context, id int64, fieldID int64, value string) error
	SetPriority(ctx context.Context, id int64, priority domain.Priority) error
}
