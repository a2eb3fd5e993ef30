// Package knowledge provides the knowledge index and the hybrid-search
// retriever that ranks supporting snippets for a ticket.
package knowledge

import (
	"context"

	"deskwise.app/triage/internal/domain"
)

// Match is one nearest-neighbor hit from the index. Score is cosine
// similarity in [0,1] before any keyword boosting.
type Match struct {
	ID    string
	Text  string
	Title string
	URL   string
	Score float64
}

// Stats reports index size.
type Stats struct {
	DocumentCount int64 `json:"document_count"`
}

// Index is the vector similarity store consumed by the retriever.
type Index interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Query(ctx context.Context, vector []float32, topK int, filter string) ([]Match, error)
	Upsert(ctx context.Context, doc domain.KnowledgeDocument) error
	Stats(ctx context.Context) (Stats, error)
}
