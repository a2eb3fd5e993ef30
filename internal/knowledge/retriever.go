package knowledge

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"deskwise.app/triage/internal/domain"
)

const (
	// DefaultMinScore filters plain retrieval results.
	DefaultMinScore = 0.7
	// hybridMinScore is looser: keyword boosting re-ranks afterwards, so the
	// first stage casts a wider net.
	hybridMinScore = 0.5
	hybridTopK     = 10
	hybridLimit    = 5
	keywordBoost   = 0.1
)

// RetrieveOptions tune a single retrieval call.
type RetrieveOptions struct {
	TopK     int
	MinScore float64
	Filter   string
}

// Retriever ranks supporting knowledge snippets for a query. Retrieval is
// deliberately non-fatal: any embedding or index failure degrades to an empty
// result list so knowledge lookup can never abort ticket processing.
type Retriever struct {
	index Index
}

func NewRetriever(index Index) *Retriever {
	return &Retriever{index: index}
}

// Retrieve embeds the query, finds the nearest neighbors and keeps matches
// scoring at or above opts.MinScore. Failures are logged and return nil.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) []domain.KnowledgeResult {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}

	vector, err := r.index.Embed(ctx, query)
	if err != nil {
		slog.WarnContext(ctx, "knowledge retrieval degraded to empty: embedding failed",
			"error", err)
		return nil
	}

	matches, err := r.index.Query(ctx, vector, opts.TopK, opts.Filter)
	if err != nil {
		slog.WarnContext(ctx, "knowledge retrieval degraded to empty: index query failed",
			"error", err)
		return nil
	}

	var results []domain.KnowledgeResult
	for _, m := range matches {
		if m.Score < opts.MinScore {
			continue
		}
		results = append(results, domain.KnowledgeResult{
			ID:    m.ID,
			Text:  m.Text,
			Title: m.Title,
			URL:   m.URL,
			Score: m.Score,
		})
	}

	return results
}

// HybridSearch runs semantic retrieval and then boosts results that contain
// the supplied keywords: +0.1 per case-insensitive substring match in text or
// title. The boost is additive and uncapped - scores past 1.0 are a ranking
// key, not a probability. Re-sort is stable so ties keep their semantic order.
// Semantic-only ranking misses exact terminology (error codes, product names)
// that the boost recovers. Returns at most 5 results.
func (r *Retriever) HybridSearch(ctx context.Context, query string, keywords []string) []domain.KnowledgeResult {
	results := r.Retrieve(ctx, query, RetrieveOptions{
		TopK:     hybridTopK,
		MinScore: hybridMinScore,
	})

	if len(keywords) == 0 {
		return capResults(results, hybridLimit)
	}

	boosted := make([]domain.KnowledgeResult, len(results))
	copy(boosted, results)
	for i := range boosted {
		matches := countKeywordMatches(boosted[i], keywords)
		boosted[i].Score += keywordBoost * float64(matches)
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})

	slog.DebugContext(ctx, "hybrid search re-ranked",
		"semantic_count", len(results),
		"keyword_count", len(keywords))

	return capResults(boosted, hybridLimit)
}

func countKeywordMatches(result domain.KnowledgeResult, keywords []string) int {
	haystack := strings.ToLower(result.Text + " " + result.Title)
	count := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			count++
		}
	}
	return count
}

func capResults(results []domain.KnowledgeResult, limit int) []domain.KnowledgeResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
