package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"deskwise.app/triage/internal/domain"
)

const embeddingDims = 1536

// TypesenseConfig holds connection settings for the knowledge index.
type TypesenseConfig struct {
	URL        string
	APIKey     string
	Collection string
}

// EmbedderConfig holds settings for the embedding generator.
type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// TypesenseIndex stores knowledge articles in a Typesense collection with an
// embedding field and answers k-NN queries against it. Embeddings come from
// the OpenAI embeddings API.
type TypesenseIndex struct {
	client         *typesense.Client
	openai         openai.Client
	collection     string
	embeddingModel string
}

func NewTypesenseIndex(cfg TypesenseConfig, embedder EmbedderConfig) (*TypesenseIndex, error) {
	if cfg.URL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("typesense URL and API key are required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(embedder.APIKey),
	}
	if embedder.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(embedder.BaseURL))
	}

	model := embedder.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "knowledge_articles"
	}

	return &TypesenseIndex{
		client: typesense.NewClient(
			typesense.WithServer(cfg.URL),
			typesense.WithAPIKey(cfg.APIKey),
			typesense.WithConnectionTimeout(10*time.Second),
		),
		openai:         openai.NewClient(opts...),
		collection:     collection,
		embeddingModel: model,
	}, nil
}

// EnsureCollection creates the collection if it does not exist yet.
func (idx *TypesenseIndex) EnsureCollection(ctx context.Context) error {
	schema := &api.CollectionSchema{
		Name: idx.collection,
		Fields: []api.Field{
			{Name: "title", Type: "string", Optional: pointer.True()},
			{Name: "text", Type: "string"},
			{Name: "url", Type: "string", Optional: pointer.True(), Index: pointer.False()},
			{Name: "embedding", Type: "float[]", NumDim: pointer.Int(embeddingDims)},
		},
	}

	if _, err := idx.client.Collections().Create(ctx, schema); err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == 409 {
			return nil // already exists
		}
		return fmt.Errorf("typesense create collection: %w", err)
	}

	slog.InfoContext(ctx, "knowledge collection created", "collection", idx.collection)
	return nil
}

func (idx *TypesenseIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := idx.openai.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(idx.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embed: empty response")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}
	return vector, nil
}

func (idx *TypesenseIndex) Query(ctx context.Context, vector []float32, topK int, filter string) ([]Match, error) {
	params := &api.SearchCollectionParams{
		Q:           pointer.String("*"),
		QueryBy:     pointer.String("text"),
		VectorQuery: pointer.String(vectorQuery(vector, topK)),
		PerPage:     pointer.Int(topK),
	}
	if filter != "" {
		params.FilterBy = pointer.String(filter)
	}

	result, err := idx.client.Collection(idx.collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("typesense search: %w", err)
	}
	if result.Hits == nil {
		return nil, nil
	}

	matches := make([]Match, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document

		m := Match{
			ID:    docString(doc, "id"),
			Text:  docString(doc, "text"),
			Title: docString(doc, "title"),
			URL:   docString(doc, "url"),
		}
		// Typesense reports cosine distance; similarity = 1 - distance.
		if hit.VectorDistance != nil {
			m.Score = 1 - float64(*hit.VectorDistance)
		}
		matches = append(matches, m)
	}

	return matches, nil
}

func (idx *TypesenseIndex) Upsert(ctx context.Context, doc domain.KnowledgeDocument) error {
	vector, err := idx.Embed(ctx, doc.Text)
	if err != nil {
		return fmt.Errorf("embedding document %s: %w", doc.ID, err)
	}

	record := map[string]any{
		"id":        doc.ID,
		"title":     doc.Title,
		"text":      doc.Text,
		"url":       doc.URL,
		"embedding": vector,
	}

	if _, err := idx.client.Collection(idx.collection).Documents().Upsert(ctx, record, &api.DocumentIndexParameters{}); err != nil {
		return fmt.Errorf("typesense upsert: %w", err)
	}

	slog.InfoContext(ctx, "knowledge document indexed", "document_id", doc.ID)
	return nil
}

func (idx *TypesenseIndex) Stats(ctx context.Context) (Stats, error) {
	col, err := idx.client.Collection(idx.collection).Retrieve(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("typesense collection stats: %w", err)
	}

	var count int64
	if col.NumDocuments != nil {
		count = *col.NumDocuments
	}
	return Stats{DocumentCount: count}, nil
}

func vectorQuery(vector []float32, topK int) string {
	var sb strings.Builder
	sb.WriteString("embedding:([")
	for i, v := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	sb.WriteString("], k:")
	sb.WriteString(strconv.Itoa(topK))
	sb.WriteString(")")
	return sb.String()
}

func docString(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}
