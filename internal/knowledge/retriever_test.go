package knowledge_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"deskwise.app/triage/internal/domain"
	"deskwise.app/triage/internal/knowledge"
)

// mockIndex implements knowledge.Index for testing.
type mockIndex struct {
	embedFn    func(ctx context.Context, text string) ([]float32, error)
	queryFn    func(ctx context.Context, vector []float32, topK int, filter string) ([]knowledge.Match, error)
	embedCalls int
	queryCalls int
	lastTopK   int
}

func (m *mockIndex) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return []float32{0.1, 0.2}, nil
}

func (m *mockIndex) Query(ctx context.Context, vector []float32, topK int, filter string) ([]knowledge.Match, error) {
	m.queryCalls++
	m.lastTopK = topK
	if m.queryFn != nil {
		return m.queryFn(ctx, vector, topK, filter)
	}
	return nil, nil
}

func (m *mockIndex) Upsert(ctx context.Context, doc domain.KnowledgeDocument) error {
	return nil
}

func (m *mockIndex) Stats(ctx context.Context) (knowledge.Stats, error) {
	return knowledge.Stats{}, nil
}

func fixedMatches(matches ...knowledge.Match) func(context.Context, []float32, int, string) ([]knowledge.Match, error) {
	return func(context.Context, []float32, int, string) ([]knowledge.Match, error) {
		return matches, nil
	}
}

var _ = Describe("Retriever", func() {
	var (
		index     *mockIndex
		retriever *knowledge.Retriever
		ctx       context.Context
	)

	BeforeEach(func() {
		index = &mockIndex{}
		retriever = knowledge.NewRetriever(index)
		ctx = context.Background()
	})

	Describe("Retrieve", func() {
		It("filters matches below the minimum score", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "a", Score: 0.9},
				knowledge.Match{ID: "b", Score: 0.65},
				knowledge.Match{ID: "c", Score: 0.71},
			)

			results := retriever.Retrieve(ctx, "query", knowledge.RetrieveOptions{TopK: 5})

			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a"))
			Expect(results[1].ID).To(Equal("c"))
		})

		It("returns empty when embedding fails", func() {
			index.embedFn = func(context.Context, string) ([]float32, error) {
				return nil, errors.New("embedding service down")
			}

			results := retriever.Retrieve(ctx, "query", knowledge.RetrieveOptions{})

			Expect(results).To(BeEmpty())
			Expect(index.queryCalls).To(BeZero())
		})

		It("returns empty when the index query fails", func() {
			index.queryFn = func(context.Context, []float32, int, string) ([]knowledge.Match, error) {
				return nil, errors.New("index unavailable")
			}

			results := retriever.Retrieve(ctx, "query", knowledge.RetrieveOptions{})

			Expect(results).To(BeEmpty())
		})
	})

	Describe("HybridSearch", func() {
		It("queries ten candidates and returns at most five", func() {
			var matches []knowledge.Match
			for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
				matches = append(matches, knowledge.Match{ID: id, Score: 0.8})
			}
			index.queryFn = fixedMatches(matches...)

			results := retriever.HybridSearch(ctx, "query", nil)

			Expect(index.lastTopK).To(Equal(10))
			Expect(results).To(HaveLen(5))
		})

		It("returns semantic order unmodified without keywords", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "a", Score: 0.9},
				knowledge.Match{ID: "b", Score: 0.8},
			)

			results := retriever.HybridSearch(ctx, "query", nil)

			Expect(results).To(HaveLen(2))
			Expect(results[0].Score).To(Equal(0.9))
			Expect(results[1].Score).To(Equal(0.8))
		})

		It("boosts keyword matches above higher semantic scores", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "first", Text: "general troubleshooting guide", Score: 0.90},
				knowledge.Match{ID: "second", Text: "reset your password from the login page", Score: 0.80},
				knowledge.Match{ID: "third", Title: "password policies", Text: "how policies work", Score: 0.75},
			)

			results := retriever.HybridSearch(ctx, "query", []string{"password", "login"})

			// second: 0.80 + 2x0.1 = 1.00, first: 0.90, third: 0.75 + 0.1 = 0.85
			Expect(results[0].ID).To(Equal("second"))
			Expect(results[0].Score).To(BeNumerically("~", 1.00, 1e-9))
			Expect(results[1].ID).To(Equal("first"))
			Expect(results[2].ID).To(Equal("third"))
			Expect(results[2].Score).To(BeNumerically("~", 0.85, 1e-9))
		})

		It("lets boosted scores exceed one", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "a", Text: "login error on password reset", Score: 0.95},
			)

			results := retriever.HybridSearch(ctx, "query", []string{"login", "error", "password"})

			Expect(results[0].Score).To(BeNumerically("~", 1.25, 1e-9))
		})

		It("keeps input order among equal scores", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "a", Score: 0.8},
				knowledge.Match{ID: "b", Score: 0.8},
				knowledge.Match{ID: "c", Score: 0.8},
			)

			results := retriever.HybridSearch(ctx, "query", []string{"absent"})

			Expect(results[0].ID).To(Equal("a"))
			Expect(results[1].ID).To(Equal("b"))
			Expect(results[2].ID).To(Equal("c"))
		})

		It("matches keywords case-insensitively against titles", func() {
			index.queryFn = fixedMatches(
				knowledge.Match{ID: "a", Title: "SSO Configuration", Text: "setup steps", Score: 0.65},
				knowledge.Match{ID: "b", Text: "unrelated article", Score: 0.7},
			)

			results := retriever.HybridSearch(ctx, "query", []string{"sso"})

			Expect(results[0].ID).To(Equal("a"))
		})
	})
})
