package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/semantic"
)

// fakeEmbedder embeds deterministically: the vector is a bag-of-words
// indicator over a small fixed vocabulary, so cosine similarity scoring is
// meaningful without a real embedding model.
type fakeEmbedder struct{}

var vocab = []string{"revenue", "orders", "region", "customer", "signup", "users"}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab))
	for i, word := range vocab {
		if strings.Contains(lower, word) {
			vec[i] = 1
		}
	}
	return vec, nil
}

// fakeStore is an in-memory substitute for the Typesense-backed Store,
// scoring by cosine similarity over the fakeEmbedder's small vocabulary.
type fakeStore struct {
	docs []Document
}

func (s *fakeStore) Upsert(_ context.Context, doc Document) error {
	s.docs = append(s.docs, doc)
	return nil
}

func (s *fakeStore) Search(_ context.Context, queryVector []float32, topK int, docType DocType) ([]Match, error) {
	var matches []Match
	for _, d := range s.docs {
		if docType != "" && d.Type != docType {
			continue
		}
		matches = append(matches, Match{Document: d, Score: cosine(queryVector, d.Embedding)})
	}
	for i := 0; i < len(matches) && i < topK; i++ {
		best := i
		for j := i + 1; j < len(matches); j++ {
			if matches[j].Score > matches[best].Score {
				best = j
			}
		}
		matches[i], matches[best] = matches[best], matches[i]
	}
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(f float32) float32 {
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func testRetrievalRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{
		Name:        "revenue",
		Description: "total order revenue",
		BaseTable:   "orders",
		Aggregation: semantic.AggSum,
	})
	reg.RegisterMetric(semantic.Metric{
		Name:        "signup_count",
		Description: "count of user signups",
		BaseTable:   "users",
		Aggregation: semantic.AggCount,
	})
	reg.RegisterDimension(semantic.Dimension{
		Name:        "region",
		Description: "customer region",
		BaseTable:   "orders",
		Column:      "region",
	})
	return reg
}

func TestRetrieverInitializeIndexesAllDocuments(t *testing.T) {
	ctx := context.Background()
	reg := testRetrievalRegistry()
	store := &fakeStore{}
	r := NewRetriever(store, fakeEmbedder{}, 0, 5)

	if err := r.Initialize(ctx, reg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(store.docs) != 3 {
		t.Fatalf("expected 3 documents indexed, got %d", len(store.docs))
	}
	for _, d := range store.docs {
		if d.Embedding == nil {
			t.Fatalf("document %s was not embedded before upsert", d.ID)
		}
	}
}

func TestRetrieverSurfacesRelevantMetricsAndDimensions(t *testing.T) {
	ctx := context.Background()
	reg := testRetrievalRegistry()
	store := &fakeStore{}
	r := NewRetriever(store, fakeEmbedder{}, 0.4, 5)

	if err := r.Initialize(ctx, reg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	out, err := r.Retrieve(ctx, "what is our revenue by region")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(out.Metrics) != 1 || out.Metrics[0] != "revenue" {
		t.Fatalf("expected revenue metric, got %v", out.Metrics)
	}
	if len(out.Dimensions) != 1 || out.Dimensions[0] != "region" {
		t.Fatalf("expected region dimension, got %v", out.Dimensions)
	}
}

func TestRetrieverFiltersBelowSimilarityFloor(t *testing.T) {
	ctx := context.Background()
	reg := testRetrievalRegistry()
	store := &fakeStore{}
	r := NewRetriever(store, fakeEmbedder{}, 0.99, 5)

	if err := r.Initialize(ctx, reg); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	out, err := r.Retrieve(ctx, "unrelated query about nothing in the vocabulary")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(out.Metrics) != 0 || len(out.Dimensions) != 0 {
		t.Fatalf("expected no matches above floor, got %+v", out)
	}
}
