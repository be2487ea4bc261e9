package retrieval

import (
	"context"
	"fmt"

	"github.com/veridata-labs/semquery/internal/semantic"
)

// embedder is the subset of llm.Embedder (or EmbeddingCache) the retriever
// depends on.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// vectorStore is the subset of Store the retriever depends on, accepted as
// an interface so tests can substitute an in-memory index for the
// Typesense-backed Store.
type vectorStore interface {
	Upsert(ctx context.Context, doc Document) error
	Search(ctx context.Context, queryVector []float32, topK int, docType DocType) ([]Match, error)
}

// Retriever surfaces the metrics and dimensions most relevant to a
// question, ahead of intent generation (spec.md §6).
type Retriever struct {
	store           vectorStore
	embedder        embedder
	similarityFloor float32
	topK            int
}

// NewRetriever constructs a Retriever. similarityFloor discards matches
// below the threshold (spec.md §6: "min_similarity"); topK bounds how many
// documents of each type are requested from the vector store.
func NewRetriever(store vectorStore, emb embedder, similarityFloor float32, topK int) *Retriever {
	return &Retriever{store: store, embedder: emb, similarityFloor: similarityFloor, topK: topK}
}

// Initialize embeds and upserts every metric/dimension document in reg,
// populating the vector store ahead of first use.
func (r *Retriever) Initialize(ctx context.Context, reg *semantic.Registry) error {
	for _, doc := range DocumentsFromRegistry(reg) {
		vec, err := r.embedder.Embed(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", doc.ID, err)
		}
		doc.Embedding = vec
		if err := r.store.Upsert(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

// Retrieve embeds query and returns the metrics and dimensions whose
// documents score at or above the similarity floor, deduplicated and
// capped at topK per type.
func (r *Retriever) Retrieve(ctx context.Context, query string) (RetrievedSchema, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return RetrievedSchema{}, fmt.Errorf("embed query: %w", err)
	}

	var out RetrievedSchema
	seen := make(map[string]bool)

	metricMatches, err := r.store.Search(ctx, vec, r.topK, DocMetric)
	if err != nil {
		return RetrievedSchema{}, err
	}
	for _, m := range metricMatches {
		if m.Score < r.similarityFloor || seen[m.Document.ID] {
			continue
		}
		seen[m.Document.ID] = true
		out.Metrics = append(out.Metrics, m.Document.Name)
	}

	dimMatches, err := r.store.Search(ctx, vec, r.topK, DocDimension)
	if err != nil {
		return RetrievedSchema{}, err
	}
	for _, m := range dimMatches {
		if m.Score < r.similarityFloor || seen[m.Document.ID] {
			continue
		}
		seen[m.Document.ID] = true
		out.Dimensions = append(out.Dimensions, m.Document.Name)
	}

	return out, nil
}
