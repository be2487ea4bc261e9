// Package retrieval embeds semantic registry entries (metrics, dimensions)
// into a vector store and retrieves the entries most relevant to a user's
// natural-language question, ahead of intent generation (spec.md §6,
// "Embedding client"; grounded on original_source's schema_rag/embedder.rs
// and retriever.rs).
package retrieval

// DocType distinguishes what kind of semantic registry entry a Document
// embeds.
type DocType string

const (
	DocMetric    DocType = "metric"
	DocDimension DocType = "dimension"
)

// Document is one embeddable unit: a metric or dimension definition
// rendered to descriptive text, plus its embedding vector once computed.
type Document struct {
	ID        string
	Type      DocType
	Name      string
	Text      string
	Embedding []float32
}

// Match is one retrieval result: the matched document and its similarity
// score in [0, 1] (cosine similarity, since embeddings are not normalized
// by the embedding endpoint).
type Match struct {
	Document Document
	Score    float32
}

// RetrievedSchema is the subset of the semantic registry judged relevant to
// a query: the union of metric and dimension names surfaced by retrieval
// (spec.md §6). The execution loop's prompt builder does not consume it; it
// lists every registered metric and dimension.
type RetrievedSchema struct {
	Metrics    []string
	Dimensions []string
}
