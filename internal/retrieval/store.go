package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/typesense/typesense-go/v4/typesense"
	"github.com/typesense/typesense-go/v4/typesense/api"
	"github.com/typesense/typesense-go/v4/typesense/api/pointer"

	"github.com/veridata-labs/semquery/common/llm"
)

const collectionName = "semquery_schema_docs"

// Store is a Typesense-backed vector index over embedded Documents.
type Store struct {
	client *typesense.Client
}

// NewStore connects to a Typesense node and ensures the schema-docs
// collection exists with a float[] embedding field.
func NewStore(ctx context.Context, url, apiKey string) (*Store, error) {
	client := typesense.NewClient(
		typesense.WithServer(url),
		typesense.WithAPIKey(apiKey),
	)

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "doc_type", Type: "string", Facet: pointer.True()},
			{Name: "name", Type: "string"},
			{Name: "text", Type: "string"},
			{Name: "embedding", Type: "float[]", NumDim: pointer.Int(llm.EmbeddingDim)},
		},
	}

	if _, err := client.Collections().Create(ctx, schema); err != nil && !isAlreadyExists(err) {
		return nil, fmt.Errorf("ensure typesense collection: %w", err)
	}

	return &Store{client: client}, nil
}

// Upsert indexes or replaces a document.
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	body := map[string]any{
		"id":        doc.ID,
		"doc_type":  string(doc.Type),
		"name":      doc.Name,
		"text":      doc.Text,
		"embedding": doc.Embedding,
	}
	action := api.IndexDocumentParamsActionUpsert
	_, err := s.client.Collection(collectionName).Documents().Create(ctx, body, &api.DocumentIndexParameters{Action: &action})
	if err != nil {
		return fmt.Errorf("typesense upsert %s: %w", doc.ID, err)
	}
	return nil
}

// Search returns the topK nearest documents to queryVector by cosine
// distance, restricted to docType when non-empty.
func (s *Store) Search(ctx context.Context, queryVector []float32, topK int, docType DocType) ([]Match, error) {
	vq := fmt.Sprintf("embedding:(%s, k:%d)", vectorLiteral(queryVector), topK)

	params := &api.SearchCollectionParams{
		Q:           pointer.String("*"),
		VectorQuery: pointer.String(vq),
	}
	if docType != "" {
		filter := fmt.Sprintf("doc_type:=%s", docType)
		params.FilterBy = &filter
	}

	result, err := s.client.Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("typesense search: %w", err)
	}

	var matches []Match
	if result.Hits == nil {
		return matches, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		score := float32(1.0)
		if hit.VectorDistance != nil {
			score = 1 - *hit.VectorDistance
		}
		matches = append(matches, Match{
			Document: Document{
				ID:   stringField(doc, "id"),
				Type: DocType(stringField(doc, "doc_type")),
				Name: stringField(doc, "name"),
				Text: stringField(doc, "text"),
			},
			Score: score,
		})
	}
	return matches, nil
}

func stringField(doc map[string]any, key string) string {
	v, _ := doc[key].(string)
	return v
}

func vectorLiteral(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(float64(f), 'f', 6, 32)
	}
	return strings.Join(parts, ", ")
}

func isAlreadyExists(err error) bool {
	return strings.Contains(err.Error(), "already exists")
}
