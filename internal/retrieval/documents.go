package retrieval

import (
	"fmt"

	"github.com/veridata-labs/semquery/internal/semantic"
)

// DocumentsFromRegistry renders one Document per metric and dimension in
// reg, in the teacher's embedder's "Field: value. Field: value" style
// (original_source's table_to_text/column_to_text), ready to be embedded
// and upserted into the vector store.
func DocumentsFromRegistry(reg *semantic.Registry) []Document {
	var docs []Document

	for _, name := range reg.ListMetrics() {
		m, ok := reg.Metric(name)
		if !ok {
			continue
		}
		docs = append(docs, Document{
			ID:   "metric:" + m.Name,
			Type: DocMetric,
			Name: m.Name,
			Text: fmt.Sprintf("Metric: %s. Description: %s. Base table: %s. Aggregation: %s",
				m.Name, m.Description, m.BaseTable, m.Aggregation),
		})
	}

	for _, name := range reg.ListDimensions() {
		d, ok := reg.Dimension(name)
		if !ok {
			continue
		}
		docs = append(docs, Document{
			ID:   "dimension:" + d.Name,
			Type: DocDimension,
			Name: d.Name,
			Text: fmt.Sprintf("Dimension: %s. Description: %s. Base table: %s. Column: %s",
				d.Name, d.Description, d.BaseTable, d.Column),
		})
	}

	return docs
}
