package hypergraph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veridata-labs/semquery/common/arangodb"
)

// Mirror accepts write-behind copies of catalog nodes and edges. It is
// never consulted for reads — the in-memory Catalog is authoritative at
// request time (spec.md §4.9).
type Mirror interface {
	MirrorNode(n Node)
	MirrorEdge(e Edge)
}

// ArangoMirror persists catalog writes to Arango asynchronously, logging
// (not returning) failures since a mirror write never blocks or fails the
// caller's catalog mutation.
type ArangoMirror struct {
	client arangodb.Client
	ctx    context.Context
}

// NewArangoMirror wraps an already-provisioned Arango client (database,
// collections, and graph must already exist — call client.EnsureDatabase /
// EnsureCollections / EnsureGraph once at startup).
func NewArangoMirror(ctx context.Context, client arangodb.Client) *ArangoMirror {
	return &ArangoMirror{client: client, ctx: ctx}
}

func (m *ArangoMirror) MirrorNode(n Node) {
	kind := arangodb.NodeKindTable
	if n.Type == NodeColumn {
		kind = arangodb.NodeKindColumn
	}
	doc := arangodb.Node{
		Key:      fmt.Sprintf("%d", n.ID),
		Kind:     kind,
		Schema:   n.Schema,
		Table:    n.Table,
		Column:   n.Column,
		DataType: n.DataType,
	}
	go func() {
		if err := m.client.IngestNodes(m.ctx, []arangodb.Node{doc}); err != nil {
			slog.WarnContext(m.ctx, "hypergraph mirror: node ingest failed", "node_id", n.ID, "error", err)
		}
	}()
}

func (m *ArangoMirror) MirrorEdge(e Edge) {
	doc := arangodb.Edge{
		Key:         fmt.Sprintf("%d", e.ID),
		From:        fmt.Sprintf("%d", e.Source),
		To:          fmt.Sprintf("%d", e.Target),
		On:          e.On,
		Cardinality: e.Cardinality,
		Optional:    e.Optional,
	}
	go func() {
		if err := m.client.IngestEdges(m.ctx, []arangodb.Edge{doc}); err != nil {
			slog.WarnContext(m.ctx, "hypergraph mirror: edge ingest failed", "edge_id", e.ID, "error", err)
		}
	}()
}
