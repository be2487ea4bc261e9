// Package arangodb is a thin write-behind mirror of the in-memory
// hypergraph catalog (internal/hypergraph): nodes are schema/table/column
// entries, edges are join edges. It is never read at request time — the
// in-memory concurrent catalog is authoritative (spec.md §4.9) — so this
// client only needs to ensure storage and accept writes.
package arangodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
)

var ErrNotFound = errors.New("document not found")

const (
	nodeCollection = "catalog_nodes"
	edgeCollection = "catalog_edges"
	graphName      = "semquery_catalog"
)

type Client interface {
	EnsureDatabase(ctx context.Context) error
	EnsureCollections(ctx context.Context) error
	EnsureGraph(ctx context.Context) error

	IngestNodes(ctx context.Context, nodes []Node) error
	IngestEdges(ctx context.Context, edges []Edge) error
	TruncateCollections(ctx context.Context) error

	Close() error
}

type Config struct {
	URL      string
	Username string
	Password string
	Database string
}

func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("arangodb URL is required")
	}
	if c.Username == "" {
		return fmt.Errorf("arangodb username is required")
	}
	if c.Database == "" {
		return fmt.Errorf("arangodb database name is required")
	}
	return nil
}

type client struct {
	conn         connection.Connection
	arangoClient arangodb.Client
	db           arangodb.Database
	cfg          Config
}

func New(ctx context.Context, cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("arangodb config: %w", err)
	}

	endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
	conn := connection.NewHttp2Connection(connection.DefaultHTTP2ConfigurationWrapper(endpoint, true))

	auth := connection.NewBasicAuth(cfg.Username, cfg.Password)
	if err := conn.SetAuthentication(auth); err != nil {
		return nil, fmt.Errorf("arangodb auth: %w", err)
	}

	return &client{
		conn:         conn,
		arangoClient: arangodb.NewClient(conn),
		cfg:          cfg,
	}, nil
}

func (c *client) Close() error {
	return nil
}

func (c *client) EnsureDatabase(ctx context.Context) error {
	start := time.Now()

	exists, err := c.arangoClient.DatabaseExists(ctx, c.cfg.Database)
	if err != nil {
		return fmt.Errorf("check database exists: %w", err)
	}

	if !exists {
		if _, err := c.arangoClient.CreateDatabase(ctx, c.cfg.Database, nil); err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		slog.InfoContext(ctx, "arangodb database created",
			"database", c.cfg.Database,
			"duration_ms", time.Since(start).Milliseconds())
	}

	db, err := c.arangoClient.GetDatabase(ctx, c.cfg.Database, nil)
	if err != nil {
		return fmt.Errorf("get database: %w", err)
	}
	c.db = db
	return nil
}

func (c *client) EnsureCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	if err := c.ensureCollection(ctx, nodeCollection, false); err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, edgeCollection, true); err != nil {
		return err
	}
	return nil
}

func (c *client) ensureCollection(ctx context.Context, name string, isEdge bool) error {
	exists, err := c.db.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s exists: %w", name, err)
	}

	if !exists {
		props := &arangodb.CreateCollectionPropertiesV2{}
		if isEdge {
			colType := arangodb.CollectionTypeEdge
			props.Type = &colType
		} else {
			colType := arangodb.CollectionTypeDocument
			props.Type = &colType
		}

		if _, err := c.db.CreateCollectionV2(ctx, name, props); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		slog.InfoContext(ctx, "arangodb collection created", "collection", name, "is_edge", isEdge)
	}

	return nil
}

func (c *client) EnsureGraph(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized, call EnsureDatabase first")
	}

	exists, err := c.db.GraphExists(ctx, graphName)
	if err != nil {
		return fmt.Errorf("check graph exists: %w", err)
	}
	if exists {
		return nil
	}

	graphDef := &arangodb.GraphDefinition{
		Name: graphName,
		EdgeDefinitions: []arangodb.EdgeDefinition{
			{Collection: edgeCollection, From: []string{nodeCollection}, To: []string{nodeCollection}},
		},
	}

	if _, err := c.db.CreateGraph(ctx, graphName, graphDef, nil); err != nil {
		return fmt.Errorf("create graph: %w", err)
	}

	slog.InfoContext(ctx, "arangodb graph created", "graph", graphName)
	return nil
}

func (c *client) TruncateCollections(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}

	start := time.Now()
	for _, name := range []string{nodeCollection, edgeCollection} {
		col, err := c.db.GetCollection(ctx, name, nil)
		if err != nil {
			return fmt.Errorf("get collection %s: %w", name, err)
		}
		if err := col.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate collection %s: %w", name, err)
		}
	}

	slog.InfoContext(ctx, "arangodb collections truncated", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// IngestNodes inserts catalog node mirrors. Duplicates (same _key) are
// silently ignored; the in-memory catalog, not Arango, is the rebuild
// source of truth.
func (c *client) IngestNodes(ctx context.Context, nodes []Node) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(nodes) == 0 {
		return nil
	}

	start := time.Now()
	col, err := c.db.GetCollection(ctx, nodeCollection, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", nodeCollection, err)
	}

	docs := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		docs[i] = map[string]any{
			"_key":      n.Key,
			"kind":      n.Kind,
			"schema":    n.Schema,
			"table":     n.Table,
			"column":    n.Column,
			"data_type": n.DataType,
		}
	}

	reader, err := col.CreateDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("create documents: %w", err)
	}
	for {
		if _, readErr := reader.Read(); readErr != nil {
			break
		}
	}

	slog.DebugContext(ctx, "arangodb catalog nodes ingested",
		"count", len(nodes), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// IngestEdges inserts catalog join-edge mirrors. Duplicates (same _key) are
// silently ignored.
func (c *client) IngestEdges(ctx context.Context, edges []Edge) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if len(edges) == 0 {
		return nil
	}

	start := time.Now()
	col, err := c.db.GetCollection(ctx, edgeCollection, nil)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", edgeCollection, err)
	}

	docs := make([]map[string]any, len(edges))
	for i, e := range edges {
		docs[i] = map[string]any{
			"_key":        e.Key,
			"_from":       fmt.Sprintf("%s/%s", nodeCollection, e.From),
			"_to":         fmt.Sprintf("%s/%s", nodeCollection, e.To),
			"on":          e.On,
			"cardinality": e.Cardinality,
			"optional":    e.Optional,
		}
	}

	reader, err := col.CreateDocuments(ctx, docs)
	if err != nil {
		return fmt.Errorf("create edge documents: %w", err)
	}
	for {
		if _, readErr := reader.Read(); readErr != nil {
			break
		}
	}

	slog.DebugContext(ctx, "arangodb catalog edges ingested",
		"count", len(edges), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
