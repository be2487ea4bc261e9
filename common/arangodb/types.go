package arangodb

// NodeKind distinguishes the two catalog node shapes mirrored into Arango.
type NodeKind string

const (
	NodeKindTable  NodeKind = "table"
	NodeKindColumn NodeKind = "column"
)

// Node is a write-behind mirror of one hypergraph catalog node (schema/table
// or schema/table/column).
type Node struct {
	Key      string // catalog node id, stringified
	Kind     NodeKind
	Schema   string
	Table    string
	Column   string
	DataType string
}

// Edge is a write-behind mirror of one hypergraph catalog join edge.
type Edge struct {
	Key         string // catalog edge id, stringified
	From        string // mirrored node key
	To          string // mirrored node key
	On          string
	Cardinality string
	Optional    bool
}
