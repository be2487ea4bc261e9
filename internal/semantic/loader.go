package semantic

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// fileDoc mirrors the on-disk registry file format (spec.md §6):
// { "metrics": [...], "dimensions": [...] }.
type fileDoc struct {
	Metrics    []metricDoc    `json:"metrics"`
	Dimensions []dimensionDoc `json:"dimensions"`
}

type accessPolicyDoc struct {
	AllowedRoles  []string `json:"allowed_roles,omitempty"`
	MaxWindowDays int      `json:"max_window_days,omitempty"`
	RowCap        int      `json:"row_cap,omitempty"`
	MaxDimensions int      `json:"max_dimensions,omitempty"`
}

type metricDoc struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Aggregation       string            `json:"aggregation"`
	BaseTable         string            `json:"base_table"`
	Grain             string            `json:"grain"`
	SQLExpression     string            `json:"sql_expression"`
	AllowedDimensions []string          `json:"allowed_dimensions"`
	RequiredFilters   []string          `json:"required_filters,omitempty"`
	Policy            *accessPolicyDoc  `json:"policy,omitempty"`
}

type joinEdgeDoc struct {
	FromTable   string  `json:"from_table"`
	ToTable     string  `json:"to_table"`
	On          string  `json:"on"`
	Cardinality string  `json:"cardinality,omitempty"`
	Optional    bool    `json:"optional,omitempty"`
	FanOutSafe  *bool   `json:"fan_out_safe,omitempty"`
	// JoinType is parsed for backward compatibility but ignored: join type
	// is never stored on the edge, it is derived by the planner (spec.md §3).
	JoinType string `json:"join_type,omitempty"`
}

type dimensionDoc struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	BaseTable     string        `json:"base_table"`
	Column        string        `json:"column"`
	DataType      string        `json:"data_type"`
	JoinPath      []joinEdgeDoc `json:"join_path"`
	SQLExpression string        `json:"sql_expression,omitempty"`
}

// LoadFile reads and parses a registry JSON file, returning a populated
// Registry. It does not mutate any pre-existing registry.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a registry JSON document from r.
func Load(r io.Reader) (*Registry, error) {
	var doc fileDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode registry document: %w", err)
	}

	reg := New()
	for _, md := range doc.Metrics {
		m, err := buildMetric(md)
		if err != nil {
			return nil, err
		}
		reg.RegisterMetric(m)
	}
	for _, dd := range doc.Dimensions {
		d, err := buildDimension(dd)
		if err != nil {
			return nil, err
		}
		reg.RegisterDimension(d)
	}
	return reg, nil
}

func buildMetric(md metricDoc) (Metric, error) {
	agg := Aggregation(md.Aggregation)
	switch agg {
	case AggSum, AggAvg, AggCount, AggCountDistinct, AggMin, AggMax:
	default:
		return Metric{}, fmt.Errorf("metric %q: unknown aggregation %q", md.Name, md.Aggregation)
	}

	grain := TimeGrain(md.Grain)
	if grain == "" {
		grain = GrainNone
	}

	m := Metric{
		Name:              md.Name,
		Description:       md.Description,
		BaseTable:         md.BaseTable,
		Aggregation:       agg,
		Grain:             grain,
		SQLExpression:     md.SQLExpression,
		AllowedDimensions: md.AllowedDimensions,
		RequiredFilters:   md.RequiredFilters,
	}
	if md.Policy != nil {
		m.Policy = &AccessPolicy{
			AllowedRoles:  md.Policy.AllowedRoles,
			MaxWindowDays: md.Policy.MaxWindowDays,
			RowCap:        md.Policy.RowCap,
			MaxDimensions: md.Policy.MaxDimensions,
		}
	}
	return m, nil
}

func buildDimension(dd dimensionDoc) (Dimension, error) {
	dt := DataType(dd.DataType)
	switch dt {
	case TypeString, TypeInt, TypeDecimal, TypeDate, TypeBool, TypeEnum:
	default:
		return Dimension{}, fmt.Errorf("dimension %q: unknown data_type %q", dd.Name, dd.DataType)
	}

	edges := make([]JoinEdge, 0, len(dd.JoinPath))
	for _, ed := range dd.JoinPath {
		edge := JoinEdge{
			FromTable:   ed.FromTable,
			ToTable:     ed.ToTable,
			On:          ed.On,
			Cardinality: Cardinality(ed.Cardinality),
			Optional:    ed.Optional,
		}
		edge = edge.NormalizeFanOutSafe(ed.FanOutSafe)
		edges = append(edges, edge)
	}

	return Dimension{
		Name:          dd.Name,
		Description:   dd.Description,
		BaseTable:     dd.BaseTable,
		Column:        dd.Column,
		DataType:      dt,
		JoinPath:      edges,
		SQLExpression: dd.SQLExpression,
	}, nil
}
