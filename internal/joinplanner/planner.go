// Package joinplanner implements the deterministic join planner: the LLM
// decides dimension intent, the compiler decides join mechanics. Given a
// DimensionIntent and a JoinEdge (plus whether the metric is additive) it
// produces a JoinPlan — never by inspecting LLM output directly (spec.md
// §4.2, §9 "Design Notes").
package joinplanner

import (
	"fmt"
	"strings"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// JoinType is the compiler-determined join kind.
type JoinType string

const (
	Inner JoinType = "inner"
	Left  JoinType = "left"
)

// ProtectionKind distinguishes fan-out protection strategies.
type ProtectionKind string

const (
	ProtectionPreAggregate ProtectionKind = "pre_aggregate"
	ProtectionDistinct     ProtectionKind = "distinct_metric"
)

// FanOutProtection is the chosen protection against row duplication for a
// metric joined across a 1:n or n:n edge.
type FanOutProtection struct {
	Kind string // ProtectionKind value

	// PreAggregate fields.
	Subquery string
	GroupBy  []string

	// DistinctMetric fields.
	MetricExpr string
}

// JoinPlan is the planner's deterministic output for one dimension/edge
// pair.
type JoinPlan struct {
	Edge             semantic.JoinEdge
	JoinType         JoinType
	FanOutProtection *FanOutProtection
	Explanation      string
}

// Plan produces a JoinPlan for a single dimension intent and its resolved
// join edge. It never fails for the join-type decision (that table is
// total). The returned error is always nil: when no right-side key can be
// isolated from the ON predicate, determineProtection falls back to
// distinct-metric protection, and there is no hard-fail path.
func Plan(di intent.DimensionIntent, edge semantic.JoinEdge, metricAdditive bool) (JoinPlan, error) {
	joinType := determineJoinType(di.Usage, edge.Optional)

	var protection *FanOutProtection
	if requiresFanOutProtection(edge, metricAdditive) {
		p, err := determineProtection(edge, metricAdditive)
		if err != nil {
			return JoinPlan{}, err
		}
		protection = p
	}

	return JoinPlan{
		Edge:             edge,
		JoinType:         joinType,
		FanOutProtection: protection,
		Explanation:      explain(di, edge, joinType, protection),
	}, nil
}

// determineJoinType is the exhaustive table from spec.md §4.2:
//
//	filter        -> inner
//	select+optional -> left
//	select+mandatory -> inner
//	both          -> inner
func determineJoinType(usage intent.Usage, optional bool) JoinType {
	switch usage {
	case intent.UsageFilter:
		return Inner
	case intent.UsageSelect:
		if optional {
			return Left
		}
		return Inner
	case intent.UsageBoth:
		return Inner
	default:
		return Inner
	}
}

// requiresFanOutProtection: cardinality ∈ {1:n, n:n}, for additive and
// non-additive metrics alike (determineProtection picks the strategy).
func requiresFanOutProtection(edge semantic.JoinEdge, metricAdditive bool) bool {
	fanOutRisk := edge.Cardinality == semantic.OneToMany || edge.Cardinality == semantic.ManyToMany
	return fanOutRisk
}

// determineProtection picks, in order of preference: pre-aggregate (additive
// metric and the right key can be isolated), otherwise distinct-metric
// (non-additive metrics, or when the key cannot be isolated). It never
// returns an error.
func determineProtection(edge semantic.JoinEdge, metricAdditive bool) (*FanOutProtection, error) {
	if metricAdditive {
		rightKey, err := extractRightKey(edge.On)
		if err == nil {
			return &FanOutProtection{
				Kind:     string(ProtectionPreAggregate),
				Subquery: fmt.Sprintf("SELECT %s FROM %s GROUP BY %s", rightKey, edge.ToTable, rightKey),
				GroupBy:  []string{rightKey},
			}, nil
		}
		// Key could not be isolated: fall back to DISTINCT rather than hard
		// failing immediately, matching the spec's stated preference order.
		return &FanOutProtection{Kind: string(ProtectionDistinct), MetricExpr: "metric"}, nil
	}

	// Non-additive metric: DISTINCT is the safe default.
	return &FanOutProtection{Kind: string(ProtectionDistinct), MetricExpr: "metric"}, nil
}

// extractRightKey splits an ON predicate of the form "left.col = right.col"
// at the single '=' sign and returns the right-hand side, trimmed.
func extractRightKey(on string) (string, error) {
	parts := strings.SplitN(on, "=", 2)
	if len(parts) != 2 {
		return "", errtax.New(errtax.CompilerError, "cannot safely join: cannot extract right key from join condition %q", on)
	}
	right := strings.TrimSpace(parts[1])
	if right == "" {
		return "", errtax.New(errtax.CompilerError, "cannot safely join: empty right key in join condition %q", on)
	}
	return right, nil
}

func explain(di intent.DimensionIntent, edge semantic.JoinEdge, jt JoinType, protection *FanOutProtection) string {
	var parts []string

	switch di.Usage {
	case intent.UsageFilter:
		parts = append(parts, fmt.Sprintf("dimension %q is used for filtering -> INNER JOIN (restrict rows)", di.Name))
	case intent.UsageSelect:
		if edge.Optional {
			parts = append(parts, fmt.Sprintf("dimension %q is used for augmentation and the relationship is optional -> LEFT JOIN (preserve all left rows)", di.Name))
		} else {
			parts = append(parts, fmt.Sprintf("dimension %q is used for augmentation but the relationship is mandatory -> INNER JOIN (must exist)", di.Name))
		}
	case intent.UsageBoth:
		parts = append(parts, fmt.Sprintf("dimension %q is used for both filtering and selection -> INNER JOIN (filtering takes precedence)", di.Name))
	}
	_ = jt

	if protection != nil {
		switch ProtectionKind(protection.Kind) {
		case ProtectionPreAggregate:
			parts = append(parts, fmt.Sprintf("fan-out protection: pre-aggregating %s before join (cardinality: %s)", edge.ToTable, edge.Cardinality))
		case ProtectionDistinct:
			parts = append(parts, fmt.Sprintf("fan-out protection: using DISTINCT on metric (cardinality: %s)", edge.Cardinality))
		}
	}

	return strings.Join(parts, ". ")
}
