package intent

import (
	"strings"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// Validate resolves and checks a SemanticSQLIntent against the registry:
// every metric and dimension must exist, every dimension must be in its
// metric's allow-list, and the join graph rooted at each metric must be
// reachable and acyclic (delegated to Registry.ResolveJoins). It does not
// apply the system-wide query guards — see Guards.Validate for those.
func Validate(in SemanticSQLIntent, reg *semantic.Registry) error {
	if len(in.Metrics) == 0 {
		return errtax.New(errtax.CompilerError, "intent must reference at least one metric")
	}

	dimNames := make([]string, 0, len(in.Dimensions))
	for _, d := range in.Dimensions {
		dimNames = append(dimNames, d.Name)
	}

	for _, metricName := range in.Metrics {
		if _, err := reg.ResolveJoins(metricName, dimNames); err != nil {
			return err
		}
	}

	for _, f := range in.Filters {
		if _, ok := reg.Dimension(f.Dimension); !ok {
			return errtax.New(errtax.DimensionNotFound, "filter references unknown dimension %q", f.Dimension)
		}
		if err := validateOperator(f); err != nil {
			return err
		}
	}

	return nil
}

func validateOperator(f Filter) error {
	switch f.Operator {
	case OpIn, OpNotIn:
		if len(f.Values) == 0 {
			return errtax.New(errtax.CompilerError, "operator %s on %q requires at least one value", f.Operator, f.Dimension)
		}
	case OpIsNull, OpIsNotNull:
		// No value required.
	default:
		if f.Value == nil && f.RelDate == "" {
			return errtax.New(errtax.CompilerError, "operator %s on %q requires a value or relative-date token", f.Operator, f.Dimension)
		}
	}
	return nil
}

// metricAllowsRole reports whether the given role is permitted by the
// metric's access policy. A policy with no allowed_roles is unrestricted.
func metricAllowsRole(m semantic.Metric, role string) bool {
	if m.Policy == nil || len(m.Policy.AllowedRoles) == 0 {
		return true
	}
	for _, r := range m.Policy.AllowedRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
