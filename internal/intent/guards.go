package intent

import (
	"time"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// Guards are system-wide safety limits applied to every intent regardless
// of per-metric policy, supplementing the per-metric AccessPolicy checks
// (ported from the original engine's query_guards.rs and access_control.rs,
// which the distilled spec folds into "validation rules" without detailing
// the concrete limits).
type Guards struct {
	MaxDimensions    int
	MaxTimeRangeDays int
	MaxScanRows      uint64
	ExecutionTimeout time.Duration
}

// DefaultGuards mirrors the original engine's defaults.
func DefaultGuards() Guards {
	return Guards{
		MaxDimensions:    5,
		MaxTimeRangeDays: 365,
		MaxScanRows:      10_000_000,
		ExecutionTimeout: 30 * time.Second,
	}
}

// Validate applies the system guards and each referenced metric's access
// policy (role allow-list, max dimensions, row cap) to an intent, failing
// with MetricNotFound for a metric name that does not resolve. The time
// range check compares the policy's MaxWindowDays with the system's
// MaxTimeRangeDays; the intent's own TimeRange is not measured. Dimension
// names are not resolved here — call Validate (the registry-resolution
// pass) first.
func (g Guards) Validate(in SemanticSQLIntent, reg *semantic.Registry) error {
	if len(in.Dimensions) > g.MaxDimensions {
		return errtax.New(errtax.CompilerError, "too many dimensions: %d (max %d)", len(in.Dimensions), g.MaxDimensions)
	}

	for _, metricName := range in.Metrics {
		metric, ok := reg.Metric(metricName)
		if !ok {
			return errtax.New(errtax.MetricNotFound, "metric %q not found", metricName)
		}

		if !metricAllowsRole(metric, in.Role) {
			return errtax.New(errtax.DimensionNotAllowed,
				"unauthorized access to metric %q for role %q", metricName, in.Role)
		}

		if metric.Policy == nil {
			continue
		}

		if metric.Policy.MaxWindowDays > 0 && metric.Policy.MaxWindowDays > g.MaxTimeRangeDays {
			return errtax.New(errtax.CompilerError,
				"metric %q max time range of %d days exceeds system limit of %d",
				metricName, metric.Policy.MaxWindowDays, g.MaxTimeRangeDays)
		}

		if metric.Policy.MaxDimensions > 0 && len(in.Dimensions) > metric.Policy.MaxDimensions {
			return errtax.New(errtax.CompilerError,
				"metric %q allows max %d dimensions, %d specified",
				metricName, metric.Policy.MaxDimensions, len(in.Dimensions))
		}

		if metric.Policy.RowCap > 0 && in.RowLimit > metric.Policy.RowCap {
			return errtax.New(errtax.CompilerError,
				"metric %q has max row limit of %d, %d requested",
				metricName, metric.Policy.RowCap, in.RowLimit)
		}
	}

	return nil
}
