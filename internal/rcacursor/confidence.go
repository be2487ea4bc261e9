package rcacursor

import "time"

// confidence factor weights (spec.md §4.7 step 7).
const (
	weightJoinCompleteness = 0.30
	weightNonNullRate      = 0.20
	weightFilterCoverage   = 0.20
	weightFreshness        = 0.15
	weightSamplingRatio    = 0.15
)

// ConfidenceInputs are the five raw signals the confidence score weighs.
type ConfidenceInputs struct {
	JoinCompleteness float64 // fraction of join keys resolved, in [0,1]
	NullRate         float64 // fraction of null values encountered, in [0,1]
	FilterCoverage   float64 // fraction of declared filters actually pushed down, in [0,1]
	DataAge          time.Duration
	KnownFreshness   bool
	SamplingRatio    float64 // fraction of rows actually scanned, in [0,1]
}

// Score computes the weighted confidence sum and clamps it to [0,1]
// (spec.md §4.7 step 7).
func Score(in ConfidenceInputs) float64 {
	freshness := 0.5
	if in.KnownFreshness {
		freshness = freshnessScore(in.DataAge)
	}

	score := weightJoinCompleteness*clamp01(in.JoinCompleteness) +
		weightNonNullRate*clamp01(1-in.NullRate) +
		weightFilterCoverage*clamp01(in.FilterCoverage) +
		weightFreshness*freshness +
		weightSamplingRatio*clamp01(in.SamplingRatio)

	return clamp01(score)
}

// freshnessScore decays piecewise: 1.0 under an hour, linearly to 0.8 at a
// day, linearly to 0.5 at a week, linearly to 0.2 at a month, 0.2 beyond
// (spec.md §4.7 step 7).
func freshnessScore(age time.Duration) float64 {
	hour := time.Hour
	day := 24 * time.Hour
	week := 7 * day
	month := 30 * day

	switch {
	case age < hour:
		return 1.0
	case age < day:
		return lerp(age, hour, day, 1.0, 0.8)
	case age < week:
		return lerp(age, day, week, 0.8, 0.5)
	case age < month:
		return lerp(age, week, month, 0.5, 0.2)
	default:
		return 0.2
	}
}

func lerp(x, x0, x1 time.Duration, y0, y1 float64) float64 {
	frac := float64(x-x0) / float64(x1-x0)
	return y0 + frac*(y1-y0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
