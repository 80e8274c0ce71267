// Package metrics implements the bundle metrics of spec §4.4: MIBCS,
// BPS, singleton/giant rate, thematic variance, and silhouette. Each
// metric is an independent, pluggable Metric -- generalized from the
// teacher's Evaluator interface (evalaf/eval: ExactMatchEvaluator,
// RegexEvaluator run independently over an EvalInput) to a set of
// session-population-level metrics, each carrying the sample size it
// was computed over so low-support windows can be rejected upstream
// (spec §4.4: "all metric outputs carry their sample sizes").
package metrics

import (
	"context"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
)

// Input is the population a Metric is computed over: a set of
// sessions and the embedding matrix + index covering their members.
type Input struct {
	Sessions []bundler.Session
	Matrix   *embedding.Matrix
	Index    embedding.RequestIndex
	Paths    map[string]string // request ID -> URL path, for BPS prefix grouping

	GiantThreshold int
	MaxPairs       int // max usable rows per session sampled for MIBCS (spec §4.2)
	SilhouetteCap  int // max requests sampled for silhouette (spec §4.4)
	Seed           int64
}

// Result is one metric's value plus the sample size it was computed
// over.
type Result struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	SampleSize int     `json:"sample_size"`
}

// Metric computes one bundle-quality statistic over a session
// population.
type Metric interface {
	Name() string
	Compute(ctx context.Context, in Input) (*Result, error)
}

// Report aggregates every metric's result for one (window, fold, or
// provider-subpopulation) evaluation pass.
type Report struct {
	MIBCS            *Result `json:"mibcs,omitempty"` // nil if no session had >= 2 usable rows
	BPS              Result  `json:"bps"`
	SingletonRate    Result  `json:"singleton_rate"`
	GiantRate        Result  `json:"giant_rate"`
	ThematicVariance Result  `json:"thematic_variance"`
	Silhouette       Result  `json:"silhouette"`
}

// defaultMetrics is the fixed set run by the optimizer for every
// evaluation pass (spec §4.4).
func defaultMetrics() []Metric {
	return []Metric{
		&MIBCSMetric{},
		&BPSMetric{},
		&SingletonRateMetric{},
		&GiantRateMetric{},
		&ThematicVarianceMetric{},
		&SilhouetteMetric{},
	}
}

// Compute runs every bundle metric over in and assembles a Report.
func Compute(ctx context.Context, in Input) (*Report, error) {
	results := make(map[string]*Result)
	for _, m := range defaultMetrics() {
		r, err := m.Compute(ctx, in)
		if err != nil {
			return nil, err
		}
		results[m.Name()] = r
	}

	report := &Report{
		BPS:              *results[nameBPS],
		SingletonRate:    *results[nameSingletonRate],
		GiantRate:        *results[nameGiantRate],
		ThematicVariance: *results[nameThematicVariance],
		Silhouette:       *results[nameSilhouette],
	}
	if mibcs := results[nameMIBCS]; mibcs.SampleSize > 0 {
		report.MIBCS = mibcs
	}
	return report, nil
}
