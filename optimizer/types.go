package optimizer

import (
	"encoding/json"
	"time"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/config"
	"github.com/conversem/server-side-query-fan-out-session-reporting/metrics"
)

// FoldResult is the outcome of running the full bundle->embed->refine->
// metrics pipeline for one (window, fold) pair (spec §4.6 steps 1-6).
type FoldResult struct {
	Fold        int                       `json:"fold"`
	Sessions    []bundler.Session         `json:"sessions"`
	Report      *metrics.Report           `json:"report"`
	PerProvider map[string]*metrics.Report `json:"per_provider,omitempty"`
	OptScore    float64                   `json:"opt_score"`
	Warnings    []error                   `json:"-"`
}

// MarshalJSON renders Warnings as strings, the way the teacher's
// EvalResult.MarshalJSON turns its Error field into a plain string
// (the error interface has no JSON representation of its own).
func (f FoldResult) MarshalJSON() ([]byte, error) {
	type Alias FoldResult
	return json.Marshal(struct {
		Alias
		Warnings []string `json:"warnings,omitempty"`
	}{
		Alias:    Alias(f),
		Warnings: errorStrings(f.Warnings),
	})
}

// CandidateResult aggregates every fold's outcome for one candidate
// window, plus the cross-fold OptScore statistics (spec §4.6 "Cross-
// validation").
type CandidateResult struct {
	WindowMS int64 `json:"window_ms"`

	Folds []FoldResult `json:"folds"`

	FoldScores []float64 `json:"fold_scores"`
	ScoreMean  float64   `json:"score_mean"`
	ScoreStdev float64   `json:"score_stdev"`

	// ArgmaxFolds is the number of folds in which this window had the
	// highest OptScore among the supported (SupportOK) candidates; it is
	// 0 for an unsupported candidate.
	ArgmaxFolds int `json:"argmax_folds"`

	SupportOK bool    `json:"support_ok"` // false if any fold produced < 10 sessions
	Warnings  []error `json:"-"`
}

func (c CandidateResult) MarshalJSON() ([]byte, error) {
	type Alias CandidateResult
	return json.Marshal(struct {
		Alias
		Warnings []string `json:"warnings,omitempty"`
	}{
		Alias:    Alias(c),
		Warnings: errorStrings(c.Warnings),
	})
}

// OptScoreReport is the final artifact of one optimizer run (spec
// §3 "OptScore report", §4.6 "Output").
type OptScoreReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Config      config.Config `json:"config"`

	Candidates []CandidateResult `json:"candidates"` // sorted by ScoreMean descending, window ascending tie-break

	RecommendedWindowMS int64  `json:"recommended_window_ms"`
	Confidence          string `json:"confidence"` // "high" | "medium" | "low"
	NoRecommendation    bool   `json:"no_recommendation"`

	// ConfigExcludedProviders lists providers dropped by an explicit
	// exclude_providers config entry, distinct from the per-fold
	// EmptyPartitionWarnings a provider can also accumulate for having
	// too few requests to trust. Operators need both: one means "told
	// to ignore this provider," the other means "this provider didn't
	// have enough data."
	ConfigExcludedProviders []string `json:"config_excluded_providers,omitempty"`

	FatalWarnings []error `json:"-"`
}

func (r OptScoreReport) MarshalJSON() ([]byte, error) {
	type Alias OptScoreReport
	return json.Marshal(struct {
		Alias
		FatalWarnings []string `json:"fatal_warnings,omitempty"`
	}{
		Alias:         Alias(r),
		FatalWarnings: errorStrings(r.FatalWarnings),
	})
}

// errorStrings renders each error's message, for the custom
// MarshalJSON methods above.
func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const minSessionsForSupport = 10

// minPartitionSize mirrors qfoserr.EmptyPartitionWarning's "< 10
// requests after filtering" threshold (spec §7), applied per provider
// within a fold before per-provider metrics are computed.
const minPartitionSize = 10
