package optimizer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *OptScoreReport {
	return &OptScoreReport{
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Candidates: []CandidateResult{
			{WindowMS: 1000, ScoreMean: 0.91, ScoreStdev: 0.02, SupportOK: true},
			{WindowMS: 500, ScoreMean: 0.70, ScoreStdev: 0.05, SupportOK: true,
				Warnings: []error{&sentinelWarning{msg: "low support"}}},
		},
		RecommendedWindowMS:     1000,
		Confidence:              ConfidenceHigh,
		ConfigExcludedProviders: []string{"Microsoft"},
	}
}

type sentinelWarning struct{ msg string }

func (w *sentinelWarning) Error() string { return w.msg }

func TestReport_PrintToIncludesRecommendationAndExclusions(t *testing.T) {
	r := sampleReport()
	var buf strings.Builder
	r.PrintTo(&buf)

	out := buf.String()
	assert.Contains(t, out, "Recommended window: 1000 ms (confidence: high)")
	assert.Contains(t, out, "Excluded by config: [Microsoft]")
	assert.Contains(t, out, "1000")
	assert.Contains(t, out, "500")
}

func TestReport_PrintToNoRecommendationSkipsDetail(t *testing.T) {
	r := &OptScoreReport{NoRecommendation: true}
	var buf strings.Builder
	r.PrintTo(&buf)
	assert.Contains(t, buf.String(), "No recommendation")
	assert.NotContains(t, buf.String(), "Recommended window")
}

func TestReport_ToJSONRoundTripsWarningsAsStrings(t *testing.T) {
	r := sampleReport()
	data, err := r.ToJSON(false)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"recommended_window_ms":1000`)
	assert.Contains(t, body, `"low support"`)
	assert.Contains(t, body, `"config_excluded_providers":["Microsoft"]`)
	assert.NotContains(t, body, "sentinelWarning", "error values must render as plain strings, not struct dumps")
}

func TestReport_ToYAMLProducesConfidence(t *testing.T) {
	r := sampleReport()
	data, err := r.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "confidence: high")
}
