package optimizer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Print writes the report to stdout in human-readable form.
func (r *OptScoreReport) Print() {
	r.PrintTo(os.Stdout)
}

// PrintTo writes a ranked table of candidates plus the recommendation
// to w.
func (r *OptScoreReport) PrintTo(w io.Writer) {
	fmt.Fprintf(w, "QFOS Window Optimization Report\n")
	fmt.Fprintf(w, "================================\n\n")
	fmt.Fprintf(w, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(w, "%-12s %-10s %-10s %-10s\n", "Window(ms)", "OptScore", "StdDev", "Support")
	for _, c := range r.Candidates {
		support := "ok"
		if !c.SupportOK {
			support = "low"
		}
		fmt.Fprintf(w, "%-12d %-10.4f %-10.4f %-10s\n", c.WindowMS, c.ScoreMean, c.ScoreStdev, support)
	}
	fmt.Fprintf(w, "\n")

	if r.NoRecommendation {
		fmt.Fprintf(w, "No recommendation: every candidate window failed the minimum support threshold.\n")
		return
	}

	fmt.Fprintf(w, "Recommended window: %d ms (confidence: %s)\n", r.RecommendedWindowMS, r.Confidence)

	if len(r.ConfigExcludedProviders) > 0 {
		fmt.Fprintf(w, "Excluded by config: %v\n", r.ConfigExcludedProviders)
	}

	if len(r.FatalWarnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warn := range r.FatalWarnings {
			fmt.Fprintf(w, "  - %s\n", warn.Error())
		}
	}
}

// ToJSON serializes the report as JSON, optionally pretty-printed.
func (r *OptScoreReport) ToJSON(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// ToYAML serializes the report as YAML.
func (r *OptScoreReport) ToYAML() ([]byte, error) {
	return yaml.Marshal(r)
}
