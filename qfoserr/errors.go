// Package qfoserr defines the QFOS engine's error taxonomy (spec §7).
//
// Fatal errors (ConfigError, InputOrderError) abort the evaluation that
// produced them. Warnings (EmptyPartitionWarning, LowSupportWarning,
// EmbeddingDegenerate) are recorded and surfaced in the final report
// rather than aborting the run.
package qfoserr

import "fmt"

// InputOrderError reports an out-of-order timestamp within a provider
// partition when pre-sort is disabled. Fatal.
type InputOrderError struct {
	Provider string
	Row      int
}

func (e *InputOrderError) Error() string {
	return fmt.Sprintf("qfos: out-of-order timestamp in provider %q at row %d", e.Provider, e.Row)
}

// ConfigError reports an invalid configuration value. Fatal.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("qfos: invalid config field %q: %s", e.Field, e.Reason)
}

// EmptyPartitionWarning reports a provider with too few requests after
// filtering to be trustworthy. Non-fatal; the provider is excluded from
// per-provider metrics.
type EmptyPartitionWarning struct {
	Provider string
	Count    int
	MinCount int
}

func (w *EmptyPartitionWarning) Error() string {
	return fmt.Sprintf("qfos: provider %q has only %d requests (minimum %d); excluded from per-provider metrics", w.Provider, w.Count, w.MinCount)
}

// LowSupportWarning reports a candidate window that produced too few
// sessions to be trustworthy. Non-fatal; the window is excluded from
// selection.
type LowSupportWarning struct {
	WindowMS     int64
	SessionCount int
	MinSessions  int
}

func (w *LowSupportWarning) Error() string {
	return fmt.Sprintf("qfos: window %dms produced %d sessions (minimum %d); excluded from selection", w.WindowMS, w.SessionCount, w.MinSessions)
}

// EmbeddingDegenerate reports an empty TF-IDF vocabulary (no usable
// tokens across the corpus). Non-fatal; the warning is recorded on the
// fold's result, and the evaluation is not skipped: it still runs to
// completion over the all-zero embedding rows.
type EmbeddingDegenerate struct {
	WindowMS int64
	Reason   string
}

func (e *EmbeddingDegenerate) Error() string {
	return fmt.Sprintf("qfos: embedding degenerate for window %dms: %s", e.WindowMS, e.Reason)
}

// Warnings is an ordered collection of non-fatal warnings accumulated
// during a run, surfaced on the final report.
type Warnings []error

// Add appends a warning, ignoring nil.
func (w *Warnings) Add(err error) {
	if err == nil {
		return
	}
	*w = append(*w, err)
}

// Strings renders each warning's message, for JSON/text reports.
func (w Warnings) Strings() []string {
	out := make([]string, len(w))
	for i, e := range w {
		out[i] = e.Error()
	}
	return out
}
