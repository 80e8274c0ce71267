package healthserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine-level Prometheus metrics, registered against the default
// registry served by Start's /metrics handler.
var (
	CandidatesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qfos_candidates_evaluated_total",
		Help: "Number of (window, fold) candidate evaluations completed.",
	})

	SessionsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qfos_sessions_emitted_total",
		Help: "Number of sessions written to the sink: the top-ranked candidate's sessions, across its folds.",
	})

	FoldDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qfos_fold_duration_seconds",
		Help:    "Wall-clock duration of a single (window, fold) evaluation.",
		Buckets: prometheus.DefBuckets,
	})
)
