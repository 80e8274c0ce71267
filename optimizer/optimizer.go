// Package optimizer implements the window optimizer (spec §4.6): it
// sweeps a candidate set of gap thresholds, drives the
// bundle->embed->refine->metrics pipeline once per (window, fold)
// pair, and ranks candidates by a weighted OptScore with cross-
// validated confidence labeling. Grounded on the teacher's eval.Runner
// (RunWithTarget's dataset-load-then-evaluate shape) and eval.Report
// (the final ranked, printable artifact).
package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/config"
	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
	"github.com/conversem/server-side-query-fan-out-session-reporting/healthserver"
	"github.com/conversem/server-side-query-fan-out-session-reporting/metrics"
	"github.com/conversem/server-side-query-fan-out-session-reporting/qfoserr"
	"github.com/conversem/server-side-query-fan-out-session-reporting/refiner"
	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
	"github.com/conversem/server-side-query-fan-out-session-reporting/sink"
	"github.com/conversem/server-side-query-fan-out-session-reporting/source"
	"github.com/conversem/server-side-query-fan-out-session-reporting/tokenizer"
)

// Optimizer plays the role of the teacher's eval.Runner: it loads a
// request snapshot once and drives an independent evaluation per
// (candidate window, fold) pair.
type Optimizer struct {
	cfg      config.Config
	logger   *zap.Logger
	embedder embedding.Embedder
	tok      tokenizer.Tokenizer
	clock    func() time.Time
}

// NewOptimizer constructs an Optimizer. When cfg.EmbeddingBackend is
// "transformer" it eagerly loads the ONNX model; callers must call
// Close when done with the returned Optimizer.
func NewOptimizer(cfg config.Config, logger *zap.Logger) (*Optimizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var embedder embedding.Embedder
	switch cfg.EmbeddingBackend {
	case config.EmbeddingBackendTransformer:
		t, err := embedding.NewTransformer(embedding.TransformerConfig{
			ModelDir:  cfg.TransformerModelDir,
			Dimension: cfg.TransformerDimension,
		})
		if err != nil {
			return nil, fmt.Errorf("optimizer: load transformer backend: %w", err)
		}
		embedder = t
	default:
		embedder = embedding.NewTFIDF()
	}

	return &Optimizer{
		cfg:      cfg,
		logger:   logger,
		embedder: embedder,
		tok:      tokenizer.NewDefault(),
		clock:    time.Now,
	}, nil
}

// WithClock overrides the Optimizer's time source for GeneratedAt
// stamping, returning the same Optimizer for chaining. Spec §5/§8
// invariant 5 requires bit-identical reports for identical input,
// config, and seed; a fixed clock is how a reproducibility harness
// gets that for the one field (GeneratedAt) that is inherently
// wall-clock-derived rather than computed from the input.
func (o *Optimizer) WithClock(clock func() time.Time) *Optimizer {
	o.clock = clock
	return o
}

// Close releases any resources held by the embedding backend (no-op
// for the default TF-IDF backend).
func (o *Optimizer) Close() error {
	if closer, ok := o.embedder.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Run executes the full candidate sweep against one request snapshot,
// writing sessions and the final report to sink (spec §4.6, §6).
func (o *Optimizer) Run(ctx context.Context, src source.RequestSource, snk sink.SessionSink) (*OptScoreReport, error) {
	requests, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("optimizer: load requests: %w", err)
	}
	requests = filterExcludedProviders(requests, o.cfg.ExcludeProviderSet())
	sort.SliceStable(requests, func(i, j int) bool { return requests[i].Timestamp.Before(requests[j].Timestamp) })

	folds := splitFolds(requests, o.cfg.Folds)

	type task struct {
		windowIdx int
		foldIdx   int
	}
	numWindows := len(o.cfg.CandidateWindowsMS)
	tasks := make([]task, 0, numWindows*len(folds))
	for wi := range o.cfg.CandidateWindowsMS {
		for fi := range folds {
			tasks = append(tasks, task{wi, fi})
		}
	}

	results := make([][]FoldResult, numWindows)
	for i := range results {
		results[i] = make([]FoldResult, len(folds))
	}

	maxConcurrency := runtime.NumCPU()
	if len(tasks) < maxConcurrency {
		maxConcurrency = len(tasks)
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	// MaxEvalsPerSecond throttles admission into the work pool on top
	// of the errgroup's concurrency cap, mirroring the teacher's
	// Runner.rateLimiter (evalaf/eval/runner.go): a nil limiter never
	// blocks.
	var limiter *rate.Limiter
	if o.cfg.MaxEvalsPerSecond > 0 {
		burst := int(o.cfg.MaxEvalsPerSecond / 4)
		if burst < 1 {
			burst = 1
		}
		if burst > 5 {
			burst = 5
		}
		limiter = rate.NewLimiter(rate.Limit(o.cfg.MaxEvalsPerSecond), burst)
	}

	for _, t := range tasks {
		t := t
		windowMS := o.cfg.CandidateWindowsMS[t.windowIdx]
		foldRequests := folds[t.foldIdx]
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			fr, err := o.evaluateFold(gctx, t.foldIdx, windowMS, foldRequests)
			if err != nil {
				return err
			}
			results[t.windowIdx][t.foldIdx] = *fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]CandidateResult, 0, numWindows)
	var fatalWarnings []error
	for wi, windowMS := range o.cfg.CandidateWindowsMS {
		c := CandidateResult{WindowMS: windowMS, Folds: results[wi]}
		c.SupportOK = true
		for _, fr := range results[wi] {
			c.FoldScores = append(c.FoldScores, fr.OptScore)
			c.Warnings = append(c.Warnings, fr.Warnings...)
			for _, w := range fr.Warnings {
				if _, isLowSupport := w.(*qfoserr.LowSupportWarning); isLowSupport {
					c.SupportOK = false
				}
			}
		}
		c.ScoreMean, c.ScoreStdev = foldStats(c.FoldScores)
		candidates = append(candidates, c)
	}

	rankCandidates(candidates)
	assignArgmaxFolds(candidates)

	report := &OptScoreReport{
		GeneratedAt:             o.clock().UTC(),
		Config:                  o.cfg,
		Candidates:              candidates,
		ConfigExcludedProviders: append([]string(nil), o.cfg.ExcludeProviders...),
	}

	supported := make([]CandidateResult, 0, len(candidates))
	for _, c := range candidates {
		if c.SupportOK {
			supported = append(supported, c)
		}
	}
	if len(supported) == 0 {
		report.NoRecommendation = true
	} else {
		report.RecommendedWindowMS = supported[0].WindowMS
		report.Confidence = confidenceLabel(supported, o.cfg.Folds)
	}
	report.FatalWarnings = fatalWarnings

	// Only the top-ranked candidate's sessions are persisted: session
	// ids are unique only within one (window, fold) evaluation, so
	// writing every candidate's sessions to the same sink batch would
	// collide across windows that happen to share a partition's first
	// timestamp.
	var winningSessions []bundler.Session
	if len(candidates) > 0 {
		for _, fr := range candidates[0].Folds {
			winningSessions = append(winningSessions, fr.Sessions...)
		}
	}
	if err := snk.WriteSessions(ctx, winningSessions); err != nil {
		return nil, fmt.Errorf("optimizer: write sessions: %w", err)
	}
	healthserver.SessionsEmitted.Add(float64(len(winningSessions)))
	if err := snk.WriteReport(ctx, report); err != nil {
		return nil, fmt.Errorf("optimizer: write report: %w", err)
	}

	return report, nil
}

// evaluateFold runs the pure bundle->embed->refine->metrics pipeline
// for one (window, fold) pair (spec §4.6 steps 1-6). It touches no
// shared mutable state: the fold's request slice is shared read-only
// with the other windows' tasks for the same fold and is never
// modified here.
func (o *Optimizer) evaluateFold(ctx context.Context, foldIdx int, windowMS int64, requests []request.Request) (*FoldResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		healthserver.FoldDuration.Observe(time.Since(start).Seconds())
		healthserver.CandidatesEvaluated.Inc()
	}()

	w := time.Duration(windowMS) * time.Millisecond
	sessions, err := bundler.Bundle(requests, w, bundler.Options{PreSort: true})
	if err != nil {
		return nil, err
	}
	sessions = bundler.ApplyFlags(sessions, o.cfg.GiantThreshold)

	docs, index := embedding.BuildDocs(requests, o.tok)
	matrix, err := o.embedder.Embed(ctx, docs)
	if err != nil {
		return nil, err
	}

	var warnings []error
	if isVocabularyEmpty(docs) {
		warnings = append(warnings, &qfoserr.EmbeddingDegenerate{WindowMS: windowMS, Reason: "no usable tokens across the corpus"})
	}

	paths := make(map[string]string, len(requests))
	timestamps := make(map[string]time.Time, len(requests))
	for _, r := range requests {
		paths[r.ID] = r.Path
		timestamps[r.ID] = r.Timestamp
	}

	if o.cfg.RefinementEnabled {
		refOpts := refiner.Options{
			MinBundleSize:       3,
			CoherenceFloor:      o.cfg.CoherenceFloor,
			SimilarityThreshold: o.cfg.SimilarityThreshold,
			MinSubBundleSize:    o.cfg.MinSubBundleSize,
			MinMIBCSImprovement: o.cfg.MinMIBCSImprovement,
			MaxPairs:            o.cfg.MaxIntraBundlePairs,
			Seed:                o.cfg.Seed,
			IPRefinementEnabled: o.cfg.IPRefinementEnabled,
		}
		sessions, err = refiner.Refine(ctx, sessions, matrix, index, timestamps, refOpts)
		if err != nil {
			return nil, err
		}
	}
	for i := range sessions {
		if sessions[i].MIBCS != nil {
			continue
		}
		if v, usable, ok := metrics.SessionMIBCS(sessions[i], matrix, index, o.cfg.MaxIntraBundlePairs, o.cfg.Seed); ok && usable >= 2 {
			sessions[i].MIBCS = &v
		}
	}

	metricInput := metrics.Input{
		Sessions:       sessions,
		Matrix:         matrix,
		Index:          index,
		Paths:          paths,
		GiantThreshold: o.cfg.GiantThreshold,
		MaxPairs:       o.cfg.MaxIntraBundlePairs,
		SilhouetteCap:  o.cfg.SilhouetteSampleCap,
		Seed:           o.cfg.Seed,
	}
	report, err := metrics.Compute(ctx, metricInput)
	if err != nil {
		return nil, err
	}

	if len(sessions) < minSessionsForSupport {
		warnings = append(warnings, &qfoserr.LowSupportWarning{WindowMS: windowMS, SessionCount: len(sessions), MinSessions: minSessionsForSupport})
	}

	requestCounts := make(map[string]int)
	for _, r := range requests {
		requestCounts[string(r.Provider)]++
	}

	perProvider := make(map[string]*metrics.Report)
	for _, provider := range distinctProviders(sessions) {
		if requestCounts[provider] < minPartitionSize {
			warnings = append(warnings, &qfoserr.EmptyPartitionWarning{Provider: provider, Count: requestCounts[provider], MinCount: minPartitionSize})
			continue
		}
		subInput := metricInput
		subInput.Sessions = sessionsForProvider(sessions, provider)
		subReport, err := metrics.Compute(ctx, subInput)
		if err != nil {
			return nil, err
		}
		perProvider[provider] = subReport
	}

	return &FoldResult{
		Fold:        foldIdx,
		Sessions:    sessions,
		Report:      report,
		PerProvider: perProvider,
		OptScore:    computeOptScore(o.cfg.OptScoreWeights, report),
		Warnings:    warnings,
	}, nil
}

// splitFolds partitions time-sorted requests into k contiguous
// temporal folds (spec §4.6 "Cross-validation"). The last fold
// absorbs any remainder.
func splitFolds(requests []request.Request, k int) [][]request.Request {
	if k <= 0 {
		k = 1
	}
	if len(requests) == 0 {
		return make([][]request.Request, k)
	}
	folds := make([][]request.Request, k)
	per := len(requests) / k
	if per == 0 {
		per = 1
	}
	start := 0
	for i := 0; i < k; i++ {
		end := start + per
		if i == k-1 || end > len(requests) {
			end = len(requests)
		}
		folds[i] = requests[start:end]
		start = end
	}
	return folds
}

func filterExcludedProviders(requests []request.Request, excluded map[string]struct{}) []request.Request {
	out := make([]request.Request, 0, len(requests))
	for _, r := range requests {
		if _, skip := excluded[string(r.Provider)]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isVocabularyEmpty(docs [][]string) bool {
	for _, d := range docs {
		if len(d) > 0 {
			return false
		}
	}
	return true
}

func distinctProviders(sessions []bundler.Session) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range sessions {
		p := string(s.Provider)
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func sessionsForProvider(sessions []bundler.Session, provider string) []bundler.Session {
	var out []bundler.Session
	for _, s := range sessions {
		if string(s.Provider) == provider {
			out = append(out, s)
		}
	}
	return out
}
