package refiner

import (
	"context"
	"testing"
	"time"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

func mkTimestamps(ids ...string) map[string]time.Time {
	ts := make(map[string]time.Time, len(ids))
	for i, id := range ids {
		ts[id] = time.Unix(0, 0).Add(time.Duration(i) * time.Millisecond)
	}
	return ts
}

func mkMatrix(rows [][]float32) *embedding.Matrix {
	m := embedding.NewMatrix(len(rows))
	for i, r := range rows {
		zero := true
		for _, v := range r {
			if v != 0 {
				zero = false
				break
			}
		}
		m.Rows[i] = r
		m.Zero[i] = zero
	}
	return m
}

func TestRefine_SplitsLowCoherenceSession(t *testing.T) {
	// Two tight clusters of 2 merged into one session by temporal
	// proximity: {a, b} near (1,0), {c, d} near (0,1). Low MIBCS should
	// trigger a split into two children.
	idx := embedding.RequestIndex{"a": 0, "b": 1, "c": 2, "d": 3}
	m := mkMatrix([][]float32{
		{1, 0},
		{0.95, 0.05},
		{0, 1},
		{0.05, 0.95},
	})
	s := bundler.Session{
		SessionID:  "p:0:0",
		Provider:   request.Provider("p"),
		StartTS:    time.Unix(0, 0),
		EndTS:      time.Unix(1, 0),
		RequestIDs: []string{"a", "b", "c", "d"},
	}

	out, err := Refine(context.Background(), []bundler.Session{s}, m, idx, mkTimestamps("a", "b", "c", "d"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected split into 2 children, got %d sessions: %+v", len(out), out)
	}
	total := 0
	for _, child := range out {
		total += child.Size()
		if child.RefinementOrigin != bundler.SplitFrom("p:0:0") {
			t.Errorf("expected split_from origin, got %q", child.RefinementOrigin)
		}
	}
	if total != 4 {
		t.Errorf("expected children to partition all 4 members, got %d", total)
	}
	parentStart, parentEnd := time.Unix(0, 0), time.Unix(1, 0)
	for _, child := range out {
		if child.StartTS.Before(parentStart) || child.EndTS.After(parentEnd) {
			t.Errorf("child start/end ts outside parent range: start=%v end=%v", child.StartTS, child.EndTS)
		}
		if child.StartTS.Equal(parentStart) && child.EndTS.Equal(parentEnd) {
			t.Errorf("expected child start/end ts recomputed over its own members, not copied from parent verbatim")
		}
	}
}

func TestRefine_CoherentSessionPassesThrough(t *testing.T) {
	idx := embedding.RequestIndex{"a": 0, "b": 1, "c": 2}
	m := mkMatrix([][]float32{
		{1, 0},
		{0.99, 0.01},
		{0.98, 0.02},
	})
	s := bundler.Session{
		SessionID:  "p:0:0",
		Provider:   request.Provider("p"),
		RequestIDs: []string{"a", "b", "c"},
	}

	out, err := Refine(context.Background(), []bundler.Session{s}, m, idx, mkTimestamps("a", "b", "c"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected coherent session to pass through unchanged, got %d sessions", len(out))
	}
	if out[0].HasFlag(bundler.FlagLowCoherence) {
		t.Errorf("coherent session should not be flagged low_coherence")
	}
}

func TestRefine_BelowMinBundleSizeUntouched(t *testing.T) {
	idx := embedding.RequestIndex{"a": 0, "b": 1}
	m := mkMatrix([][]float32{{1, 0}, {0, 1}})
	s := bundler.Session{
		SessionID:  "p:0:0",
		Provider:   request.Provider("p"),
		RequestIDs: []string{"a", "b"},
	}

	out, err := Refine(context.Background(), []bundler.Session{s}, m, idx, mkTimestamps("a", "b"), DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].SessionID != "p:0:0" {
		t.Fatalf("expected undersized session to pass through untouched, got %+v", out)
	}
}

func TestRefine_RejectedSplitFlagsLowCoherence(t *testing.T) {
	// a-b and b-c are above the edge threshold (cosine 0.6) while a-c is
	// not (0.09), so the chain a-b-c keeps the graph one component: no
	// split is possible, so it must be flagged instead.
	idx := embedding.RequestIndex{"a": 0, "b": 1, "c": 2}
	m := mkMatrix([][]float32{
		{1, 0.3, 0},
		{0.3, 1, 0.3},
		{0, 0.3, 1},
	})
	s := bundler.Session{
		SessionID:  "p:0:0",
		Provider:   request.Provider("p"),
		RequestIDs: []string{"a", "b", "c"},
	}

	opts := DefaultOptions()
	opts.CoherenceFloor = 0.99 // force candidacy regardless of actual MIBCS
	out, err := Refine(context.Background(), []bundler.Session{s}, m, idx, mkTimestamps("a", "b", "c"), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected single session (no split possible), got %d", len(out))
	}
	if !out[0].HasFlag(bundler.FlagLowCoherence) {
		t.Errorf("expected low_coherence flag on rejected candidate")
	}
}
