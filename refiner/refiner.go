// Package refiner implements the session refiner (spec §4.5): it
// detects bundles whose low intra-bundle coherence suggests multiple
// unrelated fan-outs were merged by temporal proximity alone, and
// splits them via connected components over a cosine-similarity
// graph.
package refiner

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
	"github.com/conversem/server-side-query-fan-out-session-reporting/metrics"
)

// Options configures the refiner, mirroring spec §4.5's named
// defaults.
type Options struct {
	MinBundleSize       int     // candidate gate: only sessions >= this size are considered (default 3)
	CoherenceFloor      float64 // candidate gate: only sessions with MIBCS below this are considered (default 0.5)
	SimilarityThreshold float64 // edge threshold for the splitting graph (default 0.5)
	MinSubBundleSize    int     // components smaller than this are held aside as residual (default 2)
	MinMIBCSImprovement float64 // required weighted-mean MIBCS gain to accept a split (default 0.05)
	MaxPairs            int     // MIBCS sampling cap, passed through to the metrics package
	Seed                int64

	// IPRefinementEnabled is preserved for interface compatibility with
	// spec §4.5's documented toggle, but is ignored: the default
	// pathway never consults client_ip, per the spec's empirical
	// finding that intra-bundle IP diversity correlates weakly with
	// collision status (r ~= 0.023).
	IPRefinementEnabled bool
}

// DefaultOptions returns the spec §4.5 default thresholds.
func DefaultOptions() Options {
	return Options{
		MinBundleSize:       3,
		CoherenceFloor:      0.5,
		SimilarityThreshold: 0.5,
		MinSubBundleSize:    2,
		MinMIBCSImprovement: 0.05,
		MaxPairs:            200,
	}
}

// Refine applies collision detection and graph splitting to sessions,
// returning a new slice in which gated, successfully-split sessions
// are replaced by their children and all others pass through
// unchanged (rejected candidates gain the low_coherence flag).
func Refine(ctx context.Context, sessions []bundler.Session, emb *embedding.Matrix, index embedding.RequestIndex, timestamps map[string]time.Time, opts Options) ([]bundler.Session, error) {
	out := make([]bundler.Session, 0, len(sessions))
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		children, refined := refineOne(s, emb, index, timestamps, opts)
		if refined {
			out = append(out, children...)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// refineOne applies the full procedure of spec §4.5 to a single
// session. refined is true iff the session was replaced (either split
// into children, or rejected and flagged low_coherence).
func refineOne(s bundler.Session, emb *embedding.Matrix, index embedding.RequestIndex, timestamps map[string]time.Time, opts Options) (children []bundler.Session, refined bool) {
	if s.Size() < opts.MinBundleSize {
		return nil, false
	}
	mibcs, usable, ok := metrics.SessionMIBCS(s, emb, index, opts.MaxPairs, opts.Seed)
	if !ok || usable < opts.MinBundleSize {
		return nil, false
	}
	if mibcs >= opts.CoherenceFloor {
		return nil, false
	}

	rows := make([]int, 0, len(s.RequestIDs))
	rowToRequestID := make(map[int]string, len(s.RequestIDs))
	for _, id := range s.RequestIDs {
		row, ok := index[id]
		if !ok || emb.Zero[row] {
			continue
		}
		rows = append(rows, row)
		rowToRequestID[row] = id
	}
	if len(rows) < opts.MinBundleSize {
		return nil, false
	}

	uf := newUnionFind(rows)
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			if float64(emb.Cosine(rows[i], rows[j])) >= opts.SimilarityThreshold {
				uf.union(rows[i], rows[j])
			}
		}
	}

	groups := uf.groups()
	var large, residual [][]int
	for _, g := range groups {
		if len(g) >= opts.MinSubBundleSize {
			large = append(large, g)
		} else {
			residual = append(residual, g)
		}
	}

	if len(large) < 2 {
		return []bundler.Session{s.AddFlag(bundler.FlagLowCoherence)}, true
	}

	weightedMIBCS, total := 0.0, 0
	componentMIBCS := make([]float64, len(large))
	for i, g := range large {
		m, n := groupMIBCS(emb, g)
		componentMIBCS[i] = m
		weightedMIBCS += m * float64(n)
		total += n
	}
	if total == 0 {
		return []bundler.Session{s.AddFlag(bundler.FlagLowCoherence)}, true
	}
	weightedMIBCS /= float64(total)

	if weightedMIBCS <= mibcs+opts.MinMIBCSImprovement {
		return []bundler.Session{s.AddFlag(bundler.FlagLowCoherence)}, true
	}

	for _, res := range residual {
		for _, row := range res {
			best := nearestComponent(emb, row, large)
			if best < 0 {
				large = append(large, []int{row})
				continue
			}
			large[best] = append(large[best], row)
		}
	}
	for _, g := range large {
		sort.Ints(g)
	}

	sort.Slice(large, func(i, j int) bool {
		return minRow(large[i]) < minRow(large[j])
	})

	children = make([]bundler.Session, 0, len(large))
	for i, g := range large {
		children = append(children, buildChildSession(s, g, rowToRequestID, emb, index, timestamps, opts, i))
	}
	return children, true
}

// nearestComponent returns the index into components with the highest
// mean cosine similarity from row to that component's members, or -1
// if components is empty.
func nearestComponent(emb *embedding.Matrix, row int, components [][]int) int {
	best := -1
	var bestScore float64
	for i, comp := range components {
		var sum float64
		for _, other := range comp {
			sum += float64(emb.Cosine(row, other))
		}
		score := sum / float64(len(comp))
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// groupMIBCS computes the mean pairwise cosine similarity within a
// row group. Returns (1, 1) for singleton groups so downstream
// weighted averages do not divide by zero when a residual of size 1
// was merged into a component.
func groupMIBCS(emb *embedding.Matrix, rows []int) (float64, int) {
	if len(rows) < 2 {
		return 1, len(rows)
	}
	var sum float64
	var pairs int
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			sum += float64(emb.Cosine(rows[i], rows[j]))
			pairs++
		}
	}
	return sum / float64(pairs), len(rows)
}

func minRow(rows []int) int {
	m := rows[0]
	for _, r := range rows[1:] {
		if r < m {
			m = r
		}
	}
	return m
}

// buildChildSession assembles the child Session for one connected
// component, ordering request IDs by their original position in the
// parent, recomputing start_ts/end_ts over just the child's own
// members (spec §3: "timestamps of first/last member"), and computing
// the child's own MIBCS.
func buildChildSession(parent bundler.Session, rows []int, rowToRequestID map[int]string, emb *embedding.Matrix, index embedding.RequestIndex, timestamps map[string]time.Time, opts Options, seq int) bundler.Session {
	// rows is already sorted ascending (refineOne sorts each group after
	// attaching residual members), and row
	// order matches original request order, so this reproduces the
	// parent's own relative member ordering without a second pass over
	// parent.RequestIDs.
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, rowToRequestID[row])
	}

	startTS, endTS := parent.StartTS, parent.EndTS
	if len(ids) > 0 {
		startTS, endTS = timestamps[ids[0]], timestamps[ids[0]]
		for _, id := range ids[1:] {
			if ts := timestamps[id]; ts.Before(startTS) {
				startTS = ts
			} else if ts.After(endTS) {
				endTS = ts
			}
		}
	}

	child := bundler.Session{
		SessionID:        childSessionID(parent.SessionID, seq),
		Provider:         parent.Provider,
		StartTS:          startTS,
		EndTS:            endTS,
		RequestIDs:       ids,
		WindowUsed:       parent.WindowUsed,
		RefinementOrigin: bundler.SplitFrom(parent.SessionID),
	}
	if len(ids) == 1 {
		child = child.AddFlag(bundler.FlagSingleton)
	}
	if m, usable, ok := metrics.SessionMIBCS(child, emb, index, opts.MaxPairs, opts.Seed); ok && usable >= 2 {
		v := m
		child.MIBCS = &v
	}
	return child
}

func childSessionID(parentID string, seq int) string {
	return parentID + ":split:" + strconv.Itoa(seq)
}
