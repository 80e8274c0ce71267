package metrics

import (
	"context"

	"github.com/conversem/server-side-query-fan-out-session-reporting/bundler"
	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
	"github.com/conversem/server-side-query-fan-out-session-reporting/internal/seeded"
)

const nameMIBCS = "mibcs"

// MIBCSMetric computes the aggregate Mean Intra-Bundle Cosine
// Similarity (spec §4.4): the unweighted mean of each session's
// per-session MIBCS, excluding singletons (undefined, not zero).
type MIBCSMetric struct{}

func (*MIBCSMetric) Name() string { return nameMIBCS }

func (*MIBCSMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	var sum float64
	var n int
	for _, s := range in.Sessions {
		v, usable, ok := SessionMIBCS(s, in.Matrix, in.Index, in.MaxPairs, in.Seed)
		if !ok || usable < 2 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return &Result{Name: nameMIBCS, Value: 0, SampleSize: 0}, nil
	}
	return &Result{Name: nameMIBCS, Value: sum / float64(n), SampleSize: n}, nil
}

// SessionMIBCS computes the mean pairwise cosine similarity across a
// session's usable (non-zero) rows, per spec §4.2/§4.4. For sessions
// with more than maxPairs usable rows it limits the computation to a
// uniformly-sampled subset of maxPairs rows (giant-bundle sampling,
// spec §4.2). Returns ok=false when fewer than 2 usable rows exist
// (MIBCS is undefined for such sessions).
func SessionMIBCS(s bundler.Session, m *embedding.Matrix, index embedding.RequestIndex, maxPairs int, seed int64) (value float64, usable int, ok bool) {
	rows := usableRows(s, m, index)
	if len(rows) < 2 {
		return 0, len(rows), false
	}

	if maxPairs > 0 && len(rows) > maxPairs {
		src := seeded.New(seed ^ sessionSeedSalt(s.SessionID))
		sampleIdx := src.SampleIndices(len(rows), maxPairs)
		sampled := make([]int, len(sampleIdx))
		for i, si := range sampleIdx {
			sampled[i] = rows[si]
		}
		rows = sampled
	}

	var sum float64
	var pairs int
	for i := 0; i < len(rows); i++ {
		for j := i + 1; j < len(rows); j++ {
			sum += float64(m.Cosine(rows[i], rows[j]))
			pairs++
		}
	}
	if pairs == 0 {
		return 0, len(rows), false
	}
	return sum / float64(pairs), len(rows), true
}

// usableRows resolves a session's member request IDs to non-zero
// embedding rows, masking out zero rows per spec §4.2.
func usableRows(s bundler.Session, m *embedding.Matrix, index embedding.RequestIndex) []int {
	rows := make([]int, 0, len(s.RequestIDs))
	for _, id := range s.RequestIDs {
		row, ok := index[id]
		if !ok || m.Zero[row] {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// sessionSeedSalt derives a stable per-session salt from its ID so
// giant-bundle sampling is reproducible yet varies across sessions
// sharing the same base seed.
func sessionSeedSalt(sessionID string) int64 {
	var h int64 = 1469598103934665603
	for _, b := range []byte(sessionID) {
		h ^= int64(b)
		h *= 1099511628211
	}
	return h
}
