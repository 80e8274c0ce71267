package metrics

import (
	"context"
	"sort"

	"github.com/conversem/server-side-query-fan-out-session-reporting/embedding"
	"github.com/conversem/server-side-query-fan-out-session-reporting/internal/seeded"
)

const nameSilhouette = "silhouette"

const defaultSilhouetteCap = 5000

// SilhouetteMetric computes the standard silhouette coefficient over
// the concatenated embedding rows, treating session id as the cluster
// label (spec §4.4). Distance between two rows is 1 - cosine
// similarity. Sessions with a single usable row contribute a
// silhouette of 0, the conventional value for singleton clusters.
type SilhouetteMetric struct{}

func (*SilhouetteMetric) Name() string { return nameSilhouette }

func (*SilhouetteMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	clusters := make(map[string][]int)
	for _, s := range in.Sessions {
		rows := usableRows(s, in.Matrix, in.Index)
		if len(rows) == 0 {
			continue
		}
		clusters[s.SessionID] = rows
	}
	if len(clusters) < 2 {
		return &Result{Name: nameSilhouette, Value: 0, SampleSize: 0}, nil
	}

	type point struct {
		row     int
		cluster string
	}
	clusterIDs := make([]string, 0, len(clusters))
	for cid := range clusters {
		clusterIDs = append(clusterIDs, cid)
	}
	sort.Strings(clusterIDs)

	var points []point
	for _, cid := range clusterIDs {
		for _, r := range clusters[cid] {
			points = append(points, point{row: r, cluster: cid})
		}
	}

	sampleCap := in.SilhouetteCap
	if sampleCap <= 0 {
		sampleCap = defaultSilhouetteCap
	}
	if len(points) > sampleCap {
		src := seeded.New(in.Seed)
		idx := src.SampleIndices(len(points), sampleCap)
		sampled := make([]point, len(idx))
		for i, pi := range idx {
			sampled[i] = points[pi]
		}
		points = sampled
	}

	var sum float64
	var scored int
	for _, p := range points {
		a, hasA := meanDistance(in.Matrix, p.row, clusters[p.cluster], p.row)
		if !hasA {
			// singleton cluster: conventional silhouette of 0.
			scored++
			continue
		}

		var b float64
		first := true
		for cid, rows := range clusters {
			if cid == p.cluster {
				continue
			}
			d, ok := meanDistance(in.Matrix, p.row, rows, -1)
			if !ok {
				continue
			}
			if first || d < b {
				b = d
				first = false
			}
		}
		if first {
			// no other non-empty cluster to compare against.
			continue
		}

		denom := a
		if b > denom {
			denom = b
		}
		if denom == 0 {
			scored++
			continue
		}
		sum += (b - a) / denom
		scored++
	}

	if scored == 0 {
		return &Result{Name: nameSilhouette, Value: 0, SampleSize: 0}, nil
	}
	return &Result{Name: nameSilhouette, Value: sum / float64(scored), SampleSize: scored}, nil
}

// meanDistance returns the mean (1 - cosine) distance from row to
// every row in members, excluding excludeRow (used to skip a point
// against itself within its own cluster). ok is false when no other
// member remains to compare against.
func meanDistance(m *embedding.Matrix, row int, members []int, excludeRow int) (float64, bool) {
	var sum float64
	var n int
	for _, other := range members {
		if other == excludeRow {
			continue
		}
		sum += 1 - float64(m.Cosine(row, other))
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
