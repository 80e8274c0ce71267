package metrics

import (
	"context"
	"strings"
)

const nameBPS = "bps"

// BPSMetric computes the Bundle Purity Score (spec §4.4): the fraction
// of sessions whose most-frequent URL-prefix (first two path
// segments) accounts for at least 60% of the session's members.
type BPSMetric struct{}

func (*BPSMetric) Name() string { return nameBPS }

const bpsPurityThreshold = 0.6

func (*BPSMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	var pure int
	var total int
	for _, s := range in.Sessions {
		if s.Size() == 0 {
			continue
		}
		total++
		counts := make(map[string]int, s.Size())
		for _, id := range s.RequestIDs {
			counts[in.pathPrefix(id)]++
		}
		best := 0
		for _, c := range counts {
			if c > best {
				best = c
			}
		}
		if float64(best)/float64(s.Size()) >= bpsPurityThreshold {
			pure++
		}
	}
	if total == 0 {
		return &Result{Name: nameBPS, Value: 0, SampleSize: 0}, nil
	}
	return &Result{Name: nameBPS, Value: float64(pure) / float64(total), SampleSize: total}, nil
}

// pathPrefix returns the first two path segments of the request with
// the given ID, joined by "/", or "" if the request is unknown or has
// fewer than one segment. Input carries the path lookup via Paths so
// the metrics package does not need the full request population.
func (in Input) pathPrefix(requestID string) string {
	path, ok := in.Paths[requestID]
	if !ok {
		return ""
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	if len(segs) == 1 {
		return segs[0]
	}
	return segs[0] + "/" + segs[1]
}
