package metrics

import "context"

const nameThematicVariance = "thematic_variance"

// ThematicVarianceMetric computes the mean over sessions of
// (1 - MIBCS(s)); singletons, for which MIBCS is undefined, contribute
// 0 rather than being excluded (spec §4.4).
type ThematicVarianceMetric struct{}

func (*ThematicVarianceMetric) Name() string { return nameThematicVariance }

func (*ThematicVarianceMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	if len(in.Sessions) == 0 {
		return &Result{Name: nameThematicVariance, Value: 0, SampleSize: 0}, nil
	}
	var sum float64
	for _, s := range in.Sessions {
		v, usable, ok := SessionMIBCS(s, in.Matrix, in.Index, in.MaxPairs, in.Seed)
		if !ok || usable < 2 {
			continue
		}
		sum += 1 - v
	}
	return &Result{
		Name:       nameThematicVariance,
		Value:      sum / float64(len(in.Sessions)),
		SampleSize: len(in.Sessions),
	}, nil
}
