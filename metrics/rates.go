package metrics

import "context"

const (
	nameSingletonRate = "singleton_rate"
	nameGiantRate     = "giant_rate"
)

// SingletonRateMetric computes the fraction of sessions with exactly
// one member (spec §4.4).
type SingletonRateMetric struct{}

func (*SingletonRateMetric) Name() string { return nameSingletonRate }

func (*SingletonRateMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	if len(in.Sessions) == 0 {
		return &Result{Name: nameSingletonRate, Value: 0, SampleSize: 0}, nil
	}
	var singletons int
	for _, s := range in.Sessions {
		if s.Size() == 1 {
			singletons++
		}
	}
	return &Result{
		Name:       nameSingletonRate,
		Value:      float64(singletons) / float64(len(in.Sessions)),
		SampleSize: len(in.Sessions),
	}, nil
}

// GiantRateMetric computes the fraction of sessions whose size exceeds
// the configured giant threshold (spec §4.4, default 50).
type GiantRateMetric struct{}

func (*GiantRateMetric) Name() string { return nameGiantRate }

func (*GiantRateMetric) Compute(ctx context.Context, in Input) (*Result, error) {
	if len(in.Sessions) == 0 {
		return &Result{Name: nameGiantRate, Value: 0, SampleSize: 0}, nil
	}
	threshold := in.GiantThreshold
	if threshold <= 0 {
		threshold = 50
	}
	var giants int
	for _, s := range in.Sessions {
		if s.Size() > threshold {
			giants++
		}
	}
	return &Result{
		Name:       nameGiantRate,
		Value:      float64(giants) / float64(len(in.Sessions)),
		SampleSize: len(in.Sessions),
	}, nil
}
