package optimizer

import (
	"math"
	"testing"

	"github.com/conversem/server-side-query-fan-out-session-reporting/config"
	"github.com/conversem/server-side-query-fan-out-session-reporting/metrics"
)

func TestComputeOptScore_MatchesFormula(t *testing.T) {
	w := config.Weights{Alpha: 0.3, Beta: 0.25, Gamma: 0.25, Delta: 0.1, Eps: 0.05, Zeta: 0.05}
	mibcs := 0.8
	r := &metrics.Report{
		MIBCS:            &metrics.Result{Value: mibcs},
		Silhouette:       metrics.Result{Value: 0.6},
		BPS:              metrics.Result{Value: 0.9},
		SingletonRate:    metrics.Result{Value: 0.1},
		GiantRate:        metrics.Result{Value: 0.0},
		ThematicVariance: metrics.Result{Value: 0.2},
	}
	got := computeOptScore(w, r)
	want := 0.3*0.8 + 0.25*0.6 + 0.25*0.9 - 0.1*0.1 - 0.05*0.0 - 0.05*0.2
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %f, want %f", got, want)
	}
}

func TestComputeOptScore_NilMIBCSTreatedAsZero(t *testing.T) {
	w := config.DefaultWeights()
	r := &metrics.Report{}
	got := computeOptScore(w, r)
	if got != 0 {
		t.Errorf("expected 0 for all-zero report with nil MIBCS, got %f", got)
	}
}

func TestFoldStats_MeanAndStdev(t *testing.T) {
	mean, stdev := foldStats([]float64{1, 2, 3, 4, 5})
	if math.Abs(mean-3) > 1e-9 {
		t.Errorf("expected mean 3, got %f", mean)
	}
	wantStdev := math.Sqrt(2)
	if math.Abs(stdev-wantStdev) > 1e-9 {
		t.Errorf("expected stdev %f, got %f", wantStdev, stdev)
	}
}

func TestRankCandidates_TieBreaksByWindowAscending(t *testing.T) {
	candidates := []CandidateResult{
		{WindowMS: 500, ScoreMean: 0.5},
		{WindowMS: 100, ScoreMean: 0.5},
		{WindowMS: 1000, ScoreMean: 0.9},
	}
	rankCandidates(candidates)
	if candidates[0].WindowMS != 1000 {
		t.Errorf("expected highest score first, got %+v", candidates[0])
	}
	if candidates[1].WindowMS != 100 || candidates[2].WindowMS != 500 {
		t.Errorf("expected tie-break by ascending window, got %+v", candidates)
	}
}

func TestConfidenceLabel_HighWhenUnanimousAndMarginExceedsStdev(t *testing.T) {
	candidates := []CandidateResult{
		{WindowMS: 100, ScoreMean: 0.9, ScoreStdev: 0.01, ArgmaxFolds: 5},
		{WindowMS: 500, ScoreMean: 0.5, ScoreStdev: 0.01},
	}
	got := confidenceLabel(candidates, 5)
	if got != ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", got)
	}
}

func TestConfidenceLabel_MediumWhenMajorityButNotUnanimous(t *testing.T) {
	candidates := []CandidateResult{
		{WindowMS: 100, ScoreMean: 0.9, ScoreStdev: 0.2, ArgmaxFolds: 3},
		{WindowMS: 500, ScoreMean: 0.85, ScoreStdev: 0.2},
	}
	got := confidenceLabel(candidates, 5)
	if got != ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", got)
	}
}

func TestConfidenceLabel_LowOtherwise(t *testing.T) {
	candidates := []CandidateResult{
		{WindowMS: 100, ScoreMean: 0.9, ScoreStdev: 0.2, ArgmaxFolds: 2},
		{WindowMS: 500, ScoreMean: 0.85, ScoreStdev: 0.2},
	}
	got := confidenceLabel(candidates, 5)
	if got != ConfidenceLow {
		t.Errorf("expected low confidence, got %s", got)
	}
}
