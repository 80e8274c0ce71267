package optimizer

import (
	"math"
	"sort"

	"github.com/conversem/server-side-query-fan-out-session-reporting/config"
	"github.com/conversem/server-side-query-fan-out-session-reporting/metrics"
)

// computeOptScore implements spec §4.6 step 5:
//
//	OptScore = alpha*MIBCS + beta*Silhouette + gamma*BPS
//	           - delta*SingletonRate - epsilon*GiantRate - zeta*ThematicVariance
//
// MIBCS is treated as 0 when undefined (no session had >= 2 usable
// rows), consistent with the zero-similarity convention used
// elsewhere for degenerate rows.
func computeOptScore(w config.Weights, r *metrics.Report) float64 {
	mibcs := 0.0
	if r.MIBCS != nil {
		mibcs = r.MIBCS.Value
	}
	return w.Alpha*mibcs +
		w.Beta*r.Silhouette.Value +
		w.Gamma*r.BPS.Value -
		w.Delta*r.SingletonRate.Value -
		w.Eps*r.GiantRate.Value -
		w.Zeta*r.ThematicVariance.Value
}

// foldStats computes the mean and population standard deviation of a
// set of per-fold OptScores (spec §4.6 "record mean and standard
// deviation of OptScore across folds").
func foldStats(scores []float64) (mean, stdev float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	return mean, math.Sqrt(variance)
}

// rankCandidates sorts candidates by ScoreMean descending, with
// window value ascending as the deterministic tie-break (spec §5).
func rankCandidates(candidates []CandidateResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ScoreMean != candidates[j].ScoreMean {
			return candidates[i].ScoreMean > candidates[j].ScoreMean
		}
		return candidates[i].WindowMS < candidates[j].WindowMS
	})
}

// assignArgmaxFolds computes, for every fold index present in the
// candidate set, which supported (SupportOK) candidate had the highest
// OptScore in that fold, and increments that candidate's ArgmaxFolds.
func assignArgmaxFolds(candidates []CandidateResult) {
	numFolds := 0
	for _, c := range candidates {
		if len(c.Folds) > numFolds {
			numFolds = len(c.Folds)
		}
	}
	for fold := 0; fold < numFolds; fold++ {
		best := -1
		bestScore := math.Inf(-1)
		for ci := range candidates {
			if fold >= len(candidates[ci].Folds) {
				continue
			}
			if !candidates[ci].SupportOK {
				continue
			}
			s := candidates[ci].Folds[fold].OptScore
			if s > bestScore {
				bestScore = s
				best = ci
			}
		}
		if best >= 0 {
			candidates[best].ArgmaxFolds++
		}
	}
}

// confidenceLabel implements spec §4.6's selection/confidence rule for
// the winning candidate (candidates must already be ranked, winner
// first). numFolds is the number of cross-validation folds configured.
func confidenceLabel(candidates []CandidateResult, numFolds int) string {
	if len(candidates) == 0 {
		return ConfidenceLow
	}
	winner := candidates[0]

	if winner.ArgmaxFolds == numFolds {
		if len(candidates) > 1 {
			runnerUp := candidates[1]
			margin := winner.ScoreMean - runnerUp.ScoreMean
			if margin > 2*winner.ScoreStdev {
				return ConfidenceHigh
			}
		} else {
			return ConfidenceHigh
		}
	}

	needed := (numFolds + 1) / 2 // ceil(k/2)
	if winner.ArgmaxFolds >= needed {
		return ConfidenceMedium
	}
	return ConfidenceLow
}
