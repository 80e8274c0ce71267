package bundler

// ApplyFlags returns a copy of sessions with singleton/giant flags set
// according to giantThreshold (spec §4.4's giant_threshold config).
// low_coherence is set later by the refiner, not here.
func ApplyFlags(sessions []Session, giantThreshold int) []Session {
	out := make([]Session, len(sessions))
	for i, s := range sessions {
		switch {
		case s.Size() == 1:
			s = s.AddFlag(FlagSingleton)
		case s.Size() > giantThreshold:
			s = s.AddFlag(FlagGiant)
		}
		out[i] = s
	}
	return out
}
