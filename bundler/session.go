// Package bundler implements the temporal bundler (spec §4.3): a
// streaming, provider-partitioned, gap-threshold grouping pass over a
// time-sorted request stream.
package bundler

import (
	"time"

	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

// RefinementOrigin records how a session came to exist: a fresh
// bundler pass, or a split performed by the refiner.
type RefinementOrigin string

const (
	OriginInitial RefinementOrigin = "initial"
)

// SplitFrom builds the refinement_origin value for a child session
// produced by splitting parentID (spec §3).
func SplitFrom(parentID string) RefinementOrigin {
	return RefinementOrigin("split_from:" + parentID)
}

// Flag is a descriptive tag attached to a session.
type Flag string

const (
	FlagSingleton    Flag = "singleton"
	FlagGiant        Flag = "giant"
	FlagLowCoherence Flag = "low_coherence"
)

// Session is a bundle of requests approximating one upstream user
// query (spec §3). No session is mutated after emission; refinement
// replaces a session with child sessions rather than editing it.
type Session struct {
	SessionID        string            `json:"session_id"`
	Provider         request.Provider  `json:"provider"`
	StartTS          time.Time         `json:"start_ts"`
	EndTS            time.Time         `json:"end_ts"`
	RequestIDs       []string          `json:"request_ids"`
	WindowUsed       time.Duration     `json:"window_used_ns"`
	RefinementOrigin RefinementOrigin  `json:"refinement_origin"`
	MIBCS            *float64          `json:"mibcs,omitempty"` // nil when fewer than 2 members have non-zero embedding rows (always when size < 2)
	Flags            []Flag            `json:"flags,omitempty"`
}

// Size returns the number of member requests.
func (s Session) Size() int { return len(s.RequestIDs) }

// HasFlag reports whether f is present.
func (s Session) HasFlag(f Flag) bool {
	for _, x := range s.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// AddFlag returns a copy of s with f appended if not already present.
func (s Session) AddFlag(f Flag) Session {
	if s.HasFlag(f) {
		return s
	}
	s.Flags = append(append([]Flag(nil), s.Flags...), f)
	return s
}
