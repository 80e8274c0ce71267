package bundler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/conversem/server-side-query-fan-out-session-reporting/qfoserr"
	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
)

// sessionIDNamespace seeds the content-addressed uuid.NewSHA1 disambiguator
// used by dedupeSessionIDs. A fixed namespace keeps the derived suffix
// deterministic across runs given identical colliding input.
var sessionIDNamespace = uuid.MustParse("6f3a9e1c-6a29-4b9e-9c2a-9e2a6c6e9f3a")

// Options configures a single bundler pass.
type Options struct {
	// PreSort allows the bundler to sort the input stream internally
	// (per-provider, ascending by timestamp, stable) instead of
	// rejecting out-of-order input (spec §4.3, §5).
	PreSort bool
}

// Bundle partitions requests by provider and groups each partition
// into sessions using the gap threshold w, per spec §4.3's streaming
// algorithm. Session emission order is deterministic: provider
// ascending, then session start_ts ascending (spec §5).
func Bundle(requests []request.Request, w time.Duration, opts Options) ([]Session, error) {
	partitions, order := partitionByProvider(requests)

	var sessions []Session
	for _, provider := range order {
		members := partitions[provider]
		if opts.PreSort {
			members = sortStableByTimestamp(members)
		} else if err := checkOrdered(provider, members); err != nil {
			return nil, err
		}
		sessions = append(sessions, bundlePartition(provider, members, w)...)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Provider != sessions[j].Provider {
			return sessions[i].Provider < sessions[j].Provider
		}
		return sessions[i].StartTS.Before(sessions[j].StartTS)
	})

	dedupeSessionIDs(sessions)

	return sessions, nil
}

// dedupeSessionIDs disambiguates any provider:start_ts:seq collisions.
// Ids built by one bundlePartition pass already differ (provider plus a
// seq unique within the partition), so this pass leaves them unchanged
// and rewrites an id only when a duplicate is present in sessions. The
// suffix is content-addressed via uuid.NewSHA1, not random, so output
// stays bit-identical across runs.
func dedupeSessionIDs(sessions []Session) {
	seen := make(map[string]int, len(sessions))
	for i := range sessions {
		base := sessions[i].SessionID
		seen[base]++
		if seen[base] == 1 {
			continue
		}
		disambiguator := uuid.NewSHA1(sessionIDNamespace, []byte(fmt.Sprintf("%s:%d", base, seen[base])))
		sessions[i].SessionID = fmt.Sprintf("%s:%s", base, disambiguator.String()[:8])
	}
}

// partitionByProvider groups requests by provider, preserving input
// order within each group, and returns the providers sorted ascending.
func partitionByProvider(requests []request.Request) (map[request.Provider][]request.Request, []request.Provider) {
	partitions := make(map[request.Provider][]request.Request)
	var order []request.Provider
	for _, r := range requests {
		if _, ok := partitions[r.Provider]; !ok {
			order = append(order, r.Provider)
		}
		partitions[r.Provider] = append(partitions[r.Provider], r)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	return partitions, order
}

// checkOrdered verifies requests are non-decreasing by timestamp,
// returning an InputOrderError at the first violation (spec §4.3).
func checkOrdered(provider request.Provider, members []request.Request) error {
	for i := 1; i < len(members); i++ {
		if members[i].Timestamp.Before(members[i-1].Timestamp) {
			return &qfoserr.InputOrderError{Provider: string(provider), Row: i}
		}
	}
	return nil
}

// sortStableByTimestamp returns a stable-sorted copy of members by
// ascending timestamp, preserving relative order of equal timestamps
// (spec §4.3's tie-break rule).
func sortStableByTimestamp(members []request.Request) []request.Request {
	out := append([]request.Request(nil), members...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// bundlePartition runs the single-pass gap-threshold grouping for one
// provider's time-sorted members.
func bundlePartition(provider request.Provider, members []request.Request, w time.Duration) []Session {
	if len(members) == 0 {
		return nil
	}

	var sessions []Session
	var buf []request.Request
	seq := 0
	windowMS := w.Milliseconds()

	flush := func() {
		if len(buf) == 0 {
			return
		}
		sessions = append(sessions, newSession(provider, buf, w, seq))
		seq++
		buf = nil
	}

	for _, r := range members {
		if len(buf) == 0 {
			buf = append(buf, r)
			continue
		}
		gapMS := r.Timestamp.UnixMilli() - buf[len(buf)-1].Timestamp.UnixMilli()
		if gapMS <= windowMS {
			buf = append(buf, r)
			continue
		}
		flush()
		buf = append(buf, r)
	}
	flush()

	return sessions
}

func newSession(provider request.Provider, members []request.Request, w time.Duration, seq int) Session {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return Session{
		SessionID:        fmt.Sprintf("%s:%d:%d", provider, members[0].Timestamp.UnixMilli(), seq),
		Provider:         provider,
		StartTS:          members[0].Timestamp,
		EndTS:            members[len(members)-1].Timestamp,
		RequestIDs:       ids,
		WindowUsed:       w,
		RefinementOrigin: OriginInitial,
	}
}
