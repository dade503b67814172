package planwg

import (
	"fmt"
	"sort"
)

// ResolveThread applies the single disambiguation policy used by every
// operation that takes a channel without an explicit thread id:
//
//   - an explicit id always wins, and only fails when it does not exist;
//   - otherwise the user's sole owned thread in the channel is chosen;
//   - zero owned threads is ErrNoOwnedThread, two or more is an
//     AmbiguousOwnershipError carrying the full candidate list.
func ResolveThread(rec *ChannelRecord, userID, explicitTS string) (string, *Thread, error) {
	if explicitTS != "" {
		t, ok := rec.Threads[explicitTS]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s in %s", ErrThreadNotFound, explicitTS, rec.ChannelName)
		}
		return explicitTS, t, nil
	}

	owned := make([]string, 0, len(rec.Threads))
	for ts, t := range rec.Threads {
		if t.Owner == userID && t.Owner != "" {
			owned = append(owned, ts)
		}
	}
	switch len(owned) {
	case 0:
		return "", nil, fmt.Errorf("%w: user %s in %s", ErrNoOwnedThread, userID, rec.ChannelName)
	case 1:
		return owned[0], rec.Threads[owned[0]], nil
	}

	sort.Strings(owned)
	candidates := make([]ThreadSummary, 0, len(owned))
	for _, ts := range owned {
		candidates = append(candidates, Summarize(ts, rec.Threads[ts]))
	}
	return "", nil, &AmbiguousOwnershipError{
		Channel:    rec.ChannelName,
		User:       userID,
		Candidates: candidates,
	}
}
