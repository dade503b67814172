package planwg

import (
	"errors"
	"testing"
)

func recordWithThreads(owners map[string]string) *ChannelRecord {
	rec := NewChannelRecord("C100", "wg_feature")
	for ts, owner := range owners {
		rec.Threads[ts] = &Thread{
			Owner:        owner,
			TS:           ts,
			Version:      1,
			Status:       StatusAwaitingFeedback,
			Files:        []string{},
			PlanVersions: []PlanVersion{},
			Feedback:     []FeedbackItem{},
		}
	}
	return rec
}

func TestResolveThreadExplicitWins(t *testing.T) {
	rec := recordWithThreads(map[string]string{"1.0": "UA", "2.0": "UA"})
	ts, thread, err := ResolveThread(rec, "UB", "2.0")
	if err != nil {
		t.Fatalf("explicit resolve failed: %v", err)
	}
	if ts != "2.0" || thread == nil {
		t.Fatalf("expected thread 2.0, got %q", ts)
	}
}

func TestResolveThreadExplicitUnknown(t *testing.T) {
	rec := recordWithThreads(map[string]string{"1.0": "UA"})
	_, _, err := ResolveThread(rec, "UA", "9.0")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("expected ErrThreadNotFound, got %v", err)
	}
}

func TestResolveThreadSingleOwned(t *testing.T) {
	rec := recordWithThreads(map[string]string{"1.0": "UA", "2.0": "UB"})
	ts, _, err := ResolveThread(rec, "UB", "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if ts != "2.0" {
		t.Fatalf("expected owned thread 2.0, got %q", ts)
	}
}

func TestResolveThreadNoneOwned(t *testing.T) {
	rec := recordWithThreads(map[string]string{"1.0": "UA"})
	_, _, err := ResolveThread(rec, "UC", "")
	if !errors.Is(err, ErrNoOwnedThread) {
		t.Fatalf("expected ErrNoOwnedThread, got %v", err)
	}
}

func TestResolveThreadAmbiguousListsCandidates(t *testing.T) {
	rec := recordWithThreads(map[string]string{"3.0": "UA", "1.0": "UA", "2.0": "UB"})
	_, _, err := ResolveThread(rec, "UA", "")
	if !errors.Is(err, ErrAmbiguousOwnership) {
		t.Fatalf("expected ErrAmbiguousOwnership, got %v", err)
	}
	var ambiguous *AmbiguousOwnershipError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousOwnershipError, got %T", err)
	}
	if len(ambiguous.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ambiguous.Candidates))
	}
	if ambiguous.Candidates[0].TS != "1.0" || ambiguous.Candidates[1].TS != "3.0" {
		t.Fatalf("candidates not sorted: %+v", ambiguous.Candidates)
	}
}

func TestResolveThreadIgnoresUnownedPlaceholders(t *testing.T) {
	rec := recordWithThreads(map[string]string{"1.0": ""})
	_, _, err := ResolveThread(rec, "", "")
	if !errors.Is(err, ErrNoOwnedThread) {
		t.Fatalf("placeholder threads must never match by ownership, got %v", err)
	}
}
