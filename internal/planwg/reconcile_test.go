package planwg

import (
	"bytes"
	"testing"
)

func sampleHistory() []HistoryMessage {
	return []HistoryMessage{
		{TS: "10.0", Author: "UA", Text: "the plan"},
		{TS: "11.0", ThreadTS: "10.0", Author: "UB", Text: "feedback one"},
		{TS: "12.0", ThreadTS: "10.0", Author: "UA", Text: "revised plan"},
		{TS: "13.0", ThreadTS: "10.0", Author: "UB", Text: "feedback two",
			Reactions: []HistoryReaction{{Name: "eyes", Users: []string{"UA"}}}},
		{TS: "14.0", Author: "UC", Text: "second plan",
			Reactions: []HistoryReaction{{Name: ApprovalReaction, Users: []string{"UA"}}}},
	}
}

func TestReconcileBuildsRecordFromHistory(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	stats := Reconcile(rec, sampleHistory())

	if stats.ThreadsCreated != 2 {
		t.Fatalf("expected 2 threads, got %+v", stats)
	}
	if stats.FeedbackAdded != 2 || stats.RevisionsAdded != 1 || stats.ApprovalsApplied != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	first := rec.Threads["10.0"]
	if first == nil || first.Owner != "UA" || first.Version != 2 {
		t.Fatalf("unexpected first thread: %+v", first)
	}
	if len(first.PlanVersions) != 2 || first.PlanVersions[1].Text != "revised plan" {
		t.Fatalf("revision not folded into plan versions: %+v", first.PlanVersions)
	}

	second := rec.Threads["14.0"]
	if second == nil || !second.Approved() || second.ApprovedBy != "UA" {
		t.Fatalf("approval reaction not applied: %+v", second)
	}
}

func TestReconcileTwiceIsByteIdentical(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	Reconcile(rec, sampleHistory())
	first, err := encodeRecord(rec)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	stats := Reconcile(rec, sampleHistory())
	if stats.Changed() {
		t.Fatalf("second reconcile reported changes: %+v", stats)
	}
	second, err := encodeRecord(rec)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("second reconcile produced different bytes")
	}
}

func TestReconcilePreservesLocalOnlyState(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	Reconcile(rec, sampleHistory())
	rec.Threads["10.0"].Draft = "work in progress revision"
	rec.Threads["10.0"].Files = []string{"a.go"}

	Reconcile(rec, sampleHistory())
	if rec.Threads["10.0"].Draft != "work in progress revision" {
		t.Fatalf("draft clobbered by reconcile")
	}
	if len(rec.Threads["10.0"].Files) != 1 {
		t.Fatalf("files clobbered by reconcile")
	}
}

func TestReconcileFillsPlaceholderOwner(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	// A live reply arrived before bootstrap ever saw the anchor.
	applyReply(rec, "10.0", "11.0", "UB", "feedback one")

	stats := Reconcile(rec, sampleHistory())
	if stats.OwnersFilled != 1 {
		t.Fatalf("expected placeholder owner fill, got %+v", stats)
	}
	first := rec.Threads["10.0"]
	if first.Owner != "UA" || len(first.PlanVersions) == 0 {
		t.Fatalf("placeholder not completed: %+v", first)
	}
	count := 0
	for _, f := range first.Feedback {
		if f.TS == "11.0" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("live feedback duplicated during reconcile: %d copies", count)
	}
}

func TestReconcileCreatesThreadsFromBotPlanPosts(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	hist := []HistoryMessage{
		{TS: "30.0", Author: "UBOT", Text: "*Plan v1* · `#wg_x`\n\nship the thing", Bot: true},
		{TS: "31.0", ThreadTS: "30.0", Author: "UB", Text: "looks good"},
	}
	stats := Reconcile(rec, hist)
	if stats.ThreadsCreated != 1 || stats.FeedbackAdded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	thread := rec.Threads["30.0"]
	if thread == nil {
		t.Fatal("bot plan post did not become a thread")
	}
	if thread.Owner != "" {
		t.Fatalf("owner should stay unknown, got %q", thread.Owner)
	}
	if thread.Version != 1 || len(thread.PlanVersions) != 1 {
		t.Fatalf("unexpected thread: %+v", thread)
	}
	if len(thread.Feedback) != 1 || thread.Feedback[0].Text != "looks good" {
		t.Fatalf("feedback not attached: %+v", thread.Feedback)
	}

	if again := Reconcile(rec, hist); again.Changed() {
		t.Fatalf("second pass changed state: %+v", again)
	}
}

func TestReconcileSkipsBotMessagesWithoutPlanHeader(t *testing.T) {
	rec := NewChannelRecord("C100", "wg_x")
	stats := Reconcile(rec, []HistoryMessage{
		{TS: "30.0", Author: "UBOT", Text: "*Design*\n\nsection body", Bot: true},
		{TS: "31.0", Author: "UA", Text: "human plan"},
	})
	if stats.ThreadsCreated != 1 {
		t.Fatalf("expected only the human thread, got %+v", stats)
	}
	if rec.Threads["30.0"] != nil {
		t.Fatalf("bot section post became a thread")
	}
}
