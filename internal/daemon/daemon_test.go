package daemon

import (
	"context"
	"testing"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/planwg"
)

func newTestDaemon(t *testing.T) (*Daemon, *planwg.Store) {
	t.Helper()
	store := planwg.NewStore(planwg.NewMemoryRecordBackend())
	if _, err := store.Ensure("wg_auth", func() *planwg.ChannelRecord {
		return planwg.NewChannelRecord("C100", "wg_auth")
	}, func(rec *planwg.ChannelRecord) error { return nil }); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	cfg := &config.Config{StateDir: t.TempDir(), EventLogCapacity: 8, Notify: false}
	d := New(cfg, store, channel.NewFake(), nil)
	d.self = channel.Identity{UserID: "USELF", BotID: "BSELF"}
	if err := d.RefreshRegistry(); err != nil {
		t.Fatalf("refresh registry: %v", err)
	}
	return d, store
}

func TestHandleRawFoldsEventsAndQueuesNotifications(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	d.HandleRaw(ctx, planwg.RawEvent{
		Type: planwg.RawReply, ChannelID: "C100", MessageID: "10.0",
		AuthorID: "UALICE", Text: "alice's plan",
	})
	d.HandleRaw(ctx, planwg.RawEvent{
		Type: planwg.RawReply, ChannelID: "C100", MessageID: "11.0",
		ParentID: "10.0", AuthorID: "UBOB", Text: "looks risky",
	})
	d.HandleRaw(ctx, planwg.RawEvent{
		Type: planwg.RawReaction, ChannelID: "C100", MessageID: "10.0:UBOB",
		ParentID: "10.0", AuthorID: "UBOB", Reaction: planwg.ApprovalReaction,
	})

	rec, err := store.Load("wg_auth")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	thread := rec.Threads["10.0"]
	if thread == nil {
		t.Fatal("new plan event did not create a thread")
	}
	if thread.Owner != "UALICE" || thread.Version != 1 {
		t.Fatalf("unexpected thread: owner=%s v=%d", thread.Owner, thread.Version)
	}
	if len(thread.Feedback) != 1 || thread.Feedback[0].Text != "looks risky" {
		t.Fatalf("feedback not recorded: %+v", thread.Feedback)
	}
	if !thread.Approved() || thread.ApprovedBy != "UBOB" {
		t.Fatalf("approval not recorded: %+v", thread)
	}

	eventLog, err := planwg.OpenChannelEventLog(d.cfg.StateDir, "wg_auth", d.cfg.EventLogCapacity)
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	entries := eventLog.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("queued %d notifications, want 3", len(entries))
	}
	kinds := []string{entries[0].Kind, entries[1].Kind, entries[2].Kind}
	want := []string{"new_plan", "feedback", "approval"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("notification kinds = %v, want %v", kinds, want)
		}
	}
}

func TestHandleRawDropsUnknownChannels(t *testing.T) {
	d, store := newTestDaemon(t)
	d.HandleRaw(context.Background(), planwg.RawEvent{
		Type: planwg.RawReply, ChannelID: "C999", MessageID: "10.0",
		AuthorID: "UALICE", Text: "plan for a channel we are not in",
	})
	rec, err := store.Load("wg_auth")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Threads) != 0 {
		t.Fatalf("event for an unknown channel mutated state: %+v", rec.Threads)
	}
}

func TestHandleRawIgnoresOwnMessages(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	// Top-level posts from the tool's own identity are CLI plan posts;
	// the CLI already recorded them.
	d.HandleRaw(ctx, planwg.RawEvent{
		Type: planwg.RawReply, ChannelID: "C100", MessageID: "10.0",
		AuthorID: "USELF", Text: "plan posted by the CLI",
	})
	d.HandleRaw(ctx, planwg.RawEvent{
		Type: planwg.RawReply, ChannelID: "C100", MessageID: "11.0",
		AuthorID: "BSELF", Text: "plan posted by the bot",
	})
	rec, err := store.Load("wg_auth")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Threads) != 0 {
		t.Fatalf("own messages created threads: %+v", rec.Threads)
	}

	eventLog, err := planwg.OpenChannelEventLog(d.cfg.StateDir, "wg_auth", d.cfg.EventLogCapacity)
	if err != nil {
		t.Fatalf("open event log: %v", err)
	}
	if n := eventLog.Depth(); n != 0 {
		t.Fatalf("own messages queued %d notifications", n)
	}
}

func TestTruncateNotification(t *testing.T) {
	got := truncateNotification("a  b\n\tc", 100)
	if got != "a b c" {
		t.Fatalf("whitespace collapse: %q", got)
	}
	long := truncateNotification("aaaaaaaaaaaa", 8)
	if long != "aaaaaaa…" {
		t.Fatalf("truncate: %q", long)
	}
}
