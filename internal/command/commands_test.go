package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/config"
	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

func newTestApp(t *testing.T) (*App, *channel.Fake) {
	t.Helper()
	fake := channel.NewFake()
	app := &App{
		Cfg: &config.Config{
			UserID:           "UME",
			StateDir:         t.TempDir(),
			EventLogCapacity: 16,
			Notify:           false,
		},
		Store:   planwg.NewStore(planwg.NewMemoryRecordBackend()),
		Channel: fake,
		WorkDir: t.TempDir(),
	}
	return app, fake
}

func runCommand(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateCommandInitialisesEverything(t *testing.T) {
	app, fake := newTestApp(t)
	fake.Users["alice"] = "UALICE"

	out, err := runCommand(t, app,
		"create", "feature",
		"--plan-text", "single message plan",
		"--collaborators", "alice",
		"--files", "a.go, b.go")
	require.NoError(t, err)
	require.Contains(t, out, "Created #wg_feature")
	require.Contains(t, out, "Plan posted. thread_ts=")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	require.Equal(t, "UME", rec.CreatedBy)
	require.Len(t, rec.Threads, 1)
	for _, thread := range rec.Threads {
		require.Equal(t, "UME", thread.Owner)
		require.Equal(t, 1, thread.Version)
		require.Equal(t, []string{"a.go", "b.go"}, thread.Files)
		require.False(t, thread.Sectioned())
	}

	// Self and the collaborator were invited, collaborator got the DM.
	require.ElementsMatch(t, []string{"UME", "UALICE"}, fake.Invites[rec.ChannelID])
	require.Equal(t, []string{"UALICE"}, fake.DMs)

	// The session link points at the new thread.
	sess, err := session.Load(app.WorkDir)
	require.NoError(t, err)
	require.Equal(t, "wg_feature", sess.Channel)
	require.NotEmpty(t, sess.ThreadTS)
}

func TestCreateCommandSectionedPlan(t *testing.T) {
	app, _ := newTestApp(t)
	out, err := runCommand(t, app,
		"create", "feature",
		"--plan-text", "## Design\nkeep it\n\n## Rollout\nflag it")
	require.NoError(t, err)
	require.Contains(t, out, "Plan posted as 2 sections")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	for _, thread := range rec.Threads {
		require.Len(t, thread.Sections, 2)
		require.Len(t, thread.SectionIndex, 2)
		for ts, idx := range thread.SectionIndex {
			require.Equal(t, thread.Sections[idx].TS, ts)
		}
	}
}

func TestReplyCommandBumpsVersion(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan")
	require.NoError(t, err)

	out, err := runCommand(t, app, "reply", "--plan-text", "v2 plan")
	require.NoError(t, err)
	require.Contains(t, out, "Plan v2 posted")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	for _, thread := range rec.Threads {
		require.Equal(t, 2, thread.Version)
		require.Len(t, thread.PlanVersions, 2)
		require.Equal(t, "v2 plan", thread.PlanVersions[1].Text)
		require.NotEmpty(t, thread.LatestReplyTS)
		require.Equal(t, planwg.StatusAwaitingFeedback, thread.Status)
	}
}

func TestApproveCommandMarksPlanAndReacts(t *testing.T) {
	app, fake := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan")
	require.NoError(t, err)

	out, err := runCommand(t, app, "approve")
	require.NoError(t, err)
	require.Contains(t, out, "marked as approved")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	var threadTS string
	for ts, thread := range rec.Threads {
		threadTS = ts
		require.True(t, thread.Approved())
		require.Equal(t, "UME", thread.ApprovedBy)
	}

	msgs, err := fake.FetchHistory(context.Background(), rec.ChannelID)
	require.NoError(t, err)
	found := false
	for _, m := range msgs {
		if m.TS == threadTS {
			require.Len(t, m.Reactions, 1)
			require.Equal(t, planwg.ApprovalReaction, m.Reactions[0].Name)
			found = true
		}
	}
	require.True(t, found, "approval reaction missing on the plan message")
}

func TestApproveCommandSectionScope(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature",
		"--plan-text", "## Design\nkeep it\n\n## Rollout\nflag it")
	require.NoError(t, err)

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	var sectionTS string
	for _, thread := range rec.Threads {
		sectionTS = thread.Sections[1].TS
	}

	out, err := runCommand(t, app, "approve", "--section", sectionTS)
	require.NoError(t, err)
	require.Contains(t, out, `Section "Rollout" approved`)

	rec, err = app.Store.Load("wg_feature")
	require.NoError(t, err)
	for _, thread := range rec.Threads {
		require.True(t, thread.Sections[1].Approved)
		require.False(t, thread.Sections[0].Approved)
		require.False(t, thread.Approved())
	}
}

func TestCloseCommandArchivesAndClearsSession(t *testing.T) {
	app, fake := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan")
	require.NoError(t, err)

	out, err := runCommand(t, app, "close", "feature")
	require.NoError(t, err)
	require.Contains(t, out, "#wg_feature archived.")
	require.Contains(t, out, "Session file cleared.")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	require.True(t, rec.Closed())
	require.True(t, fake.Archived(rec.ChannelID))

	_, err = session.Load(app.WorkDir)
	require.ErrorIs(t, err, session.ErrNotLinked)

	// Session-based targeting of the closed channel is rejected.
	require.NoError(t, session.Save(app.WorkDir, &session.Session{Channel: "wg_feature"}))
	_, err = runCommand(t, app, "sync")
	require.ErrorIs(t, err, planwg.ErrChannelClosed)
}

func TestSyncCommandShowsFeedbackAndDrainsPending(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan")
	require.NoError(t, err)

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	var threadTS string
	for ts := range rec.Threads {
		threadTS = ts
	}
	_, err = app.Store.Mutate("wg_feature", func(rec *planwg.ChannelRecord) error {
		planwg.RecordFeedback(rec.Threads[threadTS], threadTS, planwg.FeedbackItem{
			User: "UALICE", TS: "99.0", Text: "needs a rollback step",
			Kind: planwg.FeedbackKindFeedback, ReceivedAt: "2026-08-29T10:00:00Z",
		})
		return nil
	})
	require.NoError(t, err)

	eventLog, err := planwg.OpenChannelEventLog(app.Cfg.StateDir, "wg_feature", app.Cfg.EventLogCapacity)
	require.NoError(t, err)
	require.NoError(t, eventLog.Append(planwg.LogEntry{Channel: "wg_feature", Kind: "feedback", Text: "alice left feedback"}))

	out, err := runCommand(t, app, "sync")
	require.NoError(t, err)
	require.Contains(t, out, "Pending events (1):")
	require.Contains(t, out, "alice left feedback")
	require.Contains(t, out, "needs a rollback step")
	require.Contains(t, out, "Current Plan (v1)")

	// Second sync: pending already drained.
	out, err = runCommand(t, app, "sync")
	require.NoError(t, err)
	require.NotContains(t, out, "Pending events")
}

func TestStatusCommandShowsConflicts(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan", "--files", "a.go")
	require.NoError(t, err)
	_, err = runCommand(t, app, "plan", "feature", "--plan-text", "other plan", "--files", "a.go,b.go")
	require.NoError(t, err)

	out, err := runCommand(t, app, "status", "feature")
	require.NoError(t, err)
	require.Contains(t, out, "Active plans: 2")
	require.Contains(t, out, "Conflicts:")
	require.Contains(t, out, "a.go")
}

func TestListCommand(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "v1 plan")
	require.NoError(t, err)

	out, err := runCommand(t, app, "list")
	require.NoError(t, err)
	require.Contains(t, out, "#wg_feature")
	require.Contains(t, out, "1 plan (1 open, 0 approved)")

	out, err = runCommand(t, app, "list", "--open")
	require.NoError(t, err)
	require.Contains(t, out, "#wg_feature")
}

func TestBootstrapCommandMergesHistory(t *testing.T) {
	app, fake := newTestApp(t)
	fake.SeedChannel("wg_feature", "C0042")
	anchor := fake.Seed("C0042", channel.Message{Author: "UALICE", Text: "alice's plan"})
	fake.Seed("C0042", channel.Message{ThreadTS: anchor, Author: "UBOB", Text: "bob's feedback"})
	fake.Seed("C0042", channel.Message{ThreadTS: anchor, Author: "UALICE", Text: "alice's revision"})

	out, err := runCommand(t, app, "bootstrap", "feature")
	require.NoError(t, err)
	require.Contains(t, out, "Found #wg_feature (C0042)")
	require.Contains(t, out, "1 threads, 1 feedback entries, 1 revisions")

	rec, err := app.Store.Load("wg_feature")
	require.NoError(t, err)
	thread := rec.Threads[anchor]
	require.NotNil(t, thread)
	require.Equal(t, "UALICE", thread.Owner)
	require.Equal(t, 2, thread.Version)

	// Running it again changes nothing.
	out, err = runCommand(t, app, "bootstrap", "feature")
	require.NoError(t, err)
	require.Contains(t, out, "0 threads, 0 feedback entries, 0 revisions")
}

func TestBootstrapRecoversToolPostedPlans(t *testing.T) {
	owner, fake := newTestApp(t)
	_, err := runCommand(t, owner, "create", "feature", "--plan-text", "ship the thing")
	require.NoError(t, err)

	// A collaborator on another machine shares the channel but starts
	// with an empty store. The plan was posted by the bot, and bootstrap
	// must still materialize it.
	joiner := &App{
		Cfg: &config.Config{
			UserID:           "UOTHER",
			StateDir:         t.TempDir(),
			EventLogCapacity: 16,
		},
		Store:   planwg.NewStore(planwg.NewMemoryRecordBackend()),
		Channel: fake,
		WorkDir: t.TempDir(),
	}
	out, err := runCommand(t, joiner, "bootstrap", "feature")
	require.NoError(t, err)
	require.Contains(t, out, "1 threads")

	rec, err := joiner.Store.Load("wg_feature")
	require.NoError(t, err)
	require.Len(t, rec.Threads, 1)
	for _, thread := range rec.Threads {
		require.Empty(t, thread.Owner)
		require.Equal(t, 1, thread.Version)
	}
}

func TestReplyAmbiguousOwnershipNeedsExplicitThread(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := runCommand(t, app, "create", "feature", "--plan-text", "first plan")
	require.NoError(t, err)
	_, err = runCommand(t, app, "plan", "feature", "--plan-text", "second plan")
	require.NoError(t, err)

	// Two owned threads and no session hint: targeting by channel alone
	// must fail with the candidate list.
	_, err = runCommand(t, app, "reply", "--channel", "feature", "--plan-text", "v2")
	require.ErrorIs(t, err, planwg.ErrAmbiguousOwnership)
	var ambiguous *planwg.AmbiguousOwnershipError
	require.True(t, errors.As(err, &ambiguous))
	require.Len(t, ambiguous.Candidates, 2)

	// Explicit thread disambiguates.
	ts := ambiguous.Candidates[0].TS
	out, err := runCommand(t, app, "reply", "--channel", "feature", "--thread", ts, "--plan-text", "v2")
	require.NoError(t, err)
	require.Contains(t, out, "Plan v2 posted to thread "+ts)
}
