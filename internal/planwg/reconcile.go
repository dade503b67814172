package planwg

import (
	"regexp"
	"sort"
	"strconv"
)

// HistoryMessage is one message pulled from channel history during
// bootstrap, flattened to the fields reconciliation needs.
type HistoryMessage struct {
	TS        string
	ThreadTS  string // empty or equal to TS for top-level messages
	Author    string
	Text      string
	Bot       bool
	Reactions []HistoryReaction
}

// HistoryReaction carries one reaction name and every user who added it.
type HistoryReaction struct {
	Name  string
	Users []string
}

// ReconcileStats summarizes what a history merge changed.
type ReconcileStats struct {
	ThreadsCreated   int
	FeedbackAdded    int
	RevisionsAdded   int
	ApprovalsApplied int
	OwnersFilled     int
}

func (s ReconcileStats) Changed() bool {
	return s.ThreadsCreated+s.FeedbackAdded+s.RevisionsAdded+s.ApprovalsApplied+s.OwnersFilled > 0
}

// Reconcile merges channel history into the record. Existing state is
// never rewritten: threads, feedback, and approvals already present are
// left exactly as they are, and local-only fields (drafts) survive
// untouched. Running the same history a second time is a no-op and the
// serialized record stays byte-identical.
func Reconcile(rec *ChannelRecord, hist []HistoryMessage) ReconcileStats {
	var stats ReconcileStats

	msgs := append([]HistoryMessage(nil), hist...)
	sort.SliceStable(msgs, func(i, j int) bool {
		return tsLess(msgs[i].TS, msgs[j].TS)
	})

	for _, m := range msgs {
		if topLevel(m) {
			reconcileTopLevel(rec, m, &stats)
		} else if !m.Bot {
			ev := Normalize(rec, RawEvent{
				Type:      RawReply,
				ChannelID: rec.ChannelID,
				MessageID: m.TS,
				ParentID:  m.ThreadTS,
				AuthorID:  m.Author,
				Text:      m.Text,
			})
			res := Apply(rec, ev)
			if res.Changed {
				if res.NewVersion > 0 {
					stats.RevisionsAdded++
				} else {
					stats.FeedbackAdded++
				}
			}
		}
		for _, r := range m.Reactions {
			if r.Name != ApprovalReaction {
				continue
			}
			for _, user := range r.Users {
				ev := Normalize(rec, RawEvent{
					Type:      RawReaction,
					ChannelID: rec.ChannelID,
					MessageID: reactionID(m.TS, user),
					ParentID:  m.TS,
					AuthorID:  user,
					Reaction:  r.Name,
				})
				if Apply(rec, ev).Changed {
					stats.ApprovalsApplied++
				}
			}
		}
	}
	return stats
}

func reconcileTopLevel(rec *ChannelRecord, m HistoryMessage, stats *ReconcileStats) {
	if _, ok := findSectionThread(rec, m.TS); ok {
		return
	}
	if t, ok := rec.Threads[m.TS]; ok {
		// A placeholder created from a live reply before bootstrap: fill
		// in the anchor author as owner, but never overwrite a known one.
		if t.Owner == "" && m.Author != "" && !m.Bot {
			t.Owner = m.Author
			if t.Version == 0 {
				t.Version = 1
			}
			if len(t.PlanVersions) == 0 {
				t.PlanVersions = []PlanVersion{{
					Version:  1,
					Text:     m.Text,
					PostedAt: eventTimestamp(m.TS),
				}}
			}
			stats.OwnersFilled++
		}
		return
	}
	if m.Bot {
		// Plans are posted through the bot token, so a collaborator
		// bootstrapping a channel sees every plan as a bot message. The
		// plan header tells real plan posts apart from section posts and
		// other bot chatter. The posting user is not in the message, so
		// the owner stays empty until their own record fills it in.
		version, ok := parsePlanPost(m.Text)
		if !ok {
			return
		}
		rec.Threads[m.TS] = &Thread{
			TS:      m.TS,
			Version: version,
			Status:  StatusAwaitingFeedback,
			Files:   []string{},
			PlanVersions: []PlanVersion{{
				Version:  version,
				Text:     m.Text,
				PostedAt: eventTimestamp(m.TS),
			}},
			Feedback: []FeedbackItem{},
		}
		stats.ThreadsCreated++
		return
	}
	ev := Normalize(rec, RawEvent{
		Type:      RawReply,
		ChannelID: rec.ChannelID,
		MessageID: m.TS,
		AuthorID:  m.Author,
		Text:      m.Text,
	})
	if Apply(rec, ev).Changed {
		stats.ThreadsCreated++
	}
}

var planPostRe = regexp.MustCompile("^\\*Plan v(\\d+)\\* · `#")

// parsePlanPost recognizes the header both single-message plans and
// section anchors are posted with.
func parsePlanPost(text string) (int, bool) {
	m := planPostRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	version, err := strconv.Atoi(m[1])
	if err != nil || version < 1 {
		return 0, false
	}
	return version, true
}

func topLevel(m HistoryMessage) bool {
	return m.ThreadTS == "" || m.ThreadTS == m.TS
}

// reactionID builds a synthetic, stable id for a reaction. Reactions carry
// no message id of their own, and Normalize rejects id-less events.
func reactionID(ts, user string) string {
	return ts + ":" + user
}

func tsLess(a, b string) bool {
	av, errA := strconv.ParseFloat(a, 64)
	bv, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return av < bv
}
