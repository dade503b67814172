package planwg

import (
	"strconv"
	"time"
)

// ApplyResult reports what a normalized event changed, so callers can
// decide whether to log, notify, or persist.
type ApplyResult struct {
	Changed       bool
	Kind          EventKind
	ThreadTS      string
	ThreadCreated bool
	NewVersion    int // set when the event recorded a plan revision
	Scope         ApprovalScope
	Section       string // heading title for section-scoped approvals
	Author        string
	Text          string
}

// Apply folds a normalized event into the record. It is idempotent: a
// redelivered event is detected by message id and returns Changed=false
// with the record untouched. The caller must hold the channel's record
// lock and persist the record afterwards when Changed is true.
func Apply(rec *ChannelRecord, ev NormalizedEvent) ApplyResult {
	res := ApplyResult{Kind: ev.Kind, ThreadTS: ev.ThreadTS, Author: ev.Author, Text: ev.Text, Scope: ev.Scope}
	switch ev.Kind {
	case EventNewPlan:
		if _, ok := rec.Threads[ev.ThreadTS]; ok {
			return res
		}
		rec.Threads[ev.ThreadTS] = &Thread{
			Owner:   ev.Author,
			TS:      ev.ThreadTS,
			Version: 1,
			Status:  StatusAwaitingFeedback,
			Files:   []string{},
			PlanVersions: []PlanVersion{{
				Version:  1,
				Text:     ev.Text,
				PostedAt: eventTimestamp(ev.TS),
			}},
			Feedback: []FeedbackItem{},
		}
		res.Changed = true
		res.ThreadCreated = true
		return res

	case EventFeedback:
		t, ok := rec.Threads[ev.ThreadTS]
		if !ok {
			t = placeholderThread(ev.ThreadTS)
			rec.Threads[ev.ThreadTS] = t
			res.ThreadCreated = true
		}
		if t.HasFeedbackMessage(ev.TS) {
			res.ThreadCreated = false
			return res
		}
		item := FeedbackItem{
			User:       ev.Author,
			TS:         ev.TS,
			Text:       ev.Text,
			Kind:       FeedbackKindFeedback,
			ReceivedAt: eventTimestamp(ev.TS),
		}
		if t.Owner != "" && ev.Author == t.Owner {
			// The owner replying in their own thread is a revision, not
			// feedback. Approval, once granted, is not revoked by it.
			item.Kind = FeedbackKindRevision
			t.Version++
			t.PlanVersions = append(t.PlanVersions, PlanVersion{
				Version:  t.Version,
				Text:     ev.Text,
				PostedAt: item.ReceivedAt,
				TS:       ev.TS,
			})
			res.NewVersion = t.Version
		}
		target := ev.ThreadTS
		if ev.SectionTS != "" {
			target = ev.SectionTS
		}
		RecordFeedback(t, target, item)
		if tsAfter(ev.TS, t.LatestReplyTS) {
			t.LatestReplyTS = ev.TS
		}
		res.Changed = true
		return res

	case EventApproval:
		t, ok := rec.Threads[ev.ThreadTS]
		if !ok {
			return res
		}
		if ev.Scope == ScopeSection {
			idx, ok := t.SectionIndex[ev.SectionTS]
			if !ok || idx >= len(t.Sections) {
				return res
			}
			if t.Sections[idx].Approved {
				return res
			}
			t.Sections[idx].Approved = true
			t.Sections[idx].ApprovedBy = ev.Author
			res.Section = HeadingTitle(t.Sections[idx].Heading, idx+1)
			res.Changed = true
			return res
		}
		if t.Approved() {
			return res
		}
		ApproveThread(t, ev.Author)
		res.Changed = true
		return res
	}
	return res
}

// placeholderThread stands in for a plan whose creating message was never
// seen (the daemon joined mid-conversation). Ownership stays unknown until
// reconciliation fills it in.
func placeholderThread(ts string) *Thread {
	return &Thread{
		TS:           ts,
		Status:       StatusAwaitingFeedback,
		Files:        []string{},
		PlanVersions: []PlanVersion{},
		Feedback:     []FeedbackItem{},
	}
}

// eventTimestamp derives a deterministic receipt time from the message id
// itself, so replaying history produces identical records.
func eventTimestamp(ts string) string {
	if t, ok := TSTime(ts); ok {
		return t.Format(time.RFC3339Nano)
	}
	return NowISO()
}

func tsAfter(a, b string) bool {
	if b == "" {
		return a != ""
	}
	av, errA := strconv.ParseFloat(a, 64)
	bv, errB := strconv.ParseFloat(b, 64)
	if errA != nil || errB != nil {
		return a > b
	}
	return av > bv
}
