package planwg

// RawEventType distinguishes the two event shapes the Channel Service
// delivers.
type RawEventType string

const (
	RawReply    RawEventType = "reply"
	RawReaction RawEventType = "reaction"
)

// RawEvent is a channel event as received from the transport, before any
// interpretation against the local record.
type RawEvent struct {
	Type      RawEventType
	ChannelID string
	MessageID string
	ParentID  string // thread parent for replies; reacted-to message for reactions
	AuthorID  string
	Text      string
	Reaction  string
	Bot       bool // authored by the tool's own bot identity
}

type EventKind int

const (
	EventIgnored EventKind = iota
	EventNewPlan
	EventFeedback
	EventApproval
)

type ApprovalScope int

const (
	ScopePlan ApprovalScope = iota
	ScopeSection
)

// NormalizedEvent is the typed form dispatched into the record. ThreadTS
// always names the owning thread; SectionTS is set only when the event
// targets a section's own top-level message.
type NormalizedEvent struct {
	Kind      EventKind
	ThreadTS  string
	SectionTS string
	Author    string
	Text      string
	TS        string
	Scope     ApprovalScope
}

// Normalize classifies a raw event against the channel record. Events from
// the tool's own bot identity and malformed events come back Ignored, never
// as errors. Approval scope is resolved strictly through the section index:
// a reaction on a section's own message is section-scoped, a reaction on
// the anchor, a plan-version message, or a recorded reply is plan-scoped.
//
// The caller must hold the channel's record lock; Normalize reads the
// record but does not mutate it.
func Normalize(rec *ChannelRecord, ev RawEvent) NormalizedEvent {
	ignored := NormalizedEvent{Kind: EventIgnored}
	if ev.Bot || ev.MessageID == "" {
		return ignored
	}

	switch ev.Type {
	case RawReply:
		if ev.ParentID == "" || ev.ParentID == ev.MessageID {
			// Top-level message: a new plan thread, unless the id is
			// already registered as one of our own section posts.
			if _, ok := findSectionThread(rec, ev.MessageID); ok {
				return ignored
			}
			return NormalizedEvent{
				Kind:     EventNewPlan,
				ThreadTS: ev.MessageID,
				Author:   ev.AuthorID,
				Text:     ev.Text,
				TS:       ev.MessageID,
			}
		}
		if threadTS, ok := findSectionThread(rec, ev.ParentID); ok {
			return NormalizedEvent{
				Kind:      EventFeedback,
				ThreadTS:  threadTS,
				SectionTS: ev.ParentID,
				Author:    ev.AuthorID,
				Text:      ev.Text,
				TS:        ev.MessageID,
			}
		}
		return NormalizedEvent{
			Kind:     EventFeedback,
			ThreadTS: ev.ParentID,
			Author:   ev.AuthorID,
			Text:     ev.Text,
			TS:       ev.MessageID,
		}

	case RawReaction:
		if ev.Reaction != ApprovalReaction || ev.ParentID == "" {
			return ignored
		}
		if threadTS, ok := findSectionThread(rec, ev.ParentID); ok {
			return NormalizedEvent{
				Kind:      EventApproval,
				ThreadTS:  threadTS,
				SectionTS: ev.ParentID,
				Author:    ev.AuthorID,
				TS:        ev.MessageID,
				Scope:     ScopeSection,
			}
		}
		if threadTS, ok := findPlanMessageThread(rec, ev.ParentID); ok {
			return NormalizedEvent{
				Kind:     EventApproval,
				ThreadTS: threadTS,
				Author:   ev.AuthorID,
				TS:       ev.MessageID,
				Scope:    ScopePlan,
			}
		}
		return ignored
	}
	return ignored
}

// findSectionThread resolves a message id through the section reverse
// index, returning the owning thread's id.
func findSectionThread(rec *ChannelRecord, ts string) (string, bool) {
	for threadTS, t := range rec.Threads {
		if idx, ok := t.SectionIndex[ts]; ok && idx < len(t.Sections) {
			return threadTS, true
		}
	}
	return "", false
}

// findPlanMessageThread resolves a message id to a thread when the id is
// the thread anchor, a plan-version message, or a recorded reply.
func findPlanMessageThread(rec *ChannelRecord, ts string) (string, bool) {
	for threadTS, t := range rec.Threads {
		if threadTS == ts {
			return threadTS, true
		}
		for _, v := range t.PlanVersions {
			if v.TS != "" && v.TS == ts {
				return threadTS, true
			}
		}
		if t.HasFeedbackMessage(ts) {
			return threadTS, true
		}
	}
	return "", false
}
