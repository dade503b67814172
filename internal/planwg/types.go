package planwg

import (
	"strconv"
	"strings"
	"time"
)

// ChannelPrefix marks the private channels this tool manages. Channels
// without the prefix are invisible to both the daemon and the CLI.
const ChannelPrefix = "wg_"

// ApprovalReaction is the only reaction treated as an approval signal.
const ApprovalReaction = "white_check_mark"

type ThreadStatus string

const (
	StatusAwaitingFeedback ThreadStatus = "awaiting_feedback"
	StatusApproved         ThreadStatus = "approved"
)

type FeedbackKind string

const (
	FeedbackKindFeedback FeedbackKind = "feedback"
	FeedbackKindRevision FeedbackKind = "revision"
)

const ChannelStatusClosed = "closed"

// ChannelRecord is the durable local view of one working-group channel.
// It is the only authoritative local copy; everything in it except
// Thread.Draft can be rebuilt from channel history.
type ChannelRecord struct {
	ChannelID     string             `json:"channel_id"`
	ChannelName   string             `json:"channel_name"`
	CreatedBy     string             `json:"created_by,omitempty"`
	Collaborators []string           `json:"collaborators"`
	Status        string             `json:"status,omitempty"`
	Threads       map[string]*Thread `json:"threads"`
}

func NewChannelRecord(channelID, channelName string) *ChannelRecord {
	return &ChannelRecord{
		ChannelID:     channelID,
		ChannelName:   channelName,
		Collaborators: []string{},
		Threads:       map[string]*Thread{},
	}
}

func (r *ChannelRecord) Closed() bool {
	return r != nil && r.Status == ChannelStatusClosed
}

// Thread is one plan's full lifecycle record, keyed in the channel by the
// message id (Slack timestamp) of its anchor or single plan message.
type Thread struct {
	Owner         string         `json:"owner,omitempty"`
	TS            string         `json:"ts"`
	Version       int            `json:"version"`
	Status        ThreadStatus   `json:"status"`
	ApprovedBy    string         `json:"approved_by,omitempty"`
	Files         []string       `json:"files"`
	PlanVersions  []PlanVersion  `json:"plan_versions"`
	Feedback      []FeedbackItem `json:"feedback"`
	Sections      []Section      `json:"sections,omitempty"`
	SectionIndex  map[string]int `json:"section_index,omitempty"`
	LatestReplyTS string         `json:"latest_reply_ts,omitempty"`

	// Draft is local-only: an in-progress revision that has not been
	// posted. Bootstrap reconciliation must never clobber it.
	Draft string `json:"draft,omitempty"`
}

func (t *Thread) Approved() bool {
	return t != nil && t.Status == StatusApproved
}

func (t *Thread) Sectioned() bool {
	return t != nil && len(t.Sections) > 0
}

// PlanVersion is immutable once appended. TS is empty for the very first
// version, whose message is the thread-creating message itself.
type PlanVersion struct {
	Version  int    `json:"version"`
	Text     string `json:"text"`
	PostedAt string `json:"posted_at"`
	TS       string `json:"ts,omitempty"`
}

// FeedbackItem is immutable once appended. Kind "revision" marks the
// owner's own post, recorded in the feedback stream so the conversation
// can be reconstructed chronologically.
type FeedbackItem struct {
	User       string       `json:"user"`
	TS         string       `json:"ts"`
	Text       string       `json:"text"`
	Kind       FeedbackKind `json:"type"`
	ReceivedAt string       `json:"received_at"`
}

// Section is an independently-threaded sub-unit of a plan. Its TS is the
// message id of its own top-level post and is the section's external handle.
type Section struct {
	Heading    string         `json:"heading"`
	Body       string         `json:"body"`
	TS         string         `json:"ts"`
	Approved   bool           `json:"approved"`
	ApprovedBy string         `json:"approved_by,omitempty"`
	Feedback   []FeedbackItem `json:"feedback"`
}

// ThreadSummary is the structured detail attached to status output and to
// disambiguation errors, so callers can resolve without re-querying.
type ThreadSummary struct {
	TS            string       `json:"ts"`
	Owner         string       `json:"owner"`
	Version       int          `json:"version"`
	Status        ThreadStatus `json:"status"`
	ApprovedBy    string       `json:"approved_by,omitempty"`
	Files         []string     `json:"files,omitempty"`
	FeedbackCount int          `json:"feedback_count"`
	SectionCount  int          `json:"section_count,omitempty"`
}

func Summarize(ts string, t *Thread) ThreadSummary {
	count := 0
	for _, f := range t.Feedback {
		if f.Kind == FeedbackKindFeedback {
			count++
		}
	}
	for _, sec := range t.Sections {
		count += len(sec.Feedback)
	}
	return ThreadSummary{
		TS:            ts,
		Owner:         t.Owner,
		Version:       t.Version,
		Status:        t.Status,
		ApprovedBy:    t.ApprovedBy,
		Files:         append([]string(nil), t.Files...),
		FeedbackCount: count,
		SectionCount:  len(t.Sections),
	}
}

// LastActivity returns the most recent message timestamp seen anywhere in
// the record, as a float epoch, or 0 when the record has no messages.
func (r *ChannelRecord) LastActivity() float64 {
	var last float64
	consider := func(ts string) {
		if v, err := strconv.ParseFloat(ts, 64); err == nil && v > last {
			last = v
		}
	}
	for ts, t := range r.Threads {
		consider(ts)
		for _, f := range t.Feedback {
			consider(f.TS)
		}
		for _, sec := range t.Sections {
			consider(sec.TS)
			for _, f := range sec.Feedback {
				consider(f.TS)
			}
		}
	}
	return last
}

// NormalizeChannelName prepends the managed-channel prefix when absent.
func NormalizeChannelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	if strings.HasPrefix(name, ChannelPrefix) {
		return name
	}
	return ChannelPrefix + name
}

// IsManagedChannel reports whether a channel name belongs to this tool.
func IsManagedChannel(name string) bool {
	return strings.HasPrefix(name, ChannelPrefix)
}

// NowISO is the receipt timestamp format used across the record.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// TSTime converts a Slack-style "seconds.fraction" message id into a UTC
// time. Used where a deterministic timestamp is needed (reconciliation).
func TSTime(ts string) (time.Time, bool) {
	v, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}, false
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), true
}
