package planwg

import (
	"fmt"
	"regexp"
	"strings"
)

var headingLine = regexp.MustCompile(`^#{1,3}\s+`)
var headingText = regexp.MustCompile(`^#{1,6}\s+(.*)`)

// SectionContent is one (heading, body) pair produced by splitting a plan.
// Heading keeps the raw markdown line (e.g. "## Rollout"); content before
// the first heading is attached to an empty heading.
type SectionContent struct {
	Heading string
	Body    string
}

// ParseSections splits a markdown plan on h1-h3 heading lines. A plan with
// no headings is single-section: ParseSections returns nil and the thread
// carries no Section substructure at all.
func ParseSections(plan string) []SectionContent {
	var sections []SectionContent
	var heading string
	var body []string
	found := false

	flush := func() {
		if heading != "" || len(body) > 0 {
			sections = append(sections, SectionContent{
				Heading: heading,
				Body:    strings.TrimSpace(strings.Join(body, "\n")),
			})
		}
	}

	for _, line := range strings.Split(plan, "\n") {
		if headingLine.MatchString(line) {
			flush()
			heading = line
			body = nil
			found = true
			continue
		}
		body = append(body, line)
	}
	flush()

	if !found {
		return nil
	}
	return sections
}

// HeadingTitle strips the markdown marker from a heading line, falling back
// to "Section N" for an empty preamble heading.
func HeadingTitle(heading string, position int) string {
	if m := headingText.FindStringSubmatch(heading); m != nil {
		return m[1]
	}
	if heading != "" {
		return heading
	}
	return fmt.Sprintf("Section %d", position)
}

// AttachSections installs the posted section messages on a thread and
// builds the reverse index from section message id to position.
func AttachSections(t *Thread, contents []SectionContent, messageIDs []string) {
	t.Sections = make([]Section, 0, len(contents))
	t.SectionIndex = make(map[string]int, len(contents))
	for i, c := range contents {
		t.Sections = append(t.Sections, Section{
			Heading:  c.Heading,
			Body:     c.Body,
			TS:       messageIDs[i],
			Feedback: []FeedbackItem{},
		})
		t.SectionIndex[messageIDs[i]] = i
	}
}

// RecordFeedback appends an item to the section identified by targetID, or
// to the thread's own feedback when targetID is not a section message
// (anchor replies and sectionless threads). The insert is idempotent by
// message id; a duplicate delivery returns false and changes nothing.
func RecordFeedback(t *Thread, targetID string, item FeedbackItem) bool {
	if idx, ok := t.SectionIndex[targetID]; ok && idx < len(t.Sections) {
		if hasFeedback(t.Sections[idx].Feedback, item.TS) {
			return false
		}
		t.Sections[idx].Feedback = append(t.Sections[idx].Feedback, item)
		return true
	}
	if hasFeedback(t.Feedback, item.TS) {
		return false
	}
	t.Feedback = append(t.Feedback, item)
	return true
}

// ApproveSection sets only the named section's approval flag.
func ApproveSection(t *Thread, sectionTS, approver string) error {
	idx, ok := t.SectionIndex[sectionTS]
	if !ok || idx >= len(t.Sections) {
		return fmt.Errorf("%w: section %s", ErrSectionNotFound, sectionTS)
	}
	sec := &t.Sections[idx]
	if !sec.Approved {
		sec.Approved = true
		sec.ApprovedBy = approver
	}
	return nil
}

// ApproveThread approves the whole plan, independent of per-section flags.
// Approval is irreversible; a second approval keeps the first approver.
func ApproveThread(t *Thread, approver string) {
	if t.Approved() {
		return
	}
	t.Status = StatusApproved
	t.ApprovedBy = approver
}

// HasFeedbackMessage reports whether the message id already exists anywhere
// in the thread's feedback stream, including section feedback.
func (t *Thread) HasFeedbackMessage(ts string) bool {
	if hasFeedback(t.Feedback, ts) {
		return true
	}
	for _, sec := range t.Sections {
		if hasFeedback(sec.Feedback, ts) {
			return true
		}
	}
	return false
}

func hasFeedback(items []FeedbackItem, ts string) bool {
	for _, f := range items {
		if f.TS == ts {
			return true
		}
	}
	return false
}
