package channel

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	mdHeading    = regexp.MustCompile(`^#{1,6}\s+(.*)`)
	mdRule       = regexp.MustCompile(`^[-*_]{3,}\s*$`)
	mdInlineCode = regexp.MustCompile("`[^`]+`")
	mdBoldStar   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdBoldUnder  = regexp.MustCompile(`__(.+?)__`)
	mdItalic     = regexp.MustCompile(`\*(.+?)\*`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdBullet     = regexp.MustCompile(`^(\s*)[-*]\s+`)
	boldStash    = regexp.MustCompile("\x00(.+?)\x00")
	codeStash    = regexp.MustCompile("\x01CODE(\\d+)\x01")
)

// ToMrkdwn converts standard markdown to the service's mrkdwn dialect:
// headings become bold lines, bullets become dots, links and emphasis are
// rewritten. Fenced code blocks and inline code pass through verbatim.
func ToMrkdwn(text string) string {
	var out []string
	inCodeBlock := false

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			out = append(out, line)
			continue
		}
		if inCodeBlock {
			out = append(out, line)
			continue
		}
		if m := mdHeading.FindStringSubmatch(line); m != nil {
			out = append(out, "*"+m[1]+"*")
			continue
		}
		if mdRule.MatchString(line) {
			out = append(out, "───────────────────")
			continue
		}

		// Stash inline code spans so their contents stay untouched.
		var spans []string
		line = mdInlineCode.ReplaceAllStringFunc(line, func(span string) string {
			spans = append(spans, span)
			return fmt.Sprintf("\x01CODE%d\x01", len(spans)-1)
		})

		line = mdBullet.ReplaceAllString(line, "$1• ")

		// Bold goes through a placeholder so the italic pass cannot eat
		// its markers.
		line = mdBoldStar.ReplaceAllString(line, "\x00$1\x00")
		line = mdBoldUnder.ReplaceAllString(line, "\x00$1\x00")
		line = mdItalic.ReplaceAllString(line, "_${1}_")
		line = boldStash.ReplaceAllString(line, "*$1*")

		line = mdLink.ReplaceAllString(line, "<$2|$1>")

		line = codeStash.ReplaceAllStringFunc(line, func(ph string) string {
			m := codeStash.FindStringSubmatch(ph)
			var idx int
			fmt.Sscanf(m[1], "%d", &idx)
			if idx >= 0 && idx < len(spans) {
				return spans[idx]
			}
			return ph
		})

		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// FormatPlanMessage renders a single-message plan post.
func FormatPlanMessage(plan string, version int, channelName string) string {
	return fmt.Sprintf("*Plan v%d* · `#%s`\n\n%s", version, channelName, ToMrkdwn(plan))
}

// FormatSectionMessage renders one section's own top-level post.
func FormatSectionMessage(heading, body string) string {
	var parts []string
	if heading != "" {
		parts = append(parts, ToMrkdwn(heading))
	}
	if body != "" {
		parts = append(parts, ToMrkdwn(body))
	}
	return strings.Join(parts, "\n\n")
}

// FormatAnchorMessage renders the overview message that precedes a
// multi-section plan, listing every section by title.
func FormatAnchorMessage(version int, channelName string, titles []string) string {
	lines := []string{fmt.Sprintf("*Plan v%d* · `#%s`", version, channelName), "", "*Sections:*"}
	for i, title := range titles {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, title))
	}
	lines = append(lines, "", "_Reply in each section below with your feedback._")
	return strings.Join(lines, "\n")
}
