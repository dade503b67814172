package channel

import (
	"strings"
	"testing"
)

func TestToMrkdwnHeadingsAndBullets(t *testing.T) {
	in := "# Title\n- one\n  * nested\n---\nplain"
	want := "*Title*\n• one\n  • nested\n───────────────────\nplain"
	if got := ToMrkdwn(in); got != want {
		t.Fatalf("unexpected conversion:\n got: %q\nwant: %q", got, want)
	}
}

func TestToMrkdwnEmphasisAndLinks(t *testing.T) {
	if got := ToMrkdwn("**bold** and *italic* and __also bold__"); got != "*bold* and _italic_ and *also bold*" {
		t.Fatalf("unexpected emphasis conversion: %q", got)
	}
	if got := ToMrkdwn("[docs](https://example.com/docs)"); got != "<https://example.com/docs|docs>" {
		t.Fatalf("unexpected link conversion: %q", got)
	}
}

func TestToMrkdwnLeavesCodeAlone(t *testing.T) {
	in := "```\n# not a heading\n**not bold**\n```\nuse `**raw**` here"
	got := ToMrkdwn(in)
	if !strings.Contains(got, "# not a heading") || !strings.Contains(got, "**not bold**") {
		t.Fatalf("fenced block was transformed: %q", got)
	}
	if !strings.Contains(got, "`**raw**`") {
		t.Fatalf("inline code was transformed: %q", got)
	}
}

func TestFormatPlanMessage(t *testing.T) {
	got := FormatPlanMessage("# Plan\nbody", 2, "wg_x")
	want := "*Plan v2* · `#wg_x`\n\n*Plan*\nbody"
	if got != want {
		t.Fatalf("unexpected plan message:\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatAnchorMessage(t *testing.T) {
	got := FormatAnchorMessage(1, "wg_x", []string{"Design", "Rollout"})
	want := strings.Join([]string{
		"*Plan v1* · `#wg_x`",
		"",
		"*Sections:*",
		"  1. Design",
		"  2. Rollout",
		"",
		"_Reply in each section below with your feedback._",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected anchor message:\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatSectionMessage(t *testing.T) {
	if got := FormatSectionMessage("## Design", "- keep it"); got != "*Design*\n\n• keep it" {
		t.Fatalf("unexpected section message: %q", got)
	}
	if got := FormatSectionMessage("", "preamble only"); got != "preamble only" {
		t.Fatalf("unexpected headingless section message: %q", got)
	}
}
