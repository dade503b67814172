package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
)

// NewSyncCommand prints the targeted thread's accumulated feedback and
// drains any notifications the daemon queued since the last sync.
func NewSyncCommand(app *App) *cobra.Command {
	var (
		channelFlag string
		threadFlag  string
		overview    bool
		sectionTS   string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Show feedback and pending events for the targeted thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			name, threadTS, rec, err := app.resolveTarget(ctx, channelFlag, threadFlag)
			if err != nil {
				return err
			}
			t := rec.Threads[threadTS]
			if t == nil {
				return fmt.Errorf("%w: %s in %s", planwg.ErrThreadNotFound, threadTS, name)
			}

			drainPending(app, name, out)

			if overview {
				printOverview(out, name, threadTS, t)
				return nil
			}
			if sectionTS != "" {
				return printSectionFeedback(out, name, sectionTS, t)
			}
			printFeedback(out, name, threadTS, t)
			return nil
		},
	}
	cmd.Flags().StringVar(&channelFlag, "channel", "", "target channel instead of the session link")
	cmd.Flags().StringVar(&threadFlag, "thread", "", "explicit thread id within --channel")
	cmd.Flags().BoolVar(&overview, "overview", false, "compact per-section overview")
	cmd.Flags().StringVar(&sectionTS, "section", "", "show one section's feedback by its message id")
	return cmd
}

func drainPending(app *App, name string, out io.Writer) {
	eventLog, err := planwg.OpenChannelEventLog(app.Cfg.StateDir, name, app.Cfg.EventLogCapacity)
	if err != nil {
		return
	}
	entries, err := eventLog.Drain()
	if err != nil || len(entries) == 0 {
		return
	}
	fmt.Fprintf(out, "Pending events (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(out, "  [%s] %s\n", e.Kind, e.Text)
	}
	fmt.Fprintln(out)
}

func printOverview(out io.Writer, name, threadTS string, t *planwg.Thread) {
	if !t.Sectioned() {
		fmt.Fprintln(out, "This plan has no sections. Use sync without --overview for full feedback.")
		return
	}
	fmt.Fprintf(out, "# Plan Overview — #%s\n", name)
	fmt.Fprintf(out, "Thread: %s  |  Plan v%d\n", threadTS, t.Version)
	fmt.Fprintf(out, "Status: %s\n", t.Status)
	if t.Approved() {
		fmt.Fprintf(out, "Approved by <@%s>\n", t.ApprovedBy)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sections:")
	for i, sec := range t.Sections {
		title := planwg.HeadingTitle(sec.Heading, i+1)
		mark := ""
		if sec.Approved {
			mark = " [approved]"
		}
		note := "  [no feedback]"
		if n := len(sec.Feedback); n == 1 {
			note = "  [1 feedback item]"
		} else if n > 1 {
			note = fmt.Sprintf("  [%d feedback items]", n)
		}
		fmt.Fprintf(out, "  %d.%s %s%s\n", i+1, mark, title, note)
		fmt.Fprintf(out, "     ts: %s\n", sec.TS)
	}
}

func printSectionFeedback(out io.Writer, name, sectionTS string, t *planwg.Thread) error {
	idx, ok := t.SectionIndex[sectionTS]
	if !ok || idx >= len(t.Sections) {
		return fmt.Errorf("%w: %s", planwg.ErrSectionNotFound, sectionTS)
	}
	sec := t.Sections[idx]
	fmt.Fprintf(out, "# Section Feedback — %s\n", planwg.HeadingTitle(sec.Heading, idx+1))
	fmt.Fprintf(out, "Channel: #%s  |  Section ts: %s\n\n", name, sectionTS)
	if len(sec.Feedback) == 0 {
		fmt.Fprintln(out, "No feedback for this section yet.")
		return nil
	}
	for i, entry := range sec.Feedback {
		fmt.Fprintf(out, "## Feedback %d — <@%s> (%s)\n%s\n\n", i+1, entry.User, clipTime(entry.ReceivedAt), entry.Text)
	}
	return nil
}

func printFeedback(out io.Writer, name, threadTS string, t *planwg.Thread) {
	fmt.Fprintf(out, "# Working Group Feedback — #%s\n", name)
	fmt.Fprintf(out, "Thread: %s  |  Plan version: %d\n", threadTS, t.Version)
	fmt.Fprintf(out, "Status: %s\n", t.Status)
	if t.Approved() {
		fmt.Fprintf(out, "Approved by <@%s>\n", t.ApprovedBy)
	}
	fmt.Fprintln(out)

	if len(t.PlanVersions) > 0 {
		latest := t.PlanVersions[len(t.PlanVersions)-1]
		fmt.Fprintf(out, "## Current Plan (v%d)\n%s\n\n", latest.Version, latest.Text)
	}

	var feedback []planwg.FeedbackItem
	for _, f := range t.Feedback {
		if f.Kind == planwg.FeedbackKindFeedback {
			feedback = append(feedback, f)
		}
	}
	if len(feedback) == 0 {
		fmt.Fprintln(out, "No feedback yet.")
		return
	}
	for i, entry := range feedback {
		fmt.Fprintf(out, "## Feedback %d — <@%s> (%s)\n%s\n\n", i+1, entry.User, clipTime(entry.ReceivedAt), entry.Text)
	}
}

func clipTime(iso string) string {
	if len(iso) > 19 {
		return iso[:19]
	}
	return iso
}
