package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/planwg"
)

// NewBootstrapCommand populates or refreshes the local record from channel
// history. The merge never rewrites state that is already present, so a
// collaborator joining late and the original owner both converge on the
// same record, and running it twice changes nothing.
func NewBootstrapCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap <channel>",
		Short: "Populate local state from channel history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := planwg.NormalizeChannelName(args[0])
			out := cmd.OutOrStdout()

			channelID, err := app.Channel.LookupChannelID(ctx, name)
			if err != nil {
				return err
			}
			if channelID == "" {
				return fmt.Errorf("channel #%s not found (not a member or doesn't exist)", name)
			}
			fmt.Fprintf(out, "Found #%s (%s)\n", name, channelID)

			history, err := app.Channel.FetchHistory(ctx, channelID)
			if err != nil {
				return err
			}

			var stats planwg.ReconcileStats
			_, err = app.Store.Ensure(name, func() *planwg.ChannelRecord {
				return planwg.NewChannelRecord(channelID, name)
			}, func(rec *planwg.ChannelRecord) error {
				stats = planwg.Reconcile(rec, toHistory(history))
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Bootstrapped #%s: %d threads, %d feedback entries, %d revisions, %d approvals\n",
				name, stats.ThreadsCreated, stats.FeedbackAdded, stats.RevisionsAdded, stats.ApprovalsApplied)
			return nil
		},
	}
	return cmd
}

func toHistory(msgs []channel.Message) []planwg.HistoryMessage {
	out := make([]planwg.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		hm := planwg.HistoryMessage{
			TS:       m.TS,
			ThreadTS: m.ThreadTS,
			Author:   m.Author,
			Text:     m.Text,
			Bot:      m.Bot,
		}
		for _, r := range m.Reactions {
			hm.Reactions = append(hm.Reactions, planwg.HistoryReaction{
				Name:  r.Name,
				Users: append([]string(nil), r.Users...),
			})
		}
		out = append(out, hm)
	}
	return out
}
