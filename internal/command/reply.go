package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/channel"
	"github.com/agentworkforce/planwg/internal/planwg"
)

// NewReplyCommand posts a revised plan into the targeted thread. The
// revision bumps the version and reopens the feedback window, but an
// approval that was already granted stays on the record.
func NewReplyCommand(app *App) *cobra.Command {
	var (
		channelFlag string
		threadFlag  string
		planFile    string
		planText    string
		filesFlag   string
	)
	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Post a revised plan to the targeted thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			plan, err := readPlan(planFile, planText)
			if err != nil {
				return err
			}
			name, threadTS, rec, err := app.resolveTarget(ctx, channelFlag, threadFlag)
			if err != nil {
				return err
			}
			current := rec.Threads[threadTS]
			if current == nil {
				return fmt.Errorf("%w: %s in %s", planwg.ErrThreadNotFound, threadTS, name)
			}
			version := current.Version + 1

			msg := channel.FormatPlanMessage(plan, version, name)
			replyTS, err := app.Channel.PostMessage(ctx, rec.ChannelID, threadTS, msg)
			if err != nil {
				return err
			}

			files := parseFiles(filesFlag)
			_, err = app.Store.Mutate(name, func(rec *planwg.ChannelRecord) error {
				t, ok := rec.Threads[threadTS]
				if !ok {
					return fmt.Errorf("%w: %s in %s", planwg.ErrThreadNotFound, threadTS, name)
				}
				if len(files) > 0 {
					t.Files = files
				}
				t.Version = t.Version + 1
				t.PlanVersions = append(t.PlanVersions, planwg.PlanVersion{
					Version:  t.Version,
					Text:     plan,
					PostedAt: planwg.NowISO(),
					TS:       replyTS,
				})
				t.LatestReplyTS = replyTS
				version = t.Version
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan v%d posted to thread %s\n", version, threadTS)
			return nil
		},
	}
	cmd.Flags().StringVar(&channelFlag, "channel", "", "target channel instead of the session link")
	cmd.Flags().StringVar(&threadFlag, "thread", "", "explicit thread id within --channel")
	cmd.Flags().StringVar(&planFile, "plan-file", "", "path to the revised plan markdown")
	cmd.Flags().StringVar(&planText, "plan-text", "", "inline revised plan markdown")
	cmd.Flags().StringVar(&filesFlag, "files", "", "comma-separated files the plan touches")
	return cmd
}
