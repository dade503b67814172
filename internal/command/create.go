package command

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

const onboardingDM = `Hi! You've been invited to collaborate on *#%s* via *planwg*.

*Channel-only mode (no setup needed):*
Just reply in threads in the channel. Your feedback is automatically routed back to the plan owner's session.

*Full mode:*
Install planwg for bidirectional collaboration across working groups.

The channel is private and only visible to invited collaborators.`

// NewCreateCommand creates the create command: new channel, collaborators
// invited, first plan posted, local record initialised, session linked.
func NewCreateCommand(app *App) *cobra.Command {
	var (
		collaborators []string
		planFile      string
		planText      string
		filesFlag     string
	)
	cmd := &cobra.Command{
		Use:   "create <channel>",
		Short: "Create a working-group channel and post the first plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := planwg.NormalizeChannelName(args[0])
			out := cmd.OutOrStdout()

			plan, err := readPlan(planFile, planText)
			if err != nil {
				return err
			}
			userID, err := app.UserID(ctx)
			if err != nil {
				return err
			}

			channelID, err := app.Channel.CreateChannel(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created #%s (%s)\n", name, channelID)

			collaboratorIDs, err := app.Channel.ResolveUserIDs(ctx, collaborators)
			if err != nil {
				return err
			}
			invitees := dedupe(append([]string{userID}, collaboratorIDs...))
			if err := app.Channel.InviteUsers(ctx, channelID, invitees); err != nil {
				return err
			}

			threadTS, thread, err := postPlan(ctx, app, channelID, name, userID, plan, 1, parseFiles(filesFlag))
			if err != nil {
				return err
			}

			_, err = app.Store.Ensure(name, func() *planwg.ChannelRecord {
				rec := planwg.NewChannelRecord(channelID, name)
				rec.CreatedBy = userID
				rec.Collaborators = append([]string{}, collaborators...)
				return rec
			}, func(rec *planwg.ChannelRecord) error {
				rec.Threads[threadTS] = thread
				return nil
			})
			if err != nil {
				return err
			}

			if err := session.Save(app.WorkDir, &session.Session{Channel: name, ThreadTS: threadTS}); err != nil {
				return err
			}
			fmt.Fprintf(out, "Session linked: %s → %s:%s\n", app.WorkDir, name, threadTS)

			for _, uid := range collaboratorIDs {
				dm, err := app.Channel.OpenDM(ctx, uid)
				if err != nil {
					log.Warn().Err(err).Str("user", uid).Msg("onboarding DM skipped")
					continue
				}
				if _, err := app.Channel.PostMessage(ctx, dm, "", fmt.Sprintf(onboardingDM, name)); err != nil {
					log.Warn().Err(err).Str("user", uid).Msg("onboarding DM skipped")
				}
			}

			if thread.Sectioned() {
				fmt.Fprintf(out, "Plan posted as %d sections. anchor_ts=%s\n", len(thread.Sections), threadTS)
			} else {
				fmt.Fprintf(out, "Plan posted. thread_ts=%s\n", threadTS)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&collaborators, "collaborators", nil, "collaborator handles or user ids to invite")
	cmd.Flags().StringVar(&planFile, "plan-file", "", "path to the plan markdown")
	cmd.Flags().StringVar(&planText, "plan-text", "", "inline plan markdown")
	cmd.Flags().StringVar(&filesFlag, "files", "", "comma-separated files the plan touches")
	return cmd
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
