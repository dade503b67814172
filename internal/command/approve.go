package command

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
)

// NewApproveCommand marks the targeted plan (or one of its sections) as
// approved locally and mirrors the approval into the channel as a
// reaction, so every other participant's daemon converges on it.
func NewApproveCommand(app *App) *cobra.Command {
	var (
		channelFlag string
		threadFlag  string
		sectionTS   string
	)
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve the targeted plan or a single section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			name, threadTS, _, err := app.resolveTarget(ctx, channelFlag, threadFlag)
			if err != nil {
				return err
			}
			userID, err := app.UserID(ctx)
			if err != nil {
				return err
			}

			var reactionTS, sectionTitle string
			var version int
			rec, err := app.Store.Mutate(name, func(rec *planwg.ChannelRecord) error {
				t, ok := rec.Threads[threadTS]
				if !ok {
					return fmt.Errorf("%w: %s in %s", planwg.ErrThreadNotFound, threadTS, name)
				}
				if sectionTS != "" {
					if err := planwg.ApproveSection(t, sectionTS, userID); err != nil {
						return err
					}
					idx := t.SectionIndex[sectionTS]
					sectionTitle = planwg.HeadingTitle(t.Sections[idx].Heading, idx+1)
					reactionTS = sectionTS
					return nil
				}
				planwg.ApproveThread(t, userID)
				version = t.Version
				reactionTS = t.LatestReplyTS
				if reactionTS == "" {
					reactionTS = threadTS
				}
				return nil
			})
			if err != nil {
				return err
			}

			if err := app.Channel.AddReaction(ctx, rec.ChannelID, reactionTS, planwg.ApprovalReaction); err != nil {
				log.Warn().Err(err).Msg("could not add approval reaction")
			}

			if sectionTS != "" {
				fmt.Fprintf(out, "Section %q approved. Reaction added in channel.\n", sectionTitle)
			} else {
				fmt.Fprintf(out, "Plan v%d marked as approved. Reaction added in channel.\n", version)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&channelFlag, "channel", "", "target channel instead of the session link")
	cmd.Flags().StringVar(&threadFlag, "thread", "", "explicit thread id within --channel")
	cmd.Flags().StringVar(&sectionTS, "section", "", "approve one section by its message id")
	return cmd
}
