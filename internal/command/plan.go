package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

// NewPlanCommand posts a new top-level plan thread in an existing channel
// and relinks the session to it.
func NewPlanCommand(app *App) *cobra.Command {
	var (
		planFile  string
		planText  string
		filesFlag string
	)
	cmd := &cobra.Command{
		Use:   "plan <channel>",
		Short: "Post a new plan thread in an existing channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := planwg.NormalizeChannelName(args[0])

			plan, err := readPlan(planFile, planText)
			if err != nil {
				return err
			}
			userID, err := app.UserID(ctx)
			if err != nil {
				return err
			}
			rec, err := app.Store.Load(name)
			if err != nil {
				return err
			}
			if rec.Closed() {
				return fmt.Errorf("%w: #%s", planwg.ErrChannelClosed, name)
			}

			threadTS, thread, err := postPlan(ctx, app, rec.ChannelID, name, userID, plan, 1, parseFiles(filesFlag))
			if err != nil {
				return err
			}
			if _, err := app.Store.Mutate(name, func(rec *planwg.ChannelRecord) error {
				rec.Threads[threadTS] = thread
				return nil
			}); err != nil {
				return err
			}
			if err := session.Save(app.WorkDir, &session.Session{Channel: name, ThreadTS: threadTS}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session linked to %s:%s\n", name, threadTS)
			return nil
		},
	}
	cmd.Flags().StringVar(&planFile, "plan-file", "", "path to the plan markdown")
	cmd.Flags().StringVar(&planText, "plan-text", "", "inline plan markdown")
	cmd.Flags().StringVar(&filesFlag, "files", "", "comma-separated files the plan touches")
	return cmd
}
