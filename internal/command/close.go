package command

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

// NewCloseCommand archives the channel remotely, marks the local record
// closed, and clears the session link when it points at this channel. The
// record itself is kept for the archive trail.
func NewCloseCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <channel>",
		Short: "Archive the channel and mark its record closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := planwg.NormalizeChannelName(args[0])
			out := cmd.OutOrStdout()

			rec, err := app.Store.Load(name)
			if err != nil {
				return err
			}
			if err := app.Channel.ArchiveChannel(ctx, rec.ChannelID); err != nil {
				return err
			}
			if _, err := app.Store.Mutate(name, func(rec *planwg.ChannelRecord) error {
				rec.Status = planwg.ChannelStatusClosed
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(out, "#%s archived.\n", name)

			sess, err := session.Load(app.WorkDir)
			if errors.Is(err, session.ErrNotLinked) {
				fmt.Fprintln(out, "No session file found for this directory.")
				return nil
			}
			if err != nil {
				return err
			}
			if sess.Channel != name {
				fmt.Fprintf(out, "Session file points to a different channel (%s); not removed.\n", sess.Channel)
				return nil
			}
			if err := session.Clear(app.WorkDir); err != nil {
				return err
			}
			fmt.Fprintln(out, "Session file cleared.")
			return nil
		},
	}
	return cmd
}
