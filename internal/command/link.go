package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
	"github.com/agentworkforce/planwg/internal/session"
)

// NewLinkCommand points the working directory's session at a channel
// thread. The link is a convenience pointer only; the channel record stays
// authoritative.
func NewLinkCommand(app *App) *cobra.Command {
	var threadTS string
	cmd := &cobra.Command{
		Use:   "link <channel>",
		Short: "Link this directory to a channel thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := planwg.NormalizeChannelName(args[0])
			if err := session.Save(app.WorkDir, &session.Session{Channel: name, ThreadTS: threadTS}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked session to %s:%s\n", name, threadTS)
			return nil
		},
	}
	cmd.Flags().StringVar(&threadTS, "thread", "", "thread id to link to")
	return cmd
}
