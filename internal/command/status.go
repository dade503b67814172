package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
)

// NewStatusCommand shows a channel's plans, their review state, and any
// file conflicts between them.
func NewStatusCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <channel>",
		Short: "Show a channel's plan overview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := planwg.NormalizeChannelName(args[0])
			out := cmd.OutOrStdout()

			rec, err := app.Store.Load(name)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "# #%s\n", name)
			fmt.Fprintf(out, "Collaborators: %s\n", strings.Join(rec.Collaborators, ", "))
			fmt.Fprintf(out, "Active plans: %d\n\n", len(rec.Threads))

			ids := make([]string, 0, len(rec.Threads))
			for ts := range rec.Threads {
				ids = append(ids, ts)
			}
			sort.Strings(ids)
			for _, ts := range ids {
				s := planwg.Summarize(ts, rec.Threads[ts])
				mark := "open"
				if s.Status == planwg.StatusApproved {
					mark = "approved"
				}
				filesStr := ""
				if len(s.Files) > 0 {
					filesStr = fmt.Sprintf(" files=[%s]", strings.Join(s.Files, ", "))
				}
				fmt.Fprintf(out, "  [%s] %s owner=%s v%d feedback=%d status=%s%s\n",
					ts, mark, s.Owner, s.Version, s.FeedbackCount, s.Status, filesStr)
			}

			conflicts := planwg.FindConflicts(rec)
			if len(conflicts) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Conflicts:")
				for _, c := range conflicts {
					fmt.Fprintf(out, "  %s <-> %s on %s\n", c.ThreadA, c.ThreadB, strings.Join(c.Files, ", "))
				}
			}
			return nil
		},
	}
	return cmd
}
