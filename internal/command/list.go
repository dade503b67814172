package command

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentworkforce/planwg/internal/planwg"
)

type channelSummary struct {
	name       string
	total      int
	open       int
	approved   int
	lastTS     float64
	conflicted bool
}

// NewListCommand lists every working-group channel with plan counts, last
// activity, and a conflict marker. Channels with corrupt records are
// reported and skipped rather than failing the whole listing.
func NewListCommand(app *App) *cobra.Command {
	var openOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all working-group channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names, err := app.Store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(out, "No working group channels found.")
				return nil
			}

			var summaries []channelSummary
			for _, name := range names {
				rec, err := app.Store.Load(name)
				if errors.Is(err, planwg.ErrCorruptRecord) {
					log.Warn().Str("channel", name).Err(err).Msg("skipping corrupt record")
					continue
				}
				if err != nil {
					return err
				}
				s := channelSummary{
					name:       rec.ChannelName,
					total:      len(rec.Threads),
					lastTS:     rec.LastActivity(),
					conflicted: len(planwg.FindConflicts(rec)) > 0,
				}
				for _, t := range rec.Threads {
					if t.Approved() {
						s.approved++
					} else {
						s.open++
					}
				}
				if openOnly && s.open == 0 {
					continue
				}
				summaries = append(summaries, s)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No working group channels found.")
				return nil
			}

			sort.Slice(summaries, func(i, j int) bool {
				return summaries[i].lastTS > summaries[j].lastTS
			})
			for _, s := range summaries {
				planWord := "plans"
				if s.total == 1 {
					planWord = "plan"
				}
				conflictStr := ""
				if s.conflicted {
					conflictStr = "  !conflict"
				}
				fmt.Fprintf(out, "#%-30s %d %s (%d open, %d approved)  last: %s%s\n",
					s.name, s.total, planWord, s.open, s.approved, ageString(s.lastTS), conflictStr)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&openOnly, "open", false, "only channels with open plans")
	return cmd
}

func ageString(lastTS float64) string {
	if lastTS == 0 {
		return "unknown"
	}
	diff := time.Since(time.Unix(int64(lastTS), 0))
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
