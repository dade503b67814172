package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "planwg"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "planwg - plan review through working-group channels",
		Long:          "planwg posts plans to private working-group channels, collects threaded feedback and approvals, and keeps a durable local record of every plan's lifecycle.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = Version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.AddCommand(
		NewCreateCommand(app),
		NewPlanCommand(app),
		NewReplyCommand(app),
		NewSyncCommand(app),
		NewApproveCommand(app),
		NewStatusCommand(app),
		NewListCommand(app),
		NewLinkCommand(app),
		NewCloseCommand(app),
		NewBootstrapCommand(app),
	)
	return cmd
}
