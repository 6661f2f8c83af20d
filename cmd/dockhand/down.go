package main

import (
	"fmt"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	"dockhand/internal/lifecycle"

	"github.com/spf13/cobra"
)

func downCmd(root *string) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "down <name>",
		Short: "Stop a project's services, dependents first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cmdutil.Connect(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			p, err := app.Store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if reset && app.Manager.Reset(p.Name) {
				fmt.Println(ui.InfoMsg("cleared failed state for %s", ui.Accent(p.Name)))
			}

			events := make(chan lifecycle.ProgressEvent, 64)
			done := printProgress(events)
			err = app.Manager.Down(cmd.Context(), p, events)
			close(events)
			<-done

			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project %s is down", ui.Accent(p.Name)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Acknowledge a failed operation before stopping")
	return cmd
}
