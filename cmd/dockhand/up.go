package main

import (
	"fmt"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	"dockhand/internal/lifecycle"

	"github.com/spf13/cobra"
)

func upCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:   "up <name>",
		Short: "Start a project's services in dependency order",
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

			events := make(chan lifecycle.ProgressEvent, 64)
			done := printProgress(events)
			err = app.Manager.Up(cmd.Context(), p, events)
			close(events)
			<-done

			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project %s is up", ui.Accent(p.Name)))
			return nil
		},
	}
}

// printProgress renders per-service progress lines until the channel closes.
func printProgress(events <-chan lifecycle.ProgressEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			switch ev.Kind {
			case lifecycle.EventServiceStarted:
				fmt.Println(ui.SuccessMsg("started %s", ui.Accent(ev.Service)))
			case lifecycle.EventServiceStopped:
				fmt.Println(ui.SuccessMsg("stopped %s", ui.Accent(ev.Service)))
			case lifecycle.EventServiceFailed:
				fmt.Println(ui.ErrorMsg("%s: %v", ev.Service, ev.Err))
			}
		}
	}()
	return done
}
