package main

import (
	"fmt"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"

	"github.com/spf13/cobra"
)

func logsCmd(root *string) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs <project> <service>",
		Short: "Print a service container's logs",
		Args:  cobra.ExactArgs(2),
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
			service := args[1]
			if _, ok := p.Service(service); !ok {
				return fmt.Errorf("project %s has no service %q", p.Name, service)
			}

			lines, err := app.Engine.Logs(cmd.Context(), p.Name, service, follow)
			if err != nil {
				return err
			}
			for line := range lines {
				if line.Err != nil {
					// Ctrl-C on --follow is a normal way to leave.
					if cmd.Context().Err() != nil {
						return nil
					}
					fmt.Println(ui.ErrorMsg("log stream: %v", line.Err))
					return line.Err
				}
				fmt.Println(line.Text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new log lines until interrupted")
	return cmd
}
