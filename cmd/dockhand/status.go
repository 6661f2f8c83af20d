package main

import (
	"fmt"
	"strconv"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	"dockhand/internal/engine"

	"github.com/spf13/cobra"
)

func statusCmd(root *string) *cobra.Command {
	var drift bool

	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show live per-service status for a project",
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
			snap, err := app.Manager.Refresh(cmd.Context(), p)
			if err != nil {
				return err
			}

			fmt.Println(ui.Bold(p.Name) + " " + ui.Phase(snap.Phase))
			rows := make([][]string, len(snap.Services))
			for i, svc := range snap.Services {
				detail := ""
				if svc.State.Status == engine.StatusExited {
					detail = "(" + strconv.Itoa(svc.State.ExitCode) + ")"
				}
				id := "-"
				if svc.Present {
					id = svc.State.ID
				}
				rows[i] = []string{
					svc.Service,
					ui.ContainerStatus(string(svc.State.Status), detail),
					id,
				}
			}
			fmt.Println(ui.Table([]string{"Service", "Status", "Container"}, rows))

			if drift {
				drifts, err := app.Manager.Drift(cmd.Context(), p)
				if err != nil {
					return err
				}
				if len(drifts) == 0 {
					fmt.Println(ui.SuccessMsg("no drift"))
					return nil
				}
				for _, d := range drifts {
					fmt.Println(ui.WarnMsg("%s: %s (%s)", d.Service, d.Kind, d.Detail))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drift, "drift", false, "Also report declared-vs-observed drift")
	return cmd
}
