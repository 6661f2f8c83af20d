package main

import (
	"fmt"
	"time"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"

	"github.com/spf13/cobra"
)

func watchCmd(root *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously report project status changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cmdutil.Connect(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			snapshot, changes := app.Broker.Subscribe(ctx)
			for _, change := range snapshot {
				fmt.Println(ui.InfoMsg("%s %s", ui.Accent(change.Project), ui.Phase(change.Phase)))
			}

			// Drive the broker: poll the engine for every stored project and
			// let the manager publish whatever moved.
			pollErr := make(chan error, 1)
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					sums, err := app.Store.List(ctx)
					if err != nil {
						pollErr <- err
						return
					}
					for _, sum := range sums {
						p, err := app.Store.Load(ctx, sum.Name)
						if err != nil {
							continue
						}
						if _, err := app.Manager.Refresh(ctx, p); err != nil {
							pollErr <- err
							return
						}
					}
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
					}
				}
			}()

			fmt.Println(ui.InfoMsg("watching %s (interval %s)", ui.Accent(app.Store.Root()), interval))
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case err := <-pollErr:
					return err
				case change, ok := <-changes:
					if !ok {
						return nil
					}
					fmt.Println(ui.InfoMsg("%s %s", ui.Accent(change.Project), ui.Phase(change.Phase)))
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "Engine poll interval")
	return cmd
}
