package projectcmd

import (
	"fmt"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	"dockhand/internal/hosts"
	projectlib "dockhand/internal/project"

	"github.com/spf13/cobra"
)

func createCmd(root *string) *cobra.Command {
	var (
		extraHosts  string
		systemHosts bool
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project with the starter service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cmdutil.Connect(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			p := projectlib.Project{Name: args[0]}
			if systemHosts {
				p.ExtraHosts = hosts.LoadSystem()
			}
			if extraHosts != "" {
				custom, err := hosts.ParseCustom(extraHosts)
				if err != nil {
					return err
				}
				p.ExtraHosts = append(p.ExtraHosts, custom...)
			}

			created, err := app.Store.Create(cmd.Context(), p)
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("project %s created", ui.Accent(created.Name)))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("dir", created.Dir),
				ui.KV("services", fmt.Sprintf("%d", len(created.Services))),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&extraHosts, "extra-hosts", "", "Comma-separated ip:host entries added to every service")
	cmd.Flags().BoolVar(&systemHosts, "system-hosts", false, "Seed extra hosts from /etc/hosts")
	return cmd
}
