package projectcmd

import (
	"fmt"
	"strings"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	"dockhand/internal/compose"

	"github.com/spf13/cobra"
)

func showCmd(root *string) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a project's services",
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

			if raw {
				doc, err := compose.Render(p)
				if err != nil {
					return err
				}
				fmt.Print(string(doc))
				return nil
			}

			fmt.Println(ui.Bold(p.Name) + " " + ui.Muted(p.Dir))
			rows := make([][]string, len(p.Services))
			for i, svc := range p.Services {
				ports := make([]string, len(svc.Ports))
				for j, pm := range svc.Ports {
					ports[j] = fmt.Sprintf("%d:%d/%s", pm.HostPort, pm.ContainerPort, pm.Protocol)
				}
				deps := "-"
				if len(svc.DependsOn) > 0 {
					deps = strings.Join(svc.DependsOn, ", ")
				}
				rows[i] = []string{
					svc.Name,
					svc.Image,
					strings.Join(ports, " "),
					deps,
					svc.RestartPolicy,
				}
			}
			fmt.Println(ui.Table(
				[]string{"Service", "Image", "Ports", "Depends on", "Restart"},
				rows,
			))

			if len(p.ExtraHosts) > 0 {
				pairs := make([]ui.Pair, len(p.ExtraHosts))
				for i, h := range p.ExtraHosts {
					pairs[i] = ui.KV(h.Host, h.IP)
				}
				fmt.Println(ui.Muted("extra hosts"))
				fmt.Print(ui.KeyValues("  ", pairs...))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the compose document instead of a table")
	return cmd
}
