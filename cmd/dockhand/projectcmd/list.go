package projectcmd

import (
	"fmt"
	"strconv"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"

	"github.com/spf13/cobra"
)

func listCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects under the root directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cmdutil.Connect(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			sums, err := app.Store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(sums) == 0 {
				fmt.Println(ui.Muted("no projects under " + app.Store.Root()))
				return nil
			}

			rows := make([][]string, len(sums))
			for i, sum := range sums {
				updated := "-"
				if !sum.UpdatedAt.IsZero() {
					updated = sum.UpdatedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows[i] = []string{
					sum.Name,
					strconv.Itoa(sum.Services),
					ui.Phase(sum.Phase),
					updated,
				}
			}

			fmt.Println(ui.Table(
				[]string{"Project", "Services", "Status", "Updated"},
				rows,
			))
			return nil
		},
	}
}
