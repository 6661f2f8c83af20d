package projectcmd

import (
	"errors"
	"fmt"

	"dockhand/cmd/dockhand/cmdutil"
	"dockhand/cmd/dockhand/ui"
	projectlib "dockhand/internal/project"

	"github.com/spf13/cobra"
)

func deleteCmd(root *string) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a project's directory and definition",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cmdutil.Connect(*root)
			if err != nil {
				return err
			}
			defer app.Close()

			name := args[0]

			// The in-memory reporter only knows about this process; ask the
			// engine directly so another session's containers still block.
			if snap, err := refreshIfPresent(cmd, app, name); err == nil && snap {
				return fmt.Errorf("%w: %s (run \"dockhand down %s\" first)",
					projectlib.ErrProjectRunning, name, name)
			}

			if err := app.Store.Delete(cmd.Context(), name); err != nil {
				if errors.Is(err, projectlib.ErrProjectRunning) {
					return fmt.Errorf("%w (run \"dockhand down %s\" first)", err, name)
				}
				return err
			}
			app.Broker.Forget(name)
			fmt.Println(ui.SuccessMsg("project %s deleted", ui.Accent(name)))
			return nil
		},
	}
}

// refreshIfPresent reports whether the named project has running containers,
// per a live engine query. An unreachable engine yields an error and the
// cached/in-memory gate in Store.Delete decides alone.
func refreshIfPresent(cmd *cobra.Command, app *cmdutil.App, name string) (bool, error) {
	p, err := app.Store.Load(cmd.Context(), name)
	if err != nil {
		return false, err
	}
	snap, err := app.Manager.Refresh(cmd.Context(), p)
	if err != nil {
		return false, err
	}
	switch snap.Phase {
	case projectlib.PhaseRunning, projectlib.PhaseDegraded:
		return true, nil
	default:
		return false, nil
	}
}
