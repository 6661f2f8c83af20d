// Package projectcmd holds the project management subcommands.
package projectcmd

import "github.com/spf13/cobra"

// Cmd returns the "project" command group. root points at the persistent
// --root flag resolved by the caller.
func Cmd(root *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project definitions",
	}
	cmd.AddCommand(createCmd(root))
	cmd.AddCommand(listCmd(root))
	cmd.AddCommand(showCmd(root))
	cmd.AddCommand(deleteCmd(root))
	return cmd
}
