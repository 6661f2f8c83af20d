// Package configcmd holds the configuration subcommands.
package configcmd

import (
	"fmt"

	"dockhand/cmd/dockhand/ui"
	"dockhand/config"
	"dockhand/internal/logging"

	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change dockhand settings",
	}
	cmd.AddCommand(showCmd())
	cmd.AddCommand(setRootCmd())
	cmd.AddCommand(setLogLevelCmd())
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if level == "" {
				level = logging.LevelInfo + " (default)"
			}
			fmt.Print(ui.KeyValues("",
				ui.KV("config", config.Path()),
				ui.KV("root", cfg.Root),
				ui.KV("log-level", level),
			))
			return nil
		},
	}
}

func setRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-root <dir>",
		Short: "Change the directory projects are stored under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Root = args[0]
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("project root set to %s", ui.Accent(cfg.Root)))
			return nil
		},
	}
}

func setLogLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-log-level <level>",
		Short: "Change the default log level (debug, info, warn, error)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate by attempting to configure with it.
			if err := logging.Configure(args[0]); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.LogLevel = args[0]
			if err := cfg.Save(); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("log level set to %s", ui.Accent(cfg.LogLevel)))
			return nil
		},
	}
}
