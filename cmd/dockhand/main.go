package main

import (
	"fmt"
	"os"

	"dockhand/cmd/dockhand/configcmd"
	"dockhand/cmd/dockhand/projectcmd"
	"dockhand/config"
	"dockhand/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug bool
		root  string
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "dockhand",
		Short:         "Declarative multi-container project manager",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if cfg, err := config.Load(); err == nil && cfg.LogLevel != "" {
				level = cfg.LogLevel
			}
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&root, "root", "", "Project root directory (overrides config)")

	rootCmd.AddCommand(projectcmd.Cmd(&root))
	rootCmd.AddCommand(configcmd.Cmd())
	rootCmd.AddCommand(upCmd(&root))
	rootCmd.AddCommand(downCmd(&root))
	rootCmd.AddCommand(statusCmd(&root))
	rootCmd.AddCommand(logsCmd(&root))
	rootCmd.AddCommand(watchCmd(&root))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
