package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskDesk/internal/app"
	"taskDesk/internal/config"
	"taskDesk/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "taskdesk-api",
		Short:         "Serve the task desk API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(cfg)
			if _, err := application.Init(ctx); err != nil {
				_ = application.Shutdown()
				return fmt.Errorf("init: %w", err)
			}
			return application.Run(ctx)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yml", "Path to the YAML config file")

	if err := rootCmd.Execute(); err != nil {
		logger.Error("App: stopped with error", err)
		logger.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
