package main

import (
	"taskDesk/internal/client"
	"taskDesk/internal/config"
	"taskDesk/internal/logger"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	baseURL    string
	token      string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "deskctl",
		Short:         "Check dates, negotiate deadlines and work through holiday alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				return logger.Init(true, "debug")
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML config file")
	flags.StringVar(&opts.baseURL, "api", "", "Task API base URL (overrides config)")
	flags.StringVar(&opts.token, "token", "", "Bearer token (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr")

	rootCmd.AddCommand(checkDateCmd(opts))
	rootCmd.AddCommand(extendCmd(opts))
	rootCmd.AddCommand(createCmd(opts))
	rootCmd.AddCommand(alertsCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))
	rootCmd.AddCommand(tokenCmd(opts))

	return rootCmd
}

// client builds an API client from config with flag overrides on top.
func (o *options) client() (*client.Client, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	clientCfg := cfg.Client
	if o.baseURL != "" {
		clientCfg.BaseURL = o.baseURL
	}
	if o.token != "" {
		clientCfg.Token = o.token
	}
	return client.New(clientCfg), nil
}
