package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"authsvc/internal/config"
)

// Global flags available to all subcommands.
var envFile string

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:          "authsvc",
		Short:        "Account service",
		Long:         `authsvc registers users, keeps cookie sessions and handles password resets.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	addServeFlags(cmd.Flags(), opts)

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

func addServeFlags(fs *pflag.FlagSet, opts *serveOptions) {
	fs.StringVar(&opts.port, "port", "", "listen port (overrides SERVER_PORT)")
}

// loadConfig reads the dotenv file, then the environment.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
