package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/qbimport/internal/config"
	"github.com/JonMunkholm/qbimport/internal/logging"
)

// globalOptions are flags shared by every subcommand.
type globalOptions struct {
	EnvFile    string
	Driver     string
	SQLitePath string
	LogLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "qbimport",
		Short:         "Import question bank files into the program/course/subject hierarchy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "env file to load when present")
	pf.StringVar(&opts.Driver, "driver", "", "store driver: memory, postgres or sqlite (default from STORE_DRIVER)")
	pf.StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite database file (default from SQLITE_PATH)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (default from LOG_LEVEL)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newTemplateCmd())
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	return cmd
}

// load reads the env file and configuration, applies flag overrides and
// sends logs to stderr so stdout only carries command output.
func (o *globalOptions) load(cmd *cobra.Command) error {
	if o.EnvFile != "" {
		if err := godotenv.Load(o.EnvFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", o.EnvFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.Driver != "" {
		cfg.Store.Driver = o.Driver
	}
	if o.SQLitePath != "" {
		cfg.Store.SQLitePath = o.SQLitePath
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())
	o.cfg = cfg
	return nil
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
