package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/qbimport/internal/store"
)

// adminTimeout bounds migrate and reset.
const adminTimeout = 30 * time.Second

func newMigrateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the entity tables in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := global.cfg.Store
			cfg.AutoMigrate = false

			entities, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer entities.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
			defer cancel()
			if err := entities.Migrate(ctx); err != nil {
				return err
			}

			slog.Info("schema applied", "driver", cfg.Driver)
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newResetCmd(global *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset --yes",
		Short: "Delete every imported entity from the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes every imported entity; pass --yes to confirm")
			}

			cfg := global.cfg.Store
			cfg.AutoMigrate = false

			entities, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer entities.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), adminTimeout)
			defer cancel()
			if err := entities.Reset(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "store reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
