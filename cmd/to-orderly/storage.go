package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TomascpMarques/to-orderly/internal/config"
	"github.com/TomascpMarques/to-orderly/internal/storage"
)

var storageOverrides = flagOverrides{
	"storage-kind": "storage.kind",
	"dsn":          "storage.dsn",
}

func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("storage-kind", "", "storage backend: sqlite or postgres")
	cmd.Flags().String("dsn", "", "storage connection string")
}

// openStorage opens the configured repository and creates the catalog.
func openStorage(ctx context.Context, cfg config.Storage, log *slog.Logger) (storage.Repository, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.DSN, MaxConns: cfg.MaxConns})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	log.Info("storage: ready", "kind", cfg.Kind)
	return repo, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the template catalog and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, storageOverrides)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			repo, err := openStorage(cmd.Context(), cfg.Storage, log)
			if err != nil {
				return err
			}
			repo.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ready (%s)\n", cfg.Storage.Kind)
			return nil
		},
	}
	addStorageFlags(cmd)
	return cmd
}
