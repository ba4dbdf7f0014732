package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/TomascpMarques/to-orderly/internal/api"
	"github.com/TomascpMarques/to-orderly/internal/templates"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	overrides := flagOverrides{
		"addr":            "server.addr",
		"metrics-backend": "metrics.backend",
	}
	for k, v := range storageOverrides {
		overrides[k] = v
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the template API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts, overrides)
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			metricsHandler, closeMetrics, err := setupMetrics(cfg.Metrics, log)
			if err != nil {
				return err
			}
			defer closeMetrics()

			repo, err := openStorage(ctx, cfg.Storage, log)
			if err != nil {
				return err
			}
			defer repo.Close()

			srv := api.NewServer(api.Config{
				Addr:            cfg.Server.Addr,
				BodyLimit:       cfg.Server.BodyLimit,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				Metrics:         metricsHandler,
			}, templates.NewService(repo, log), log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				if ctx.Err() != nil {
					log.Info("serve: signal received, stopping")
				}
				return nil
			})
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("serve: stopped")
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("metrics-backend", "", "metrics backend: none, prometheus or datadog")
	addStorageFlags(cmd)
	return cmd
}
