package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TomascpMarques/to-orderly/internal/config"
	"github.com/TomascpMarques/to-orderly/internal/logging"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	cfgPath   string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "to-orderly",
		Short:        "Compile record schemas into tables and manage the template catalog",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "YAML config file (env TEMPLATES_* overrides it)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: json or text")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newCompileCmd(),
		newValidateCmd(opts),
	)
	return cmd
}

// flagOverrides maps flag names to config keys. Only flags the user set are
// applied, so unset flags never shadow the file or the environment.
type flagOverrides map[string]string

func (fo flagOverrides) collect(cmd *cobra.Command, out map[string]any) {
	for flag, key := range fo {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		out[key] = f.Value.String()
	}
}

var sharedOverrides = flagOverrides{
	"log-level":  "log.level",
	"log-format": "log.format",
}

// loadConfig loads and validates the configuration, reports every issue on
// stderr and fails on errors.
func loadConfig(cmd *cobra.Command, opts *rootOptions, extra flagOverrides) (config.Config, error) {
	overrides := map[string]any{}
	sharedOverrides.collect(cmd, overrides)
	extra.collect(cmd, overrides)

	cfg, err := config.Load(opts.cfgPath, overrides)
	if err != nil {
		return config.Config{}, err
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Err(issues); err != nil {
		return config.Config{}, fmt.Errorf("configuration is invalid: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)
	return log, nil
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadConfig(cmd, opts, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}
