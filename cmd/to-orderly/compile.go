package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TomascpMarques/to-orderly/internal/ddl"
	"github.com/TomascpMarques/to-orderly/internal/metrics"
	"github.com/TomascpMarques/to-orderly/internal/metrics/prom"
	"github.com/TomascpMarques/to-orderly/internal/schema"
	"github.com/TomascpMarques/to-orderly/internal/source"
	"github.com/TomascpMarques/to-orderly/internal/templates"
)

type compileOptions struct {
	live        bool
	fingerprint bool
	format      string
	pushgateway string
}

func newCompileCmd() *cobra.Command {
	opts := &compileOptions{}

	cmd := &cobra.Command{
		Use:   "compile TABLE [FILE|URL]",
		Short: "Print the CREATE TABLE statement for a schema",
		Long: `Compile reads a declared schema (a JSON or YAML list of
{name, type, nullable} entries) or, with --live, one sample JSON object, and
prints the CREATE TABLE statement for TABLE. The input is read from FILE, an
http(s) URL, or stdin when omitted or "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			return runCompile(cmd, opts, args[0], path)
		},
	}
	cmd.Flags().BoolVar(&opts.live, "live", false, "input is a sample JSON object instead of a declared schema")
	cmd.Flags().BoolVar(&opts.fingerprint, "fingerprint", false, "also print the statement fingerprint")
	cmd.Flags().StringVar(&opts.format, "format", "", "declared schema format: json or yaml (default: from the file extension, else json)")
	cmd.Flags().StringVar(&opts.pushgateway, "pushgateway-url", "", "push compile metrics to this Pushgateway")
	return cmd
}

// maxInput caps compile input, local or remote.
const maxInput = 8 << 20

func inputFormat(flag, path string) (string, error) {
	switch strings.ToLower(flag) {
	case "json", "yaml":
		return strings.ToLower(flag), nil
	case "yml":
		return "yaml", nil
	case "":
	default:
		return "", fmt.Errorf("unknown --format %q; want json or yaml", flag)
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 && strings.Contains(path, "://") {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "json", nil
}

func runCompile(cmd *cobra.Command, opts *compileOptions, table, path string) error {
	if opts.pushgateway != "" {
		b, err := prom.NewBackend(prom.Config{Job: "compile", GatewayURL: opts.pushgateway})
		if err != nil {
			return err
		}
		metrics.SetBackend(b)
		defer func() {
			if ferr := metrics.Flush(); ferr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "metrics: flush error: %v\n", ferr)
			}
		}()
	}

	start := time.Now()
	data, err := source.ReadAll(cmd.Context(), source.Resolve(path, cmd.InOrStdin(), nil), maxInput)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var src ddl.FieldSource
	op := "compile"
	if opts.live {
		op = "compile_live"
		if opts.format != "" && !strings.EqualFold(opts.format, "json") {
			return fmt.Errorf("--live accepts JSON input only")
		}
		live, err := schema.ParseLive(data)
		if err != nil {
			metrics.RecordRejection(templates.Code(err))
			return err
		}
		src = live
	} else {
		format, err := inputFormat(opts.format, path)
		if err != nil {
			return err
		}
		var sch schema.Schema
		if format == "yaml" {
			sch, err = schema.ParseDeclaredYAML(data)
		} else {
			sch, err = schema.ParseDeclared(data)
		}
		if err != nil {
			metrics.RecordRejection(templates.Code(err))
			return err
		}
		src = sch
	}

	stmt, fp, err := templates.Compile(src, table)
	metrics.RecordStep(op, err, time.Since(start))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, stmt)
	if opts.fingerprint {
		fmt.Fprintf(out, "-- fingerprint: %s\n", fp)
	}
	return nil
}
