package main

import (
	"io"
	"os"
	"runtime/debug"

	"github.com/guillermoBallester/querylens/internal/config"
	"github.com/guillermoBallester/querylens/internal/output"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "dev"

func init() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "querylens",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "Profile SQL queries and report tuning advice",
		Long: `querylens runs a batch of diagnostic queries against a database, captures each
query's plan and execution time, prints tuning recommendations, and lists the
user-defined indexes.

SQLite database files and PostgreSQL URLs are supported. Without flags the
built-in cases run against data/app.db.`,
		Example: `  # Run the built-in cases against the default database
  querylens

  # Run cases from a file against PostgreSQL, as JSON
  querylens --database-url postgres://localhost/app --cases-file cases.yaml --format json

  # Serve the profiler as MCP tools over stdio
  querylens serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runReport(cmd, cfg)
		},
	}

	addConfigFlags(root)
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("database-url", "", "SQLite file path or PostgreSQL URL (default \"data/app.db\")")
	f.String("driver", "", "Database driver: sqlite, postgres (inferred from the URL when omitted)")
	f.String("cases-file", "", "YAML file with diagnostic cases")
	f.Int64("slow-threshold-ms", 0, "Duration above which a query is slow (default 100)")
	f.StringP("format", "f", "", "Report format: text, json")
	f.Bool("read-only-guard", false, "Refuse to profile statements that modify data")
	f.String("audit-log", "", "Append an NDJSON record per profiled statement to this file")
	f.Bool("otel", false, "Export OpenTelemetry traces and metrics over OTLP")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.Int32("pool-max-conns", 0, "Maximum pool connections")
	f.Int32("pool-min-conns", 0, "Minimum idle pool connections")
	f.Duration("pool-max-conn-lifetime", 0, "Maximum lifetime of a pooled connection")
}

// parseOverrides collects only the flags the user actually set.
func parseOverrides(cmd *cobra.Command) config.Overrides {
	f := cmd.Flags()
	var o config.Overrides

	if f.Changed("database-url") {
		v, _ := f.GetString("database-url")
		o.DatabaseURL = &v
	}
	if f.Changed("driver") {
		v, _ := f.GetString("driver")
		o.Driver = &v
	}
	if f.Changed("cases-file") {
		v, _ := f.GetString("cases-file")
		o.CasesFile = &v
	}
	if f.Changed("slow-threshold-ms") {
		v, _ := f.GetInt64("slow-threshold-ms")
		o.SlowThresholdMS = &v
	}
	if f.Changed("format") {
		v, _ := f.GetString("format")
		o.Format = &v
	}
	if f.Changed("audit-log") {
		v, _ := f.GetString("audit-log")
		o.AuditLog = &v
	}
	if f.Changed("log-level") {
		v, _ := f.GetString("log-level")
		o.LogLevel = &v
	}
	if f.Changed("pool-max-conns") {
		v, _ := f.GetInt32("pool-max-conns")
		o.PoolMaxConns = &v
	}
	if f.Changed("pool-min-conns") {
		v, _ := f.GetInt32("pool-min-conns")
		o.PoolMinConns = &v
	}
	if f.Changed("pool-max-conn-lifetime") {
		v, _ := f.GetDuration("pool-max-conn-lifetime")
		o.PoolMaxConnLifetime = &v
	}
	o.ReadOnlyGuard, _ = f.GetBool("read-only-guard")
	o.OTelEnabled, _ = f.GetBool("otel")

	return o
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(parseOverrides(cmd))
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	return cfg, nil
}

func runReport(cmd *cobra.Command, cfg *config.Config) (err error) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "shutting down")
		}
	}()

	sink, err := output.NewSink(cfg.Format, out, useColor(out))
	if err != nil {
		return errors.WithStack(err)
	}

	if err := a.report.Run(ctx, sink); err != nil {
		return errors.Wrap(err, "running report")
	}
	return nil
}

// useColor is true only for a terminal, and never when NO_COLOR is set.
func useColor(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
