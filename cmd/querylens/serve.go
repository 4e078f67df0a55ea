package main

import (
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/adapter/mcp"
	"github.com/guillermoBallester/querylens/internal/config"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve profile_query, list_indexes and run_report as MCP tools over stdio",
		Long: `serve exposes the profiler to MCP clients over stdio.

Statements that modify data are refused unless --allow-writes is given, since
profiling executes every statement for real.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			allowWrites, _ := cmd.Flags().GetBool("allow-writes")
			applyServeDefaults(cfg, allowWrites)

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				if cerr := a.Close(); cerr != nil && err == nil {
					err = errors.Wrap(cerr, "shutting down")
				}
			}()

			s := mcp.NewServer(version, mcp.Services{
				Profiler:  a.profiler,
				Inspector: a.inspector,
				Report:    a.report,
			}, a.logger, a.tracer, a.inst)

			a.logger.Info("serving MCP over stdio", slog.Bool("read_only_guard", cfg.ReadOnlyGuard))
			if err := mcpserver.NewStdioServer(s).Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return errors.Wrap(err, "stdio server")
			}

			a.logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().Bool("allow-writes", false, "Let MCP clients profile statements that modify data")
	return cmd
}

// applyServeDefaults turns the read-only guard on for MCP clients. An explicit
// READ_ONLY_GUARD or --read-only-guard still wins over --allow-writes.
func applyServeDefaults(cfg *config.Config, allowWrites bool) {
	cfg.ReadOnlyGuard = cfg.ReadOnlyGuard || !allowWrites
}
