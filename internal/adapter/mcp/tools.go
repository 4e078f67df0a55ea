package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/core/domain"
	"github.com/guillermoBallester/querylens/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "querylens"

// Tool descriptions
const (
	descProfileQuery = "Profile a SQL statement: capture the engine's query plan, execute the statement once " +
		"and time it, then return the plan steps, duration in milliseconds, a slow flag and tuning recommendations. " +
		"Use ? or $1 placeholders and pass values in params. " +
		"Mutating statements are executed for real."

	descProfileQuerySQL    = "SQL statement to profile (without the EXPLAIN keyword)"
	descProfileQueryParams = "Positional parameter values bound to the statement placeholders"

	descListIndexes = "List the user-defined indexes with their table and definition, in catalog order. " +
		"Engine-internal indexes are excluded."

	descRunReport = "Run the configured batch of diagnostic queries and return every case outcome " +
		"followed by the index listing. A failing case is reported in place and does not stop the batch."
)

// Services groups what the tools call into. Report is optional.
type Services struct {
	Profiler  *service.QueryProfiler
	Inspector *service.IndexInspector
	Report    *service.ReportService
}

func RegisterTools(s *server.MCPServer, svc Services, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("profile_query",
			mcp.WithDescription(descProfileQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description(descProfileQuerySQL),
			),
			mcp.WithArray("params",
				mcp.Description(descProfileQueryParams),
			),
		),
		profileQueryHandler(svc.Profiler, logger),
	)

	s.AddTool(
		mcp.NewTool("list_indexes",
			mcp.WithDescription(descListIndexes),
		),
		listIndexesHandler(svc.Inspector, logger),
	)

	if svc.Report != nil {
		s.AddTool(
			mcp.NewTool("run_report",
				mcp.WithDescription(descRunReport),
			),
			runReportHandler(svc.Report, logger),
		)
	}
}

func profileQueryHandler(profiler *service.QueryProfiler, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		sql, ok := args["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		var params []any
		if raw, present := args["params"]; present && raw != nil {
			list, ok := raw.([]any)
			if !ok {
				return mcp.NewToolResultError("params must be an array"), nil
			}
			params = normalizeParams(list)
		}

		result, err := profiler.Profile(ctx, domain.QueryRequest{SQL: sql, Params: params})
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "profile query")), nil
		}

		return jsonResult(result)
	}
}

func listIndexesHandler(inspector *service.IndexInspector, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		indexes, err := inspector.ListIndexes(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "list indexes")), nil
		}
		return jsonResult(indexes)
	}
}

func runReportHandler(report *service.ReportService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, err := report.Collect(ctx)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "run report")), nil
		}
		return jsonResult(r)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// normalizeParams turns integral JSON numbers back into int64 so they bind as
// integers rather than reals.
func normalizeParams(list []any) []any {
	out := make([]any, len(list))
	for i, v := range list {
		if f, ok := v.(float64); ok && f == float64(int64(f)) {
			out[i] = int64(f)
			continue
		}
		out[i] = v
	}
	return out
}

// sanitizeError maps service errors to messages safe to hand to a client.
// Driver messages from the profiled statement are passed through; anything
// else is logged and replaced with a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &pgErr) && pgErr.Code == "57014":
		return fmt.Sprintf("%s: query timed out", op)
	case errors.Is(err, domain.ErrMutatingStatement):
		return fmt.Sprintf("%s: %v (read-only guard is enabled)", op, domain.ErrMutatingStatement)
	case errors.Is(err, domain.ErrAcquisition):
		logger.Error("tool failed", slog.String("operation", op), slog.String("error.message", err.Error()))
		return fmt.Sprintf("%s: database unavailable", op)
	case errors.Is(err, domain.ErrExecution):
		return fmt.Sprintf("%s: %v", op, err)
	default:
		logger.Error("tool failed", slog.String("operation", op), slog.String("error.message", err.Error()))
		return fmt.Sprintf("%s: internal error, check server logs", op)
	}
}
