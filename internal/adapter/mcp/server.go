package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with tools and logging hooks.
func NewServer(version string, svc Services, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, svc, logger)

	return s
}
