package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/querylens/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// callState holds per-request timing and span data.
type callState struct {
	start time.Time
	span  trace.Span
}

// toolCalls tracks in-flight tool calls by request id.
type toolCalls struct {
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
	calls  sync.Map // id -> *callState
}

// ToolCallHooks creates MCP hooks that log tool calls and optionally record OTel spans/metrics.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	tc := &toolCalls{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		tc.begin(ctx, id, req.Params.Name)
	})
	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		var err error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			err = fmt.Errorf("tool %s returned error", req.Params.Name)
		}
		tc.end(ctx, id, req.Params.Name, err)
	})
	hooks.AddOnError(func(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
		req, ok := message.(*mcp.CallToolRequest)
		if !ok {
			return
		}
		tc.end(ctx, id, req.Params.Name, err)
	})

	return hooks
}

func (tc *toolCalls) begin(ctx context.Context, id any, tool string) {
	state := &callState{start: time.Now()}
	if tc.tracer != nil {
		_, state.span = tc.tracer.Start(ctx, "mcp.tool.call",
			trace.WithAttributes(attribute.String("mcp.tool", tool)),
		)
	}
	tc.calls.Store(id, state)
}

// end is a no-op for ids that were never started or were already ended.
func (tc *toolCalls) end(ctx context.Context, id any, tool string, err error) {
	v, ok := tc.calls.LoadAndDelete(id)
	if !ok {
		return
	}
	state := v.(*callState)
	duration := time.Since(state.start)

	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", tool),
		slog.Duration("duration", duration),
		slog.Bool("error", err != nil),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error.message", err.Error()))
	}
	tc.logger.LogAttrs(ctx, level, "tool call", attrs...)

	if tc.inst != nil {
		tc.inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))
	}

	if state.span != nil {
		if err != nil {
			state.span.RecordError(err)
			state.span.SetStatus(codes.Error, err.Error())
		}
		state.span.End()
	}
}
