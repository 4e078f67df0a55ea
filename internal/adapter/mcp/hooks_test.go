package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type countingInst struct {
	toolDurations int
}

func (c *countingInst) RecordProfileDuration(context.Context, float64) {}
func (c *countingInst) IncrementProfileCount(context.Context)          {}
func (c *countingInst) IncrementProfileErrors(context.Context)         {}
func (c *countingInst) IncrementSlowQueries(context.Context)           {}
func (c *countingInst) RecordToolDuration(context.Context, float64)    { c.toolDurations++ }

func TestToolCallHooks_SpanPerCall(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	inst := &countingInst{}
	hooks := ToolCallHooks(discardLogger(), tp.Tracer("test"), inst)
	ctx := context.Background()

	req := &mcp.CallToolRequest{}
	req.Params.Name = "list_indexes"

	for _, fn := range hooks.OnBeforeCallTool {
		fn(ctx, "1", req)
	}
	for _, fn := range hooks.OnAfterCallTool {
		fn(ctx, "1", req, mcp.NewToolResultError("boom"))
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcp.tool.call", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, 1, inst.toolDurations)
}

func TestToolCallHooks_ErrorEndsOnce(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	inst := &countingInst{}
	hooks := ToolCallHooks(discardLogger(), tp.Tracer("test"), inst)
	ctx := context.Background()

	req := &mcp.CallToolRequest{}
	req.Params.Name = "profile_query"

	for _, fn := range hooks.OnBeforeCallTool {
		fn(ctx, "7", req)
	}
	for _, fn := range hooks.OnError {
		fn(ctx, "7", mcp.MethodToolsCall, req, errors.New("transport closed"))
	}
	for _, fn := range hooks.OnAfterCallTool {
		fn(ctx, "7", req, nil)
	}

	assert.Len(t, exporter.GetSpans(), 1)
	assert.Equal(t, 1, inst.toolDurations)
}
