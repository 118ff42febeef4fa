// Package mcpserver exposes the diagnostic tools over the Model Context
// Protocol.
package mcpserver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/junzzhu/openshift-mcp-server/internal/diagerr"
	"github.com/junzzhu/openshift-mcp-server/internal/report"
	"github.com/junzzhu/openshift-mcp-server/internal/tools"
)

const Name = "openshift-mcp-server"

// New registers every tool of the catalog on a fresh MCP server.
func New(tb *tools.Toolbox, version string, log *zap.Logger) *mcp.Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	add(s, tb, log, tools.StorageUsageTool, (*tools.Toolbox).StorageUsage)
	add(s, tb, log, tools.StorageForensicsTool, (*tools.Toolbox).StorageForensics)
	add(s, tb, log, tools.ResourceBalanceTool, (*tools.Toolbox).ResourceBalance)
	add(s, tb, log, tools.RestartAnomaliesTool, (*tools.Toolbox).RestartAnomalies)
	add(s, tb, log, tools.GpuUtilizationTool, (*tools.Toolbox).GpuUtilization)
	add(s, tb, log, tools.GpuHealthTool, (*tools.Toolbox).GpuHealth)
	add(s, tb, log, tools.PvCapacityTool, (*tools.Toolbox).PvCapacity)
	add(s, tb, log, tools.PodDiagnosticsTool, (*tools.Toolbox).PodDiagnostics)
	add(s, tb, log, tools.PodLogsTool, (*tools.Toolbox).PodLogs)
	add(s, tb, log, tools.GpuPodTool, (*tools.Toolbox).GpuPod)
	return s
}

// Serve runs the server over stdin/stdout until the client disconnects or
// ctx is done.
func Serve(ctx context.Context, s *mcp.Server, log *zap.Logger) error {
	log.Info("serving MCP over stdio", zap.String("server", Name))
	err := s.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func add[In any](s *mcp.Server, tb *tools.Toolbox, log *zap.Logger, name string, fn func(*tools.Toolbox, context.Context, In) (*report.Report, error)) {
	e, ok := tools.Lookup(name)
	if !ok {
		log.Panic("tool missing from catalog", zap.String("tool", name))
	}
	call := tools.Bind(tb, name, fn)
	mcp.AddTool(s, &mcp.Tool{Name: name, Description: e.Description},
		func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
			rep, err := call(tools.WithInvocationID(ctx, uuid.NewString()), in)
			return Result(ctx, rep, err)
		})
}

// Result converts a tool outcome into a protocol result. Tool failures
// become IsError results carrying the structured descriptor; cancellation
// of ctx is returned as a protocol error so no partial text is sent.
func Result(ctx context.Context, rep *report.Report, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: diagerr.Describe(err).JSON()}},
		}, nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: report.Render(rep)}},
	}, nil, nil
}
