// Package mcp exposes the workflow as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/session"
	"github.com/sweetpotato0/mapshock/workflow"
)

const (
	ToolRunWorkflow = "run_workflow"
	ToolGetReport   = "get_report"
)

// Workflow is the part of workflow.Orchestrator the server needs.
type Workflow interface {
	Run(ctx context.Context, userText string, metadata map[string]any) (*workflow.Report, error)
	Lookup(ctx context.Context, sessionID string) (*workflow.Report, error)
}

// ServerInfo describes the server to connecting clients.
type ServerInfo struct {
	Name    string
	Version string
}

// Option configures the server.
type Option func(*serverConfig)

type serverConfig struct {
	info   ServerInfo
	logger *slog.Logger
}

// WithServerInfo overrides the advertised implementation.
func WithServerInfo(info ServerInfo) Option {
	return func(cfg *serverConfig) {
		if info.Name != "" {
			cfg.info.Name = info.Name
		}
		if info.Version != "" {
			cfg.info.Version = info.Version
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serverConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

func defaultConfig() serverConfig {
	return serverConfig{
		info:   ServerInfo{Name: "mapshock", Version: "0.1.0"},
		logger: logging.WithComponent("mcp"),
	}
}

type runArgs struct {
	Query    string         `json:"query" jsonschema:"Analysis request, e.g. a company and the question to research"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"Optional caller metadata stored with the session"`
}

type reportArgs struct {
	SessionID string `json:"session_id" jsonschema:"workflow_id returned by run_workflow"`
}

// NewServer builds an MCP server with the run_workflow and get_report tools.
func NewServer(wf Workflow, opts ...Option) (*sdkmcp.Server, error) {
	if wf == nil {
		return nil, fmt.Errorf("%w: workflow is nil", errs.ErrInvalidInput)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    cfg.info.Name,
		Version: cfg.info.Version,
		Title:   "MAPSHOCK analysis pipeline",
	}, nil)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolRunWorkflow,
		Description: "Run context analysis, protocol selection and research synthesis for a request and return the final report",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a runArgs) (*sdkmcp.CallToolResult, any, error) {
		text := strings.TrimSpace(a.Query)
		if text == "" {
			return nil, nil, fmt.Errorf("query is required")
		}
		report, err := wf.Run(ctx, text, a.Metadata)
		if err != nil {
			cfg.logger.Error("workflow run failed", "error", err)
			report = workflow.ErrorReport(session.New(a.Metadata).ID, err)
		}
		return textResult(report)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolGetReport,
		Description: "Return a previously saved workflow report by its workflow_id",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, a reportArgs) (*sdkmcp.CallToolResult, any, error) {
		id := strings.TrimSpace(a.SessionID)
		if id == "" {
			return nil, nil, fmt.Errorf("session_id is required")
		}
		report, err := wf.Lookup(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("load report %s: %w", id, err)
		}
		return textResult(report)
	})

	return server, nil
}

// ServeStdio runs the server on stdin/stdout until ctx is done or the client disconnects.
func ServeStdio(ctx context.Context, server *sdkmcp.Server) error {
	return server.Run(ctx, &sdkmcp.StdioTransport{})
}

func textResult(report *workflow.Report) (*sdkmcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode report: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{
			&sdkmcp.TextContent{Text: string(raw)},
		},
	}, nil, nil
}
