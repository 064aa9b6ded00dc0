package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	errs "github.com/sweetpotato0/mapshock/errors"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/workflow"
)

type stubWorkflow struct {
	runErr  error
	reports map[string]*workflow.Report
	lastRun string
}

func (s *stubWorkflow) Run(ctx context.Context, text string, metadata map[string]any) (*workflow.Report, error) {
	s.lastRun = text
	if s.runErr != nil {
		return nil, s.runErr
	}
	report := &workflow.Report{Success: true, SessionID: "wf-1", ProtocolsApplied: []string{"Data Verification Framework"}}
	s.reports[report.SessionID] = report
	return report, nil
}

func (s *stubWorkflow) Lookup(ctx context.Context, id string) (*workflow.Report, error) {
	if r, ok := s.reports[id]; ok {
		return r, nil
	}
	return nil, errs.ErrNotFound
}

func connect(t *testing.T, wf Workflow) *sdkmcp.ClientSession {
	t.Helper()
	server, err := NewServer(wf, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx := context.Background()
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func decodeReport(t *testing.T, res *sdkmcp.CallToolResult) workflow.Report {
	t.Helper()
	if res.IsError || len(res.Content) == 0 {
		t.Fatalf("unexpected tool result: %+v", res)
	}
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	var report workflow.Report
	if err := json.Unmarshal([]byte(text.Text), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return report
}

func TestNewServerRequiresWorkflow(t *testing.T) {
	if _, err := NewServer(nil); !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunAndGetReport(t *testing.T) {
	wf := &stubWorkflow{reports: map[string]*workflow.Report{}}
	cs := connect(t, wf)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      ToolRunWorkflow,
		Arguments: map[string]any{"query": "  Analyze Acme Corp  "},
	})
	if err != nil {
		t.Fatalf("run_workflow: %v", err)
	}
	report := decodeReport(t, res)
	if !report.Success || report.SessionID != "wf-1" {
		t.Fatalf("unexpected report %+v", report)
	}
	if wf.lastRun != "Analyze Acme Corp" {
		t.Errorf("expected trimmed query, got %q", wf.lastRun)
	}

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      ToolGetReport,
		Arguments: map[string]any{"session_id": "wf-1"},
	})
	if err != nil {
		t.Fatalf("get_report: %v", err)
	}
	if got := decodeReport(t, res); got.SessionID != "wf-1" {
		t.Errorf("unexpected report id %s", got.SessionID)
	}
}

func TestRunFailureReturnsErrorReport(t *testing.T) {
	wf := &stubWorkflow{runErr: errors.New("boom"), reports: map[string]*workflow.Report{}}
	cs := connect(t, wf)

	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{
		Name:      ToolRunWorkflow,
		Arguments: map[string]any{"query": "Analyze Acme Corp"},
	})
	if err != nil {
		t.Fatalf("run_workflow: %v", err)
	}
	report := decodeReport(t, res)
	if report.Success || report.Error != "boom" {
		t.Fatalf("expected error report, got %+v", report)
	}
	if report.SessionID == "" {
		t.Error("error report needs a workflow id")
	}
	if report.Processing.ContextAnalysis != workflow.StatusFailed {
		t.Errorf("expected failed stages, got %+v", report.Processing)
	}
}

func TestToolErrors(t *testing.T) {
	cs := connect(t, &stubWorkflow{reports: map[string]*workflow.Report{}})
	ctx := context.Background()

	cases := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"empty query", ToolRunWorkflow, map[string]any{"query": "   "}},
		{"empty id", ToolGetReport, map[string]any{"session_id": ""}},
		{"unknown id", ToolGetReport, map[string]any{"session_id": "missing"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: tc.tool, Arguments: tc.args})
			if err == nil && !res.IsError {
				t.Fatalf("expected a tool error, got %+v", res)
			}
		})
	}
}
