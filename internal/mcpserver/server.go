package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anforahq/anfora/internal/tool"
)

// Server exposes the tool registry over the MCP SSE transport so external
// agent frameworks can call the same tools the chat loop uses.
type Server struct {
	mcp  *mcpsdk.Server
	http *http.Server
}

func New(port int, runner *tool.Runner) *Server {
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{Name: "anfora-tools", Version: "1.0.0"}, nil)
	for _, def := range runner.Descriptors() {
		srv.AddTool(&mcpsdk.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def.Parameters),
		}, handler(runner, def.Name))
	}

	return &Server{
		mcp: srv,
		http: &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: mcpsdk.NewSSEHandler(func(r *http.Request) *mcpsdk.Server {
				return srv
			}),
		},
	}
}

// inputSchema normalizes a tool's parameter map into a schema the SDK will
// serve; a nil map becomes an empty object schema.
func inputSchema(params map[string]interface{}) *jsonschema.Schema {
	if params == nil {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &schema
}

// handler bridges an MCP tool call into the runner. Observations that the
// runner flagged as failures become IsError results instead of protocol
// errors, so MCP clients see the same recoverable text the chat loop does.
func handler(runner *tool.Runner, name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args, _ := req.Params.Arguments.(json.RawMessage)
		if len(args) == 0 {
			args = []byte(`{}`)
		}
		observation, record := runner.Execute(ctx, name, args)
		return toResult(observation, record), nil
	}
}

func toResult(observation string, record tool.InvocationRecord) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: observation}},
		IsError: record.Error != nil,
	}
}

// Start starts the SSE server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("Starting MCP tool server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("MCP server failed", "error", err)
		}
	}()
}

// Stop stops the SSE server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
