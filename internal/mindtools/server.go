// Package mindtools exposes the mind engine's nine operations as typed MCP
// tools over stdio JSON-RPC. Handlers never raise into the agent runtime:
// malformed input and storage faults surface as {success: false, message}
// results, and every write path is absorbed at the store boundary.
package mindtools

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openclaw/mind/internal/config"
	"github.com/openclaw/mind/internal/store"
)

// EventSink receives one-line event notifications after successful
// mutations. The dashboard hub implements it; nil disables publishing.
type EventSink interface {
	Publish(agent, line string)
}

// Server binds the mind tools to one agent's store.
type Server struct {
	st   *store.Store
	sink EventSink
}

// NewServer creates a tool server for the given store. sink may be nil.
func NewServer(st *store.Store, sink EventSink) *Server {
	return &Server{st: st, sink: sink}
}

// Tools returns every tool paired with its handler, ready for registration.
func (s *Server) Tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: logStressTool(), Handler: s.handleLogStress},
		{Tool: confessUncertaintyTool(), Handler: s.handleConfessUncertainty},
		{Tool: logEthicalRefusalTool(), Handler: s.handleLogEthicalRefusal},
		{Tool: logGuidanceTool(), Handler: s.handleLogGuidance},
		{Tool: dreamTool(), Handler: s.handleDream},
		{Tool: getLearningsTool(), Handler: s.handleGetLearnings},
		{Tool: approveLearningTool(), Handler: s.handleApproveLearning},
		{Tool: rejectLearningTool(), Handler: s.handleRejectLearning},
		{Tool: saveLearningTool(), Handler: s.handleSaveLearning},
	}
}

// Run starts the MCP stdio server for one agent. It blocks until stdin is
// closed or the stdio server fails.
func Run(st *store.Store, sink EventSink) error {
	s := NewServer(st, sink)

	mcpServer := server.NewMCPServer(
		"openclaw-mind",
		config.Version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(s.Tools()...)

	stdio := server.NewStdioServer(mcpServer)
	stdio.SetErrorLogger(log.New(os.Stderr, "[mcp] ", log.LstdFlags))

	return stdio.Listen(context.Background(), os.Stdin, os.Stdout)
}

// publish emits a JSON event line to the sink, if one is attached.
func (s *Server) publish(event string, fields map[string]any) {
	if s.sink == nil {
		return
	}
	payload := map[string]any{"event": event}
	for k, v := range fields {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.sink.Publish(s.st.AgentID(), string(data))
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
