package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/cognio-labs/cognio-mcp/internal/api"
)

const serverVersion = "1.2.0"

const serverInstructions = `🧠 COGNIO - Semantic Memory for AI Agents

You are connected to Cognio, a persistent semantic-memory service. Memories
survive across sessions and are shared by every client of this backend.

## Project scoping
save_memory, search_memory, and list_memories always run against a project.
Either pass 'project' explicitly or call set_active_project once per session;
with neither, those tools return an error without touching the backend.

## Suggested workflow
1. set_active_project(project: "my-project")
2. search_memory(query: "...") before answering from scratch
3. save_memory(text: "...") when you learn something worth keeping

## Quick reference
- SAVE: save_memory(text: "...", tags: ["go", "infra"])
- FIND: search_memory(query: "keywords"); detailed=true for full text
- BROWSE: list_memories(page: 1) and get_memory(memory_id: "...")
- CLEAN UP: archive_memory keeps history recoverable; delete_memory is final
- EXPORT: export_memories(format: "json" or "markdown")
- DIGEST: summarize_text(text: "...", num_sentences: 3)`

// Server wires the MCP tool surface to the Cognio backend client. One Server
// serves one process; per-connection state lives in the session store.
type Server struct {
	client   *api.Client
	sessions *sessionStore
	log      zerolog.Logger
}

// New builds a Server around the given backend client.
func New(client *api.Client, log zerolog.Logger) *Server {
	return &Server{
		client:   client,
		sessions: newSessionStore(),
		log:      log,
	}
}

// Run serves MCP over stdio until the client disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "cognio",
			Version: serverVersion,
		},
		&mcp.ServerOptions{
			CompletionHandler: s.completionHandler,
			Instructions:      serverInstructions,
		},
	)

	s.registerTools(server)
	s.registerResources(server)
	s.registerPrompts(server)

	s.log.Info().Str("backend", s.client.BaseURL).Msg("serving MCP over stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

// session resolves the adapter session for a tool call. Requests without a
// connection (direct handler invocations) share a fallback session.
func (s *Server) session(req *mcp.CallToolRequest) *Session {
	if req == nil {
		return s.sessions.get(nil)
	}
	return s.sessions.get(req.Session)
}

// textResult wraps a typed tool payload as a single text content block.
func textResult(r toolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: r.render()},
		},
	}
}

// errorResult converts any failure into an isError tool result. Errors stop
// here; handlers never hand them to the SDK.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText(err)},
		},
		IsError: true,
	}
}

func boolPtr(b bool) *bool {
	return &b
}
