package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts adds MCP prompt templates to the server
func (s *Server) registerPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "capture_session",
		Title:       "Capture Session Learnings",
		Description: "Save the durable learnings of the current working session as memories",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "project",
				Description: "Project to save the memories under",
				Required:    true,
			},
			{
				Name:        "focus",
				Description: "Topic to concentrate on (optional)",
				Required:    false,
			},
		},
	}, s.handleCaptureSessionPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "project_recap",
		Title:       "Project Recap",
		Description: "Summarize what is stored about a project: recent memories, themes, and gaps",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "project",
				Description: "Project to recap",
				Required:    true,
			},
			{
				Name:        "query",
				Description: "Narrow the recap to memories matching this query (optional)",
				Required:    false,
			},
		},
	}, s.handleProjectRecapPrompt)
}

func (s *Server) handleCaptureSessionPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project := req.Params.Arguments["project"]
	focus := req.Params.Arguments["focus"]

	if project == "" {
		return nil, fmt.Errorf("project is required")
	}

	focusSection := ""
	if focus != "" {
		focusSection = fmt.Sprintf("\nConcentrate on learnings related to: %s.\n", focus)
	}

	promptText := fmt.Sprintf(`Review this working session and persist what is worth keeping.
%s
## Steps
1. Call set_active_project(project: %q) so every save lands in the right scope
2. For each durable learning (decisions made, bugs fixed, preferences stated,
   patterns discovered), call save_memory with a short self-contained text and
   matching tags
3. Before each save, run search_memory with the key phrases to avoid storing
   what the backend already knows
4. Finish with list_memories(limit: 5) to confirm the new entries

## What counts as durable
- A decision plus its rationale
- A problem plus the fix that worked
- A stated preference or convention
- A reusable pattern or reference

Skip small talk, transient state, and anything trivially re-derivable.`, focusSection, project)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Capture session learnings into project %q", project),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}

func (s *Server) handleProjectRecapPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	project := req.Params.Arguments["project"]
	query := req.Params.Arguments["query"]

	if project == "" {
		return nil, fmt.Errorf("project is required")
	}

	searchStep := fmt.Sprintf("2. Call search_memory(project: %q, query: \"key topics from step 1\", detailed: true) for the areas that look important", project)
	if query != "" {
		searchStep = fmt.Sprintf("2. Call search_memory(project: %q, query: %q, detailed: true)", project, query)
	}

	promptText := fmt.Sprintf(`Build a recap of everything stored about project %q.

## Steps
1. Call list_memories(project: %q, limit: 20) to see the latest entries
%s
3. Group the findings into themes and note contradictions or stale entries
4. For any long memory worth condensing, call summarize_text with its text
5. Present: key decisions, open questions, and suggested follow-up saves

Keep the recap under a page; link each claim to a memory ID.`, project, project, searchStep)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Recap of project %q", project),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText},
			},
		},
	}, nil
}
