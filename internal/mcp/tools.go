package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cognio-labs/cognio-mcp/internal/api"
	"github.com/cognio-labs/cognio-mcp/internal/models"
)

const (
	defaultSearchLimit      = 5
	defaultListLimit        = 20
	defaultSummarySentences = 3
	maxSummarySentences     = 10
)

// scopingError reports a project-scoped call with no resolvable project.
// Raised before any backend request is made.
type scopingError struct {
	tool string
}

func (e *scopingError) Error() string {
	return fmt.Sprintf("%s requires a project. Pass the 'project' argument or call set_active_project first.", e.tool)
}

// validationError reports a missing or malformed tool argument.
type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}

// resolveScope determines the project for a scoped call: an explicit
// argument wins, the session's active project is the fallback. The second
// return is false when neither is available.
func resolveScope(arg string, sess *Session) (projectScope, bool) {
	if p := strings.TrimSpace(arg); p != "" {
		return projectScope{project: p}, true
	}
	if p := sess.ActiveProject(); p != "" {
		return projectScope{project: p, implicit: true}, true
	}
	return projectScope{}, false
}

// projectsFromStats derives the project list from the stats aggregate,
// ordered by count descending with names breaking ties for a stable order.
// An absent breakdown yields an empty list, never an error.
func projectsFromStats(stats *models.StatsResponse) []models.ProjectCount {
	breakdown := stats.MemoriesByProject
	if len(breakdown) == 0 {
		breakdown = stats.ByProject
	}

	projects := make([]models.ProjectCount, 0, len(breakdown))
	for name, count := range breakdown {
		projects = append(projects, models.ProjectCount{Name: name, Count: count})
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Count != projects[j].Count {
			return projects[i].Count > projects[j].Count
		}
		return projects[i].Name < projects[j].Name
	})
	return projects
}

// Tool descriptions, shared by registration and the static catalogue.
const (
	saveMemoryDesc       = "Save a memory to long-term storage. REQUIRED: text. The project comes from the 'project' argument or the session's active project. Duplicate texts are detected by the backend and not stored twice."
	searchMemoryDesc     = "Semantic search over stored memories. REQUIRED: query. Scoped to the 'project' argument or the active project. Results are previews; pass detailed=true for full text."
	listMemoriesDesc     = "List memories in a project, newest first. Scoped to the 'project' argument or the active project. Accepts a 1-indexed 'page' (or legacy 'offset') plus 'limit'; pass full_text=true to disable previews."
	getMemoryDesc        = "Get one memory by ID with all fields. Use after search_memory to read a full record."
	archiveMemoryDesc    = "Archive a memory by ID. Archived memories stop appearing in search and list results but remain recoverable server-side."
	deleteMemoryDesc     = "Delete a memory by ID. Permanent and irreversible; prefer archive_memory when history should stay recoverable."
	exportMemoriesDesc   = "Export memories as JSON or Markdown. Optional 'project' narrows the export; format defaults to json."
	summarizeTextDesc    = "Summarize text with the backend's extractive summarizer. REQUIRED: text. num_sentences defaults to 3 (maximum 10)."
	memoryStatsDesc      = "Get statistics about the memory store: totals, storage size, and per-project and per-tag breakdowns."
	setActiveProjectDesc = "Set the active project for this session. REQUIRED: project. save_memory, search_memory, and list_memories then default to it."
	getActiveProjectDesc = "Show this session's active project, if any."
	listProjectsDesc     = "List projects with memory counts, busiest first. Derived from store statistics."
)

// registerTools registers the twelve tools in catalogue order. The SDK
// infers each input schema from the typed input struct.
func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_memory",
		Description: saveMemoryDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Save Memory",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleSaveMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_memory",
		Description: searchMemoryDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Search Memories",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleSearchMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_memories",
		Description: listMemoriesDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "List Memories",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleListMemories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_memory",
		Description: getMemoryDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Memory",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleGetMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "archive_memory",
		Description: archiveMemoryDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Archive Memory",
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleArchiveMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_memory",
		Description: deleteMemoryDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Delete Memory",
			IdempotentHint:  true,
			DestructiveHint: boolPtr(true),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleDeleteMemory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_memories",
		Description: exportMemoriesDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Export Memories",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleExportMemories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "summarize_text",
		Description: summarizeTextDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Summarize Text",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleSummarizeText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_memory_stats",
		Description: memoryStatsDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Memory Statistics",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleGetMemoryStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_active_project",
		Description: setActiveProjectDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Set Active Project",
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleSetActiveProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_active_project",
		Description: getActiveProjectDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Get Active Project",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleGetActiveProject)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_projects",
		Description: listProjectsDesc,
		Annotations: &mcp.ToolAnnotations{
			Title:           "List Projects",
			ReadOnlyHint:    true,
			IdempotentHint:  true,
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, s.handleListProjects)
}

// EmptyInput is the input type for tools that take no arguments.
type EmptyInput struct{}

type SaveMemoryInput struct {
	Text     string            `json:"text"`
	Project  string            `json:"project,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleSaveMemory(ctx context.Context, req *mcp.CallToolRequest, input SaveMemoryInput) (*mcp.CallToolResult, any, error) {
	sess := s.session(req)

	text := strings.TrimSpace(input.Text)
	if text == "" {
		return errorResult(&validationError{"'text' is required and cannot be empty."}), nil, nil
	}
	scope, ok := resolveScope(input.Project, sess)
	if !ok {
		return errorResult(&scopingError{tool: "save_memory"}), nil, nil
	}

	body := &models.SaveMemoryRequest{Text: text, Project: scope.project}
	if len(input.Tags) > 0 {
		body.Tags = input.Tags
	}
	if len(input.Metadata) > 0 {
		body.Metadata = input.Metadata
	}

	resp, err := s.client.SaveMemory(ctx, body)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(saveResult{resp: resp, scope: scope}), nil, nil
}

type SearchMemoryInput struct {
	Query     string   `json:"query"`
	Project   string   `json:"project,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Detailed  bool     `json:"detailed,omitempty"`
}

func (s *Server) handleSearchMemory(ctx context.Context, req *mcp.CallToolRequest, input SearchMemoryInput) (*mcp.CallToolResult, any, error) {
	sess := s.session(req)

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult(&validationError{"'query' is required and cannot be empty."}), nil, nil
	}
	scope, ok := resolveScope(input.Project, sess)
	if !ok {
		return errorResult(&scopingError{tool: "search_memory"}), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	resp, err := s.client.SearchMemories(ctx, api.SearchParams{
		Query:     query,
		Project:   scope.project,
		Tags:      input.Tags,
		Limit:     limit,
		Threshold: input.Threshold,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(searchResult{results: resp.Results, scope: scope, detailed: input.Detailed}), nil, nil
}

type ListMemoriesInput struct {
	Project  string   `json:"project,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Page     int      `json:"page,omitempty"`
	Offset   int      `json:"offset,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	FullText bool     `json:"full_text,omitempty"`
}

func (s *Server) handleListMemories(ctx context.Context, req *mcp.CallToolRequest, input ListMemoriesInput) (*mcp.CallToolResult, any, error) {
	sess := s.session(req)

	scope, ok := resolveScope(input.Project, sess)
	if !ok {
		return errorResult(&scopingError{tool: "list_memories"}), nil, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	// A 1-indexed page wins; a legacy offset is converted to its page.
	page := input.Page
	if page <= 0 {
		if input.Offset > 0 {
			page = input.Offset/limit + 1
		} else {
			page = 1
		}
	}

	resp, err := s.client.ListMemories(ctx, api.ListParams{
		Project: scope.project,
		Tags:    input.Tags,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(listResult{
		memories: resp.Memories,
		total:    resp.TotalItems,
		page:     page,
		limit:    limit,
		fullText: input.FullText,
		scope:    scope,
	}), nil, nil
}

// MemoryIDInput addresses a single memory. Shared by the get, archive, and
// delete tools, none of which are project-scoped.
type MemoryIDInput struct {
	MemoryID string `json:"memory_id"`
}

func (s *Server) handleGetMemory(ctx context.Context, req *mcp.CallToolRequest, input MemoryIDInput) (*mcp.CallToolResult, any, error) {
	id := strings.TrimSpace(input.MemoryID)
	if id == "" {
		return errorResult(&validationError{"'memory_id' is required."}), nil, nil
	}

	memory, err := s.client.GetMemory(ctx, id)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(memoryDetailResult{memory: memory}), nil, nil
}

func (s *Server) handleArchiveMemory(ctx context.Context, req *mcp.CallToolRequest, input MemoryIDInput) (*mcp.CallToolResult, any, error) {
	id := strings.TrimSpace(input.MemoryID)
	if id == "" {
		return errorResult(&validationError{"'memory_id' is required."}), nil, nil
	}

	if _, err := s.client.ArchiveMemory(ctx, id); err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(archiveResult{id: id}), nil, nil
}

func (s *Server) handleDeleteMemory(ctx context.Context, req *mcp.CallToolRequest, input MemoryIDInput) (*mcp.CallToolResult, any, error) {
	id := strings.TrimSpace(input.MemoryID)
	if id == "" {
		return errorResult(&validationError{"'memory_id' is required."}), nil, nil
	}

	if _, err := s.client.DeleteMemory(ctx, id); err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(deleteResult{id: id}), nil, nil
}

type ExportMemoriesInput struct {
	Format  string `json:"format,omitempty"`
	Project string `json:"project,omitempty"`
}

func (s *Server) handleExportMemories(ctx context.Context, req *mcp.CallToolRequest, input ExportMemoriesInput) (*mcp.CallToolResult, any, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "markdown" {
		return errorResult(&validationError{"'format' must be \"json\" or \"markdown\"."}), nil, nil
	}

	// Export may span all projects; 'project' is a plain filter here.
	payload, err := s.client.ExportMemories(ctx, format, strings.TrimSpace(input.Project))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(exportResult{format: format, payload: payload}), nil, nil
}

type SummarizeTextInput struct {
	Text         string `json:"text"`
	NumSentences int    `json:"num_sentences,omitempty"`
}

func (s *Server) handleSummarizeText(ctx context.Context, req *mcp.CallToolRequest, input SummarizeTextInput) (*mcp.CallToolResult, any, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return errorResult(&validationError{"'text' is required and cannot be empty."}), nil, nil
	}

	sentences := input.NumSentences
	clamped := false
	if sentences <= 0 {
		sentences = defaultSummarySentences
	}
	if sentences > maxSummarySentences {
		sentences = maxSummarySentences
		clamped = true
	}

	resp, err := s.client.Summarize(ctx, &models.SummarizeRequest{Text: text, NumSentences: sentences})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(summarizeResult{summary: resp.Summary, sentences: sentences, clamped: clamped}), nil, nil
}

func (s *Server) handleGetMemoryStats(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.client.GetStats(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(statsResult{stats: stats}), nil, nil
}

type SetActiveProjectInput struct {
	Project string `json:"project"`
}

func (s *Server) handleSetActiveProject(ctx context.Context, req *mcp.CallToolRequest, input SetActiveProjectInput) (*mcp.CallToolResult, any, error) {
	sess := s.session(req)

	project := strings.TrimSpace(input.Project)
	if project == "" {
		return errorResult(&validationError{"'project' is required and cannot be empty."}), nil, nil
	}

	// Any non-empty name is accepted; the project need not exist yet.
	previous := sess.SetActiveProject(project)
	s.log.Debug().Str("session_id", sess.ID()).Str("project", project).Msg("active project changed")
	return textResult(setProjectResult{project: project, previous: previous}), nil, nil
}

func (s *Server) handleGetActiveProject(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	sess := s.session(req)
	return textResult(activeProjectResult{project: sess.ActiveProject()}), nil, nil
}

func (s *Server) handleListProjects(ctx context.Context, req *mcp.CallToolRequest, input EmptyInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.client.GetStats(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(projectsResult{projects: projectsFromStats(stats)}), nil, nil
}

// toolDef is one entry of the static catalogue served by the CLI.
type toolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolDefinitions returns the tool catalogue in registration order, with
// hand-written input schemas matching the typed handler inputs.
func ToolDefinitions() []toolDef {
	str := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}
	integer := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "integer", "description": desc}
	}
	boolean := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "boolean", "description": desc}
	}
	stringArray := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": desc,
		}
	}
	object := func(props map[string]interface{}, required ...string) map[string]interface{} {
		schema := map[string]interface{}{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}

	projectProp := str("Project scope; falls back to the session's active project")
	memoryIDProp := str("Memory identifier")

	return []toolDef{
		{
			Name:        "save_memory",
			Description: saveMemoryDesc,
			InputSchema: object(map[string]interface{}{
				"text":    str("Memory text to store"),
				"project": projectProp,
				"tags":    stringArray("Tags attached to the memory"),
				"metadata": map[string]interface{}{
					"type":                 "object",
					"additionalProperties": map[string]interface{}{"type": "string"},
					"description":          "Free-form string metadata",
				},
			}, "text"),
		},
		{
			Name:        "search_memory",
			Description: searchMemoryDesc,
			InputSchema: object(map[string]interface{}{
				"query":     str("Search query"),
				"project":   projectProp,
				"tags":      stringArray("Restrict results to these tags"),
				"limit":     integer("Maximum results (default 5)"),
				"threshold": map[string]interface{}{"type": "number", "description": "Minimum similarity score (backend default 0.7)"},
				"detailed":  boolean("Return full text instead of previews"),
			}, "query"),
		},
		{
			Name:        "list_memories",
			Description: listMemoriesDesc,
			InputSchema: object(map[string]interface{}{
				"project":   projectProp,
				"tags":      stringArray("Restrict results to these tags"),
				"page":      integer("1-indexed page"),
				"offset":    integer("Legacy offset; converted to a page when 'page' is absent"),
				"limit":     integer("Page size (default 20)"),
				"full_text": boolean("Return full text instead of previews"),
			}),
		},
		{
			Name:        "get_memory",
			Description: getMemoryDesc,
			InputSchema: object(map[string]interface{}{
				"memory_id": memoryIDProp,
			}, "memory_id"),
		},
		{
			Name:        "archive_memory",
			Description: archiveMemoryDesc,
			InputSchema: object(map[string]interface{}{
				"memory_id": memoryIDProp,
			}, "memory_id"),
		},
		{
			Name:        "delete_memory",
			Description: deleteMemoryDesc,
			InputSchema: object(map[string]interface{}{
				"memory_id": memoryIDProp,
			}, "memory_id"),
		},
		{
			Name:        "export_memories",
			Description: exportMemoriesDesc,
			InputSchema: object(map[string]interface{}{
				"format": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"json", "markdown"},
					"description": "Export format (default json)",
				},
				"project": str("Only export this project"),
			}),
		},
		{
			Name:        "summarize_text",
			Description: summarizeTextDesc,
			InputSchema: object(map[string]interface{}{
				"text":          str("Text to summarize"),
				"num_sentences": integer("Sentences to keep (default 3, maximum 10)"),
			}, "text"),
		},
		{
			Name:        "get_memory_stats",
			Description: memoryStatsDesc,
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "set_active_project",
			Description: setActiveProjectDesc,
			InputSchema: object(map[string]interface{}{
				"project": str("Project name to activate for this session"),
			}, "project"),
		},
		{
			Name:        "get_active_project",
			Description: getActiveProjectDesc,
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "list_projects",
			Description: listProjectsDesc,
			InputSchema: object(map[string]interface{}{}),
		},
	}
}
