package mcp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cognio-labs/cognio-mcp/internal/api"
	"github.com/cognio-labs/cognio-mcp/internal/models"
)

const (
	searchPreviewLimit = 120
	listPreviewLimit   = 100
)

// toolResult is the typed payload a tool handler produces. Each tool has its
// own variant; render turns it into the text block returned to the client.
type toolResult interface {
	render() string
}

// projectScope records which project a call ran under and whether the value
// came from the session instead of an explicit argument.
type projectScope struct {
	project  string
	implicit bool
}

// annotate appends the implicit-project note so callers always see when the
// session supplied the scope.
func (sc projectScope) annotate(s string) string {
	if !sc.implicit {
		return s
	}
	return fmt.Sprintf("%s (using active project %q)", s, sc.project)
}

// truncate shortens s to max runes, appending an ellipsis marker when
// anything was cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// prettyJSON renders v as indented JSON. Falls back to %+v on marshal
// failure so render never produces an empty block.
func prettyJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

type saveResult struct {
	resp  *models.SaveMemoryResponse
	scope projectScope
}

func (r saveResult) render() string {
	headline := "Memory saved successfully"
	if r.resp.Duplicate {
		headline = "Duplicate detected, kept the existing memory"
	}

	var b strings.Builder
	b.WriteString(r.scope.annotate(headline) + ".")
	if r.resp.ID != "" {
		fmt.Fprintf(&b, "\nID: %s", r.resp.ID)
	}
	fmt.Fprintf(&b, "\nProject: %s", r.scope.project)
	return b.String()
}

type searchResult struct {
	results  []models.Memory
	scope    projectScope
	detailed bool
}

func (r searchResult) render() string {
	if len(r.results) == 0 {
		return r.scope.annotate("No memories found matching your query.")
	}

	var b strings.Builder
	b.WriteString(r.scope.annotate(fmt.Sprintf("Found %d memories", len(r.results))) + ":\n")
	for i, m := range r.results {
		text := m.Text
		if !r.detailed {
			text = truncate(text, searchPreviewLimit)
		}
		b.WriteString("\n")
		if m.Score != nil {
			fmt.Fprintf(&b, "%d. [%.3f] %s\n", i+1, *m.Score, text)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, text)
		}
		fmt.Fprintf(&b, "   ID: %s\n", m.ID)
		if m.Project != "" {
			fmt.Fprintf(&b, "   Project: %s\n", m.Project)
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, "   Tags: %s\n", strings.Join(m.Tags, ", "))
		}
		if m.CreatedAt != "" {
			fmt.Fprintf(&b, "   Created: %s\n", m.CreatedAt)
		}
	}
	b.WriteString("\nTip: pass detailed=true for full text, or call get_memory with an ID.")
	return b.String()
}

type listResult struct {
	memories []models.Memory
	total    int
	page     int
	limit    int
	fullText bool
	scope    projectScope
}

func (r listResult) render() string {
	if len(r.memories) == 0 {
		return r.scope.annotate("No memories found.")
	}

	headline := fmt.Sprintf("Memories in project %q", r.scope.project)
	if r.scope.implicit {
		headline = r.scope.annotate("Memories")
	}

	var b strings.Builder
	b.WriteString(headline + ":\n")
	for i, m := range r.memories {
		text := m.Text
		if !r.fullText {
			text = truncate(text, listPreviewLimit)
		}
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, text)
		fmt.Fprintf(&b, "   ID: %s\n", m.ID)
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, "   Tags: %s\n", strings.Join(m.Tags, ", "))
		}
		if m.CreatedAt != "" {
			fmt.Fprintf(&b, "   Created: %s\n", m.CreatedAt)
		}
	}

	totalPages := (r.total + r.limit - 1) / r.limit
	if totalPages < 1 {
		totalPages = 1
	}
	fmt.Fprintf(&b, "\nPage %d of %d (%d memories total)", r.page, totalPages, r.total)
	return b.String()
}

type memoryDetailResult struct {
	memory *models.Memory
}

func (r memoryDetailResult) render() string {
	return prettyJSON(r.memory)
}

type statsResult struct {
	stats *models.StatsResponse
}

func (r statsResult) render() string {
	return prettyJSON(r.stats)
}

type archiveResult struct {
	id string
}

func (r archiveResult) render() string {
	return fmt.Sprintf("Memory %s archived. It will no longer appear in search or list results.", r.id)
}

type deleteResult struct {
	id string
}

func (r deleteResult) render() string {
	return fmt.Sprintf("Memory %s deleted permanently.", r.id)
}

type exportResult struct {
	format  string
	payload []byte
}

func (r exportResult) render() string {
	return DecodeExport(r.format, r.payload)
}

// DecodeExport normalizes a raw export body: markdown may arrive either as a
// JSON-encoded string or as plain text, and JSON exports are pretty-printed.
func DecodeExport(format string, payload []byte) string {
	if format == "markdown" {
		var s string
		if err := json.Unmarshal(payload, &s); err == nil {
			return s
		}
		return string(payload)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return string(payload)
	}
	return buf.String()
}

type summarizeResult struct {
	summary   string
	sentences int
	clamped   bool
}

func (r summarizeResult) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary (%d sentences):\n%s", r.sentences, r.summary)
	if r.clamped {
		fmt.Fprintf(&b, "\n\nNote: num_sentences was capped at the maximum of %d.", maxSummarySentences)
	}
	return b.String()
}

type setProjectResult struct {
	project  string
	previous string
}

func (r setProjectResult) render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active project set to %q.", r.project)
	if r.previous != "" && r.previous != r.project {
		fmt.Fprintf(&b, " Replaces %q.", r.previous)
	}
	b.WriteString("\nsave_memory, search_memory, and list_memories now default to this project.")
	return b.String()
}

type activeProjectResult struct {
	project string
}

func (r activeProjectResult) render() string {
	if r.project == "" {
		return "No active project set. Call set_active_project to choose one."
	}
	return fmt.Sprintf("Active project: %q", r.project)
}

type projectsResult struct {
	projects []models.ProjectCount
}

func (r projectsResult) render() string {
	if len(r.projects) == 0 {
		return "No projects found. Save a memory with a project to create one."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Projects (%d):\n\n", len(r.projects))
	for i, p := range r.projects {
		fmt.Fprintf(&b, "%d. %s (%d memories)\n", i+1, p.Name, p.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// errorText turns a handler failure into the readable message returned to
// the client. Backend bodies are surfaced verbatim, never rewritten.
func errorText(err error) string {
	var backendErr *api.BackendError
	if errors.As(err, &backendErr) {
		return fmt.Sprintf("Backend error (HTTP %d): %s", backendErr.Status, backendErr.Body)
	}
	var timeoutErr *api.TimeoutError
	if errors.As(err, &timeoutErr) {
		return fmt.Sprintf("Backend request timed out after %s. Raise timeout_seconds in the configuration if the backend needs longer.", timeoutErr.Timeout)
	}
	var transportErr *api.TransportError
	if errors.As(err, &transportErr) {
		return fmt.Sprintf("Cannot reach the memory backend: %v. Check that it is running and api_url points at it.", transportErr.Err)
	}
	return err.Error()
}
