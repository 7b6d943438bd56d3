package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/cognio-labs/cognio-mcp/internal/api"
	"github.com/cognio-labs/cognio-mcp/internal/models"
)

// newTestServer builds a Server against an httptest backend and returns the
// backend hit counter alongside it.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(backend.Close)

	client := &api.Client{
		BaseURL:    backend.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     zerolog.Nop(),
	}
	return New(client, zerolog.Nop()), &hits
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestScopedToolsRequireProject(t *testing.T) {
	tests := []struct {
		name string
		call func(t *testing.T, s *Server) *mcp.CallToolResult
	}{
		{
			"save_memory",
			func(t *testing.T, s *Server) *mcp.CallToolResult {
				res, _, err := s.handleSaveMemory(context.Background(), nil, SaveMemoryInput{Text: "note"})
				if err != nil {
					t.Fatalf("handler error = %v", err)
				}
				return res
			},
		},
		{
			"search_memory",
			func(t *testing.T, s *Server) *mcp.CallToolResult {
				res, _, err := s.handleSearchMemory(context.Background(), nil, SearchMemoryInput{Query: "note"})
				if err != nil {
					t.Fatalf("handler error = %v", err)
				}
				return res
			},
		},
		{
			"list_memories",
			func(t *testing.T, s *Server) *mcp.CallToolResult {
				res, _, err := s.handleListMemories(context.Background(), nil, ListMemoriesInput{})
				if err != nil {
					t.Fatalf("handler error = %v", err)
				}
				return res
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("backend received %s %s without a resolved project", r.Method, r.URL.Path)
			})

			res := tt.call(t, s)
			if !res.IsError {
				t.Error("IsError = false, want true without a project")
			}
			text := resultText(t, res)
			if !strings.Contains(text, "set_active_project") {
				t.Errorf("error text missing guidance, got %q", text)
			}
			if hits.Load() != 0 {
				t.Errorf("backend hits = %d, want 0", hits.Load())
			}
		})
	}
}

func TestSaveUsesActiveProject(t *testing.T) {
	var gotBody models.SaveMemoryRequest
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding save body: %v", err)
		}
		json.NewEncoder(w).Encode(models.SaveMemoryResponse{Saved: true, Reason: "created", ID: "m1"})
	})

	setRes, _, err := s.handleSetActiveProject(context.Background(), nil, SetActiveProjectInput{Project: "P"})
	if err != nil {
		t.Fatalf("set_active_project error = %v", err)
	}
	if setRes.IsError {
		t.Fatalf("set_active_project failed: %s", resultText(t, setRes))
	}

	res, _, err := s.handleSaveMemory(context.Background(), nil, SaveMemoryInput{Text: "note"})
	if err != nil {
		t.Fatalf("save_memory error = %v", err)
	}
	if res.IsError {
		t.Fatalf("save_memory failed: %s", resultText(t, res))
	}

	if gotBody.Project != "P" {
		t.Errorf("wire project = %q, want P", gotBody.Project)
	}
	text := resultText(t, res)
	if !strings.Contains(text, `(using active project "P")`) {
		t.Errorf("result text missing implicit-project annotation, got %q", text)
	}
}

func TestSaveExplicitProjectWins(t *testing.T) {
	var gotBody models.SaveMemoryRequest
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(models.SaveMemoryResponse{Saved: true, Reason: "created", ID: "m1"})
	})

	s.handleSetActiveProject(context.Background(), nil, SetActiveProjectInput{Project: "P"})
	res, _, _ := s.handleSaveMemory(context.Background(), nil, SaveMemoryInput{Text: "note", Project: "Q"})

	if gotBody.Project != "Q" {
		t.Errorf("wire project = %q, want explicit Q", gotBody.Project)
	}
	if text := resultText(t, res); strings.Contains(text, "using active project") {
		t.Errorf("explicit project should not be annotated, got %q", text)
	}
}

func TestSaveOmitsEmptyTagsAndMetadata(t *testing.T) {
	var rawBody string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rawBody = string(data)
		json.NewEncoder(w).Encode(models.SaveMemoryResponse{Saved: true, Reason: "created", ID: "m1"})
	})

	res, _, err := s.handleSaveMemory(context.Background(), nil, SaveMemoryInput{Text: "note", Project: "P"})
	if err != nil || res.IsError {
		t.Fatalf("save failed: err=%v res=%v", err, res)
	}

	if strings.Contains(rawBody, `"tags"`) {
		t.Errorf("wire body contains tags placeholder: %s", rawBody)
	}
	if strings.Contains(rawBody, `"metadata"`) {
		t.Errorf("wire body contains metadata placeholder: %s", rawBody)
	}
}

func TestSaveRequiresText(t *testing.T) {
	s, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	res, _, err := s.handleSaveMemory(context.Background(), nil, SaveMemoryInput{Text: "   ", Project: "P"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Error("IsError = false for blank text")
	}
	if hits.Load() != 0 {
		t.Errorf("backend hits = %d, want 0", hits.Load())
	}
}

func TestSearchDefaultsAndWire(t *testing.T) {
	var gotQuery map[string][]string
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(models.SearchResponse{})
	})

	res, _, err := s.handleSearchMemory(context.Background(), nil, SearchMemoryInput{Query: "docker", Project: "infra"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Fatalf("search failed: %s", resultText(t, res))
	}

	if got := gotQuery["limit"]; len(got) != 1 || got[0] != "5" {
		t.Errorf("wire limit = %v, want default 5", got)
	}
	if got := gotQuery["project"]; len(got) != 1 || got[0] != "infra" {
		t.Errorf("wire project = %v, want infra", got)
	}
	if text := resultText(t, res); text != "No memories found matching your query." {
		t.Errorf("empty search text = %q", text)
	}
}

func TestListOffsetDerivesPage(t *testing.T) {
	tests := []struct {
		name     string
		input    ListMemoriesInput
		wantPage string
	}{
		{"offset and limit", ListMemoriesInput{Project: "P", Offset: 40, Limit: 20}, "3"},
		{"offset with default limit", ListMemoriesInput{Project: "P", Offset: 40}, "3"},
		{"explicit page wins", ListMemoriesInput{Project: "P", Page: 2, Offset: 40, Limit: 20}, "2"},
		{"no paging args", ListMemoriesInput{Project: "P"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQuery map[string][]string
			s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query()
				json.NewEncoder(w).Encode(models.ListResponse{
					Memories:   []models.Memory{{ID: "m1", Text: "note"}},
					TotalItems: 60,
				})
			})

			res, _, err := s.handleListMemories(context.Background(), nil, tt.input)
			if err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if res.IsError {
				t.Fatalf("list failed: %s", resultText(t, res))
			}
			if got := gotQuery["page"]; len(got) != 1 || got[0] != tt.wantPage {
				t.Errorf("wire page = %v, want %s", got, tt.wantPage)
			}
		})
	}
}

func TestListProjectsDerivation(t *testing.T) {
	t.Run("ordered by count", func(t *testing.T) {
		s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/memory/stats" {
				t.Errorf("path = %s, want /memory/stats", r.URL.Path)
			}
			json.NewEncoder(w).Encode(models.StatsResponse{
				TotalMemories:     7,
				MemoriesByProject: map[string]int{"B": 2, "A": 5},
			})
		})

		res, _, err := s.handleListProjects(context.Background(), nil, EmptyInput{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		text := resultText(t, res)
		posA := strings.Index(text, "1. A (5 memories)")
		posB := strings.Index(text, "2. B (2 memories)")
		if posA == -1 || posB == -1 || posA > posB {
			t.Errorf("projects out of order:\n%s", text)
		}
	})

	t.Run("empty breakdown", func(t *testing.T) {
		s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(models.StatsResponse{})
		})

		res, _, err := s.handleListProjects(context.Background(), nil, EmptyInput{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if res.IsError {
			t.Fatal("empty breakdown must not be an error")
		}
		if text := resultText(t, res); !strings.Contains(text, "No projects found") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("tie broken by name", func(t *testing.T) {
		got := projectsFromStats(&models.StatsResponse{
			MemoriesByProject: map[string]int{"zeta": 3, "alpha": 3, "mid": 7},
		})
		want := []models.ProjectCount{{Name: "mid", Count: 7}, {Name: "alpha", Count: 3}, {Name: "zeta", Count: 3}}
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("projects[%d] = %+v, want %+v", i, got[i], want[i])
			}
		}
	})
}

func TestGetArchiveDeleteWire(t *testing.T) {
	var gotMethod, gotPath string
	handler := func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(models.Memory{ID: "m1", Text: "note", Project: "infra"})
		case strings.HasSuffix(r.URL.Path, "/archive"):
			json.NewEncoder(w).Encode(models.ArchiveResponse{Archived: true})
		default:
			json.NewEncoder(w).Encode(models.DeleteResponse{Deleted: true})
		}
	}

	t.Run("get_memory", func(t *testing.T) {
		s, _ := newTestServer(t, handler)
		res, _, err := s.handleGetMemory(context.Background(), nil, MemoryIDInput{MemoryID: "m1"})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if gotMethod != http.MethodGet || gotPath != "/memory/m1" {
			t.Errorf("wire = %s %s, want GET /memory/m1", gotMethod, gotPath)
		}
		text := resultText(t, res)
		if !strings.Contains(text, `"id": "m1"`) || !strings.Contains(text, `"project": "infra"`) {
			t.Errorf("detail text missing fields:\n%s", text)
		}
	})

	t.Run("archive_memory", func(t *testing.T) {
		s, _ := newTestServer(t, handler)
		res, _, err := s.handleArchiveMemory(context.Background(), nil, MemoryIDInput{MemoryID: "m1"})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if gotMethod != http.MethodPost || gotPath != "/memory/m1/archive" {
			t.Errorf("wire = %s %s, want POST /memory/m1/archive", gotMethod, gotPath)
		}
		if text := resultText(t, res); !strings.Contains(text, "archived") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("delete_memory", func(t *testing.T) {
		s, _ := newTestServer(t, handler)
		res, _, err := s.handleDeleteMemory(context.Background(), nil, MemoryIDInput{MemoryID: "m1"})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if gotMethod != http.MethodDelete || gotPath != "/memory/m1" {
			t.Errorf("wire = %s %s, want DELETE /memory/m1", gotMethod, gotPath)
		}
		if text := resultText(t, res); !strings.Contains(text, "deleted permanently") {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		s, hits := newTestServer(t, handler)
		res, _, err := s.handleGetMemory(context.Background(), nil, MemoryIDInput{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if !res.IsError {
			t.Error("IsError = false for missing memory_id")
		}
		if hits.Load() != 0 {
			t.Errorf("backend hits = %d, want 0", hits.Load())
		}
	})
}

func TestBackendErrorSurfaced(t *testing.T) {
	s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Memory not found"}`))
	})

	res, _, err := s.handleGetMemory(context.Background(), nil, MemoryIDInput{MemoryID: "missing"})
	if err != nil {
		t.Fatalf("handler error = %v, errors must stop at the tool boundary", err)
	}
	if !res.IsError {
		t.Fatal("IsError = false for backend 404")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "HTTP 404") || !strings.Contains(text, `{"detail":"Memory not found"}`) {
		t.Errorf("error text = %q, want status and verbatim body", text)
	}
}

func TestExportMemories(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var gotQuery map[string][]string
		s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			w.Write([]byte(`{"memories":[{"id":"m1","text":"note","project":"infra","tags":["go"]}]}`))
		})

		res, _, err := s.handleExportMemories(context.Background(), nil, ExportMemoriesInput{})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if got := gotQuery["format"]; len(got) != 1 || got[0] != "json" {
			t.Errorf("wire format = %v, want default json", got)
		}

		text := resultText(t, res)
		var decoded struct {
			Memories []models.Memory `json:"memories"`
		}
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			t.Fatalf("export text is not JSON: %v", err)
		}
		m := decoded.Memories[0]
		if m.ID != "m1" || m.Text != "note" || m.Project != "infra" || len(m.Tags) != 1 {
			t.Errorf("export fields not preserved: %+v", m)
		}
	})

	t.Run("markdown", func(t *testing.T) {
		s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode("# Memory Export\n\n## m1\n")
		})

		res, _, err := s.handleExportMemories(context.Background(), nil, ExportMemoriesInput{Format: "markdown"})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if text := resultText(t, res); !strings.HasPrefix(text, "# Memory Export") {
			t.Errorf("markdown text = %q", text)
		}
	})

	t.Run("bad format", func(t *testing.T) {
		s, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		res, _, err := s.handleExportMemories(context.Background(), nil, ExportMemoriesInput{Format: "xml"})
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
		if !res.IsError {
			t.Error("IsError = false for unsupported format")
		}
		if hits.Load() != 0 {
			t.Errorf("backend hits = %d, want 0", hits.Load())
		}
	})
}

func TestSummarizeClamp(t *testing.T) {
	tests := []struct {
		name          string
		requested     int
		wantSentences int
		wantNote      bool
	}{
		{"above maximum", 50, maxSummarySentences, true},
		{"at maximum", 10, 10, false},
		{"default", 0, defaultSummarySentences, false},
		{"negative treated as default", -2, defaultSummarySentences, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotBody models.SummarizeRequest
			s, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&gotBody)
				json.NewEncoder(w).Encode(models.SummarizeResponse{Summary: "short."})
			})

			res, _, err := s.handleSummarizeText(context.Background(), nil, SummarizeTextInput{
				Text:         "one. two. three.",
				NumSentences: tt.requested,
			})
			if err != nil {
				t.Fatalf("handler error = %v", err)
			}
			if res.IsError {
				t.Fatalf("summarize failed: %s", resultText(t, res))
			}

			if gotBody.NumSentences != tt.wantSentences {
				t.Errorf("wire num_sentences = %d, want %d", gotBody.NumSentences, tt.wantSentences)
			}
			hasNote := strings.Contains(resultText(t, res), "capped at the maximum")
			if hasNote != tt.wantNote {
				t.Errorf("clamp note present = %v, want %v", hasNote, tt.wantNote)
			}
		})
	}
}

func TestActiveProjectLifecycle(t *testing.T) {
	s, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	res, _, err := s.handleGetActiveProject(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, "No active project set") {
		t.Errorf("unset text = %q", text)
	}

	setRes, _, err := s.handleSetActiveProject(context.Background(), nil, SetActiveProjectInput{Project: "infra"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if text := resultText(t, setRes); !strings.Contains(text, `Active project set to "infra"`) {
		t.Errorf("set text = %q", text)
	}

	res, _, err = s.handleGetActiveProject(context.Background(), nil, EmptyInput{})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if text := resultText(t, res); !strings.Contains(text, `Active project: "infra"`) {
		t.Errorf("get text = %q", text)
	}

	blank, _, err := s.handleSetActiveProject(context.Background(), nil, SetActiveProjectInput{Project: "  "})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !blank.IsError {
		t.Error("IsError = false for blank project")
	}

	// Session tools never touch the backend.
	if hits.Load() != 0 {
		t.Errorf("backend hits = %d, want 0", hits.Load())
	}
}

func TestSessionsIsolatedPerConnection(t *testing.T) {
	s, hits := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.SaveMemoryResponse{Saved: true, Reason: "created", ID: "m1"})
	})

	connA := &mcp.CallToolRequest{Session: new(mcp.ServerSession)}
	connB := &mcp.CallToolRequest{Session: new(mcp.ServerSession)}

	if _, _, err := s.handleSetActiveProject(context.Background(), connA, SetActiveProjectInput{Project: "P"}); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	res, _, err := s.handleSaveMemory(context.Background(), connB, SaveMemoryInput{Text: "note"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Error("connection B inherited connection A's active project")
	}
	if hits.Load() != 0 {
		t.Errorf("backend hits = %d, want 0", hits.Load())
	}

	res, _, err = s.handleSaveMemory(context.Background(), connA, SaveMemoryInput{Text: "note"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Errorf("connection A save failed: %s", resultText(t, res))
	}
}

func TestToolDefinitionsCatalogue(t *testing.T) {
	defs := ToolDefinitions()

	wantOrder := []string{
		"save_memory", "search_memory", "list_memories", "get_memory",
		"archive_memory", "delete_memory", "export_memories", "summarize_text",
		"get_memory_stats", "set_active_project", "get_active_project", "list_projects",
	}
	if len(defs) != len(wantOrder) {
		t.Fatalf("len(defs) = %d, want %d", len(defs), len(wantOrder))
	}
	for i, want := range wantOrder {
		if defs[i].Name != want {
			t.Errorf("defs[%d] = %s, want %s", i, defs[i].Name, want)
		}
		if defs[i].Description == "" {
			t.Errorf("defs[%d] %s has no description", i, defs[i].Name)
		}
		if defs[i].InputSchema["type"] != "object" {
			t.Errorf("defs[%d] %s schema type = %v", i, defs[i].Name, defs[i].InputSchema["type"])
		}
	}
}
