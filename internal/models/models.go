package models

// Memory represents a memory record as returned by the Cognio backend.
// The adapter never mutates these fields; it forwards caller-supplied values
// and displays backend-returned ones.
type Memory struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Summary   string            `json:"summary,omitempty"`
	Score     *float64          `json:"score,omitempty"`
	Project   string            `json:"project,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt string            `json:"created_at,omitempty"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// SaveMemoryRequest is the body for POST /memory/save.
// Tags and Metadata are omitted from the wire entirely when not supplied.
type SaveMemoryRequest struct {
	Text     string            `json:"text"`
	Project  string            `json:"project,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SaveMemoryResponse reports whether the backend created a new record or
// detected a duplicate (reason is "created" or "duplicate").
type SaveMemoryResponse struct {
	Saved     bool   `json:"saved"`
	Duplicate bool   `json:"duplicate"`
	Reason    string `json:"reason"`
	ID        string `json:"id"`
}

// SearchResponse is the body of GET /memory/search.
type SearchResponse struct {
	Results []Memory `json:"results"`
}

// ListResponse is the body of GET /memory/list.
type ListResponse struct {
	Memories   []Memory `json:"memories"`
	TotalItems int      `json:"total_items"`
}

// StatsResponse is the aggregate returned by GET /memory/stats. ByProject
// mirrors MemoriesByProject and TopTags mirrors TagsDistribution; the backend
// keeps both key sets for compatibility.
type StatsResponse struct {
	TotalMemories     int            `json:"total_memories"`
	TotalProjects     int            `json:"total_projects"`
	TotalTags         int            `json:"total_tags"`
	StorageMB         float64        `json:"storage_mb"`
	AvgTextLength     float64        `json:"avg_text_length"`
	MemoriesByProject map[string]int `json:"memories_by_project"`
	TagsDistribution  map[string]int `json:"tags_distribution"`
	ByProject         map[string]int `json:"by_project"`
	TopTags           map[string]int `json:"top_tags"`
}

// ProjectCount is one entry of the derived project list, ordered by count.
type ProjectCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DeleteResponse is the body of DELETE /memory/{id}.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// ArchiveResponse is the body of POST /memory/{id}/archive.
type ArchiveResponse struct {
	Archived bool `json:"archived"`
}

// SummarizeRequest is the body for POST /memory/summarize.
type SummarizeRequest struct {
	Text         string `json:"text"`
	NumSentences int    `json:"num_sentences,omitempty"`
}

// SummarizeResponse carries the extractive summary.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ServiceInfo is the body of GET / on the backend.
type ServiceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}
