package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cognio-labs/cognio-mcp/internal/api"
)

// registerResources adds MCP resources backed by the memory store.
func (s *Server) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "cognio://stats",
		Name:        "memory-stats",
		Description: "Aggregate statistics for the memory store",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	server.AddResource(&mcp.Resource{
		URI:         "cognio://projects",
		Name:        "projects",
		Description: "Projects with memory counts, busiest first",
		MIMEType:    "application/json",
	}, s.handleProjectsResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "cognio://memories/{id}",
		Name:        "memory",
		Description: "A single memory with all fields",
		MIMEType:    "application/json",
	}, s.handleMemoryResource)
}

// extractIDFromURI extracts the {id} portion from a resource URI
func extractIDFromURI(uri, prefix string) string {
	id := strings.TrimPrefix(uri, prefix)
	if id == uri || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func (s *Server) handleStatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	stats, err := s.client.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleProjectsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	stats, err := s.client.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}

	data, err := json.MarshalIndent(projectsFromStats(stats), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal projects: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleMemoryResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := extractIDFromURI(req.Params.URI, "cognio://memories/")
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	memory, err := s.client.GetMemory(ctx, id)
	if err != nil {
		var backendErr *api.BackendError
		if errors.As(err, &backendErr) && backendErr.Status == http.StatusNotFound {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("failed to fetch memory: %w", err)
	}

	data, err := json.MarshalIndent(memory, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal memory: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
