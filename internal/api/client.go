package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cognio-labs/cognio-mcp/internal/config"
	"github.com/cognio-labs/cognio-mcp/internal/models"
)

// Client talks to the Cognio memory backend over HTTP. All methods take a
// context and return one of the typed errors from errors.go on failure.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	APIKey     string
	Logger     zerolog.Logger
}

// NewClient builds a client from resolved configuration. The logger defaults
// to a no-op; callers that want request logs assign Logger themselves.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL: strings.TrimRight(cfg.APIURL, "/"),
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		APIKey: cfg.APIKey,
		Logger: zerolog.Nop(),
	}
}

// makeRequest performs an HTTP request and returns the raw response body.
// Content-Type is only set when a body is present, and the Authorization
// header is only set when an API key is configured.
func (c *Client) makeRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.Logger.Warn().
				Str("request_id", requestID).
				Str("method", method).
				Str("endpoint", endpoint).
				Dur("elapsed", time.Since(start)).
				Msg("backend request timed out")
			return nil, &TimeoutError{Timeout: c.HTTPClient.Timeout}
		}
		c.Logger.Warn().
			Str("request_id", requestID).
			Str("method", method).
			Str("endpoint", endpoint).
			Err(err).
			Msg("backend unreachable")
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.Logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &BackendError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// isTimeout distinguishes deadline expiry from other transport failures.
func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// SearchParams are the query parameters for SearchMemories. Zero values are
// omitted from the request so the backend applies its own defaults.
type SearchParams struct {
	Query     string
	Project   string
	Tags      []string
	Limit     int
	Threshold *float64
}

// ListParams are the query parameters for ListMemories.
type ListParams struct {
	Project string
	Tags    []string
	Page    int
	Limit   int
}

// SaveMemory stores a new memory, returning the backend's save outcome
// including duplicate detection.
func (c *Client) SaveMemory(ctx context.Context, req *models.SaveMemoryRequest) (*models.SaveMemoryResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/memory/save", req)
	if err != nil {
		return nil, err
	}
	var result models.SaveMemoryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save response: %w", err)
	}
	return &result, nil
}

// SearchMemories runs a semantic search against the backend.
func (c *Client) SearchMemories(ctx context.Context, p SearchParams) (*models.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", p.Query)
	if p.Project != "" {
		params.Set("project", p.Project)
	}
	if len(p.Tags) > 0 {
		params.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Threshold != nil {
		params.Set("threshold", strconv.FormatFloat(*p.Threshold, 'f', -1, 64))
	}

	body, err := c.makeRequest(ctx, http.MethodGet, "/memory/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var result models.SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal search response: %w", err)
	}
	return &result, nil
}

// ListMemories returns a page of memories, newest first.
func (c *Client) ListMemories(ctx context.Context, p ListParams) (*models.ListResponse, error) {
	params := url.Values{}
	if p.Project != "" {
		params.Set("project", p.Project)
	}
	if len(p.Tags) > 0 {
		params.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.Page > 0 {
		params.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}

	endpoint := "/memory/list"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	body, err := c.makeRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var result models.ListResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list response: %w", err)
	}
	return &result, nil
}

// GetMemory fetches a single memory by ID.
func (c *Client) GetMemory(ctx context.Context, id string) (*models.Memory, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/memory/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var result models.Memory
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return &result, nil
}

// DeleteMemory permanently removes a memory.
func (c *Client) DeleteMemory(ctx context.Context, id string) (*models.DeleteResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodDelete, "/memory/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var result models.DeleteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal delete response: %w", err)
	}
	return &result, nil
}

// ArchiveMemory soft-deletes a memory so it stops appearing in search and
// list results but can still be recovered server-side.
func (c *Client) ArchiveMemory(ctx context.Context, id string) (*models.ArchiveResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/memory/"+url.PathEscape(id)+"/archive", nil)
	if err != nil {
		return nil, err
	}
	var result models.ArchiveResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archive response: %w", err)
	}
	return &result, nil
}

// GetStats returns aggregate statistics about the memory store.
func (c *Client) GetStats(ctx context.Context) (*models.StatsResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/memory/stats", nil)
	if err != nil {
		return nil, err
	}
	var result models.StatsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats: %w", err)
	}
	return &result, nil
}

// ExportMemories returns the export payload exactly as the backend produced
// it. The format is "json" or "markdown"; project narrows the export.
func (c *Client) ExportMemories(ctx context.Context, format, project string) ([]byte, error) {
	params := url.Values{}
	params.Set("format", format)
	if project != "" {
		params.Set("project", project)
	}
	return c.makeRequest(ctx, http.MethodGet, "/memory/export?"+params.Encode(), nil)
}

// Summarize asks the backend for an extractive summary of the given text.
func (c *Client) Summarize(ctx context.Context, req *models.SummarizeRequest) (*models.SummarizeResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodPost, "/memory/summarize", req)
	if err != nil {
		return nil, err
	}
	var result models.SummarizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &result, nil
}

// Health checks backend liveness.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var result models.HealthResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal health response: %w", err)
	}
	return &result, nil
}

// ServiceInfo returns the backend's root identity document.
func (c *Client) ServiceInfo(ctx context.Context) (*models.ServiceInfo, error) {
	body, err := c.makeRequest(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return nil, err
	}
	var result models.ServiceInfo
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal service info: %w", err)
	}
	return &result, nil
}
