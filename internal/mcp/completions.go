package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// completionHandler provides autocomplete suggestions for prompt and
// resource arguments.
func (s *Server) completionHandler(ctx context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	argName := req.Params.Argument.Name
	argValue := strings.ToLower(req.Params.Argument.Value)

	var values []string
	switch argName {
	case "project":
		values = s.completeProjectNames(ctx, argValue)
	case "format":
		values = completeStaticValues(argValue, []string{"json", "markdown"})
	default:
		values = []string{}
	}

	return &mcp.CompleteResult{
		Completion: mcp.CompletionResultDetails{
			Values:  values,
			Total:   len(values),
			HasMore: false,
		},
	}, nil
}

// completeProjectNames fetches known project names from the stats aggregate
// and filters by prefix. Backend failures yield no suggestions.
func (s *Server) completeProjectNames(ctx context.Context, prefix string) []string {
	stats, err := s.client.GetStats(ctx)
	if err != nil {
		return []string{}
	}

	var matches []string
	for _, p := range projectsFromStats(stats) {
		if prefix == "" || strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			matches = append(matches, p.Name)
		}
		if len(matches) >= 20 {
			break
		}
	}
	return matches
}

// completeStaticValues filters a static list of values by prefix
func completeStaticValues(prefix string, options []string) []string {
	if prefix == "" {
		return options
	}

	var matches []string
	for _, opt := range options {
		if strings.HasPrefix(strings.ToLower(opt), prefix) {
			matches = append(matches, opt)
		}
	}
	return matches
}
