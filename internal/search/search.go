// Package search provides the scholarship search adapter and its
// providers. The adapter is the only collaborator expected to block on
// the network besides the composer, so every call takes a context and
// providers accept an injectable HTTP client for timeout control.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/profile"
)

// Result is one scholarship search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Adapter issues a web search and returns structured results.
type Adapter interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// ErrUnavailable wraps provider failures so callers can treat them as
// retryable rather than fatal.
var ErrUnavailable = errors.New("search provider unavailable")

// New builds the adapter selected by cfg.Provider.
func New(cfg config.SearchConfig) (Adapter, error) {
	switch cfg.Provider {
	case "tavily", "":
		return NewTavily(cfg.APIKey, cfg.Depth, cfg.MaxResults,
			&http.Client{Timeout: cfg.Timeout()}), nil
	case "mcp":
		return NewMCP(cfg.MCP)
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}

// Queries builds the search queries for a completed profile: one focused
// on citizenship eligibility, one on location, one on application tips.
func Queries(p profile.Profile) []string {
	citizenship := fmt.Sprintf(
		"scholarships grants funding for %s citizens %s %s international students",
		p.Citizenship, p.FieldOfStudy, p.EducationLevel)
	location := fmt.Sprintf(
		"scholarships %s university %s %s %s international students",
		p.Location, p.FieldOfStudy, p.EducationLevel, p.Citizenship)
	tips := fmt.Sprintf(
		"scholarship application tips %s personal statement %s",
		p.FieldOfStudy, p.Citizenship)
	return []string{citizenship, location, tips}
}
