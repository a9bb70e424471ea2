// Package serper implements the web-search discovery connector.
//
// Serper results are unstructured snippets; downstream extraction for this
// source is delegated to the LLM extraction subsystem.
package serper

import (
	"context"
	"fmt"
	"os"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector/httpx"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultBaseURL is the Serper search endpoint.
const DefaultBaseURL = "https://google.serper.dev"

// DefaultFetchSize caps organic results per query.
const DefaultFetchSize = 20

// Config holds Serper connector configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	FetchSize int
	Transport *httpx.ClientConfig // optional override for tests
}

// Serper is the web search connector.
type Serper struct {
	cfg    *Config
	client *httpx.Client
}

// New creates a Serper connector.
func New(cfg *Config) (*Serper, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.FetchSize <= 0 {
		cfg.FetchSize = DefaultFetchSize
	}

	clientCfg := cfg.Transport
	if clientCfg == nil {
		clientCfg = httpx.DefaultClientConfig()
	}
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.Headers == nil {
		clientCfg.Headers = make(map[string]string)
	}
	clientCfg.Headers["X-API-KEY"] = cfg.APIKey

	return &Serper{cfg: cfg, client: httpx.NewClient(clientCfg)}, nil
}

// SourceName returns the connector name.
func (s *Serper) SourceName() string { return "serper" }

// searchResponse is the wire shape of a Serper search.
type searchResponse struct {
	Organic []organicResult `json:"organic"`
}

type organicResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Fetch runs one search query and returns the organic results as raw items.
func (s *Serper) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	if s.cfg.APIKey == "" {
		return nil, fmt.Errorf("serper: SERPER_API_KEY is not set")
	}

	resp, err := s.client.Post(ctx, "/search", map[string]any{
		"q":   query,
		"num": s.cfg.FetchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("serper search: %w", err)
	}

	var parsed searchResponse
	if err := resp.JSON(&parsed); err != nil {
		return nil, fmt.Errorf("serper decode: %w", err)
	}

	out := &core.FetchResult{}
	for _, r := range parsed.Organic {
		out.Results = append(out.Results, core.RawItem{
			"title":    r.Title,
			"link":     r.Link,
			"snippet":  r.Snippet,
			"position": r.Position,
		})
	}
	return out, nil
}
