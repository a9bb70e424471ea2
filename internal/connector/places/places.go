// Package places implements the Google Places enrichment connector, the
// highest-trust source of strong ids and coordinates.
package places

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector/httpx"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultBaseURL is the Places API host.
const DefaultBaseURL = "https://maps.googleapis.com"

// Config holds Places connector configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	Region    string
	Transport *httpx.ClientConfig
}

// Places is the Google Places connector.
type Places struct {
	cfg    *Config
	client *httpx.Client
}

// New creates a Places connector.
func New(cfg *Config) (*Places, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GOOGLE_PLACES_API_KEY")
	}
	if cfg.Region == "" {
		cfg.Region = "uk"
	}

	clientCfg := cfg.Transport
	if clientCfg == nil {
		clientCfg = httpx.DefaultClientConfig()
	}
	clientCfg.BaseURL = cfg.BaseURL

	return &Places{cfg: cfg, client: httpx.NewClient(clientCfg)}, nil
}

// SourceName returns the connector name.
func (p *Places) SourceName() string { return "google_places" }

type textSearchResponse struct {
	Status  string        `json:"status"`
	Results []placeResult `json:"results"`
}

type placeResult struct {
	Name             string   `json:"name"`
	PlaceID          string   `json:"place_id"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Fetch runs a text search against the Places API.
func (p *Places) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	if p.cfg.APIKey == "" {
		return nil, fmt.Errorf("google_places: GOOGLE_PLACES_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("region", p.cfg.Region)
	params.Set("key", p.cfg.APIKey)

	resp, err := p.client.Get(ctx, "/maps/api/place/textsearch/json", params)
	if err != nil {
		return nil, fmt.Errorf("places search: %w", err)
	}

	var parsed textSearchResponse
	if err := resp.JSON(&parsed); err != nil {
		return nil, fmt.Errorf("places decode: %w", err)
	}
	if parsed.Status != "OK" && parsed.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places status %s", parsed.Status)
	}

	out := &core.FetchResult{}
	for _, r := range parsed.Results {
		types := make([]any, 0, len(r.Types))
		for _, t := range r.Types {
			types = append(types, t)
		}
		out.Results = append(out.Results, core.RawItem{
			"name":              r.Name,
			"place_id":          r.PlaceID,
			"formatted_address": r.FormattedAddress,
			"types":             types,
			"lat":               r.Geometry.Location.Lat,
			"lng":               r.Geometry.Location.Lng,
		})
	}
	return out, nil
}
