// Package osm implements the open-map-data discovery connector backed by the
// Overpass API. It is the free breadth source added for category searches.
package osm

import (
	"context"
	"fmt"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector/httpx"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultBaseURL is the public Overpass interpreter.
const DefaultBaseURL = "https://overpass-api.de"

// DefaultAreaName bounds queries when the query itself has no location.
const DefaultAreaName = "Edinburgh"

// Config holds Overpass connector configuration.
type Config struct {
	BaseURL   string
	AreaName  string
	Limit     int
	Transport *httpx.ClientConfig
}

// Overpass is the open map data connector.
type Overpass struct {
	cfg    *Config
	client *httpx.Client
}

// New creates an Overpass connector.
func New(cfg *Config) (*Overpass, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.AreaName == "" {
		cfg.AreaName = DefaultAreaName
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}

	clientCfg := cfg.Transport
	if clientCfg == nil {
		clientCfg = httpx.DefaultClientConfig()
		// The public interpreter throttles aggressively.
		clientCfg.RateLimit = 1.0
		clientCfg.RateBurst = 1
	}
	clientCfg.BaseURL = cfg.BaseURL

	return &Overpass{cfg: cfg, client: httpx.NewClient(clientCfg)}, nil
}

// SourceName returns the connector name.
func (o *Overpass) SourceName() string { return "osm_overpass" }

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Fetch runs an Overpass QL name search scoped to the configured area.
func (o *Overpass) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	ql := fmt.Sprintf(`[out:json][timeout:25];
area[name=%q]->.a;
node(area.a)[name~%q,i];
out body %d;`, o.cfg.AreaName, regexEscape(query), o.cfg.Limit)

	resp, err := o.client.Post(ctx, "/api/interpreter", map[string]any{"data": ql})
	if err != nil {
		return nil, fmt.Errorf("overpass query: %w", err)
	}

	var parsed overpassResponse
	if err := resp.JSON(&parsed); err != nil {
		return nil, fmt.Errorf("overpass decode: %w", err)
	}

	out := &core.FetchResult{}
	for _, el := range parsed.Elements {
		tags := make(map[string]any, len(el.Tags))
		for k, v := range el.Tags {
			tags[k] = v
		}
		out.Results = append(out.Results, core.RawItem{
			"type": el.Type,
			"id":   el.ID,
			"lat":  el.Lat,
			"lon":  el.Lon,
			"tags": tags,
		})
	}
	return out, nil
}

// regexEscape escapes regex metacharacters for Overpass QL name filters.
func regexEscape(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`,
		`(`, `\(`, `)`, `\)`, `[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`,
		`^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}
