// Package govgeo implements the government GeoJSON feed connector.
//
// The upstream is a WFS endpoint that serves a fixed layer; the user query is
// never forwarded. Query translation swaps the query for the layer name.
package govgeo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector/httpx"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultLayer is the sports-facility layer of the national feed.
const DefaultLayer = "sportscotland:facilities"

// Config holds the WFS connector configuration.
type Config struct {
	BaseURL     string
	Layer       string
	MaxFeatures int
	Transport   *httpx.ClientConfig
}

// GovGeo is the government GeoJSON feed connector.
type GovGeo struct {
	cfg    *Config
	client *httpx.Client
}

// New creates a GovGeo connector.
func New(cfg *Config) (*GovGeo, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gov_geojson: baseUrl is required")
	}
	if cfg.Layer == "" {
		cfg.Layer = DefaultLayer
	}
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 500
	}

	clientCfg := cfg.Transport
	if clientCfg == nil {
		clientCfg = httpx.DefaultClientConfig()
	}
	clientCfg.BaseURL = cfg.BaseURL

	return &GovGeo{cfg: cfg, client: httpx.NewClient(clientCfg)}, nil
}

// SourceName returns the connector name.
func (g *GovGeo) SourceName() string { return "gov_geojson" }

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Geometry   struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// Fetch requests the configured layer as GeoJSON. The layer argument comes
// from the translator; an empty value falls back to the configured layer.
func (g *GovGeo) Fetch(ctx context.Context, layer string) (*core.FetchResult, error) {
	if layer == "" {
		layer = g.cfg.Layer
	}

	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", "2.0.0")
	params.Set("request", "GetFeature")
	params.Set("typeNames", layer)
	params.Set("outputFormat", "application/json")
	params.Set("count", fmt.Sprint(g.cfg.MaxFeatures))

	resp, err := g.client.Get(ctx, "/geoserver/wfs", params)
	if err != nil {
		return nil, fmt.Errorf("wfs getfeature: %w", err)
	}

	var parsed featureCollection
	if err := resp.JSON(&parsed); err != nil {
		return nil, fmt.Errorf("geojson decode: %w", err)
	}

	out := &core.FetchResult{}
	for _, f := range parsed.Features {
		item := core.RawItem{
			"id":         f.ID,
			"properties": f.Properties,
		}
		// GeoJSON positions are [lng, lat].
		if f.Geometry.Type == "Point" && len(f.Geometry.Coordinates) >= 2 {
			item["lng"] = f.Geometry.Coordinates[0]
			item["lat"] = f.Geometry.Coordinates[1]
		}
		out.Results = append(out.Results, item)
	}
	return out, nil
}
