package osm

import (
	"fmt"
	"strconv"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the Overpass factory, metadata and mapper.
func init() {
	connector.Register("osm_overpass", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			return New(&Config{
				BaseURL:  connector.GetString(config, "baseUrl", ""),
				AreaName: connector.GetString(config, "areaName", ""),
				Limit:    connector.GetInt(config, "limit", 0),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseDiscovery,
			TrustLevel:        3,
			SupportsQueryOnly: true,
			EstimatedCostUSD:  0,
			TimeoutSeconds:    30,
			RateLimitPerDay:   0,
		},
		Mapper: MapItem,
	})
}

// MapItem normalises one Overpass element to a candidate.
func MapItem(item core.RawItem) (core.Candidate, error) {
	tags, _ := item["tags"].(map[string]any)
	name, _ := tags["name"].(string)
	if name == "" {
		return core.Candidate{}, fmt.Errorf("osm element has no name tag")
	}

	cand := core.Candidate{
		Name:   name,
		Source: "osm_overpass",
		Raw:    item,
	}

	if lat, ok := toFloat(item["lat"]); ok {
		if lng, ok := toFloat(item["lon"]); ok {
			cand.Lat = core.Float64Ptr(lat)
			cand.Lng = core.Float64Ptr(lng)
		}
	}

	elType, _ := item["type"].(string)
	if id, ok := toInt64(item["id"]); ok && elType != "" {
		cand.IDs = map[string]string{"osm": fmt.Sprintf("%s/%d", elType, id)}
	}

	if street, ok := tags["addr:street"].(string); ok && street != "" {
		addr := street
		if num, ok := tags["addr:housenumber"].(string); ok && num != "" {
			addr = num + " " + street
		}
		cand.Address = addr
	}

	return cand, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
