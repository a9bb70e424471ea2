package bulkgeo

import (
	"fmt"
	"os"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the bulk release factory, metadata and mapper.
func init() {
	connector.Register("bulk_geo", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			path := connector.GetString(config, "path", os.Getenv("BULK_GEO_RELEASE_PATH"))
			return New(&Config{
				Path:       path,
				MaxResults: connector.GetInt(config, "maxResults", 0),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseStructured,
			TrustLevel:        3,
			SupportsQueryOnly: true,
			EstimatedCostUSD:  0,
			TimeoutSeconds:    60,
			RateLimitPerDay:   0,
		},
		Mapper: MapItem,
	})
}

// MapItem normalises one release row to a candidate.
func MapItem(item core.RawItem) (core.Candidate, error) {
	name, _ := item["name"].(string)
	if name == "" {
		return core.Candidate{}, fmt.Errorf("release row has no name")
	}

	cand := core.Candidate{
		Name:   name,
		Source: "bulk_geo",
		Raw:    item,
	}
	if id, ok := item["id"].(string); ok && id != "" {
		cand.IDs = map[string]string{"wof": id}
	}
	if lat, ok := item["latitude"].(float64); ok {
		if lng, ok := item["longitude"].(float64); ok {
			cand.Lat = core.Float64Ptr(lat)
			cand.Lng = core.Float64Ptr(lng)
		}
	}
	return cand, nil
}
