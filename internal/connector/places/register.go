package places

import (
	"fmt"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the Places factory, metadata and mapper.
func init() {
	connector.Register("google_places", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			return New(&Config{
				BaseURL: connector.GetString(config, "baseUrl", ""),
				APIKey:  connector.GetString(config, "apiKey", ""),
				Region:  connector.GetString(config, "region", ""),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseEnrichment,
			TrustLevel:        5,
			SupportsQueryOnly: true,
			EstimatedCostUSD:  0.017,
			TimeoutSeconds:    15,
			RateLimitPerDay:   1000,
			Provides:          []string{"context.place_id"},
			RequiredEnv:       "GOOGLE_PLACES_API_KEY",
		},
		Mapper: MapItem,
	})
}

// MapItem normalises one Places result to a candidate.
func MapItem(item core.RawItem) (core.Candidate, error) {
	name, _ := item["name"].(string)
	placeID, _ := item["place_id"].(string)
	if name == "" || placeID == "" {
		return core.Candidate{}, fmt.Errorf("places item missing name or place_id")
	}

	cand := core.Candidate{
		Name:   name,
		IDs:    map[string]string{"google": placeID},
		Source: "google_places",
		Raw:    item,
	}
	if lat, ok := item["lat"].(float64); ok {
		if lng, ok := item["lng"].(float64); ok {
			cand.Lat = core.Float64Ptr(lat)
			cand.Lng = core.Float64Ptr(lng)
		}
	}
	if addr, ok := item["formatted_address"].(string); ok {
		cand.Address = addr
	}
	return cand, nil
}
