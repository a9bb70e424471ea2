package govgeo

import (
	"fmt"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the GovGeo factory, metadata, mapper and translator.
func init() {
	connector.Register("gov_geojson", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			return New(&Config{
				BaseURL:     connector.GetString(config, "baseUrl", "https://maps.gov.scot"),
				Layer:       connector.GetString(config, "layer", ""),
				MaxFeatures: connector.GetInt(config, "maxFeatures", 0),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseStructured,
			TrustLevel:        4,
			SupportsQueryOnly: true,
			EstimatedCostUSD:  0,
			TimeoutSeconds:    45,
			RateLimitPerDay:   0,
			Requires:          []string{"request.query"},
		},
		Mapper: MapItem,
		// The WFS endpoint expects a fixed layer name, not the user query.
		Translator: func(query string, evidence map[string]any) (string, error) {
			if layer, ok := evidence["context.gov_layer"].(string); ok && layer != "" {
				return layer, nil
			}
			return DefaultLayer, nil
		},
	})
}

// MapItem normalises one GeoJSON feature to a candidate.
func MapItem(item core.RawItem) (core.Candidate, error) {
	props, _ := item["properties"].(map[string]any)
	name := firstString(props, "name", "facility_name", "site_name")
	if name == "" {
		return core.Candidate{}, fmt.Errorf("feature has no name property")
	}

	cand := core.Candidate{
		Name:   name,
		Source: "gov_geojson",
		Raw:    item,
	}
	if id, ok := item["id"].(string); ok && id != "" {
		cand.IDs = map[string]string{"gov": id}
	}
	if lat, ok := item["lat"].(float64); ok {
		if lng, ok := item["lng"].(float64); ok {
			cand.Lat = core.Float64Ptr(lat)
			cand.Lng = core.Float64Ptr(lng)
		}
	}
	if addr := firstString(props, "address", "full_address", "street"); addr != "" {
		cand.Address = addr
	}
	return cand, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
