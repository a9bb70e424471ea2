package serper

import (
	"fmt"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the Serper factory, metadata and mapper.
func init() {
	connector.Register("serper", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			return New(&Config{
				BaseURL:   connector.GetString(config, "baseUrl", ""),
				APIKey:    connector.GetString(config, "apiKey", ""),
				FetchSize: connector.GetInt(config, "fetchSize", DefaultFetchSize),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseDiscovery,
			TrustLevel:        2,
			SupportsQueryOnly: true,
			EstimatedCostUSD:  0.003,
			TimeoutSeconds:    20,
			RateLimitPerDay:   2500,
			Provides:          []string{"context.company_name"},
			RequiredEnv:       "SERPER_API_KEY",
		},
		Mapper: MapItem,
	})
}

// MapItem normalises one organic result to a candidate.
// Serper carries no strong ids or coordinates; the title is the only
// required field.
func MapItem(item core.RawItem) (core.Candidate, error) {
	title, _ := item["title"].(string)
	if title == "" {
		return core.Candidate{}, fmt.Errorf("serper item has no title")
	}
	return core.Candidate{
		Name:   title,
		Source: "serper",
		Raw:    item,
	}, nil
}
