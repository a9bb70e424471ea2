package companies

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// init registers the registry factory, metadata, mapper and translator.
func init() {
	connector.Register("companies_registry", connector.Registration{
		Factory: func(config map[string]any) (connector.Connector, error) {
			return New(&Config{
				BaseURL:  connector.GetString(config, "baseUrl", ""),
				APIKey:   connector.GetString(config, "apiKey", ""),
				PageSize: connector.GetInt(config, "pageSize", 0),
			})
		},
		Metadata: connector.Metadata{
			Phase:             core.PhaseEnrichment,
			TrustLevel:        4,
			SupportsQueryOnly: false,
			EstimatedCostUSD:  0,
			TimeoutSeconds:    15,
			RateLimitPerDay:   600,
			Requires:          []string{"context.company_name"},
			Provides:          []string{"context.company_number"},
			RequiredEnv:       "COMPANIES_HOUSE_API_KEY",
		},
		Mapper: MapItem,
		// Prefer the company name surfaced by a discovery connector over the
		// raw user query.
		Translator: func(query string, evidence map[string]any) (string, error) {
			if name, ok := evidence["context.company_name"].(string); ok && name != "" {
				return name, nil
			}
			return query, nil
		},
	})
}

// MapItem normalises one registry item to a candidate.
func MapItem(item core.RawItem) (core.Candidate, error) {
	title, _ := item["title"].(string)
	number, _ := item["company_number"].(string)
	if title == "" || number == "" {
		return core.Candidate{}, fmt.Errorf("registry item missing title or company_number")
	}

	cand := core.Candidate{
		Name:   title,
		IDs:    map[string]string{"companies_house": number},
		Source: "companies_registry",
		Raw:    item,
	}

	var parts []string
	for _, key := range []string{"address_line_1", "locality", "postal_code"} {
		if v, ok := item[key].(string); ok && v != "" {
			parts = append(parts, v)
		}
	}
	cand.Address = strings.Join(parts, ", ")

	return cand, nil
}

func basicAuth(key string) string {
	return base64.StdEncoding.EncodeToString([]byte(key + ":"))
}
