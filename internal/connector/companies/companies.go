// Package companies implements the Companies House registry connector.
//
// It enriches organizations discovered by earlier phases with registry
// numbers and registered addresses, so it declares a dataflow dependency on
// context.company_name.
package companies

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector/httpx"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultBaseURL is the Companies House public data API.
const DefaultBaseURL = "https://api.company-information.service.gov.uk"

// Config holds registry connector configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	Transport *httpx.ClientConfig
}

// Companies is the organization registry connector.
type Companies struct {
	cfg    *Config
	client *httpx.Client
}

// New creates a Companies connector.
func New(cfg *Config) (*Companies, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("COMPANIES_HOUSE_API_KEY")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}

	clientCfg := cfg.Transport
	if clientCfg == nil {
		clientCfg = httpx.DefaultClientConfig()
	}
	clientCfg.BaseURL = cfg.BaseURL

	return &Companies{cfg: cfg, client: httpx.NewClient(clientCfg)}, nil
}

// SourceName returns the connector name.
func (c *Companies) SourceName() string { return "companies_registry" }

type searchResponse struct {
	Items []companyItem `json:"items"`
}

type companyItem struct {
	Title         string `json:"title"`
	CompanyNumber string `json:"company_number"`
	CompanyStatus string `json:"company_status"`
	Address       struct {
		AddressLine1 string `json:"address_line_1"`
		Locality     string `json:"locality"`
		PostalCode   string `json:"postal_code"`
	} `json:"address"`
}

// Fetch searches the registry for the (translated) company name.
func (c *Companies) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("companies_registry: COMPANIES_HOUSE_API_KEY is not set")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("items_per_page", fmt.Sprint(c.cfg.PageSize))

	resp, err := c.client.Do(ctx, &httpx.Request{
		Method: "GET",
		Path:   "/search/companies",
		Query:  params,
		Headers: map[string]string{
			// Companies House uses the key as a basic-auth username.
			"Authorization": "Basic " + basicAuth(c.cfg.APIKey),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("companies search: %w", err)
	}

	var parsed searchResponse
	if err := resp.JSON(&parsed); err != nil {
		return nil, fmt.Errorf("companies decode: %w", err)
	}

	out := &core.FetchResult{}
	for _, item := range parsed.Items {
		out.Results = append(out.Results, core.RawItem{
			"title":          item.Title,
			"company_number": item.CompanyNumber,
			"company_status": item.CompanyStatus,
			"address_line_1": item.Address.AddressLine1,
			"locality":       item.Address.Locality,
			"postal_code":    item.Address.PostalCode,
		})
	}
	return out, nil
}
