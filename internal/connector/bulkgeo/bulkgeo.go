// Package bulkgeo implements the bulk geographic release connector.
//
// Releases are downloaded out of band (a separate batch tool) and land on
// disk as Parquet files; this connector scans the local release for rows
// whose name matches the query.
package bulkgeo

import (
	"context"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// DefaultBatchSize rows are read per iteration to bound memory.
const DefaultBatchSize = 1000

// Config holds bulk release connector configuration.
type Config struct {
	// Path to the release Parquet file.
	Path string

	// MaxResults caps matches per query.
	MaxResults int
}

// BulkGeo is the bulk geographic release connector.
type BulkGeo struct {
	cfg *Config
}

// New creates a BulkGeo connector.
func New(cfg *Config) (*BulkGeo, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("bulk_geo: path to the release file is required")
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	return &BulkGeo{cfg: cfg}, nil
}

// SourceName returns the connector name.
func (b *BulkGeo) SourceName() string { return "bulk_geo" }

// releaseRow is the Parquet row shape of a release.
type releaseRow struct {
	ID        string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name      string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude  float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude float64 `parquet:"name=longitude, type=DOUBLE"`
	PlaceType string  `parquet:"name=placetype, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country   string  `parquet:"name=country, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Fetch scans the release file for rows whose name contains every query token.
func (b *BulkGeo) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	fr, err := local.NewLocalFileReader(b.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open release %s: %w", b.cfg.Path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(releaseRow), 2)
	if err != nil {
		return nil, fmt.Errorf("parquet reader: %w", err)
	}
	defer pr.ReadStop()

	tokens := strings.Fields(core.NormalizeName(query))
	out := &core.FetchResult{}

	total := int(pr.GetNumRows())
	for offset := 0; offset < total; offset += DefaultBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := DefaultBatchSize
		if offset+n > total {
			n = total - offset
		}
		rows := make([]releaseRow, n)
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("parquet read: %w", err)
		}

		for _, row := range rows {
			if !matchesTokens(row.Name, tokens) {
				continue
			}
			out.Results = append(out.Results, core.RawItem{
				"id":        row.ID,
				"name":      row.Name,
				"latitude":  row.Latitude,
				"longitude": row.Longitude,
				"placetype": row.PlaceType,
				"country":   row.Country,
			})
			if len(out.Results) >= b.cfg.MaxResults {
				return out, nil
			}
		}
	}
	return out, nil
}

// matchesTokens requires every query token in the normalised row name.
// An empty token list matches everything (category scans pass no name).
func matchesTokens(name string, tokens []string) bool {
	norm := core.NormalizeName(name)
	for _, tok := range tokens {
		if !strings.Contains(norm, tok) {
			return false
		}
	}
	return true
}
