// Package connectors registers all source connectors.
package connectors

import (
	// Import all connectors to register them
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/bulkgeo"
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/companies"
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/govgeo"
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/osm"
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/places"
	_ "github.com/LarjGit/edinburgh-finds-sub000/internal/connector/serper"
)

// All imports trigger init() functions that register connectors.
