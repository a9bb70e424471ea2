package osm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

func TestOSM_Unit_MapItemFullElement(t *testing.T) {
	cand, err := MapItem(core.RawItem{
		"type": "node",
		"id":   int64(123456),
		"lat":  55.9533,
		"lon":  -3.1883,
		"tags": map[string]any{
			"name":             "Meadowbank Sports Centre",
			"leisure":          "sports_centre",
			"addr:street":      "London Road",
			"addr:housenumber": "139",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Meadowbank Sports Centre", cand.Name)
	assert.Equal(t, "osm_overpass", cand.Source)
	assert.Equal(t, map[string]string{"osm": "node/123456"}, cand.IDs)
	require.NotNil(t, cand.Lat)
	assert.InDelta(t, 55.9533, *cand.Lat, 1e-9)
	assert.Equal(t, "139 London Road", cand.Address)
}

func TestOSM_Unit_MapItemNamelessElementFails(t *testing.T) {
	_, err := MapItem(core.RawItem{
		"type": "way",
		"id":   int64(99),
		"tags": map[string]any{"leisure": "pitch"},
	})
	assert.Error(t, err)
}

func TestOSM_Unit_MapItemPartialElement(t *testing.T) {
	// Ways often carry no lat/lon and streets without housenumbers.
	cand, err := MapItem(core.RawItem{
		"type": "way",
		"id":   float64(777), // decoded JSON numbers are float64
		"tags": map[string]any{
			"name":        "Powerleague Portobello",
			"addr:street": "Westbank Street",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"osm": "way/777"}, cand.IDs)
	assert.Nil(t, cand.Lat)
	assert.Equal(t, "Westbank Street", cand.Address)
}
