package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// KEY TIERS
// =============================================================================

func TestKey_Unit_StrongIDsWin(t *testing.T) {
	c := &core.Candidate{
		Name:   "Oriam",
		IDs:    map[string]string{"osm": "node/1", "google": "ChIJ123"},
		Lat:    core.Float64Ptr(55.9),
		Lng:    core.Float64Ptr(-3.1),
		Source: "google_places",
	}
	// Lexicographically first id kind wins.
	assert.Equal(t, "google:ChIJ123", Key(c, nil))
}

func TestKey_Unit_SeededIDs(t *testing.T) {
	c := &core.Candidate{Name: "Oriam Scotland", Source: "serper"}
	seeds := map[string]map[string]string{
		"oriam scotland": {"google": "ChIJ123"},
	}
	assert.Equal(t, "google:ChIJ123", Key(c, seeds))
}

func TestKey_Unit_GeoTier(t *testing.T) {
	c := &core.Candidate{
		Name:   "  Oriam   Scotland ",
		Lat:    core.Float64Ptr(55.92131),
		Lng:    core.Float64Ptr(-3.12341),
		Source: "osm_overpass",
	}
	assert.Equal(t, "oriam scotland:55.9213:-3.1234", Key(c, nil))
}

func TestKey_Unit_ZeroCoordinatesAreCoordinates(t *testing.T) {
	c := &core.Candidate{
		Name:   "Null Island",
		Lat:    core.Float64Ptr(0),
		Lng:    core.Float64Ptr(0),
		Source: "osm_overpass",
	}
	assert.Equal(t, "null island:0.0000:0.0000", Key(c, nil))
}

func TestKey_Unit_ContentHashFallback(t *testing.T) {
	a := &core.Candidate{Name: "Oriam Scotland", Source: "serper"}
	b := &core.Candidate{Name: "  ORIAM   Scotland ", Source: "SERPER"}
	c := &core.Candidate{Name: "Somewhere Else", Source: "serper"}

	assert.Len(t, Key(a, nil), 40, "sha-1 hex")
	assert.Equal(t, Key(a, nil), Key(b, nil), "normalised strings hash alike")
	assert.NotEqual(t, Key(a, nil), Key(c, nil))
}

// =============================================================================
// ACCEPTANCE POLICY
// =============================================================================

func TestAccept_Unit_DuplicateKey(t *testing.T) {
	state := core.NewState("q")
	c := core.Candidate{Name: "Oriam", IDs: map[string]string{"google": "X"}, Source: "google_places"}

	ok, key, reason := Accept(&c, state)
	require.True(t, ok)
	assert.Empty(t, reason)

	ok2, key2, reason2 := Accept(&c, state)
	assert.False(t, ok2)
	assert.Equal(t, key, key2, "second call returns the same key")
	assert.Equal(t, ReasonDuplicate, reason2)
	assert.Len(t, state.AcceptedEntities, 1)
}

func TestAccept_Unit_CrossSourceFuzzyReplace(t *testing.T) {
	state := core.NewState("q")

	weak := core.Candidate{Name: "Oriam Scotland", Source: "serper"}
	ok, _, _ := Accept(&weak, state)
	require.True(t, ok, "weak candidate accepted first")

	rich := core.Candidate{
		Name:   "ORIAM - Scotland's Sports Performance Centre",
		IDs:    map[string]string{"google": "ChIJ123"},
		Lat:    core.Float64Ptr(55.9213),
		Lng:    core.Float64Ptr(-3.1234),
		Source: "google_places",
	}
	ok, key, reason := Accept(&rich, state)
	assert.True(t, ok, "richer record accepted with replacement")
	assert.Empty(t, reason)
	assert.Equal(t, "google:ChIJ123", key)

	require.Len(t, state.AcceptedEntities, 1)
	assert.Equal(t, "google_places", state.AcceptedEntities[0].Candidate.Source)
	assert.Equal(t, key, state.AcceptedEntities[0].Key)
	_, hasKey := state.AcceptedEntityKeys[key]
	assert.True(t, hasKey, "key index updated to the richer key")
	assert.Len(t, state.AcceptedEntityKeys, 1, "weaker key removed")
}

func TestAccept_Unit_WeakIncomingAgainstRichIsDuplicate(t *testing.T) {
	state := core.NewState("q")
	rich := core.Candidate{
		Name:   "Oriam Scotland",
		IDs:    map[string]string{"google": "ChIJ123"},
		Source: "google_places",
	}
	require.True(t, firstOf(Accept(&rich, state)))

	weak := core.Candidate{Name: "The Oriam Scotland", Source: "serper"}
	ok, key, reason := Accept(&weak, state)
	assert.False(t, ok)
	assert.Equal(t, "google:ChIJ123", key, "reports the matched entity's key")
	assert.Equal(t, ReasonDuplicate, reason)
}

func TestAccept_Unit_TwoStrongRecordsNeverFuzzyMerge(t *testing.T) {
	state := core.NewState("q")
	a := core.Candidate{Name: "Oriam Scotland", IDs: map[string]string{"google": "A"}, Source: "google_places"}
	b := core.Candidate{Name: "Oriam Scotland Centre", IDs: map[string]string{"osm": "node/1"}, Source: "osm_overpass"}

	require.True(t, firstOf(Accept(&a, state)))
	ok, _, _ := Accept(&b, state)
	assert.True(t, ok, "distinct strong ids stay distinct")
	assert.Len(t, state.AcceptedEntities, 2)
}

func TestAccept_Unit_StrongIDMergeIffKeysMatch(t *testing.T) {
	state := core.NewState("q")
	a := core.Candidate{Name: "Oriam", IDs: map[string]string{"google": "SAME"}, Source: "google_places"}
	b := core.Candidate{Name: "Completely Different Name", IDs: map[string]string{"google": "SAME"}, Source: "serper"}

	require.True(t, firstOf(Accept(&a, state)))
	ok, _, reason := Accept(&b, state)
	assert.False(t, ok, "same strong-id key merges regardless of name")
	assert.Equal(t, ReasonDuplicate, reason)
}

func TestRun_Unit_SoundnessBound(t *testing.T) {
	state := core.NewState("q")
	state.Candidates = []core.Candidate{
		{Name: "Oriam Scotland", Source: "serper"},
		{Name: "Oriam Scotland", Source: "serper"},
		{Name: "Powerleague Portobello", Source: "serper"},
	}
	Run(state)
	assert.LessOrEqual(t, len(state.AcceptedEntities), len(state.Candidates))
	assert.Len(t, state.AcceptedEntities, 2)
}

// =============================================================================
// TOKEN SET RATIO
// =============================================================================

func TestTokenSetRatio_Unit_Scores(t *testing.T) {
	assert.Equal(t, 100, TokenSetRatio("oriam scotland", "oriam scotland"))
	assert.Equal(t, 100, TokenSetRatio("oriam scotland", "scotland oriam"), "order-insensitive")
	assert.GreaterOrEqual(t, TokenSetRatio("oriam scotland", "oriam scotland's sports performance centre"), 85,
		"subset with extra descriptive tokens")
	assert.Less(t, TokenSetRatio("oriam scotland", "meadowbank stadium"), 50)
	assert.Equal(t, 100, TokenSetRatio("", ""))
	assert.Equal(t, 0, TokenSetRatio("oriam", ""))
}

func firstOf(ok bool, _ string, _ string) bool { return ok }
