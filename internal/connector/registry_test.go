package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

type stubConnector struct{ name string }

func (s *stubConnector) SourceName() string { return s.name }
func (s *stubConnector) Fetch(ctx context.Context, query string) (*core.FetchResult, error) {
	return &core.FetchResult{}, nil
}

func stubRegistration(name string) Registration {
	return Registration{
		Factory: func(config map[string]any) (Connector, error) {
			return &stubConnector{name: name}, nil
		},
		Metadata: Metadata{Phase: core.PhaseDiscovery, TrustLevel: 1},
		Mapper: func(item core.RawItem) (core.Candidate, error) {
			return core.Candidate{Name: "x", Source: name, Raw: item}, nil
		},
	}
}

func TestRegistry_Unit_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("alpha", stubRegistration("alpha"))

	reg, ok := r.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", reg.Metadata.Name, "name is stamped onto metadata")

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_Unit_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("alpha", stubRegistration("alpha"))

	assert.Panics(t, func() {
		r.Register("alpha", stubRegistration("alpha"))
	})
}

func TestRegistry_Unit_IncompleteRegistrationPanics(t *testing.T) {
	r := NewRegistry()

	assert.Panics(t, func() {
		r.Register("nofactory", Registration{Mapper: stubRegistration("x").Mapper})
	})
	assert.Panics(t, func() {
		r.Register("nomapper", Registration{Factory: stubRegistration("x").Factory})
	})
}

func TestRegistry_Unit_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", stubRegistration("zeta"))
	r.Register("alpha", stubRegistration("alpha"))
	r.Register("mike", stubRegistration("mike"))

	assert.Equal(t, []string{"alpha", "mike", "zeta"}, r.List())
}

func TestRegistry_Unit_Create(t *testing.T) {
	r := NewRegistry()
	r.Register("alpha", stubRegistration("alpha"))

	c, err := r.Create("alpha", nil)
	require.NoError(t, err)
	assert.Equal(t, "alpha", c.SourceName())

	_, err = r.Create("missing", nil)
	assert.Error(t, err)
}

func TestConfigHelpers_Unit(t *testing.T) {
	m := map[string]any{
		"name":  "oriam",
		"empty": "",
		"count": 7,
		"size":  12.0,
	}

	assert.Equal(t, "oriam", GetString(m, "name", "d"))
	assert.Equal(t, "d", GetString(m, "empty", "d"), "empty string falls back")
	assert.Equal(t, "d", GetString(m, "absent", "d"))

	assert.Equal(t, 7, GetInt(m, "count", 1))
	assert.Equal(t, 12, GetInt(m, "size", 1), "JSON numbers arrive as float64")
	assert.Equal(t, 1, GetInt(m, "absent", 1))
}
