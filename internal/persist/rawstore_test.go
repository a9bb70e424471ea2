package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct{ calls int }

func (s *failingSink) Put(context.Context, string, string, []byte) error {
	s.calls++
	return fmt.Errorf("bucket unreachable")
}

var _ PayloadSink = (*failingSink)(nil)

func TestRawStore_Unit_WriteAndRead(t *testing.T) {
	root := t.TempDir()
	store := NewRawStore(root, nil, nil)

	payload := []byte(`{"name":"Oriam"}`)
	path, err := store.Write(context.Background(), "google_places", "abc123", payload)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "raw", "google_places", "abc123.json"), path)

	data, err := store.Read("google_places", "abc123")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestRawStore_Unit_SourcePartitioning(t *testing.T) {
	root := t.TempDir()
	store := NewRawStore(root, nil, nil)

	_, err := store.Write(context.Background(), "serper", "h1", []byte(`{}`))
	require.NoError(t, err)
	_, err = store.Write(context.Background(), "osm_overpass", "h1", []byte(`{}`))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "raw"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one directory per source")
}

func TestRawStore_Unit_SinkFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	sink := &failingSink{}
	store := NewRawStore(root, sink, nil)

	path, err := store.Write(context.Background(), "serper", "h1", []byte(`{"v":1}`))
	require.NoError(t, err, "the disk copy is authoritative")
	assert.Equal(t, 1, sink.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), data)
}

func TestRawStore_Unit_OverwriteSameHashIsStable(t *testing.T) {
	store := NewRawStore(t.TempDir(), nil, nil)

	_, err := store.Write(context.Background(), "serper", "h1", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = store.Write(context.Background(), "serper", "h1", []byte(`{"v":1}`))
	require.NoError(t, err, "rewriting an identical payload is harmless")
}
