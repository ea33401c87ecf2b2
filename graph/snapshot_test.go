package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildsys/brick-api/errors"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := openStore(t, Options{}, testdata("tiny.ttl"), testdata("tiny2.ttl"))
	path := filepath.Join(t.TempDir(), "graph.db")

	require.NoError(t, src.ExportSnapshot(ctx, path))
	_, err := os.Stat(path)
	require.NoError(t, err)

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()
	assert.True(t, snap.Loaded())

	want, err := src.TripleCount(ctx)
	require.NoError(t, err)
	got, err := snap.TripleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantNS, err := src.Namespaces(ctx)
	require.NoError(t, err)
	gotNS, err := snap.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantNS, gotNS)

	const q = `SELECT ?id ?type WHERE { ex:site brick:hasPart* ?id . ?id a ?type } ORDER BY ?id ?type`
	wantRes, err := src.Query(ctx, q)
	require.NoError(t, err)
	gotRes, err := snap.Query(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, wantRes, gotRes)
}

func TestSnapshot_Overwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "graph.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	s := openStore(t, Options{NoSchema: true}, testdata("tiny.ttl"))
	require.NoError(t, s.ExportSnapshot(ctx, path))

	snap, err := OpenSnapshot(ctx, path)
	require.NoError(t, err)
	defer snap.Close()
	n, err := snap.TripleCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestSnapshot_NotLoaded(t *testing.T) {
	s := openStore(t, Options{NoSchema: true})
	err := s.ExportSnapshot(context.Background(), filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, errors.ErrNotReady)
}

func TestOpenSnapshot_Missing(t *testing.T) {
	_, err := OpenSnapshot(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestOpenSnapshot_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not sqlite, just some text padding it out"), 0o644))
	_, err := OpenSnapshot(context.Background(), path)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}
