package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwatch/trainview/internal/engine"
	"github.com/railwatch/trainview/internal/query"
	"github.com/railwatch/trainview/internal/snapshot"
	"github.com/railwatch/trainview/internal/stats"
	"github.com/railwatch/trainview/internal/testutil"
)

// mapFetcher serves fixture images by URL and counts fetches.
type mapFetcher struct {
	images  map[string][]byte
	fetches int
}

func (f *mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.fetches++
	data, ok := f.images[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func newContext(t *testing.T, f *mapFetcher, url string) *Context {
	t.Helper()
	loader := engine.NewLoader(t.TempDir(), zerolog.Nop())
	store, err := snapshot.NewStore(f, loader, zerolog.Nop())
	require.NoError(t, err)
	builder, err := query.NewBuilder(zerolog.Nop())
	require.NoError(t, err)

	sc := NewContext(store, builder, stats.New(zerolog.Nop()), url, zerolog.Nop())
	t.Cleanup(func() {
		_ = sc.Close()
		if e, err := loader.Get(context.Background()); err == nil {
			_ = e.Close()
		}
	})
	return sc
}

func TestContext_OpensOnce(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{
		"a": testutil.Snapshot{Trains: []testutil.Train{{}, {}}}.Bytes(t),
	}}
	sc := newContext(t, f, "a")

	h1, err := sc.Handle(context.Background())
	require.NoError(t, err)
	h2, err := sc.Handle(context.Background())
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, f.fetches)
}

func TestContext_FailedOpenIsNotCached(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{}}
	sc := newContext(t, f, "a")

	_, err := sc.Handle(context.Background())
	assert.ErrorIs(t, err, snapshot.ErrSnapshotFetch)

	f.images["a"] = testutil.Snapshot{}.Bytes(t)
	_, err = sc.Handle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, f.fetches)
}

func TestContext_TrainUsesCache(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{
		"a": testutil.Snapshot{Trains: []testutil.Train{{}, {}, {}}}.Bytes(t),
	}}
	sc := newContext(t, f, "a")

	res, err := sc.List(context.Background(), 2, 0, query.Filter{})
	require.NoError(t, err)
	require.Len(t, res.Trains, 2)
	assert.Equal(t, 2, sc.Cache().Len())

	tr, ok, err := sc.Train(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(3), tr.ID())

	tr, ok, err = sc.Train(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), tr.ID())

	hits, misses := sc.Cache().Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	_, ok, err = sc.Train(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContext_Trains(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{
		"a": testutil.Snapshot{Trains: []testutil.Train{{ID: 2}, {ID: 5}}}.Bytes(t),
	}}
	sc := newContext(t, f, "a")

	found, missing, err := sc.Trains(context.Background(), []int64{5, 3, 2})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(5), found[0].ID())
	assert.Equal(t, int64(2), found[1].ID())
	assert.Equal(t, []int64{3}, missing)
}

func TestContext_SetURL(t *testing.T) {
	f := &mapFetcher{images: map[string][]byte{
		"a": testutil.Snapshot{Trains: []testutil.Train{{}}}.Bytes(t),
		"b": testutil.Snapshot{Trains: []testutil.Train{{}, {}, {}}}.Bytes(t),
	}}
	sc := newContext(t, f, "a")

	res, err := sc.List(context.Background(), 0, 0, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)

	require.NoError(t, sc.SetURL("b"))
	assert.Equal(t, "b", sc.URL())
	assert.Equal(t, 0, sc.Cache().Len())

	res, err = sc.List(context.Background(), 0, 0, query.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)

	// same url is a no-op
	require.NoError(t, sc.SetURL("b"))
	assert.Equal(t, 2, f.fetches)
}
