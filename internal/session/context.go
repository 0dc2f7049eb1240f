// Package session ties the engine, the open snapshot and the query layer
// together for one user session.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/railwatch/trainview/internal/cache"
	"github.com/railwatch/trainview/internal/model"
	"github.com/railwatch/trainview/internal/query"
	"github.com/railwatch/trainview/internal/snapshot"
	"github.com/railwatch/trainview/internal/stats"
)

// Context holds the snapshot being browsed and everything needed to query it.
// The snapshot is opened on first use and shared by all callers afterwards.
type Context struct {
	mu     sync.RWMutex
	url    string
	handle *snapshot.Handle

	store   *snapshot.Store
	builder *query.Builder
	stats   *stats.Queries
	trains  *cache.TrainCache
	log     zerolog.Logger
}

// NewContext creates a Context for the snapshot at url.
func NewContext(store *snapshot.Store, builder *query.Builder, st *stats.Queries, url string, log zerolog.Logger) *Context {
	return &Context{
		url:     url,
		store:   store,
		builder: builder,
		stats:   st,
		trains:  cache.NewTrainCache(),
		log:     log,
	}
}

// URL returns the current snapshot URL
func (sc *Context) URL() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.url
}

// Builder returns the query builder
func (sc *Context) Builder() *query.Builder {
	return sc.builder
}

// Stats returns the aggregate queries
func (sc *Context) Stats() *stats.Queries {
	return sc.stats
}

// Cache returns the train cache of the current snapshot
func (sc *Context) Cache() *cache.TrainCache {
	return sc.trains
}

// Handle returns the open snapshot, opening it on first use. A failed open is
// returned to the caller and attempted again on the next call.
func (sc *Context) Handle(ctx context.Context) (*snapshot.Handle, error) {
	sc.mu.RLock()
	h := sc.handle
	sc.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.handle != nil {
		return sc.handle, nil
	}
	h, err := sc.store.Open(ctx, sc.url)
	if err != nil {
		return nil, err
	}
	sc.handle = h
	return h, nil
}

// SetURL switches to another snapshot. The current one is closed and the next
// Handle call opens the new one.
func (sc *Context) SetURL(url string) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if url == sc.url {
		return nil
	}
	err := sc.closeLocked()
	sc.url = url
	sc.log.Info().Str("url", url).Msg("Switched snapshot")
	return err
}

// Close closes the open snapshot, if any.
func (sc *Context) Close() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.closeLocked()
}

func (sc *Context) closeLocked() error {
	sc.trains.Reset()
	if sc.handle == nil {
		return nil
	}
	err := sc.handle.Close()
	sc.handle = nil
	return err
}

// List runs a filtered page query and caches the returned trains.
func (sc *Context) List(ctx context.Context, limit, offset int, f query.Filter) (query.Result, error) {
	h, err := sc.Handle(ctx)
	if err != nil {
		return query.Result{}, err
	}
	res, err := sc.builder.List(ctx, h, limit, offset, f)
	if err != nil {
		return query.Result{}, err
	}
	sc.trains.AddAll(res.Trains)
	return res, nil
}

// Train returns one train, from the cache when it was seen before.
func (sc *Context) Train(ctx context.Context, id int64) (model.Train, bool, error) {
	if t, ok := sc.trains.Get(id); ok {
		return t, true, nil
	}
	h, err := sc.Handle(ctx)
	if err != nil {
		return model.Train{}, false, err
	}
	t, ok, err := sc.builder.GetByID(ctx, h, id)
	if err != nil || !ok {
		return model.Train{}, ok, err
	}
	sc.trains.Add(t)
	return t, true, nil
}

// Trains resolves ids in order. Ids missing from the snapshot are returned separately.
func (sc *Context) Trains(ctx context.Context, ids []int64) (found []model.Train, missing []int64, err error) {
	for _, id := range ids {
		t, ok, err := sc.Train(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			missing = append(missing, id)
			continue
		}
		found = append(found, t)
	}
	return found, missing, nil
}
