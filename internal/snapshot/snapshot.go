// Package snapshot fetches a database image and opens it for read queries.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"

	"github.com/railwatch/trainview/internal/engine"
	"github.com/railwatch/trainview/internal/fetch"
)

var (
	// ErrSnapshotFetch means the snapshot bytes could not be transferred.
	ErrSnapshotFetch = errors.New("snapshot fetch failed")
	// ErrSnapshotDecode means the transferred bytes are not a database image.
	ErrSnapshotDecode = errors.New("snapshot decode failed")
)

// sqliteHeader is the magic string every SQLite database file starts with.
var sqliteHeader = []byte("SQLite format 3\x00")

// Handle is an opened, read-only snapshot. It is safe for concurrent queries.
type Handle struct {
	db       *gorm.DB
	path     string
	url      string
	size     int
	openedAt time.Time

	closeOnce sync.Once
	closeErr  error
}

// DB returns the database the snapshot was opened as.
func (h *Handle) DB() *gorm.DB {
	return h.db
}

// URL is where the snapshot was fetched from.
func (h *Handle) URL() string {
	return h.url
}

// Size is the image size in bytes.
func (h *Handle) Size() int {
	return h.size
}

// OpenedAt is when the snapshot became queryable.
func (h *Handle) OpenedAt() time.Time {
	return h.openedAt
}

// Close releases the connection pool and removes the image from the scratch dir.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if sqlDB, err := h.db.DB(); err == nil {
			h.closeErr = sqlDB.Close()
		}
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) && h.closeErr == nil {
			h.closeErr = err
		}
	})
	return h.closeErr
}

// Store opens snapshots against the shared engine.
type Store struct {
	fetcher fetch.Fetcher
	loader  *engine.Loader
	log     zerolog.Logger

	fetchBytes   metric.Int64Counter
	openDuration metric.Float64Histogram
}

// NewStore creates a Store.
func NewStore(fetcher fetch.Fetcher, loader *engine.Loader, log zerolog.Logger) (*Store, error) {
	s := &Store{
		fetcher: fetcher,
		loader:  loader,
		log:     log,
	}

	m := meter()
	var err error

	s.fetchBytes, err = m.Int64Counter(
		"snapshot.fetch.bytes",
		metric.WithDescription("Bytes transferred for snapshot images"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch bytes counter: %w", err)
	}

	s.openDuration, err = m.Float64Histogram(
		"snapshot.open.duration",
		metric.WithDescription("Time from fetch start until the snapshot is queryable"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating open duration histogram: %w", err)
	}

	return s, nil
}

// Open fetches the image at url and opens it read-only.
// Failures are returned as is and never retried.
func (s *Store) Open(ctx context.Context, url string) (*Handle, error) {
	start := time.Now()

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSnapshotFetch, url, err)
	}
	s.fetchBytes.Add(ctx, int64(len(data)), metric.WithAttributes(attribute.String("url", url)))
	s.log.Debug().Str("url", url).Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("Fetched snapshot")

	eng, err := s.loader.Get(ctx)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, sqliteHeader) {
		return nil, fmt.Errorf("%w: %s: missing database header", ErrSnapshotDecode, url)
	}

	path, err := materialize(eng.ScratchDir(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to write snapshot image: %w", err)
	}

	db, err := eng.Open(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: %w", ErrSnapshotDecode, url, err)
	}

	// a truncated or corrupt image only fails once a page is actually read
	var tables int64
	if err := db.WithContext(ctx).Raw("SELECT count(*) FROM sqlite_master").Scan(&tables).Error; err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s: %w", ErrSnapshotDecode, url, err)
	}

	h := &Handle{
		db:       db,
		path:     path,
		url:      url,
		size:     len(data),
		openedAt: time.Now(),
	}

	took := time.Since(start)
	s.openDuration.Record(ctx, took.Seconds())
	s.log.Info().
		Str("url", url).
		Int("bytes", len(data)).
		Int64("tables", tables).
		Dur("took", took).
		Msg("Snapshot opened")

	return h, nil
}

func materialize(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "snapshot-*.sqlite3")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
