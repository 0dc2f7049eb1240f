// Package engine owns the embedded SQLite runtime that snapshots are opened with.
//
// The runtime is set up once per process through a Loader and never torn down
// while snapshots are in use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrEngineInit means the embedded query runtime could not be brought up.
// It is unrecoverable for the session.
var ErrEngineInit = errors.New("engine init failed")

// Pragmas applied to every pooled snapshot connection. Snapshots are never written.
var readPragmas = [][2]string{
	{"query_only", "1"},
	{"temp_store", "MEMORY"},
	{"cache_size", "-32000"},
	{"mmap_size", "268435456"},
}

// Engine is the initialized runtime.
type Engine struct {
	scratchDir    string
	sqliteVersion string
	log           zerolog.Logger
}

// SQLiteVersion is the version reported by the embedded library.
func (e *Engine) SQLiteVersion() string {
	return e.sqliteVersion
}

// ScratchDir is where snapshot images are materialized.
func (e *Engine) ScratchDir() string {
	return e.scratchDir
}

// Open opens a read-only database over the image at path.
func (e *Engine) Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(readOnlyDSN(path)), gormConfig())
	if err != nil {
		return nil, err
	}
	e.log.Debug().Str("path", path).Msg("Opened snapshot image")
	return db, nil
}

// Close removes the scratch directory.
func (e *Engine) Close() error {
	return os.RemoveAll(e.scratchDir)
}

func readOnlyDSN(path string) string {
	query := url.Values{}
	query.Add("mode", "ro")
	for _, p := range readPragmas {
		query.Add("_pragma", p[0]+"("+p[1]+")")
	}
	return fmt.Sprintf("file:%s?%s", path, query.Encode())
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Loader hands out the process-wide Engine, initializing it on first use.
// Concurrent first callers wait on the same initialization.
type Loader struct {
	// ScratchRoot is the parent of the scratch directory. Empty means os.TempDir().
	ScratchRoot string
	Logger      zerolog.Logger

	once   sync.Once
	done   atomic.Bool
	engine *Engine
	err    error
}

// NewLoader creates a Loader.
func NewLoader(scratchRoot string, log zerolog.Logger) *Loader {
	return &Loader{
		ScratchRoot: scratchRoot,
		Logger:      log,
	}
}

// Get returns the shared Engine. A failed initialization is returned to every caller.
func (l *Loader) Get(ctx context.Context) (*Engine, error) {
	l.once.Do(func() {
		l.engine, l.err = l.init(ctx)
		l.done.Store(true)
	})
	return l.engine, l.err
}

// Loaded returns the Engine if an earlier Get initialized it successfully.
// It never starts the initialization itself.
func (l *Loader) Loaded() (*Engine, bool) {
	if !l.done.Load() {
		return nil, false
	}
	return l.engine, l.engine != nil
}

func (l *Loader) init(ctx context.Context) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}

	dir, err := os.MkdirTemp(l.ScratchRoot, "trainview-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating scratch dir: %w", ErrEngineInit, err)
	}

	// probe the runtime with an in-memory database
	probe, err := gorm.Open(sqlite.Open(":memory:"), gormConfig())
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}
	defer closeDB(probe)

	var version string
	if err := probe.WithContext(ctx).Raw("SELECT sqlite_version()").Scan(&version).Error; err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: probing runtime: %w", ErrEngineInit, err)
	}

	l.Logger.Debug().Str("sqliteVersion", version).Str("scratchDir", dir).Msg("Engine initialized")

	return &Engine{
		scratchDir:    dir,
		sqliteVersion: version,
		log:           l.Logger,
	}, nil
}
