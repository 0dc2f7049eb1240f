package testutil

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/railwatch/trainview/internal/engine"
)

// Handle is a read-only snapshot opened straight from its fixture file.
type Handle struct {
	db *gorm.DB
}

// DB returns the opened database.
func (h Handle) DB() *gorm.DB {
	return h.db
}

// Open writes s and opens it read-only the way snapshots are opened at runtime.
func (s Snapshot) Open(t testing.TB) Handle {
	t.Helper()

	path := s.WriteFile(t)
	eng, err := engine.NewLoader(t.TempDir(), zerolog.Nop()).Get(context.Background())
	require.NoError(t, err)

	db, err := eng.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = eng.Close()
	})
	return Handle{db: db}
}
