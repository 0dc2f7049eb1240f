// Package testutil builds small snapshot images for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/railwatch/trainview/internal/model"
)

const trainsDDL = `CREATE TABLE trains_v2 (
	id INTEGER PRIMARY KEY,
	start_ts TEXT NOT NULL,
	end_ts TEXT NOT NULL,
	n_frames INTEGER NOT NULL,
	length_px REAL NOT NULL,
	speed_px_s REAL NOT NULL,
	accel_px_s_2 REAL NOT NULL,
	px_per_m REAL NOT NULL,
	image_file_path TEXT NOT NULL,
	gif_file_path TEXT NOT NULL,
	uploaded_at TEXT
)`

const temperaturesDDL = `CREATE TABLE temperatures (
	id INTEGER PRIMARY KEY,
	timestamp TEXT NOT NULL,
	temp_deg_c REAL NOT NULL
)`

// Train describes one fixture row. Zero values get usable defaults.
type Train struct {
	ID         int64
	Start      time.Time
	Duration   time.Duration
	NFrames    int
	LengthPx   float64
	SpeedPxS   float64
	AccelPxS2  float64
	PxPerM     float64
	Image      string
	GIF        string
	UploadedAt *time.Time
}

// Temperature describes one fixture temperature sample.
type Temperature struct {
	At   time.Time
	DegC float64
}

// Snapshot collects rows for a fixture image.
type Snapshot struct {
	Trains       []Train
	Temperatures []Temperature
	// NoTemperatures omits the temperatures table entirely.
	NoTemperatures bool
}

// WriteFile writes the fixture image into a temp dir and returns its path.
func (s Snapshot) WriteFile(t testing.TB) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "db.sqlite3")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(trainsDDL).Error)
	if !s.NoTemperatures {
		require.NoError(t, db.Exec(temperaturesDDL).Error)
	}

	for i, tr := range s.Trains {
		require.NoError(t, db.Exec(
			`INSERT INTO trains_v2 (id, start_ts, end_ts, n_frames, length_px, speed_px_s,
				accel_px_s_2, px_per_m, image_file_path, gif_file_path, uploaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tr.withDefaults(i).args()...,
		).Error)
	}
	for _, tmp := range s.Temperatures {
		require.NoError(t, db.Exec(
			`INSERT INTO temperatures (timestamp, temp_deg_c) VALUES (?, ?)`,
			model.FormatTimestamp(tmp.At), tmp.DegC,
		).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

// Bytes returns the fixture image contents.
func (s Snapshot) Bytes(t testing.TB) []byte {
	t.Helper()
	data, err := os.ReadFile(s.WriteFile(t))
	require.NoError(t, err)
	return data
}

func (tr Train) withDefaults(i int) Train {
	if tr.ID == 0 {
		tr.ID = int64(i + 1)
	}
	if tr.Start.IsZero() {
		tr.Start = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	}
	if tr.Duration == 0 {
		tr.Duration = 10 * time.Second
	}
	if tr.NFrames == 0 {
		tr.NFrames = 100
	}
	if tr.PxPerM == 0 {
		tr.PxPerM = 1
	}
	if tr.Image == "" {
		tr.Image = "train_" + tr.Start.Format("20060102_150405Z07:00") + ".jpg"
	}
	if tr.GIF == "" {
		tr.GIF = "train_" + tr.Start.Format("20060102_150405Z07:00") + ".gif"
	}
	return tr
}

func (tr Train) args() []any {
	var uploaded any
	if tr.UploadedAt != nil {
		uploaded = model.FormatTimestamp(*tr.UploadedAt)
	}
	return []any{
		tr.ID,
		model.FormatTimestamp(tr.Start),
		model.FormatTimestamp(tr.Start.Add(tr.Duration)),
		tr.NFrames,
		tr.LengthPx,
		tr.SpeedPxS,
		tr.AccelPxS2,
		tr.PxPerM,
		tr.Image,
		tr.GIF,
		uploaded,
	}
}
