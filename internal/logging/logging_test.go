package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		appName string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			appName: "trainview",
			want:    filepath.Join("logs", "trainview.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			appName: "trainview",
			want:    filepath.Join(".", "logs", "trainview.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "trainview"),
			appName: "trainview",
			want:    filepath.Join("/var", "log", "trainview", "trainview.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.appName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"Warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_WritesConsoleAndFile(t *testing.T) {
	var console, file bytes.Buffer

	logger, err := Setup(Options{Level: "warn", Console: &console, File: &file})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("url", "x").Msg("visible")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "visible")
	assert.Contains(t, file.String(), "visible")
	assert.Contains(t, file.String(), "url=x")
	// the file sink is never colored
	assert.NotContains(t, file.String(), "\x1b[")
}

func TestSetup_BadGraylogAddress(t *testing.T) {
	_, err := Setup(Options{Console: &bytes.Buffer{}, GraylogAddress: "not an address"})
	assert.Error(t, err)
}

func TestOpenLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	start := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	f, err := OpenLogFile(dir, "trainview", start)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = os.Stat(LogFilePath(dir, "trainview", start))
	assert.NoError(t, err)
}
