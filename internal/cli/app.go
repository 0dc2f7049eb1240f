// Package cli holds the trainview commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/railwatch/trainview/internal/assets"
	"github.com/railwatch/trainview/internal/config"
	"github.com/railwatch/trainview/internal/engine"
	"github.com/railwatch/trainview/internal/favorites"
	"github.com/railwatch/trainview/internal/fetch"
	"github.com/railwatch/trainview/internal/logging"
	"github.com/railwatch/trainview/internal/otel"
	"github.com/railwatch/trainview/internal/query"
	"github.com/railwatch/trainview/internal/session"
	"github.com/railwatch/trainview/internal/snapshot"
	"github.com/railwatch/trainview/internal/stats"
)

// AppName names log files and the metrics service.
const AppName = "trainview"

// Options are the global command line settings.
type Options struct {
	ConfigPath  string
	SnapshotURL string
	LogLevel    string
	// Stderr receives log output.
	Stderr io.Writer
}

// App is everything a command needs, wired from config.
type App struct {
	Log       zerolog.Logger
	Session   *session.Context
	Favorites *favorites.FileStore
	Assets    assets.Resolver
	Browse    config.BrowseConfig
	OTel      *otel.Provider

	loader  *engine.Loader
	logFile *os.File
}

// NewApp loads config and wires the components. The snapshot itself is only
// fetched when a command first needs it.
func NewApp(opts Options) (*App, error) {
	start := time.Now()
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfgErr := config.Load(opts.ConfigPath)
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoConfigFile) {
		return nil, cfgErr
	}
	if opts.SnapshotURL != "" {
		config.Set("snapshot.url", opts.SnapshotURL)
	}
	if opts.LogLevel != "" {
		config.Set("logLevel", opts.LogLevel)
	}

	app := &App{}
	logCfg := config.GetLoggingConfig()
	logOpts := logging.Options{
		Level:   logCfg.Level,
		Console: opts.Stderr,
	}
	if logCfg.LogsDir != "" {
		f, err := logging.OpenLogFile(logCfg.LogsDir, AppName, start)
		if err != nil {
			return nil, err
		}
		app.logFile = f
		logOpts.File = f
	}
	if logCfg.GraylogEnabled {
		logOpts.GraylogAddress = logCfg.GraylogAddress
	}
	log, err := logging.Setup(logOpts)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Log = log
	if cfgErr != nil {
		log.Warn().Err(cfgErr).Msg("Failed to load config, using defaults!")
	}

	otelCfg := config.GetOTelConfig()
	app.OTel, err = otel.New(otel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		ExportInterval: otelCfg.ExportInterval,
		Writer:         opts.Stderr,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	snapCfg := config.GetSnapshotConfig()
	s3Cfg := config.GetS3Config()
	fetcher := fetch.New(fetch.Config{
		HTTPTimeout: snapCfg.Timeout,
		S3: fetch.S3Config{
			Region:    s3Cfg.Region,
			Endpoint:  s3Cfg.Endpoint,
			PathStyle: s3Cfg.PathStyle,
		},
	})

	app.loader = engine.NewLoader("", log.With().Str("component", "engine").Logger())
	store, err := snapshot.NewStore(fetcher, app.loader, log.With().Str("component", "snapshot").Logger())
	if err != nil {
		app.Close()
		return nil, err
	}
	builder, err := query.NewBuilder(log.With().Str("component", "query").Logger())
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Browse = config.GetBrowseConfig()
	app.Assets = assets.Resolver{Base: app.Browse.BlobsURL}
	app.Favorites = favorites.NewFileStore(config.GetString("dataDir"), log)
	app.Session = session.NewContext(
		store,
		builder,
		stats.New(log.With().Str("component", "stats").Logger()),
		snapCfg.URL,
		log.With().Str("component", "session").Logger(),
	)

	log.Debug().Str("snapshot", snapCfg.URL).Msg("App ready")
	return app, nil
}

// Close releases the snapshot, the engine and the log file.
func (a *App) Close() {
	if a.Session != nil {
		if err := a.Session.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to close snapshot")
		}
	}
	if a.loader != nil {
		if e, ok := a.loader.Loaded(); ok {
			_ = e.Close()
		}
	}
	if a.OTel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.OTel.Shutdown(ctx); err != nil {
			a.Log.Warn().Err(err).Msg("Failed to flush metrics")
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// ErrorMessage turns a command error into the line shown to the user.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, snapshot.ErrSnapshotFetch),
		errors.Is(err, snapshot.ErrSnapshotDecode),
		errors.Is(err, engine.ErrEngineInit):
		return fmt.Sprintf("data unavailable: %v", err)
	default:
		return err.Error()
	}
}
