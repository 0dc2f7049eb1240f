package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config dir.
const FileName = "trainview.cfg.json"

// EnvPrefix prefixes environment overrides, e.g. TRAINVIEW_SNAPSHOT_URL.
const EnvPrefix = "TRAINVIEW"

// ErrNoConfigFile is returned by Load when there is no config file. Defaults
// and environment overrides still apply.
var ErrNoConfigFile = errors.New("no config file found")

// SnapshotConfig holds where the snapshot is fetched from
type SnapshotConfig struct {
	URL     string        `json:"url" mapstructure:"url"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// S3Config holds settings for s3:// snapshot URLs
type S3Config struct {
	Region    string `json:"region" mapstructure:"region"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `json:"pathStyle" mapstructure:"pathStyle"`
}

// BrowseConfig holds settings for the list and browse views
type BrowseConfig struct {
	PageSize      int    `json:"pageSize" mapstructure:"pageSize"`
	SpeedBinWidth int    `json:"speedBinWidth" mapstructure:"speedBinWidth"`
	BlobsURL      string `json:"blobsUrl" mapstructure:"blobsUrl"`
}

// LoggingConfig holds log level and sinks
type LoggingConfig struct {
	Level          string
	LogsDir        string
	GraylogEnabled bool
	GraylogAddress string
}

// OTelConfig holds metrics export settings
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	ExportInterval time.Duration `json:"exportInterval" mapstructure:"exportInterval"`
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "")
	viper.SetDefault("dataDir", "./data")

	viper.SetDefault("snapshot.url", "http://localhost:8080/db.sqlite3")
	viper.SetDefault("snapshot.timeout", "60s")

	viper.SetDefault("blobs.url", "http://localhost:8080/blobs")

	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.endpoint", "")
	viper.SetDefault("s3.pathStyle", false)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("browse.pageSize", 20)
	viper.SetDefault("stats.speedBinWidth", 10)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "trainview")
	viper.SetDefault("otel.exportInterval", "10s")
}

// Load reads configuration and sets default values. path is either the
// directory holding FileName or the config file itself. A .env file next to
// the config is loaded into the environment first.
func Load(path string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	dir := path
	if strings.HasSuffix(path, ".json") {
		dir = filepath.Dir(path)
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(FileName)
		viper.AddConfigPath(path)
	}
	viper.SetConfigType("json")

	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w in %s", ErrNoConfigFile, path)
	}
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// Set overrides a config value, e.g. from a command line flag.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetSnapshotConfig returns the snapshot location settings.
func GetSnapshotConfig() SnapshotConfig {
	return SnapshotConfig{
		URL:     viper.GetString("snapshot.url"),
		Timeout: viper.GetDuration("snapshot.timeout"),
	}
}

// GetS3Config returns the S3 transport settings.
func GetS3Config() S3Config {
	return S3Config{
		Region:    viper.GetString("s3.region"),
		Endpoint:  viper.GetString("s3.endpoint"),
		PathStyle: viper.GetBool("s3.pathStyle"),
	}
}

// GetBrowseConfig returns settings for the list and browse views.
func GetBrowseConfig() BrowseConfig {
	return BrowseConfig{
		PageSize:      viper.GetInt("browse.pageSize"),
		SpeedBinWidth: viper.GetInt("stats.speedBinWidth"),
		BlobsURL:      viper.GetString("blobs.url"),
	}
}

// GetLoggingConfig returns the log level and sinks.
func GetLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:          viper.GetString("logLevel"),
		LogsDir:        viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the metrics export settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		ExportInterval: viper.GetDuration("otel.exportInterval"),
	}
}
