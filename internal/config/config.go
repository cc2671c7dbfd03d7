// Package config loads runtime configuration from YAML or TOML files with
// REACTIVEGRAPH_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel         = "REACTIVEGRAPH_LOG_LEVEL"
	EnvLogFormat        = "REACTIVEGRAPH_LOG_FORMAT"
	EnvPropagationLimit = "REACTIVEGRAPH_PROPAGATION_LIMIT"
	EnvStorageDriver    = "REACTIVEGRAPH_STORAGE_DRIVER"
	EnvSQLitePath       = "REACTIVEGRAPH_SQLITE_PATH"
	EnvPostgresDSN      = "REACTIVEGRAPH_POSTGRES_DSN"
	EnvBlobDriver       = "REACTIVEGRAPH_BLOB_DRIVER"
	EnvBlobFSRoot       = "REACTIVEGRAPH_BLOB_FS_ROOT"
	EnvBlobS3Bucket     = "REACTIVEGRAPH_BLOB_S3_BUCKET"
	EnvBlobS3Region     = "REACTIVEGRAPH_BLOB_S3_REGION"
	EnvBlobS3Endpoint   = "REACTIVEGRAPH_BLOB_S3_ENDPOINT"
	EnvBlobS3PathStyle  = "REACTIVEGRAPH_BLOB_S3_PATH_STYLE"
	EnvMetricsEnabled   = "REACTIVEGRAPH_METRICS_ENABLED"
)

// Config is the runtime configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" toml:"log"`
	Propagation PropagationConfig `yaml:"propagation" toml:"propagation"`
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Blob        BlobConfig        `yaml:"blob" toml:"blob"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // text or json
}

// PropagationConfig bounds nested observer dispatch. 0 means unlimited.
type PropagationConfig struct {
	Limit int `yaml:"limit" toml:"limit"`
}

// StorageConfig selects the snapshot store.
type StorageConfig struct {
	Driver      string `yaml:"driver" toml:"driver"` // none, memory, sqlite, postgres
	SQLitePath  string `yaml:"sqlite_path" toml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn" toml:"postgres_dsn"`
}

// BlobConfig selects the archive store used by snapshot export.
type BlobConfig struct {
	Driver string   `yaml:"driver" toml:"driver"` // none, memory, fs, s3
	FSRoot string   `yaml:"fs_root" toml:"fs_root"`
	S3     S3Config `yaml:"s3" toml:"s3"`
}

// S3Config configures the S3 blob driver.
type S3Config struct {
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Region    string `yaml:"region" toml:"region"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	PathStyle bool   `yaml:"path_style" toml:"path_style"`
}

// MetricsConfig toggles the Prometheus recorder.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// Driver names.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFS       = "fs"
	DriverS3       = "s3"
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Driver: DriverNone, SQLitePath: "reactivegraph.db"},
		Blob:    BlobConfig{Driver: DriverNone, FSRoot: "./blobdata", S3: S3Config{Region: "us-east-1"}},
		Metrics: MetricsConfig{Namespace: "reactivegraph"},
	}
}

// Load reads path over the defaults, picking the decoder by extension, then
// applies environment overrides and validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
		return nil
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("load config %s: unsupported extension", path)
	}
}

// ApplyEnv overlays REACTIVEGRAPH_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.Log.Level, EnvLogLevel)
	setString(&cfg.Log.Format, EnvLogFormat)
	setString(&cfg.Storage.Driver, EnvStorageDriver)
	setString(&cfg.Storage.SQLitePath, EnvSQLitePath)
	setString(&cfg.Storage.PostgresDSN, EnvPostgresDSN)
	setString(&cfg.Blob.Driver, EnvBlobDriver)
	setString(&cfg.Blob.FSRoot, EnvBlobFSRoot)
	setString(&cfg.Blob.S3.Bucket, EnvBlobS3Bucket)
	setString(&cfg.Blob.S3.Region, EnvBlobS3Region)
	setString(&cfg.Blob.S3.Endpoint, EnvBlobS3Endpoint)
	if raw := strings.TrimSpace(os.Getenv(EnvPropagationLimit)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPropagationLimit, err)
		}
		cfg.Propagation.Limit = n
	}
	if err := setBool(&cfg.Blob.S3.PathStyle, EnvBlobS3PathStyle); err != nil {
		return err
	}
	return setBool(&cfg.Metrics.Enabled, EnvMetricsEnabled)
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, env string) error {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", env, err)
	}
	*dst = v
	return nil
}

// Validate checks enumerations and required fields.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if c.Propagation.Limit < 0 {
		errs = append(errs, fmt.Errorf("propagation.limit must be >= 0"))
	}
	switch c.Storage.Driver {
	case "", DriverNone, DriverMemory, DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q unknown", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "", DriverNone, DriverMemory, DriverFS:
	case DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, fmt.Errorf("blob.s3.bucket required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q unknown", c.Blob.Driver))
	}
	return errors.Join(errs...)
}
