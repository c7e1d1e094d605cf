// Package config resolves process configuration once at startup. Values are
// layered: defaults, then an optional YAML file, then environment variables.
//
//	TAXONCORE_CONFIG              YAML file path (or --config)
//	TAXONCORE_LINEAGE_DUMP        lineage dump location (fallback TAXA_DUMP)
//	TAXONCORE_MERGED_DUMP         merged dump location (fallback MERGED_DUMP)
//	TAXONCORE_STORAGE_DRIVER      memory|sqlite|postgres (default sqlite)
//	TAXONCORE_SQLITE_PATH         sqlite file (default ./taxoncore.db)
//	TAXONCORE_POSTGRES_DSN        postgres DSN (fallback DATABASE_URL)
//	TAXONCORE_BLOB_DRIVER         fs|s3|memory (default fs)
//	TAXONCORE_BLOB_FS_ROOT        root for the fs driver (default ./dumps)
//	TAXONCORE_BLOB_S3_BUCKET      bucket for the s3 driver
//	TAXONCORE_BLOB_S3_REGION      region (default us-east-1)
//	TAXONCORE_BLOB_S3_ENDPOINT    custom endpoint, e.g. MinIO
//	TAXONCORE_BLOB_S3_PATH_STYLE  true|false
//	TAXONCORE_LOG_LEVEL           debug|info|warn|error (default info)
//	TAXONCORE_LOG_FORMAT          text|json (default text)
//	TAXONCORE_PROGRESS_INTERVAL   lines between population progress logs
//	TAXONCORE_METRICS_ADDR        listen address for /metrics, empty disables
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"taxoncore/internal/blob"
	"taxoncore/internal/taxonomy"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the resolved process configuration.
type Config struct {
	LineageDump      string `yaml:"lineage_dump"`
	MergedDump       string `yaml:"merged_dump"`
	ProgressInterval int    `yaml:"progress_interval"`

	Storage StorageConfig `yaml:"storage"`
	Blob    BlobConfig    `yaml:"blob"`
	Log     LogConfig     `yaml:"log"`

	MetricsAddr string `yaml:"metrics_addr"`
}

// StorageConfig selects the taxon store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects where staged dumps live.
type BlobConfig struct {
	Driver    string `yaml:"driver"`
	FSRoot    string `yaml:"fs_root"`
	Bucket    string `yaml:"s3_bucket"`
	Region    string `yaml:"s3_region"`
	Endpoint  string `yaml:"s3_endpoint"`
	PathStyle bool   `yaml:"s3_path_style"`
}

// S3 returns the S3 settings shared by the s3 blob driver and s3:// dump locations.
func (b BlobConfig) S3() blob.S3Config {
	return blob.S3Config{Bucket: b.Bucket, Region: b.Region, Endpoint: b.Endpoint, PathStyle: b.PathStyle}
}

// Store returns the blob.Open configuration.
func (b BlobConfig) Store() blob.Config {
	return blob.Config{Driver: blob.Driver(b.Driver), FSRoot: b.FSRoot, S3: b.S3()}
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ProgressInterval: taxonomy.DefaultProgressInterval,
		Storage:          StorageConfig{Driver: StorageSQLite, SQLitePath: "taxoncore.db"},
		Blob:             BlobConfig{Driver: "fs", FSRoot: "./dumps"},
		Log:              LogConfig{Level: "info", Format: "text"},
	}
}

// Load resolves configuration from path (may be empty) and the process
// environment. It does not validate; call Validate before use.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path == "" {
		path, _ = lookup("TAXONCORE_CONFIG")
	}
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	// #nosec G304 -- config path is operator supplied
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s: %w", path, err)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&cfg.LineageDump, "TAXONCORE_LINEAGE_DUMP", "TAXA_DUMP")
	str(&cfg.MergedDump, "TAXONCORE_MERGED_DUMP", "MERGED_DUMP")
	str(&cfg.Storage.Driver, "TAXONCORE_STORAGE_DRIVER")
	str(&cfg.Storage.SQLitePath, "TAXONCORE_SQLITE_PATH")
	str(&cfg.Storage.PostgresDSN, "TAXONCORE_POSTGRES_DSN", "DATABASE_URL")
	str(&cfg.Blob.Driver, "TAXONCORE_BLOB_DRIVER")
	str(&cfg.Blob.FSRoot, "TAXONCORE_BLOB_FS_ROOT")
	str(&cfg.Blob.Bucket, "TAXONCORE_BLOB_S3_BUCKET")
	str(&cfg.Blob.Region, "TAXONCORE_BLOB_S3_REGION")
	str(&cfg.Blob.Endpoint, "TAXONCORE_BLOB_S3_ENDPOINT")
	str(&cfg.Log.Level, "TAXONCORE_LOG_LEVEL")
	str(&cfg.Log.Format, "TAXONCORE_LOG_FORMAT")
	str(&cfg.MetricsAddr, "TAXONCORE_METRICS_ADDR")

	if v, ok := lookup("TAXONCORE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TAXONCORE_BLOB_S3_PATH_STYLE: %w", err)
		}
		cfg.Blob.PathStyle = b
	}
	if v, ok := lookup("TAXONCORE_PROGRESS_INTERVAL"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TAXONCORE_PROGRESS_INTERVAL: %w", err)
		}
		cfg.ProgressInterval = n
	}
	return nil
}

// Validate checks required values. Missing dump locations are reported as
// *taxonomy.MissingConfigurationError.
func (c Config) Validate() error {
	if err := c.ValidateDumps(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return &taxonomy.MissingConfigurationError{Key: "TAXONCORE_POSTGRES_DSN"}
		}
	default:
		return fmt.Errorf("unknown storage driver %s", c.Storage.Driver)
	}
	return nil
}

// ValidateDumps checks only the dump locations, which is all a lookup needs.
func (c Config) ValidateDumps() error {
	if strings.TrimSpace(c.LineageDump) == "" {
		return &taxonomy.MissingConfigurationError{Key: "TAXONCORE_LINEAGE_DUMP"}
	}
	if strings.TrimSpace(c.MergedDump) == "" {
		return &taxonomy.MissingConfigurationError{Key: "TAXONCORE_MERGED_DUMP"}
	}
	return nil
}
