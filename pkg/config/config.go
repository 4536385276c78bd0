// Package config handles configuration loading and validation for bucketfs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Blob drivers.
const (
	DriverDisk   = "disk"
	DriverRemote = "remote"
)

// DatabaseConfig holds the metadata database location.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: <data_dir>/bucketfs.db
}

// RemoteBlobConfig configures the HTTP blob driver.
type RemoteBlobConfig struct {
	Endpoint     string `yaml:"endpoint"`
	RetryMax     int    `yaml:"retry_max"`
	RetryWaitMin string `yaml:"retry_wait_min"` // Duration string, e.g. "100ms"
	RetryWaitMax string `yaml:"retry_wait_max"`
	Timeout      string `yaml:"timeout"`

	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
}

// BlobConfig selects and configures the blob store.
type BlobConfig struct {
	Driver        string           `yaml:"driver"` // disk or remote
	Dir           string           `yaml:"dir"`    // default: <data_dir>/blobs
	PublicBaseURL string           `yaml:"public_base_url"`
	Remote        RemoteBlobConfig `yaml:"remote"`
}

// FoldersConfig holds folder creation policy.
type FoldersConfig struct {
	AutoCreateParents bool `yaml:"auto_create_parents"`
}

// UploadsConfig holds upload policy.
type UploadsConfig struct {
	AutoCreateFolders  bool   `yaml:"auto_create_folders"`
	DefaultMaxFileSize string `yaml:"default_max_file_size"` // Size string, e.g. "50MB"

	defaultMaxFileSize int64
}

// TreeConfig bounds tree materialization.
type TreeConfig struct {
	MaxEntries int `yaml:"max_entries"`
	CacheSize  int `yaml:"cache_size"`
}

// PurgeConfig sizes the blob purge worker pool.
type PurgeConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config is the full service configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	DataDir  string         `yaml:"data_dir"`
	Database DatabaseConfig `yaml:"database"`
	Blob     BlobConfig     `yaml:"blob"`
	Folders  FoldersConfig  `yaml:"folders"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Tree     TreeConfig     `yaml:"tree"`
	Purge    PurgeConfig    `yaml:"purge"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Load reads a YAML file and applies defaults. Call Validate before use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	c.DataDir = expandHome(c.DataDir)

	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "bucketfs.db")
	}
	c.Database.Path = expandHome(c.Database.Path)

	if c.Blob.Driver == "" {
		c.Blob.Driver = DriverDisk
	}
	if c.Blob.Dir == "" {
		c.Blob.Dir = filepath.Join(c.DataDir, "blobs")
	}
	c.Blob.Dir = expandHome(c.Blob.Dir)
	if c.Blob.Remote.RetryMax == 0 {
		c.Blob.Remote.RetryMax = 3
	}
	if c.Blob.Remote.RetryWaitMin == "" {
		c.Blob.Remote.RetryWaitMin = "100ms"
	}
	if c.Blob.Remote.RetryWaitMax == "" {
		c.Blob.Remote.RetryWaitMax = "2s"
	}
	if c.Blob.Remote.Timeout == "" {
		c.Blob.Remote.Timeout = "60s"
	}

	if c.Uploads.DefaultMaxFileSize == "" {
		c.Uploads.DefaultMaxFileSize = "50MiB"
	}
	if c.Tree.MaxEntries == 0 {
		c.Tree.MaxEntries = 5000
	}
	if c.Tree.CacheSize == 0 {
		c.Tree.CacheSize = 128
	}
	if c.Purge.Workers == 0 {
		c.Purge.Workers = 4
	}
	if c.Purge.QueueSize == 0 {
		c.Purge.QueueSize = 1024
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks the configuration and resolves duration and size strings.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	switch c.Blob.Driver {
	case DriverDisk:
		if c.Blob.Dir == "" {
			return errors.New("blob.dir is required for the disk driver")
		}
	case DriverRemote:
		if c.Blob.Remote.Endpoint == "" {
			return errors.New("blob.remote.endpoint is required for the remote driver")
		}
	default:
		return fmt.Errorf("unknown blob.driver %q", c.Blob.Driver)
	}

	var err error
	if c.Blob.Remote.retryWaitMin, err = parseDuration("blob.remote.retry_wait_min", c.Blob.Remote.RetryWaitMin); err != nil {
		return err
	}
	if c.Blob.Remote.retryWaitMax, err = parseDuration("blob.remote.retry_wait_max", c.Blob.Remote.RetryWaitMax); err != nil {
		return err
	}
	if c.Blob.Remote.retryWaitMin > c.Blob.Remote.retryWaitMax {
		return errors.New("blob.remote.retry_wait_min must not exceed retry_wait_max")
	}
	if c.Blob.Remote.timeout, err = parseDuration("blob.remote.timeout", c.Blob.Remote.Timeout); err != nil {
		return err
	}
	if c.Blob.Remote.RetryMax < 0 {
		return errors.New("blob.remote.retry_max must not be negative")
	}

	size, err := humanize.ParseBytes(c.Uploads.DefaultMaxFileSize)
	if err != nil {
		return fmt.Errorf("invalid uploads.default_max_file_size: %w", err)
	}
	if size == 0 || size > 1<<62 {
		return fmt.Errorf("uploads.default_max_file_size out of range: %s", c.Uploads.DefaultMaxFileSize)
	}
	c.Uploads.defaultMaxFileSize = int64(size)

	if c.Tree.MaxEntries < 0 {
		return errors.New("tree.max_entries must not be negative")
	}
	if c.Tree.CacheSize < 0 {
		return errors.New("tree.cache_size must not be negative")
	}
	if c.Purge.Workers < 1 {
		return errors.New("purge.workers must be at least 1")
	}
	if c.Purge.QueueSize < 1 {
		return errors.New("purge.queue_size must be at least 1")
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// DefaultMaxFileSizeBytes is the resolved upload limit for buckets created without one.
func (u UploadsConfig) DefaultMaxFileSizeBytes() int64 {
	return u.defaultMaxFileSize
}

// RetryWaitMinDuration returns the resolved minimum retry wait.
func (r RemoteBlobConfig) RetryWaitMinDuration() time.Duration {
	return r.retryWaitMin
}

// RetryWaitMaxDuration returns the resolved maximum retry wait.
func (r RemoteBlobConfig) RetryWaitMaxDuration() time.Duration {
	return r.retryWaitMax
}

// TimeoutDuration returns the resolved per-request timeout.
func (r RemoteBlobConfig) TimeoutDuration() time.Duration {
	return r.timeout
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
