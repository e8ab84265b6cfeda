// Package config loads the reader configuration from YAML with environment
// overrides and builds the program logger.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yuanying/epubreader/internal/bookcontent"
	"github.com/yuanying/epubreader/internal/epub"
)

// DefaultBlobThreshold is the largest payload kept inline in the database.
const DefaultBlobThreshold = 2 << 20

const envPrefix = "ERD_"

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Reader  ReaderConfig  `yaml:"reader"`
	Context ContextConfig `yaml:"context"`
}

type StorageConfig struct {
	Database      string     `yaml:"database"`
	BlobThreshold int        `yaml:"blob_threshold"`
	Blob          BlobConfig `yaml:"blob"`
}

type BlobConfig struct {
	Adapter string      `yaml:"adapter"` // local or s3
	Local   LocalConfig `yaml:"local"`
	S3      S3Config    `yaml:"s3"`
}

type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

type S3Config struct {
	Endpoint        string `yaml:"endpoint,omitempty"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	UseSSL          bool   `yaml:"use_ssl"`
}

type ReaderConfig struct {
	ImageMode string        `yaml:"image_mode"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	Prefetch  int           `yaml:"prefetch"`
}

type ContextConfig struct {
	MaxContextLength int `yaml:"max_context_length"`
	Radius           int `yaml:"radius"`
	NeighbourChars   int `yaml:"neighbour_chars"`
}

// Default returns a configuration that keeps everything under dir.
func Default(dir string) *Config {
	return &Config{
		Log: LogConfig{Level: "normal", Mode: "append"},
		Storage: StorageConfig{
			Database:      filepath.Join(dir, "reader.db"),
			BlobThreshold: DefaultBlobThreshold,
			Blob: BlobConfig{
				Adapter: "local",
				Local:   LocalConfig{BasePath: filepath.Join(dir, "blobs")},
			},
		},
		Reader: ReaderConfig{
			ImageMode: epub.ImagesKeep.String(),
			CacheTTL:  30 * time.Minute,
			Prefetch:  1,
		},
		Context: ContextConfig{
			MaxContextLength: bookcontent.DefaultMaxContextLength,
			Radius:           bookcontent.DefaultRadius,
			NeighbourChars:   bookcontent.DefaultNeighbourChars,
		},
	}
}

// Load reads the configuration file over the defaults for dir. An empty path
// skips the file. Environment variables prefixed with ERD_ override both.
func Load(path, dir string) (*Config, error) {
	cfg := Default(dir)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills zero values with defaults.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "none", "normal", "debug":
	default:
		return fmt.Errorf("invalid log level: %q (must be none, normal or debug)", c.Log.Level)
	}
	switch c.Log.Mode {
	case "", "append", "overwrite":
	default:
		return fmt.Errorf("invalid log mode: %q (must be append or overwrite)", c.Log.Mode)
	}

	if c.Storage.Database == "" {
		return fmt.Errorf("storage database is required")
	}
	if c.Storage.BlobThreshold <= 0 {
		c.Storage.BlobThreshold = DefaultBlobThreshold
	}

	switch c.Storage.Blob.Adapter {
	case "local":
		if c.Storage.Blob.Local.BasePath == "" {
			return fmt.Errorf("local blob base_path is required")
		}
	case "s3":
		if c.Storage.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if c.Storage.Blob.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	default:
		return fmt.Errorf("invalid blob adapter: %q (must be 'local' or 's3')", c.Storage.Blob.Adapter)
	}

	if _, err := epub.ParseImageMode(c.Reader.ImageMode); err != nil {
		return err
	}
	if c.Reader.CacheTTL < 0 {
		return fmt.Errorf("invalid cache_ttl: %s", c.Reader.CacheTTL)
	}
	return nil
}

// ContextOptions converts the context section for bookcontent.BuildContext.
func (c *Config) ContextOptions(current int, fullText bool) bookcontent.Options {
	return bookcontent.Options{
		CurrentChapter:   current,
		IncludeFullText:  fullText,
		MaxContextLength: c.Context.MaxContextLength,
		Radius:           c.Context.Radius,
		NeighbourChars:   c.Context.NeighbourChars,
	}
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"LOG_LEVEL":                    &cfg.Log.Level,
		"LOG_DESTINATION":              &cfg.Log.Destination,
		"STORAGE_DATABASE":             &cfg.Storage.Database,
		"STORAGE_BLOB_ADAPTER":         &cfg.Storage.Blob.Adapter,
		"STORAGE_LOCAL_BASE_PATH":      &cfg.Storage.Blob.Local.BasePath,
		"STORAGE_S3_ENDPOINT":          &cfg.Storage.Blob.S3.Endpoint,
		"STORAGE_S3_REGION":            &cfg.Storage.Blob.S3.Region,
		"STORAGE_S3_BUCKET":            &cfg.Storage.Blob.S3.Bucket,
		"STORAGE_S3_ACCESS_KEY_ID":     &cfg.Storage.Blob.S3.AccessKeyID,
		"STORAGE_S3_SECRET_ACCESS_KEY": &cfg.Storage.Blob.S3.SecretAccessKey,
		"READER_IMAGE_MODE":            &cfg.Reader.ImageMode,
	}
	for name, dst := range strs {
		if val := os.Getenv(envPrefix + name); val != "" {
			*dst = val
		}
	}

	ints := map[string]*int{
		"STORAGE_BLOB_THRESHOLD":     &cfg.Storage.BlobThreshold,
		"READER_PREFETCH":            &cfg.Reader.Prefetch,
		"CONTEXT_MAX_CONTEXT_LENGTH": &cfg.Context.MaxContextLength,
		"CONTEXT_RADIUS":             &cfg.Context.Radius,
		"CONTEXT_NEIGHBOUR_CHARS":    &cfg.Context.NeighbourChars,
	}
	for name, dst := range ints {
		val := os.Getenv(envPrefix + name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if val := os.Getenv(envPrefix + "STORAGE_S3_USE_SSL"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %sSTORAGE_S3_USE_SSL: %w", envPrefix, err)
		}
		cfg.Storage.Blob.S3.UseSSL = b
	}
	if val := os.Getenv(envPrefix + "READER_CACHE_TTL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %sREADER_CACHE_TTL: %w", envPrefix, err)
		}
		cfg.Reader.CacheTTL = d
	}
	return nil
}
