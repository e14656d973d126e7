// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the settings shared by every stage of the publish and query flows.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values used when neither the config file nor the environment set a field.
const (
	DefaultLocation          = "europe-west3"
	DefaultPublisher         = "google"
	DefaultBucketName        = "cms-search"
	DefaultStorageClass      = "STANDARD"
	DefaultIndexName         = "cms-search-index"
	DefaultEmbeddingsFile    = "embeddings.json"
	DefaultEmbeddingModel    = "textembedding-gecko@001"
	DefaultDimension         = 768
	DefaultGenerativeModel   = "gemini-1.5-pro-001"
	DefaultNeighborCount     = 3
	DefaultUploadConcurrency = 4

	DefaultEndpointReadyTimeout = 2 * time.Minute
	DefaultEndpointPollInterval = 2 * time.Second
)

// Environment variables that override file values.
const (
	EnvProjectID      = "CMS_SEARCH_PROJECT_ID"
	EnvLocation       = "CMS_SEARCH_LOCATION"
	EnvBucketName     = "CMS_SEARCH_BUCKET"
	EnvEmbeddingsFile = "CMS_SEARCH_EMBEDDINGS_FILE"
	EnvLogLevel       = "CMS_SEARCH_LOG_LEVEL"
	EnvNeighborCount  = "CMS_SEARCH_NEIGHBOR_COUNT"

	// EnvGoogleCloudProject is consulted when no project id is configured anywhere else.
	EnvGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"
)

// Config is the root configuration of cms-search.
type Config struct {
	ProjectID   string `yaml:"project_id"`
	Location    string `yaml:"location"`
	Publisher   string `yaml:"publisher"`
	APIEndpoint string `yaml:"api_endpoint"`

	BucketName   string `yaml:"bucket_name"`
	StorageClass string `yaml:"storage_class"`

	IndexName         string `yaml:"index_name"`
	IndexEndpointName string `yaml:"index_endpoint_name"`
	DeployedIndexName string `yaml:"deployed_index_name"`

	EmbeddingsFile  string `yaml:"embeddings_file"`
	EmbeddingModel  string `yaml:"embedding_model"`
	Dimension       int    `yaml:"dimension"`
	GenerativeModel string `yaml:"generative_model"`

	NeighborCount     int `yaml:"neighbor_count"`
	UploadConcurrency int `yaml:"upload_concurrency"`

	EndpointReadyTimeout time.Duration `yaml:"endpoint_ready_timeout"`
	EndpointPollInterval time.Duration `yaml:"endpoint_poll_interval"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the YAML config at path. A missing file yields the defaults.
//
// Environment overrides are applied after the file, and defaults fill whatever is still empty.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.ProjectID == "":
		return fmt.Errorf("project_id is required (set it in the config file, %s or %s)", EnvProjectID, EnvGoogleCloudProject)
	case c.Location == "":
		return errors.New("location is required")
	case c.BucketName == "":
		return errors.New("bucket_name is required")
	case c.IndexName == "":
		return errors.New("index_name is required")
	case c.Dimension <= 0:
		return fmt.Errorf("dimension must be positive, got %d", c.Dimension)
	case c.NeighborCount <= 0:
		return fmt.Errorf("neighbor_count must be positive, got %d", c.NeighborCount)
	}
	return nil
}

// Parent returns the Vertex AI resource parent "projects/<project>/locations/<location>".
func (c *Config) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", c.ProjectID, c.Location)
}

func applyEnv(cfg *Config) error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&cfg.ProjectID, EnvProjectID)
	setString(&cfg.Location, EnvLocation)
	setString(&cfg.BucketName, EnvBucketName)
	setString(&cfg.EmbeddingsFile, EnvEmbeddingsFile)
	setString(&cfg.LogLevel, EnvLogLevel)

	if cfg.ProjectID == "" {
		setString(&cfg.ProjectID, EnvGoogleCloudProject)
	}

	if v := os.Getenv(EnvNeighborCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvNeighborCount, v, err)
		}
		cfg.NeighborCount = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Location == "" {
		cfg.Location = DefaultLocation
	}
	if cfg.Publisher == "" {
		cfg.Publisher = DefaultPublisher
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = cfg.Location + "-aiplatform.googleapis.com:443"
	}
	if cfg.BucketName == "" {
		cfg.BucketName = DefaultBucketName
	}
	if cfg.StorageClass == "" {
		cfg.StorageClass = DefaultStorageClass
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.IndexEndpointName == "" {
		cfg.IndexEndpointName = cfg.IndexName + "-ep"
	}
	if cfg.DeployedIndexName == "" {
		cfg.DeployedIndexName = "publish-" + cfg.IndexName
	}
	if cfg.EmbeddingsFile == "" {
		cfg.EmbeddingsFile = DefaultEmbeddingsFile
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.GenerativeModel == "" {
		cfg.GenerativeModel = DefaultGenerativeModel
	}
	if cfg.NeighborCount == 0 {
		cfg.NeighborCount = DefaultNeighborCount
	}
	if cfg.UploadConcurrency == 0 {
		cfg.UploadConcurrency = DefaultUploadConcurrency
	}
	if cfg.EndpointReadyTimeout == 0 {
		cfg.EndpointReadyTimeout = DefaultEndpointReadyTimeout
	}
	if cfg.EndpointPollInterval == 0 {
		cfg.EndpointPollInterval = DefaultEndpointPollInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
}
