// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvProjectID, EnvLocation, EnvBucketName, EnvEmbeddingsFile,
		EnvLogLevel, EnvNeighborCount, EnvGoogleCloudProject,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := &Config{
		Location:             "europe-west3",
		Publisher:            "google",
		APIEndpoint:          "europe-west3-aiplatform.googleapis.com:443",
		BucketName:           "cms-search",
		StorageClass:         "STANDARD",
		IndexName:            "cms-search-index",
		IndexEndpointName:    "cms-search-index-ep",
		DeployedIndexName:    "publish-cms-search-index",
		EmbeddingsFile:       "embeddings.json",
		EmbeddingModel:       "textembedding-gecko@001",
		Dimension:            768,
		GenerativeModel:      "gemini-1.5-pro-001",
		NeighborCount:        3,
		UploadConcurrency:    4,
		EndpointReadyTimeout: 2 * time.Minute,
		EndpointPollInterval: 2 * time.Second,
		LogLevel:             "info",
		LogFormat:            "text",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
project_id: file-project
location: us-central1
index_name: docs
endpoint_ready_timeout: 30s
neighbor_count: 5
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvBucketName, "env-bucket")
	t.Setenv(EnvNeighborCount, "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "project", got: cfg.ProjectID, want: "file-project"},
		{name: "location", got: cfg.Location, want: "us-central1"},
		{name: "api endpoint", got: cfg.APIEndpoint, want: "us-central1-aiplatform.googleapis.com:443"},
		{name: "bucket from env", got: cfg.BucketName, want: "env-bucket"},
		{name: "endpoint derived from index", got: cfg.IndexEndpointName, want: "docs-ep"},
		{name: "deployed index derived from index", got: cfg.DeployedIndexName, want: "publish-docs"},
		{name: "timeout", got: cfg.EndpointReadyTimeout, want: 30 * time.Second},
		{name: "neighbor count from env", got: cfg.NeighborCount, want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoad_GoogleCloudProjectFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGoogleCloudProject, "adc-project")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProjectID != "adc-project" {
		t.Errorf("ProjectID = %q, want %q", cfg.ProjectID, "adc-project")
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dimension: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() with malformed YAML: want error")
	}

	t.Setenv(EnvNeighborCount, "many")
	if _, err := Load(""); err == nil {
		t.Error("Load() with non-numeric neighbor count: want error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing project", mutate: func(c *Config) { c.ProjectID = "" }, wantErr: true},
		{name: "missing location", mutate: func(c *Config) { c.Location = "" }, wantErr: true},
		{name: "zero dimension", mutate: func(c *Config) { c.Dimension = 0 }, wantErr: true},
		{name: "negative neighbors", mutate: func(c *Config) { c.NeighborCount = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ProjectID = "p"
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Parent(t *testing.T) {
	cfg := Default()
	cfg.ProjectID = "my-project"
	if got, want := cfg.Parent(), "projects/my-project/locations/europe-west3"; got != want {
		t.Errorf("Parent() = %q, want %q", got, want)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.ProjectID = "saved"
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(EnvProjectID+"=dotenv-project\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv.Load does not override variables that are already set, even when empty.
	os.Unsetenv(EnvProjectID)

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(EnvProjectID); got != "dotenv-project" {
		t.Errorf("%s = %q, want %q", EnvProjectID, got, "dotenv-project")
	}
}
