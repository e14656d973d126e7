// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"

	"github.com/go-a2a/cms-search/internal/config"
	"github.com/go-a2a/cms-search/internal/gcs"
	"github.com/go-a2a/cms-search/internal/vertexai/vectorsearch"
	"github.com/go-a2a/cms-search/pkg/logging"
)

// DefaultSentences is the demo corpus published when no sentences are given.
var DefaultSentences = []string{
	"A storm is coming tomorrow.",
	"Klaus is a small man",
	"The cat is on the roof.",
	"The weather is sunny.",
	"All cats likes fish.",
	"Tom is a cat.",
}

// DefaultQuery is the demo question.
const DefaultQuery = "Wer ist Klaus?"

// ContextSeparator joins matched sentences into the prompt context.
const ContextSeparator = "\n"

// Embedder turns sentences into vectors and persists them as records.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, sentences []string) ([][]float32, error)
	WriteToFile(ctx context.Context, path string, embeddings [][]float32, sentences []string) error
	Dimension() int
}

// Storage holds the records file the index is built from.
type Storage interface {
	EnsureBucket(ctx context.Context, name, location, storageClass string) error
	UploadFiles(ctx context.Context, bucket string, paths []string) ([]gcs.UploadResult, error)
}

// VectorSearch provisions the index and answers nearest-neighbor queries.
type VectorSearch interface {
	EnsureIndex(ctx context.Context, name, bucketName string, dimension int) (*aiplatformpb.Index, error)
	EnsureIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error)
	GetIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error)
	DeployIndex(ctx context.Context, deployedName string, index *aiplatformpb.Index, endpoint *aiplatformpb.IndexEndpoint) (publicDomain, deployedID string, err error)
	FindNeighbors(ctx context.Context, endpoint *aiplatformpb.IndexEndpoint, deployedName string, vector []float32, k int) ([]vectorsearch.Neighbor, error)
}

// Generator answers a prompt.
type Generator interface {
	GenerateAnswer(ctx context.Context, prompt string) ([][]string, error)
}

// Pipeline wires the services used by the publish and query flows.
type Pipeline struct {
	cfg       *config.Config
	embedder  Embedder
	storage   Storage
	search    VectorSearch
	generator Generator
	logger    *slog.Logger
}

// Option is a functional option for configuring [Pipeline].
type Option func(*Pipeline)

// WithLogger sets the logger for the [Pipeline].
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New returns a [Pipeline] over the given services.
func New(ctx context.Context, cfg *config.Config, embedder Embedder, storage Storage, search VectorSearch, generator Generator, opts ...Option) (*Pipeline, error) {
	switch {
	case cfg == nil:
		return nil, fmt.Errorf("config is required")
	case embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case storage == nil:
		return nil, fmt.Errorf("storage is required")
	case search == nil:
		return nil, fmt.Errorf("vector search is required")
	case generator == nil:
		return nil, fmt.Errorf("generator is required")
	}

	p := &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		storage:   storage,
		search:    search,
		generator: generator,
		logger:    logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}
