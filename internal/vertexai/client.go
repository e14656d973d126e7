// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vertexai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"google.golang.org/api/option"

	"github.com/go-a2a/cms-search/internal/config"
	"github.com/go-a2a/cms-search/internal/vertexai/embedding"
	"github.com/go-a2a/cms-search/internal/vertexai/generativemodel"
	"github.com/go-a2a/cms-search/internal/vertexai/vectorsearch"
	"github.com/go-a2a/cms-search/pkg/logging"
)

const scopeCloudPlatform = "https://www.googleapis.com/auth/cloud-platform"

// Client provides unified access to the embedding, vector search and generative model services.
type Client struct {
	cfg    *config.Config
	logger *slog.Logger
	creds  *auth.Credentials

	indexResync bool

	embeddingOpts    []embedding.Option
	vectorSearchOpts []vectorsearch.Option
	generativeOpts   []generativemodel.Option

	embeddingService    *embedding.Service
	vectorSearchService *vectorsearch.Service
	generativeService   *generativemodel.Service
}

// ClientOption is a functional option for configuring the [Client].
type ClientOption func(*Client)

// WithLogger sets a custom logger for the client and its services.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCredentials uses creds instead of detecting Application Default Credentials.
func WithCredentials(creds *auth.Credentials) ClientOption {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithIndexResync makes [vectorsearch.Service.EnsureIndex] resubmit the metadata of an existing index.
func WithIndexResync(resync bool) ClientOption {
	return func(c *Client) {
		c.indexResync = resync
	}
}

// WithEmbeddingOptions appends options for the embedding service.
func WithEmbeddingOptions(opts ...embedding.Option) ClientOption {
	return func(c *Client) {
		c.embeddingOpts = append(c.embeddingOpts, opts...)
	}
}

// WithVectorSearchOptions appends options for the vector search service.
func WithVectorSearchOptions(opts ...vectorsearch.Option) ClientOption {
	return func(c *Client) {
		c.vectorSearchOpts = append(c.vectorSearchOpts, opts...)
	}
}

// WithGenerativeModelOptions appends options for the generative model service.
func WithGenerativeModelOptions(opts ...generativemodel.Option) ClientOption {
	return func(c *Client) {
		c.generativeOpts = append(c.generativeOpts, opts...)
	}
}

// NewClient validates cfg and creates every Vertex AI service it describes.
//
// Services created before a failure are closed again before the error is returned.
func NewClient(ctx context.Context, cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		logger: logging.FromContext(ctx),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.creds == nil {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{scopeCloudPlatform},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to detect credentials: %w", err)
		}
		c.creds = creds
	}

	clientOpts := []option.ClientOption{
		option.WithAuthCredentials(c.creds),
		option.WithEndpoint(cfg.APIEndpoint),
	}

	embeddingService, err := embedding.NewService(ctx, cfg.ProjectID, cfg.Location,
		append([]embedding.Option{
			embedding.WithLogger(c.logger),
			embedding.WithModel(cfg.Publisher, cfg.EmbeddingModel),
			embedding.WithDimension(cfg.Dimension),
			embedding.WithClientOptions(clientOpts...),
		}, c.embeddingOpts...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding service: %w", err)
	}
	c.embeddingService = embeddingService

	vectorSearchService, err := vectorsearch.NewService(ctx, cfg.ProjectID, cfg.Location,
		append([]vectorsearch.Option{
			vectorsearch.WithLogger(c.logger),
			vectorsearch.WithClientOptions(clientOpts...),
			vectorsearch.WithReadiness(cfg.EndpointReadyTimeout, cfg.EndpointPollInterval),
			vectorsearch.WithIndexResync(c.indexResync),
		}, c.vectorSearchOpts...)...,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector search service: %w", err)
	}
	c.vectorSearchService = vectorSearchService

	generativeService, err := generativemodel.NewService(ctx, cfg.ProjectID, cfg.Location,
		append([]generativemodel.Option{
			generativemodel.WithLogger(c.logger),
			generativemodel.WithModel(cfg.GenerativeModel),
		}, c.generativeOpts...)...,
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generative model service: %w", err)
	}
	c.generativeService = generativeService

	c.logger.InfoContext(ctx, "Vertex AI client initialized successfully",
		slog.String("project_id", cfg.ProjectID),
		slog.String("location", cfg.Location),
		slog.String("api_endpoint", cfg.APIEndpoint),
	)

	return c, nil
}

// Close closes every service and releases their connections.
func (c *Client) Close() error {
	var errs []error
	if c.embeddingService != nil {
		if err := c.embeddingService.Close(); err != nil {
			c.logger.Error("Failed to close embedding service", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if c.vectorSearchService != nil {
		if err := c.vectorSearchService.Close(); err != nil {
			c.logger.Error("Failed to close vector search service", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Embedding returns the embedding service.
func (c *Client) Embedding() *embedding.Service {
	return c.embeddingService
}

// VectorSearch returns the vector search service.
func (c *Client) VectorSearch() *vectorsearch.Service {
	return c.vectorSearchService
}

// GenerativeModel returns the generative model service.
func (c *Client) GenerativeModel() *generativemodel.Service {
	return c.generativeService
}

// Config returns the configuration the client was built from.
func (c *Client) Config() *config.Config {
	return c.cfg
}
