// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-a2a/cms-search/internal/gcs"
)

// PublishResult describes the resources a publish run ended with.
type PublishResult struct {
	Records       int
	IndexName     string
	EndpointName  string
	PublicDomain  string
	DeployedIndex string
	Uploads       []gcs.UploadResult
}

// Publish embeds sentences, uploads them as records and deploys an index over them.
func (p *Pipeline) Publish(ctx context.Context, sentences []string) (*PublishResult, error) {
	cfg := p.cfg

	p.logger.InfoContext(ctx, "Publishing sentences",
		slog.Int("sentences", len(sentences)),
		slog.String("bucket", cfg.BucketName),
		slog.String("index", cfg.IndexName),
	)

	vectors, err := p.embedder.GenerateEmbeddings(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if err := p.embedder.WriteToFile(ctx, cfg.EmbeddingsFile, vectors, sentences); err != nil {
		return nil, fmt.Errorf("failed to write records: %w", err)
	}

	if err := p.storage.EnsureBucket(ctx, cfg.BucketName, cfg.Location, cfg.StorageClass); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}
	uploads, err := p.storage.UploadFiles(ctx, cfg.BucketName, []string{cfg.EmbeddingsFile})
	if err != nil {
		return &PublishResult{Records: len(vectors), Uploads: uploads}, fmt.Errorf("failed to upload records: %w", err)
	}

	index, err := p.search.EnsureIndex(ctx, cfg.IndexName, cfg.BucketName, p.embedder.Dimension())
	if err != nil {
		return nil, fmt.Errorf("failed to ensure index: %w", err)
	}
	endpoint, err := p.search.EnsureIndexEndpoint(ctx, cfg.IndexEndpointName)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure index endpoint: %w", err)
	}
	publicDomain, deployedID, err := p.search.DeployIndex(ctx, cfg.DeployedIndexName, index, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to deploy index: %w", err)
	}

	result := &PublishResult{
		Records:       len(vectors),
		IndexName:     index.GetName(),
		EndpointName:  endpoint.GetName(),
		PublicDomain:  publicDomain,
		DeployedIndex: deployedID,
		Uploads:       uploads,
	}

	p.logger.InfoContext(ctx, "Published index",
		slog.String("index", result.IndexName),
		slog.String("index_endpoint", result.EndpointName),
		slog.String("public_domain", result.PublicDomain),
		slog.String("deployed_index_id", result.DeployedIndex),
	)

	return result, nil
}
