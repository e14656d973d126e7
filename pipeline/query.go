// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-a2a/cms-search/internal/record"
	"github.com/go-a2a/cms-search/internal/vertexai/vectorsearch"
)

const promptTemplate = "You are an expert question answering system, I'll give you question and context and you'll return the answer. Query : %s Contexts : %s"

// QueryResult is the outcome of a query run.
type QueryResult struct {
	Query       string
	NeighborIDs []string
	Context     string
	Prompt      string
	Answers     [][]string
}

// BuildPrompt places query and context into the question answering template.
func BuildPrompt(query, contexts string) string {
	return fmt.Sprintf(promptTemplate, query, contexts)
}

// Query answers query from the sentences nearest to it in the deployed index.
//
// Neighbor ids that are missing from the local records file are dropped, so an
// empty context is possible and is passed to the model as is.
func (p *Pipeline) Query(ctx context.Context, query string) (*QueryResult, error) {
	cfg := p.cfg

	vectors, err := p.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	endpoint, err := p.search.GetIndexEndpoint(ctx, cfg.IndexEndpointName)
	if err != nil {
		return nil, fmt.Errorf("failed to get index endpoint: %w", err)
	}

	neighbors, err := p.search.FindNeighbors(ctx, endpoint, cfg.DeployedIndexName, vectors[0], cfg.NeighborCount)
	if err != nil {
		return nil, fmt.Errorf("failed to find neighbors: %w", err)
	}
	ids := vectorsearch.NeighborIDs(neighbors)
	p.logger.InfoContext(ctx, "Found nearest neighbors",
		slog.String("query", query),
		slog.Any("ids", ids),
	)

	records, err := record.ReadFile(cfg.EmbeddingsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	contexts := record.JoinSentences(record.Filter(records, ids), ContextSeparator)
	p.logger.DebugContext(ctx, "Built context", slog.String("context", contexts))

	prompt := BuildPrompt(query, contexts)
	answers, err := p.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &QueryResult{
		Query:       query,
		NeighborIDs: ids,
		Context:     contexts,
		Prompt:      prompt,
		Answers:     answers,
	}, nil
}
