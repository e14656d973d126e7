// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vectorsearch

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
)

// Default tree-AH index parameters.
const (
	DefaultApproximateNeighborsCount = 10
	DefaultDistanceMeasureType       = "DOT_PRODUCT_DISTANCE"
	DefaultLeafNodeEmbeddingCount    = 1000
	DefaultLeafNodesToSearchPercent  = 2
)

// IndexConfig describes how the vectors of an index are organized.
type IndexConfig struct {
	Dimension                 int
	ApproximateNeighborsCount int
	DistanceMeasureType       string
	LeafNodeEmbeddingCount    int
	LeafNodesToSearchPercent  int
}

// DefaultIndexConfig returns the tree-AH configuration for vectors of size dimension.
func DefaultIndexConfig(dimension int) IndexConfig {
	return IndexConfig{
		Dimension:                 dimension,
		ApproximateNeighborsCount: DefaultApproximateNeighborsCount,
		DistanceMeasureType:       DefaultDistanceMeasureType,
		LeafNodeEmbeddingCount:    DefaultLeafNodeEmbeddingCount,
		LeafNodesToSearchPercent:  DefaultLeafNodesToSearchPercent,
	}
}

// ContentsURI returns the Cloud Storage URI Vector Search ingests records from.
func ContentsURI(bucketName string) string {
	return "gs://" + bucketName
}

// IndexMetadata builds the index metadata pointing at bucketName.
func IndexMetadata(bucketName string, cfg IndexConfig) (*structpb.Value, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", cfg.Dimension)
	}

	return structpb.NewValue(map[string]any{
		"contentsDeltaUri": ContentsURI(bucketName),
		"config": map[string]any{
			"dimensions":                cfg.Dimension,
			"approximateNeighborsCount": cfg.ApproximateNeighborsCount,
			"distanceMeasureType":       cfg.DistanceMeasureType,
			"algorithmConfig": map[string]any{
				"treeAhConfig": map[string]any{
					"leafNodeEmbeddingCount":   cfg.LeafNodeEmbeddingCount,
					"leafNodesToSearchPercent": cfg.LeafNodesToSearchPercent,
				},
			},
		},
	})
}

// SanitizeDeployedIndexID derives the deployed index id from its display name.
//
// Deployed index ids may not contain '-', so every '-' becomes '_'.
func SanitizeDeployedIndexID(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
