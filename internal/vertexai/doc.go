// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package vertexai provides a single [Client] over the Vertex AI services used by cms-search.
//
// The client shares one set of Application Default Credentials and the regional API
// endpoint across its services:
//
//   - [embedding.Service] turns sentences into vectors.
//   - [vectorsearch.Service] provisions the index, index endpoint and deployment, and
//     answers nearest-neighbor queries.
//   - [generativemodel.Service] answers prompts with Gemini.
//
// Example:
//
//	cfg, err := config.Load("cms-search.yaml")
//	if err != nil {
//		return err
//	}
//	client, err := vertexai.NewClient(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	vectors, err := client.Embedding().GenerateEmbeddings(ctx, []string{"Tom is a cat."})
package vertexai
