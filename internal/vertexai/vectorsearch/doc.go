// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package vectorsearch provisions Vertex AI Vector Search resources and queries them.
//
// Three remote resources are managed idempotently by display name or id:
//
//   - the index over the records uploaded to Cloud Storage ([Service.EnsureIndex])
//   - the public index endpoint ([Service.EnsureIndexEndpoint])
//   - the deployment of the index on the endpoint ([Service.DeployIndex])
//
// Nearest-neighbor queries go to the endpoint's public domain through the MatchService
// ([Service.FindNeighbors]).
//
// Deployments are keyed by the id returned by [SanitizeDeployedIndexID], both when deploying
// and when querying.
package vectorsearch
