// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package embedding turns sentences into fixed-dimension vectors with a Vertex AI text embedding model.
//
// All sentences of one call are sent as a single batched Predict request to the publisher model
//
//	projects/<project>/locations/<location>/publishers/<publisher>/models/<model>
//
// and the returned vectors are positionally aligned with the input. [Service.WriteToFile] persists
// the vectors as JSON-lines records ready to be uploaded for Vector Search.
package embedding
