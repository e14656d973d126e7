// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs the two cms-search flows.
//
// [Pipeline.Publish] embeds sentences, stores them as JSON-lines records, uploads the
// records to Cloud Storage and makes sure a Vector Search index over that bucket is
// deployed to a public endpoint. [Pipeline.Query] embeds a question, looks up the
// nearest records on that endpoint and asks a generative model to answer the question
// from the matched sentences.
//
// Every step waits for the previous one. The first failing remote call ends the flow.
package pipeline
