// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package search publishes short texts to Vertex AI Vector Search and answers questions
// about them with Gemini.
//
// The flows live in package [github.com/go-a2a/cms-search/pipeline]; the cms-search
// command in cmd/cms-search runs them against a Google Cloud project.
package search

// Version is the version of cms-search.
var Version = "v0.0.0"
