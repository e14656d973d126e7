// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package generativemodel answers prompts with a Gemini model served by Vertex AI.
//
// Each call sends a single user message and blocks dangerous content at medium
// probability and above. The answer is returned as the text parts of every
// candidate, in the order the model produced them.
package generativemodel
