// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides strongly-typed object pooling on top of [sync.Pool].
//
// The query flow builds its context string and prompt with builders taken from [String]:
//
//	sb := pool.String.Get()
//	defer pool.String.Release(sb)
package pool
