// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging provides context-based structured logging utilities using Go's standard slog package.
//
// A logger is built once from configuration and stored in the [context.Context] handed to every
// pipeline stage:
//
//	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
//	ctx = logging.NewContext(ctx, logger)
//
// Services created with that context pick the logger up through [FromContext]:
//
//	logger := logging.FromContext(ctx)
//	logger.InfoContext(ctx, "Index deployed", slog.String("deployed_index_id", id))
//
// When no logger is stored, [FromContext] returns a JSON logger writing to stdout at INFO level.
package logging
