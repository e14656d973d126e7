// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision implements idempotent create-or-find of remote resources keyed by name.
//
// Every remote resource the publish flow stands up (bucket, index, index endpoint, deployed
// index) goes through [Ensure]: list, look the name up, create when absent and optionally
// reconcile when present.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-a2a/cms-search/pkg/logging"
)

// State is the observed state of a resource before [Ensure] acted on it.
type State int

const (
	// Absent means no resource with the requested name existed and one was created.
	Absent State = iota
	// Present means a resource with the requested name already existed.
	Present
)

// String implements [fmt.Stringer].
func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNotFound is returned by [Find] when no resource carries the requested name.
var ErrNotFound = errors.New("resource not found")

// Kind describes how to list, identify, create and reconcile one kind of resource.
type Kind[T any] struct {
	// Name is the resource kind used in logs and errors, e.g. "index endpoint".
	Name string

	// List returns every resource of this kind in scope.
	List func(ctx context.Context) ([]T, error)

	// Key returns the name a resource is matched by.
	Key func(T) string

	// Create creates the resource and blocks until it is usable.
	Create func(ctx context.Context) (T, error)

	// Reconcile is called with the existing resource when it is Present. Optional.
	Reconcile func(ctx context.Context, existing T) (T, error)
}

// Find lists resources of kind k and returns the first whose key equals name.
func Find[T any](ctx context.Context, k Kind[T], name string) (T, error) {
	var zero T

	items, err := k.List(ctx)
	if err != nil {
		return zero, fmt.Errorf("failed to list %ss: %w", k.Name, err)
	}
	for _, item := range items {
		if k.Key(item) == name {
			return item, nil
		}
	}
	return zero, fmt.Errorf("%s %q: %w", k.Name, name, ErrNotFound)
}

// Ensure returns the resource of kind k named name, creating it when absent.
//
// The returned [State] is the state observed before any create.
func Ensure[T any](ctx context.Context, k Kind[T], name string) (T, State, error) {
	logger := logging.FromContext(ctx)

	existing, err := Find(ctx, k, name)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Found existing "+k.Name, slog.String("name", name))
		if k.Reconcile == nil {
			return existing, Present, nil
		}
		reconciled, err := k.Reconcile(ctx, existing)
		if err != nil {
			return existing, Present, fmt.Errorf("failed to reconcile %s %q: %w", k.Name, name, err)
		}
		return reconciled, Present, nil

	case errors.Is(err, ErrNotFound):
		logger.InfoContext(ctx, "Creating new "+k.Name, slog.String("name", name))
		created, err := k.Create(ctx)
		if err != nil {
			var zero T
			return zero, Absent, fmt.Errorf("failed to create %s %q: %w", k.Name, name, err)
		}
		logger.InfoContext(ctx, "Created "+k.Name, slog.String("name", name))
		return created, Absent, nil

	default:
		var zero T
		return zero, Absent, err
	}
}
