// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package pool

import (
	"strings"
	"sync"
)

// Pool is a generics wrapper around [sync.Pool] to provide strongly-typed object pooling.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New returns a new [Pool] for T, and will use fn to construct new T's when the pool is empty.
//
// reset, if non-nil, is called by [Pool.Release] before the value goes back into the pool.
func New[T any](fn func() T, reset func(T)) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return fn()
			},
		},
		reset: reset,
	}
}

// Get gets a T from the pool, or creates a new one if the pool is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns x into the pool as is.
func (p *Pool[T]) Put(x T) {
	p.pool.Put(x)
}

// Release resets x and returns it into the pool.
func (p *Pool[T]) Release(x T) {
	if p.reset != nil {
		p.reset(x)
	}
	p.pool.Put(x)
}

// String provides the [*strings.Builder] pooling objects.
var String = New(
	func() *strings.Builder { return &strings.Builder{} },
	func(sb *strings.Builder) { sb.Reset() },
)
