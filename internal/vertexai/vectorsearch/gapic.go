// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vectorsearch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
)

// IndexAPI is the subset of the Vertex AI IndexService used by [Service].
//
// Create and update block until the long-running operation completes.
type IndexAPI interface {
	ListIndexes(ctx context.Context, parent string) ([]*aiplatformpb.Index, error)
	CreateIndex(ctx context.Context, parent string, index *aiplatformpb.Index) (*aiplatformpb.Index, error)
	UpdateIndex(ctx context.Context, index *aiplatformpb.Index) (*aiplatformpb.Index, error)
	Close() error
}

// EndpointAPI is the subset of the Vertex AI IndexEndpointService used by [Service].
//
// Create and deploy block until the long-running operation completes.
type EndpointAPI interface {
	ListIndexEndpoints(ctx context.Context, parent string) ([]*aiplatformpb.IndexEndpoint, error)
	CreateIndexEndpoint(ctx context.Context, parent string, endpoint *aiplatformpb.IndexEndpoint) (*aiplatformpb.IndexEndpoint, error)
	GetIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error)
	DeployIndex(ctx context.Context, endpoint string, deployed *aiplatformpb.DeployedIndex) (*aiplatformpb.DeployedIndex, error)
	Close() error
}

// MatchAPI sends nearest-neighbor queries to the public domain of an index endpoint.
type MatchAPI interface {
	FindNeighbors(ctx context.Context, publicDomain string, req *aiplatformpb.FindNeighborsRequest) (*aiplatformpb.FindNeighborsResponse, error)
	Close() error
}

type indexAPI struct {
	client *aiplatform.IndexClient
}

var _ IndexAPI = (*indexAPI)(nil)

func (a *indexAPI) ListIndexes(ctx context.Context, parent string) ([]*aiplatformpb.Index, error) {
	it := a.client.ListIndexes(ctx, &aiplatformpb.ListIndexesRequest{
		Parent: parent,
	})

	var indexes []*aiplatformpb.Index
	for {
		index, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, index)
	}
	return indexes, nil
}

func (a *indexAPI) CreateIndex(ctx context.Context, parent string, index *aiplatformpb.Index) (*aiplatformpb.Index, error) {
	op, err := a.client.CreateIndex(ctx, &aiplatformpb.CreateIndexRequest{
		Parent: parent,
		Index:  index,
	})
	if err != nil {
		return nil, err
	}

	created, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for index creation: %w", err)
	}
	return created, nil
}

func (a *indexAPI) UpdateIndex(ctx context.Context, index *aiplatformpb.Index) (*aiplatformpb.Index, error) {
	op, err := a.client.UpdateIndex(ctx, &aiplatformpb.UpdateIndexRequest{
		Index: index,
		UpdateMask: &fieldmaskpb.FieldMask{
			Paths: []string{"metadata"},
		},
	})
	if err != nil {
		return nil, err
	}

	updated, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for index update: %w", err)
	}
	return updated, nil
}

func (a *indexAPI) Close() error {
	return a.client.Close()
}

type endpointAPI struct {
	client *aiplatform.IndexEndpointClient
}

var _ EndpointAPI = (*endpointAPI)(nil)

func (a *endpointAPI) ListIndexEndpoints(ctx context.Context, parent string) ([]*aiplatformpb.IndexEndpoint, error) {
	it := a.client.ListIndexEndpoints(ctx, &aiplatformpb.ListIndexEndpointsRequest{
		Parent: parent,
	})

	var endpoints []*aiplatformpb.IndexEndpoint
	for {
		endpoint, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints, nil
}

func (a *endpointAPI) CreateIndexEndpoint(ctx context.Context, parent string, endpoint *aiplatformpb.IndexEndpoint) (*aiplatformpb.IndexEndpoint, error) {
	op, err := a.client.CreateIndexEndpoint(ctx, &aiplatformpb.CreateIndexEndpointRequest{
		Parent:        parent,
		IndexEndpoint: endpoint,
	})
	if err != nil {
		return nil, err
	}

	created, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for index endpoint creation: %w", err)
	}
	return created, nil
}

func (a *endpointAPI) GetIndexEndpoint(ctx context.Context, name string) (*aiplatformpb.IndexEndpoint, error) {
	return a.client.GetIndexEndpoint(ctx, &aiplatformpb.GetIndexEndpointRequest{
		Name: name,
	})
}

func (a *endpointAPI) DeployIndex(ctx context.Context, endpoint string, deployed *aiplatformpb.DeployedIndex) (*aiplatformpb.DeployedIndex, error) {
	op, err := a.client.DeployIndex(ctx, &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: endpoint,
		DeployedIndex: deployed,
	})
	if err != nil {
		return nil, err
	}

	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for index deployment: %w", err)
	}
	return resp.GetDeployedIndex(), nil
}

func (a *endpointAPI) Close() error {
	return a.client.Close()
}

// matchAPI keeps one MatchClient per public endpoint domain.
type matchAPI struct {
	opts []option.ClientOption

	mu      sync.Mutex
	clients map[string]*aiplatform.MatchClient
}

var _ MatchAPI = (*matchAPI)(nil)

func newMatchAPI(opts ...option.ClientOption) *matchAPI {
	return &matchAPI{
		opts:    opts,
		clients: make(map[string]*aiplatform.MatchClient),
	}
}

func (a *matchAPI) client(ctx context.Context, publicDomain string) (*aiplatform.MatchClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if c, ok := a.clients[publicDomain]; ok {
		return c, nil
	}

	opts := append(a.opts[:len(a.opts):len(a.opts)], option.WithEndpoint(publicDomain+":443"))
	c, err := aiplatform.NewMatchClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create match client for %s: %w", publicDomain, err)
	}
	a.clients[publicDomain] = c
	return c, nil
}

func (a *matchAPI) FindNeighbors(ctx context.Context, publicDomain string, req *aiplatformpb.FindNeighborsRequest) (*aiplatformpb.FindNeighborsResponse, error) {
	c, err := a.client(ctx, publicDomain)
	if err != nil {
		return nil, err
	}
	return c.FindNeighbors(ctx, req)
}

func (a *matchAPI) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for domain, c := range a.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close match client for %s: %w", domain, err))
		}
		delete(a.clients, domain)
	}
	return errors.Join(errs...)
}
